// Package loader reads navigation tree snapshots from YAML files. Snapshots
// are the project-local description of a tree's nodes and edges; the host
// backend remains authoritative for live topology, but snapshots let the
// CLI preview and drive runs without asking the host for structure.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/treeline-labs/treeline/pkg/core"
)

// treeFile is the YAML wire shape of a tree snapshot.
type treeFile struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Nodes []nodeFile `yaml:"nodes"`
	Edges []edgeFile `yaml:"edges"`
}

type nodeFile struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
}

type edgeFile struct {
	ID            string `yaml:"id"`
	Source        string `yaml:"source"`
	Target        string `yaml:"target"`
	Label         string `yaml:"label"`
	Actions       int    `yaml:"actions"`
	Verifications int    `yaml:"verifications"`
}

// LoadTree reads and validates a single tree snapshot.
func LoadTree(path string) (*core.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}

	var tf treeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	tree := tf.toTree()
	if tree.ID == "" {
		base := filepath.Base(path)
		tree.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := Validate(tree); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// LoadDir reads every *.yaml/*.yml snapshot in a directory, sorted by file
// name. A missing directory is not an error; there are just no trees.
func LoadDir(dir string) ([]*core.Tree, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trees directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	trees := make([]*core.Tree, 0, len(paths))
	for _, p := range paths {
		tree, err := LoadTree(p)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

func (tf treeFile) toTree() *core.Tree {
	tree := &core.Tree{ID: tf.ID, Name: tf.Name}
	for _, n := range tf.Nodes {
		nt := core.NodeType(n.Type)
		if n.Type == "" {
			nt = core.NodeTypeScreen
		}
		tree.Nodes = append(tree.Nodes, core.TreeNode{ID: n.ID, Label: n.Label, Type: nt})
	}
	for _, e := range tf.Edges {
		tree.Edges = append(tree.Edges, core.TreeEdge{
			ID:                e.ID,
			Source:            e.Source,
			Target:            e.Target,
			Label:             e.Label,
			ActionCount:       e.Actions,
			VerificationCount: e.Verifications,
		})
	}
	return tree
}

// Validate checks snapshot integrity: unique node IDs, edges referencing
// declared nodes, and at most one entry node.
func Validate(t *core.Tree) error {
	nodes := make(map[string]bool, len(t.Nodes))
	entries := 0
	for _, n := range t.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if nodes[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		nodes[n.ID] = true
		if n.Type == core.NodeTypeEntry {
			entries++
		}
	}
	if entries > 1 {
		return fmt.Errorf("tree has %d entry nodes, want at most one", entries)
	}

	edgeKeys := make(map[string]bool, len(t.Edges))
	for _, e := range t.Edges {
		if !nodes[e.Source] {
			return fmt.Errorf("edge %s references unknown source %q", e.Key(), e.Source)
		}
		if !nodes[e.Target] {
			return fmt.Errorf("edge %s references unknown target %q", e.Key(), e.Target)
		}
		if edgeKeys[e.Key()] {
			return fmt.Errorf("duplicate edge %s", e.Key())
		}
		edgeKeys[e.Key()] = true
	}
	return nil
}
