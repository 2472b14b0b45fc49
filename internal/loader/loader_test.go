package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treeline-labs/treeline/pkg/core"
)

const sampleTree = `
id: tree-main
name: Main Navigation
nodes:
  - id: entry
    label: Entry
    type: entry
  - id: home
    label: Home
  - id: settings
    label: Settings
    type: menu
  - id: orphan
    label: Orphan
edges:
  - id: e1
    source: entry
    target: home
    label: launch
    actions: 2
    verifications: 1
  - id: e2
    source: home
    target: settings
`

func writeTree(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTree(t *testing.T) {
	path := writeTree(t, t.TempDir(), "main.yaml", sampleTree)

	tree, err := LoadTree(path)
	require.NoError(t, err)

	assert.Equal(t, "tree-main", tree.ID)
	assert.Equal(t, "Main Navigation", tree.Name)
	require.Len(t, tree.Nodes, 4)
	assert.Equal(t, core.NodeTypeEntry, tree.Nodes[0].Type)
	assert.Equal(t, core.NodeTypeScreen, tree.Nodes[1].Type, "untyped nodes default to screen")
	assert.Equal(t, core.NodeTypeMenu, tree.Nodes[2].Type)

	require.Len(t, tree.Edges, 2)
	assert.Equal(t, 2, tree.Edges[0].ActionCount)
	assert.Equal(t, 1, tree.Edges[0].VerificationCount)
}

func TestLoadTreeIDDefaultsToFilename(t *testing.T) {
	path := writeTree(t, t.TempDir(), "kitchen.yaml", `
nodes:
  - id: a
`)
	tree, err := LoadTree(path)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", tree.ID)
}

func TestLoadTreeValidation(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"duplicate node", `
nodes:
  - id: a
  - id: a
`, "duplicate node"},
		{"unknown edge target", `
nodes:
  - id: a
edges:
  - source: a
    target: ghost
`, "unknown target"},
		{"unknown edge source", `
nodes:
  - id: a
edges:
  - source: ghost
    target: a
`, "unknown source"},
		{"two entry nodes", `
nodes:
  - id: a
    type: entry
  - id: b
    type: entry
`, "entry nodes"},
		{"duplicate edge", `
nodes:
  - id: a
  - id: b
edges:
  - source: a
    target: b
  - source: a
    target: b
`, "duplicate edge"},
		{"bad yaml", "nodes: [", "parse"},
	}

	dir := t.TempDir()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTree(t, dir, "bad.yaml", tc.src)
			_, err := LoadTree(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", "id: tree-b\nnodes:\n  - id: x\n")
	writeTree(t, dir, "a.yml", "id: tree-a\nnodes:\n  - id: x\n")
	writeTree(t, dir, "notes.txt", "not a tree")

	trees, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, "tree-a", trees[0].ID, "trees are sorted by file name")
	assert.Equal(t, "tree-b", trees[1].ID)
}

func TestLoadDirMissing(t *testing.T) {
	trees, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, trees)
}

func TestReachable(t *testing.T) {
	path := writeTree(t, t.TempDir(), "main.yaml", sampleTree)
	tree, err := LoadTree(path)
	require.NoError(t, err)

	nodes, edges := Reachable(tree)
	assert.Equal(t, []string{"home", "settings"}, nodes, "entry and orphan are excluded")
	assert.Equal(t, []string{"e1", "e2"}, edges)
}

func TestReachableNoEntry(t *testing.T) {
	tree := &core.Tree{
		ID: "t",
		Nodes: []core.TreeNode{
			{ID: "a", Type: core.NodeTypeScreen},
			{ID: "b", Type: core.NodeTypeScreen},
		},
		Edges: []core.TreeEdge{{ID: "e", Source: "a", Target: "b"}},
	}
	nodes, edges := Reachable(tree)
	assert.Equal(t, []string{"a", "b"}, nodes)
	assert.Equal(t, []string{"e"}, edges)
}

func TestOfflinePreview(t *testing.T) {
	path := writeTree(t, t.TempDir(), "main.yaml", sampleTree)
	tree, err := LoadTree(path)
	require.NoError(t, err)

	p := OfflinePreview(tree)
	assert.Equal(t, 4, p.TotalNodes)
	assert.Equal(t, 2, p.TotalEdges)
	assert.Equal(t, []string{"e1", "e2"}, p.ReachableEdges)
	assert.Equal(t, 2*estimatedSecondsPerEdge, p.EstimatedTime)
}
