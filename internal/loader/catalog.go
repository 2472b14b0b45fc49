package loader

import (
	"sort"
	"sync"

	"github.com/treeline-labs/treeline/pkg/core"
)

// Catalog is a reloadable set of tree snapshots. The UI server reloads it
// when the trees directory changes on disk.
type Catalog struct {
	mu    sync.RWMutex
	dir   string
	trees map[string]*core.Tree
}

// NewCatalog creates a catalog over a trees directory. Call Reload to
// populate it.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, trees: make(map[string]*core.Tree)}
}

// Reload re-reads every snapshot from the directory, replacing the previous
// set atomically. On error the previous set is kept.
func (c *Catalog) Reload() error {
	trees, err := LoadDir(c.dir)
	if err != nil {
		return err
	}

	next := make(map[string]*core.Tree, len(trees))
	for _, t := range trees {
		next[t.ID] = t
	}

	c.mu.Lock()
	c.trees = next
	c.mu.Unlock()
	return nil
}

// Get returns a tree by ID, or nil.
func (c *Catalog) Get(id string) *core.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trees[id]
}

// List returns all trees sorted by ID.
func (c *Catalog) List() []*core.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*core.Tree, 0, len(c.trees))
	for _, t := range c.trees {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
