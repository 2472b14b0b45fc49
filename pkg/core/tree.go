package core

// NodeType classifies a navigation node.
type NodeType string

// Node type constants.
const (
	// NodeTypeEntry is the synthetic entry point of a tree. Entry nodes are
	// never exercised by a run and always render with a fixed accent.
	NodeTypeEntry NodeType = "entry"
	// NodeTypeScreen is a regular screen/state node.
	NodeTypeScreen NodeType = "screen"
	// NodeTypeMenu is a menu node grouping other screens.
	NodeTypeMenu NodeType = "menu"
)

// Tree represents a navigation graph under test: nodes are screens/states,
// edges are transitions exercised by a validation run.
type Tree struct {
	// ID is the tree identifier used to key all validation state
	ID string
	// Name is a human-readable label
	Name string
	// Nodes are the screens/states of the tree
	Nodes []TreeNode
	// Edges are the transitions between nodes
	Edges []TreeEdge
}

// TreeNode is a single screen/state in a navigation tree.
type TreeNode struct {
	ID    string
	Label string
	Type  NodeType
}

// TreeEdge is a directed transition between two nodes. An edge carries the
// actions needed to perform the transition and the verifications that confirm
// the target screen was reached; both are executed host-side.
type TreeEdge struct {
	ID     string
	Source string
	Target string
	Label  string
	// ActionCount and VerificationCount are informational; the host reports
	// actual executed counts in EdgeResult.
	ActionCount       int
	VerificationCount int
}

// Key returns the canonical lookup key for the edge: the edge ID when set,
// otherwise the source-target composite form.
func (e TreeEdge) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return CompositeEdgeKey(e.Source, e.Target)
}

// CompositeEdgeKey builds the legacy "source-target" edge key. Older hosts
// identify edges this way instead of by edge ID, so status lookups fall back
// to this form when the ID key misses.
func CompositeEdgeKey(source, target string) string {
	return source + "-" + target
}

// EntryNode returns the entry node of the tree, or nil if none is marked.
func (t *Tree) EntryNode() *TreeNode {
	for i := range t.Nodes {
		if t.Nodes[i].Type == NodeTypeEntry {
			return &t.Nodes[i]
		}
	}
	return nil
}

// FindEdge returns the edge with the given ID, or nil.
func (t *Tree) FindEdge(id string) *TreeEdge {
	for i := range t.Edges {
		if t.Edges[i].ID == id {
			return &t.Edges[i]
		}
	}
	return nil
}

// NodeLabel returns the label for a node ID, falling back to the ID itself.
func (t *Tree) NodeLabel(id string) string {
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			if t.Nodes[i].Label != "" {
				return t.Nodes[i].Label
			}
			return id
		}
	}
	return id
}
