package loader

import (
	"sort"

	"github.com/treeline-labs/treeline/pkg/core"
)

// estimatedSecondsPerEdge is the planning estimate for exercising one edge,
// covering navigation plus verification on a real device.
const estimatedSecondsPerEdge = 30

// Reachable walks the tree from its entry node and returns the node and
// edge keys a traversal can actually visit, both in deterministic order.
// Without an entry node every node is considered a potential start, which
// makes the whole tree reachable.
func Reachable(t *core.Tree) (nodes, edges []string) {
	adjacency := make(map[string][]core.TreeEdge, len(t.Nodes))
	for _, e := range t.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e)
	}

	var starts []string
	if entry := t.EntryNode(); entry != nil {
		starts = []string{entry.ID}
	} else {
		for _, n := range t.Nodes {
			starts = append(starts, n.ID)
		}
	}

	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)
	queue := append([]string(nil), starts...)
	for _, s := range starts {
		seenNodes[s] = true
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adjacency[cur] {
			if !seenEdges[e.Key()] {
				seenEdges[e.Key()] = true
			}
			if !seenNodes[e.Target] {
				seenNodes[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}

	// Entry nodes are traversal anchors, not testable screens.
	for id := range seenNodes {
		if entry := t.EntryNode(); entry != nil && entry.ID == id {
			continue
		}
		nodes = append(nodes, id)
	}
	for k := range seenEdges {
		edges = append(edges, k)
	}
	sort.Strings(nodes)
	sort.Strings(edges)
	return nodes, edges
}

// OfflinePreview computes a preview from a local snapshot, mirroring the
// host's dry-run shape. Used when previewing without a reachable host.
func OfflinePreview(t *core.Tree) *core.ValidationPreview {
	nodes, edges := Reachable(t)
	return &core.ValidationPreview{
		TotalNodes:     len(t.Nodes),
		TotalEdges:     len(t.Edges),
		ReachableNodes: nodes,
		ReachableEdges: edges,
		EstimatedTime:  len(edges) * estimatedSecondsPerEdge,
	}
}
