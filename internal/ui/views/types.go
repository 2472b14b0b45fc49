package views

import (
	"github.com/treeline-labs/treeline/internal/profile"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/pkg/core"
)

// HomeData feeds the dashboard fragment.
type HomeData struct {
	Trees      []TreeSummary
	RecentRuns []*core.Run
	HostCount  int
}

// TreeSummary is one dashboard row.
type TreeSummary struct {
	Tree       *core.Tree
	Validating bool
	LastRun    *core.Run
}

// TreeData feeds the tree detail fragment.
type TreeData struct {
	Tree    *core.Tree
	State   session.State
	Hosts   []profile.Host
	Host    string
	Device  string
	Message string
}

// NodeRow pairs a node with its derived status for rendering.
type NodeRow struct {
	Node   core.TreeNode
	Status core.Status
}

// EdgeRow pairs an edge with its derived status.
type EdgeRow struct {
	Edge   core.TreeEdge
	From   string
	To     string
	Status core.Status
}

// NodeRows resolves the status of every non-entry node.
func (d TreeData) NodeRows() []NodeRow {
	var rows []NodeRow
	for _, n := range d.Tree.Nodes {
		if n.Type == core.NodeTypeEntry {
			continue
		}
		rows = append(rows, NodeRow{Node: n, Status: d.State.Statuses.NodeStatus(n.ID)})
	}
	return rows
}

// EdgeRows resolves the status of every edge, including the composite-key
// fallback for hosts that report edges as "source-target".
func (d TreeData) EdgeRows() []EdgeRow {
	var rows []EdgeRow
	for _, e := range d.Tree.Edges {
		rows = append(rows, EdgeRow{
			Edge:   e,
			From:   d.Tree.NodeLabel(e.Source),
			To:     d.Tree.NodeLabel(e.Target),
			Status: d.State.Statuses.EdgeStatus(e.ID, e.Source, e.Target),
		})
	}
	return rows
}

// ProgressPercent is the run completion ratio for the progress bar.
func (d TreeData) ProgressPercent() int {
	p := d.State.Progress
	if p == nil || p.TotalSteps == 0 {
		return 0
	}
	return p.CurrentStep * 100 / p.TotalSteps
}

// RunsData feeds the run history fragment.
type RunsData struct {
	Runs []*core.Run
}

// RunDetailData feeds the run detail fragment.
type RunDetailData struct {
	Run   *core.Run
	Edges []core.EdgeResult
}
