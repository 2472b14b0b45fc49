package views

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treeline-labs/treeline/internal/profile"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/pkg/core"
)

func testTree() *core.Tree {
	return &core.Tree{
		ID:   "tree-main",
		Name: "Main",
		Nodes: []core.TreeNode{
			{ID: "entry", Label: "Entry", Type: core.NodeTypeEntry},
			{ID: "home", Label: "Home", Type: core.NodeTypeScreen},
			{ID: "settings", Type: core.NodeTypeScreen},
		},
		Edges: []core.TreeEdge{
			{ID: "e1", Source: "entry", Target: "home"},
			{ID: "e2", Source: "home", Target: "settings"},
		},
	}
}

func testState() session.State {
	st := session.State{
		TreeID:   "tree-main",
		Statuses: core.NewStatusMap(),
	}
	st.Statuses.SetNodeStatus("home", core.StatusHigh)
	st.Statuses.SetEdgeStatus("e1", core.StatusHigh)
	// Older hosts report the composite form.
	st.Statuses.SetEdgeStatus("home-settings", core.StatusMedium)
	return st
}

func TestTemplatesParse(t *testing.T) {
	_, err := New()
	require.NoError(t, err)
}

func TestHomeFragment(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	data := HomeData{
		Trees: []TreeSummary{{
			Tree: testTree(),
			LastRun: &core.Run{
				ID: "run-12345678", Status: core.RunStatusCompleted,
				OverallHealth: core.HealthGood, StartedAt: time.Now(),
			},
		}},
		HostCount: 2,
	}

	html, err := v.Fragment("home_content", data)
	require.NoError(t, err)
	assert.Contains(t, html, "Main")
	assert.Contains(t, html, "health-good")
	assert.Contains(t, html, `href="/trees/tree-main"`)
}

func TestTreeFragment(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	data := TreeData{
		Tree:  testTree(),
		State: testState(),
		Hosts: []profile.Host{{Name: "living-room", URL: "http://h:1"}},
		Host:  "living-room",
	}

	html, err := v.Fragment("tree_content", data)
	require.NoError(t, err)
	assert.Contains(t, html, "status-high", "node status colors render")
	assert.Contains(t, html, "status-medium", "composite edge key falls back")
	assert.Contains(t, html, "living-room")
	assert.Contains(t, html, "/trees/tree-main/validate")
}

func TestTreeFragmentProgress(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	data := TreeData{
		Tree: testTree(),
		State: session.State{
			Validating: true,
			Progress: &core.ValidationProgress{
				CurrentStep: 1, TotalSteps: 2,
				FromNode: "Entry", ToNode: "Home",
				Status: core.StepStatusTesting,
			},
			Statuses: core.NewStatusMap(),
		},
	}

	html, err := v.Fragment("tree_content", data)
	require.NoError(t, err)
	assert.Contains(t, html, "Step 1/2")
	assert.Contains(t, html, "width: 50%")
	assert.Contains(t, html, "Cancel")
}

func TestPageWrapsFragment(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = v.Page(&buf, "Runs", "runs_content", RunsData{})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<title>Runs · Treeline</title>")
	assert.Contains(t, html, "No runs recorded")
}

func TestNodeRowsExcludeEntry(t *testing.T) {
	data := TreeData{Tree: testTree(), State: testState()}

	rows := data.NodeRows()
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.NotEqual(t, core.NodeTypeEntry, r.Node.Type)
	}
	assert.Equal(t, core.StatusHigh, rows[0].Status)
	assert.Equal(t, core.StatusUntested, rows[1].Status)
}

func TestEdgeRowsCompositeFallback(t *testing.T) {
	data := TreeData{Tree: testTree(), State: testState()}

	rows := data.EdgeRows()
	require.Len(t, rows, 2)
	assert.Equal(t, core.StatusHigh, rows[0].Status)
	assert.Equal(t, core.StatusMedium, rows[1].Status, "composite source-target key resolves")
	assert.Equal(t, "settings", rows[1].To, "missing label falls back to node id")
}

func TestProgressPercent(t *testing.T) {
	data := TreeData{State: session.State{}}
	assert.Equal(t, 0, data.ProgressPercent())

	data.State.Progress = &core.ValidationProgress{CurrentStep: 3, TotalSteps: 4}
	assert.Equal(t, 75, data.ProgressPercent())
}
