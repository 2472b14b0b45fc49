package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treeline-labs/treeline/internal/client"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/internal/state"
	"github.com/treeline-labs/treeline/pkg/core"
)

func testTree() *core.Tree {
	return &core.Tree{
		ID:   "tree-main",
		Name: "Main",
		Nodes: []core.TreeNode{
			{ID: "entry", Label: "Entry", Type: core.NodeTypeEntry},
			{ID: "home", Label: "Home", Type: core.NodeTypeScreen},
			{ID: "settings", Label: "Settings", Type: core.NodeTypeScreen},
		},
		Edges: []core.TreeEdge{
			{ID: "e1", Source: "entry", Target: "home"},
			{ID: "e2", Source: "home", Target: "settings"},
		},
	}
}

// hostStub serves the execute endpoint with canned per-edge outcomes keyed
// by edge ID.
type hostStub struct {
	t        *testing.T
	outcomes map[string]map[string]any
	calls    atomic.Int32
	onCall   func(n int32)
}

func (h *hostStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/server/validation/preview/") {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"preview": map[string]any{
				"totalNodes": 3, "totalEdges": 2,
				"reachableEdges": []string{"e1", "e2"},
			},
		})
		return
	}

	n := h.calls.Add(1)
	if h.onCall != nil {
		h.onCall(n)
	}

	if !strings.HasPrefix(r.URL.Path, "/server/navigation/execute/") {
		http.NotFound(w, r)
		return
	}

	var req struct {
		EdgeID string `json:"edge_id"`
	}
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))

	result, ok := h.outcomes[req.EdgeID]
	if !ok {
		h.t.Fatalf("unexpected edge %q", req.EdgeID)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}

func passResult(from, to string) map[string]any {
	return map[string]any{
		"from_node": from, "to_node": to, "success": true,
		"execution_time": 0.5, "actions_executed": 2, "total_actions": 2,
		"verifications_passed": 1, "total_verifications": 1,
	}
}

func failResult(from, to, msg string) map[string]any {
	return map[string]any{
		"from_node": from, "to_node": to, "success": false,
		"error_message": msg, "execution_time": 0.2,
		"actions_executed": 0, "total_actions": 2,
	}
}

func newTestEngine(t *testing.T, handler http.Handler) (*Engine, *session.Store, core.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(client.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())

	sess := session.New(nil)
	return New(Config{Client: c, Session: sess, History: store}), sess, store
}

func TestRunSequential(t *testing.T) {
	stub := &hostStub{t: t, outcomes: map[string]map[string]any{
		"e1": passResult("entry", "home"),
		"e2": passResult("home", "settings"),
	}}
	eng, sess, store := newTestEngine(t, stub)

	results, err := eng.Run(context.Background(), testTree(), Options{Host: "host1", DeviceID: "dev1"})
	require.NoError(t, err)

	assert.Equal(t, 2, results.Summary.TotalTested)
	assert.Equal(t, 2, results.Summary.Successful)
	assert.Equal(t, core.HealthExcellent, results.Summary.OverallHealth)
	assert.Equal(t, int32(2), stub.calls.Load())

	st := sess.Snapshot("tree-main")
	assert.False(t, st.Validating)
	assert.Nil(t, st.Progress)
	assert.NotNil(t, st.Preview, "a run with no preview loads one first")
	assert.Same(t, results, st.Results)
	assert.Same(t, results, st.LastResult)
	assert.Equal(t, core.StatusHigh, st.Statuses.NodeStatus("home"))
	assert.Equal(t, core.StatusHigh, st.Statuses.EdgeStatus("e2", "home", "settings"))

	run, err := store.GetLatestRun("tree-main")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	persisted, err := store.GetEdgeResultsForRun(run.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestRunRequiresHost(t *testing.T) {
	eng, _, _ := newTestEngine(t, http.NotFoundHandler())

	_, err := eng.Run(context.Background(), testTree(), Options{})
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestRunInFlightFailsFast(t *testing.T) {
	eng, sess, _ := newTestEngine(t, http.NotFoundHandler())

	release, ok := sess.AcquireRun("tree-main")
	require.True(t, ok)
	defer release()

	_, err := eng.Run(context.Background(), testTree(), Options{Host: "host1"})
	assert.ErrorIs(t, err, ErrRunInFlight)
}

func TestRunEdgeFailureContinues(t *testing.T) {
	stub := &hostStub{t: t, outcomes: map[string]map[string]any{
		"e1": failResult("entry", "home", "element not found"),
		"e2": passResult("home", "settings"),
	}}
	eng, sess, _ := newTestEngine(t, stub)

	results, err := eng.Run(context.Background(), testTree(), Options{Host: "host1"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), stub.calls.Load(), "a failed edge must not stop the run")
	assert.Equal(t, 1, results.Summary.Failed)
	assert.Equal(t, 1, results.Summary.Successful)
	assert.Equal(t, core.HealthFair, results.Summary.OverallHealth)
	assert.Equal(t, "element not found", results.Edges[0].ErrorMessage)

	st := sess.Snapshot("tree-main")
	assert.Equal(t, core.StatusLow, st.Statuses.NodeStatus("home"))
	assert.Equal(t, core.StatusHigh, st.Statuses.NodeStatus("settings"))
}

func TestRunCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &hostStub{t: t, outcomes: map[string]map[string]any{
		"e1": passResult("entry", "home"),
		"e2": passResult("home", "settings"),
	}}
	stub.onCall = func(n int32) {
		if n == 1 {
			cancel()
		}
	}
	eng, sess, store := newTestEngine(t, stub)

	results, err := eng.Run(ctx, testTree(), Options{Host: "host1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, results, "completed edges survive cancellation")
	assert.LessOrEqual(t, len(results.Edges), 1)

	st := sess.Snapshot("tree-main")
	assert.False(t, st.Validating, "validating must clear on cancellation")
	assert.Nil(t, st.Progress)
	assert.NotEmpty(t, st.LastError)

	run, err := store.GetLatestRun("tree-main")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, core.RunStatusCancelled, run.Status)
}

func TestRunSkipEdges(t *testing.T) {
	stub := &hostStub{t: t, outcomes: map[string]map[string]any{
		"e2": passResult("home", "settings"),
	}}
	eng, _, _ := newTestEngine(t, stub)

	results, err := eng.Run(context.Background(), testTree(),
		Options{Host: "host1", SkipEdges: []string{"e1"}})
	require.NoError(t, err)

	assert.Equal(t, int32(1), stub.calls.Load(), "skipped edges are never executed")
	assert.Equal(t, 1, results.Summary.Skipped)
	assert.Equal(t, 1, results.Summary.TotalTested)
	require.Len(t, results.Edges, 2)
	assert.True(t, results.Edges[0].Skipped)
}

func TestRunHonorsPreviewReachability(t *testing.T) {
	stub := &hostStub{t: t, outcomes: map[string]map[string]any{
		"e1": passResult("entry", "home"),
	}}
	eng, sess, _ := newTestEngine(t, stub)

	sess.SetPreview("tree-main", &core.ValidationPreview{
		TotalNodes: 3, TotalEdges: 2,
		ReachableEdges: []string{"e1"},
	})

	results, err := eng.Run(context.Background(), testTree(), Options{Host: "host1"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Len(t, results.Edges, 1)
}

func TestRunTransportFailureFailsEdgeNotRun(t *testing.T) {
	stub := &hostStub{t: t, outcomes: map[string]map[string]any{
		"e2": passResult("home", "settings"),
	}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EdgeID string `json:"edge_id"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		if req.EdgeID == "e1" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		stub.ServeHTTP(w, r)
	})
	eng, _, _ := newTestEngine(t, handler)

	results, err := eng.Run(context.Background(), testTree(), Options{Host: "host1"})
	require.NoError(t, err)
	assert.Equal(t, 1, results.Summary.Failed)
	assert.Equal(t, 1, results.Summary.Successful)
	assert.Contains(t, results.Edges[0].ErrorMessage, "502")
}

// batchStub serves the preview and batch run endpoints, capturing the
// posted edge list.
func batchStub(t *testing.T, posted *[]string, results []map[string]any, summary map[string]any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/server/validation/preview/") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"preview": map[string]any{"totalNodes": 3, "totalEdges": 2},
			})
			return
		}
		require.True(t, strings.HasPrefix(r.URL.Path, "/server/validation/run/"))

		var req struct {
			EdgesToValidate []string `json:"edges_to_validate"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*posted = req.EdgesToValidate

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true, "summary": summary, "results": results,
		})
	})
}

func TestRunBatch(t *testing.T) {
	var posted []string
	handler := batchStub(t, &posted,
		[]map[string]any{
			passResult("entry", "home"),
			passResult("home", "settings"),
		},
		map[string]any{
			"totalTested": 2, "successful": 2, "failed": 0, "skipped": 0,
			"overallHealth": "excellent",
		})
	eng, sess, store := newTestEngine(t, handler)

	results, err := eng.Run(context.Background(), testTree(), Options{Host: "host1", Batch: true})
	require.NoError(t, err)
	assert.Equal(t, core.HealthExcellent, results.Summary.OverallHealth)
	assert.ElementsMatch(t, []string{"e1", "e2"}, posted)

	st := sess.Snapshot("tree-main")
	assert.Equal(t, core.StatusHigh, st.Statuses.NodeStatus("settings"))

	run, err := store.GetLatestRun("tree-main")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, core.RunStatusCompleted, run.Status)

	persisted, err := store.GetEdgeResultsForRun(run.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 2, "batch runs persist per-edge history")
}

func TestRunBatchSkipEdges(t *testing.T) {
	var posted []string
	handler := batchStub(t, &posted,
		[]map[string]any{passResult("home", "settings")},
		map[string]any{
			"totalTested": 1, "successful": 1, "failed": 0, "skipped": 0,
			"overallHealth": "excellent",
		})
	eng, _, store := newTestEngine(t, handler)

	results, err := eng.Run(context.Background(), testTree(),
		Options{Host: "host1", Batch: true, SkipEdges: []string{"e1"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"e2"}, posted, "skipped edges stay out of the posted list")
	assert.Equal(t, 1, results.Summary.Skipped)
	assert.Equal(t, 1, results.Summary.TotalTested)
	require.Len(t, results.Edges, 2)

	run, err := store.GetLatestRun("tree-main")
	require.NoError(t, err)
	require.NotNil(t, run)
	persisted, err := store.GetEdgeResultsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, persisted, 2)

	var skippedCount int
	for _, res := range persisted {
		if res.Skipped {
			skippedCount++
			assert.Equal(t, "e1", res.EdgeID)
		}
	}
	assert.Equal(t, 1, skippedCount)
}

func TestRunFailsWhenPreviewUnavailable(t *testing.T) {
	var executed atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/server/validation/preview/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		executed.Add(1)
	})
	eng, sess, _ := newTestEngine(t, handler)

	_, err := eng.Run(context.Background(), testTree(), Options{Host: "host1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load preview")
	assert.Equal(t, int32(0), executed.Load(), "no edge runs without preview data")
	assert.NotEmpty(t, sess.Snapshot("tree-main").LastError)
}

func TestLoadPreview(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"preview": map[string]any{
				"totalNodes": 3, "totalEdges": 2,
				"reachableNodes": []string{"home", "settings"},
				"reachableEdges": []string{"e1", "e2"},
				"estimatedTime":  42,
			},
		})
	})
	eng, sess, _ := newTestEngine(t, handler)

	preview, err := eng.LoadPreview(context.Background(), "tree-main")
	require.NoError(t, err)
	assert.Equal(t, 42, preview.EstimatedTime)

	st := sess.Snapshot("tree-main")
	require.NotNil(t, st.Preview)
	assert.Equal(t, []string{"e1", "e2"}, st.Preview.ReachableEdges)
	assert.Empty(t, st.LastError)
}

func TestLoadPreviewFailureKeepsPrevious(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	eng, sess, _ := newTestEngine(t, handler)

	previous := &core.ValidationPreview{TotalNodes: 1}
	sess.SetPreview("tree-main", previous)

	_, err := eng.LoadPreview(context.Background(), "tree-main")
	require.Error(t, err)

	st := sess.Snapshot("tree-main")
	assert.Same(t, previous, st.Preview, "a failed fetch keeps the stale preview")
	assert.NotEmpty(t, st.LastError)
}

func TestDescribe(t *testing.T) {
	r := &core.ValidationResults{Summary: core.ValidationSummary{
		TotalTested: 3, Successful: 2, Failed: 1,
		OverallHealth: core.HealthFair, ExecutionTime: time.Second,
	}}
	assert.Equal(t, "3 tested, 2 passed, 1 failed, 0 skipped (fair)", Describe(r))
}
