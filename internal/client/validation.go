package client

import (
	"context"
	"fmt"
	"time"

	"github.com/treeline-labs/treeline/pkg/core"
)

// Wire shapes. The preview envelope uses camelCase keys while run results use
// snake_case; that drift is host-side and mirrored here as-is.

type previewEnvelope struct {
	Success bool            `json:"success"`
	Preview *previewPayload `json:"preview"`
	Error   string          `json:"error,omitempty"`
}

type previewPayload struct {
	TotalNodes     int      `json:"totalNodes"`
	TotalEdges     int      `json:"totalEdges"`
	ReachableNodes []string `json:"reachableNodes"`
	ReachableEdges []string `json:"reachableEdges"`
	EstimatedTime  int      `json:"estimatedTime"`
}

type runRequest struct {
	Host            string   `json:"host"`
	DeviceID        string   `json:"device_id"`
	EdgesToValidate []string `json:"edges_to_validate"`
}

type runEnvelope struct {
	Success   bool             `json:"success"`
	Summary   *runSummary      `json:"summary"`
	Results   []edgeResultWire `json:"results"`
	ReportURL string           `json:"report_url,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type runSummary struct {
	TotalTested   int    `json:"totalTested"`
	Successful    int    `json:"successful"`
	Failed        int    `json:"failed"`
	Skipped       int    `json:"skipped"`
	OverallHealth string `json:"overallHealth"`
}

type edgeResultWire struct {
	EdgeID             string  `json:"edge_id,omitempty"`
	FromNode           string  `json:"from_node"`
	ToNode             string  `json:"to_node"`
	FromName           string  `json:"from_name"`
	ToName             string  `json:"to_name"`
	Success            bool    `json:"success"`
	Skipped            bool    `json:"skipped"`
	ErrorMessage       string  `json:"error_message,omitempty"`
	ExecutionTime      float64 `json:"execution_time"`
	ActionsExecuted    int     `json:"actions_executed"`
	TotalActions       int     `json:"total_actions"`
	VerificationsPass  int     `json:"verifications_passed"`
	TotalVerifications int     `json:"total_verifications"`
}

type executeRequest struct {
	Host     string `json:"host"`
	DeviceID string `json:"device_id"`
	EdgeID   string `json:"edge_id"`
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
}

type executeEnvelope struct {
	Success bool            `json:"success"`
	Result  *edgeResultWire `json:"result"`
	Error   string          `json:"error,omitempty"`
}

// Preview fetches the host's dry-run summary for a tree.
func (c *Client) Preview(ctx context.Context, treeID string) (*core.ValidationPreview, error) {
	op := "/server/validation/preview/" + treeID

	var env previewEnvelope
	if err := c.getJSON(ctx, op, &env); err != nil {
		return nil, err
	}
	if !env.Success || env.Preview == nil {
		return nil, backendError(op, env.Error)
	}

	return &core.ValidationPreview{
		TotalNodes:     env.Preview.TotalNodes,
		TotalEdges:     env.Preview.TotalEdges,
		ReachableNodes: env.Preview.ReachableNodes,
		ReachableEdges: env.Preview.ReachableEdges,
		EstimatedTime:  env.Preview.EstimatedTime,
	}, nil
}

// Run submits a whole-tree validation run and waits for the host to finish.
// The host traverses the tree, exercises every requested edge and reports
// per-edge outcomes in one response.
func (c *Client) Run(ctx context.Context, treeID, host, deviceID string, edges []string) (*core.ValidationResults, error) {
	op := "/server/validation/run/" + treeID

	var env runEnvelope
	req := runRequest{Host: host, DeviceID: deviceID, EdgesToValidate: edges}
	if err := c.postJSON(ctx, op, req, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, backendError(op, env.Error)
	}

	results := &core.ValidationResults{
		TreeID:    treeID,
		Edges:     make([]core.EdgeResult, len(env.Results)),
		ReportURL: env.ReportURL,
	}
	var total time.Duration
	for i, w := range env.Results {
		results.Edges[i] = mapEdgeResult(w)
		total += results.Edges[i].ExecutionTime
	}

	// Prefer the host summary when present; recompute otherwise.
	if env.Summary != nil {
		results.Summary = core.ValidationSummary{
			TotalTested:   env.Summary.TotalTested,
			Successful:    env.Summary.Successful,
			Failed:        env.Summary.Failed,
			Skipped:       env.Summary.Skipped,
			OverallHealth: core.Health(env.Summary.OverallHealth),
			ExecutionTime: total,
		}
	} else {
		results.Summary = core.Summarize(results.Edges, total)
	}

	return results, nil
}

// ExecuteEdge navigates a single edge on the device and reports its outcome.
// Used by the sequential run mode, which drives the traversal edge by edge
// so that progress is real rather than simulated.
func (c *Client) ExecuteEdge(ctx context.Context, treeID, host, deviceID string, edge core.TreeEdge) (core.EdgeResult, error) {
	op := "/server/navigation/execute/" + treeID

	req := executeRequest{
		Host:     host,
		DeviceID: deviceID,
		EdgeID:   edge.ID,
		FromNode: edge.Source,
		ToNode:   edge.Target,
	}

	var env executeEnvelope
	if err := c.postJSON(ctx, op, req, &env); err != nil {
		return core.EdgeResult{}, err
	}
	if env.Result == nil {
		return core.EdgeResult{}, backendError(op, fmt.Sprintf("missing result for edge %s", edge.Key()))
	}

	res := mapEdgeResult(*env.Result)
	if res.EdgeID == "" {
		res.EdgeID = edge.ID
	}
	// success=false with a populated result is a per-edge failure, not a
	// transport error; the envelope error is only fatal without a result.
	return res, nil
}

// mapEdgeResult converts a wire edge result into the core shape.
func mapEdgeResult(w edgeResultWire) core.EdgeResult {
	return core.EdgeResult{
		EdgeID:              w.EdgeID,
		FromNode:            w.FromNode,
		ToNode:              w.ToNode,
		FromName:            w.FromName,
		ToName:              w.ToName,
		Success:             w.Success,
		Skipped:             w.Skipped,
		ErrorMessage:        w.ErrorMessage,
		ExecutionTime:       time.Duration(w.ExecutionTime * float64(time.Second)),
		ActionsExecuted:     w.ActionsExecuted,
		TotalActions:        w.TotalActions,
		VerificationsPassed: w.VerificationsPass,
		TotalVerifications:  w.TotalVerifications,
	}
}
