// Package engine orchestrates validation runs. It drives the host client
// edge by edge, maintains the live session state that the CLI and web UI
// render from, and persists run history through a core.Store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/treeline-labs/treeline/internal/client"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/pkg/core"
)

// ErrRunInFlight is returned when a run is requested for a tree that
// already has one running. Different trees validate independently.
var ErrRunInFlight = errors.New("a validation run is already in flight for this tree")

// ErrNoHost is returned when a run is requested without a host selected.
var ErrNoHost = errors.New("no host selected")

// Engine coordinates a validation run across the host client, the session
// store and the run history store.
type Engine struct {
	client  *client.Client
	session *session.Store
	history core.Store
	logger  *slog.Logger
}

// Config holds engine dependencies. History may be nil to skip persistence;
// a nil logger falls back to discard.
type Config struct {
	Client  *client.Client
	Session *session.Store
	History core.Store
	Logger  *slog.Logger
}

// Options control a single run.
type Options struct {
	// Host is the device host name passed through to the backend.
	Host string
	// DeviceID selects the device on the host.
	DeviceID string
	// Batch submits the whole run as one host-driven request instead of
	// driving the traversal edge by edge. Batch runs report no live
	// per-edge progress.
	Batch bool
	// SkipEdges lists edge keys to record as skipped without executing.
	SkipEdges []string
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		client:  cfg.Client,
		session: cfg.Session,
		history: cfg.History,
		logger:  logger,
	}
}

// LoadPreview fetches the host preview for a tree and records it on the
// tree's session slot. Preview fetches are never retried; a failed fetch
// records the error and leaves any previous preview in place.
func (e *Engine) LoadPreview(ctx context.Context, treeID string) (*core.ValidationPreview, error) {
	preview, err := e.client.Preview(ctx, treeID)
	if err != nil {
		e.session.SetError(treeID, err.Error())
		return nil, err
	}
	e.session.SetPreview(treeID, preview)
	e.session.SetError(treeID, "")
	return preview, nil
}

// Run executes a validation run over the tree. A run needs a host and
// preview data; when the session holds no preview one is fetched first, and
// a failed fetch fails the run before any edge executes. Exactly one run per
// tree may be in flight; a second request fails fast with ErrRunInFlight.
// Completed edge results are retained even when the run is cancelled midway.
func (e *Engine) Run(ctx context.Context, tree *core.Tree, opts Options) (*core.ValidationResults, error) {
	if opts.Host == "" {
		return nil, ErrNoHost
	}

	release, ok := e.session.AcquireRun(tree.ID)
	if !ok {
		return nil, ErrRunInFlight
	}
	defer release()

	e.session.SetValidating(tree.ID, true)
	defer func() {
		e.session.SetValidating(tree.ID, false)
		e.session.SetProgress(tree.ID, nil)
	}()

	e.session.SetError(tree.ID, "")
	e.session.ResetColors(tree.ID)

	if e.session.Snapshot(tree.ID).Preview == nil {
		if _, err := e.LoadPreview(ctx, tree.ID); err != nil {
			return nil, fmt.Errorf("load preview: %w", err)
		}
	}

	e.logger.Info("starting validation run",
		slog.String("tree_id", tree.ID),
		slog.String("host", opts.Host),
		slog.Bool("batch", opts.Batch))

	run := e.createRun(tree.ID, opts)

	var results *core.ValidationResults
	var runErr error
	if opts.Batch {
		results, runErr = e.runBatch(ctx, tree, opts, run)
	} else {
		results, runErr = e.runSequential(ctx, tree, opts, run)
	}

	if runErr != nil {
		e.session.SetError(tree.ID, runErr.Error())
		status := core.RunStatusFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			status = core.RunStatusCancelled
		}
		var summary core.ValidationSummary
		if results != nil {
			summary = results.Summary
			e.session.SetResults(tree.ID, results)
		}
		e.completeRun(run, status, summary, runErr.Error())
		return results, runErr
	}

	e.session.SetResults(tree.ID, results)
	e.completeRun(run, core.RunStatusCompleted, results.Summary, "")

	e.logger.Info("validation run finished",
		slog.String("tree_id", tree.ID),
		slog.Int("tested", results.Summary.TotalTested),
		slog.Int("failed", results.Summary.Failed),
		slog.String("health", string(results.Summary.OverallHealth)))

	return results, nil
}

// runSequential drives the traversal one edge at a time so progress and
// status colors update as the device actually navigates.
func (e *Engine) runSequential(ctx context.Context, tree *core.Tree, opts Options, run *core.Run) (*core.ValidationResults, error) {
	edges := e.edgesForRun(tree, opts)
	skip := make(map[string]bool, len(opts.SkipEdges))
	for _, k := range opts.SkipEdges {
		skip[k] = true
	}

	var edgeResults []core.EdgeResult
	var total time.Duration
	start := time.Now()

	for i, edge := range edges {
		if err := ctx.Err(); err != nil {
			return e.partialResults(tree.ID, edgeResults, time.Since(start)), err
		}

		if skip[edge.Key()] {
			res := core.EdgeResult{
				EdgeID:   edge.ID,
				FromNode: edge.Source,
				ToNode:   edge.Target,
				FromName: tree.NodeLabel(edge.Source),
				ToName:   tree.NodeLabel(edge.Target),
				Skipped:  true,
			}
			edgeResults = append(edgeResults, res)
			e.recordEdge(run, res)
			continue
		}

		e.session.SetProgress(tree.ID, &core.ValidationProgress{
			CurrentStep: i + 1,
			TotalSteps:  len(edges),
			FromNode:    tree.NodeLabel(edge.Source),
			ToNode:      tree.NodeLabel(edge.Target),
			Status:      core.StepStatusTesting,
		})
		e.session.SetEdgeStatus(tree.ID, edge.Key(), core.StatusTesting)
		e.session.SetNodeStatus(tree.ID, edge.Target, core.StatusTesting)

		res, err := e.client.ExecuteEdge(ctx, tree.ID, opts.Host, opts.DeviceID, edge)
		if err != nil {
			if ctx.Err() != nil {
				return e.partialResults(tree.ID, edgeResults, time.Since(start)), ctx.Err()
			}
			// A transport failure on one edge fails that edge, not the run.
			res = core.EdgeResult{
				EdgeID:       edge.ID,
				FromNode:     edge.Source,
				ToNode:       edge.Target,
				FromName:     tree.NodeLabel(edge.Source),
				ToName:       tree.NodeLabel(edge.Target),
				ErrorMessage: err.Error(),
			}
			e.logger.Warn("edge execution failed",
				slog.String("edge", edge.Key()), slog.String("error", err.Error()))
		}
		if res.FromName == "" {
			res.FromName = tree.NodeLabel(edge.Source)
		}
		if res.ToName == "" {
			res.ToName = tree.NodeLabel(edge.Target)
		}

		total += res.ExecutionTime
		edgeResults = append(edgeResults, res)
		e.applyEdgeResult(tree.ID, edge, res)
		e.recordEdge(run, res)

		stepStatus := core.StepStatusSuccess
		if !res.Success {
			stepStatus = core.StepStatusFailed
		}
		e.session.SetProgress(tree.ID, &core.ValidationProgress{
			CurrentStep: i + 1,
			TotalSteps:  len(edges),
			FromNode:    tree.NodeLabel(edge.Source),
			ToNode:      tree.NodeLabel(edge.Target),
			Status:      stepStatus,
		})
	}

	return &core.ValidationResults{
		TreeID:  tree.ID,
		Summary: core.Summarize(edgeResults, total),
		Edges:   edgeResults,
	}, nil
}

// runBatch submits the run as a single host request and applies statuses
// once the host responds. Skipped edges are held out of the posted edge
// list and recorded locally, so the host never executes them.
func (e *Engine) runBatch(ctx context.Context, tree *core.Tree, opts Options, run *core.Run) (*core.ValidationResults, error) {
	skip := make(map[string]bool, len(opts.SkipEdges))
	for _, k := range opts.SkipEdges {
		skip[k] = true
	}

	var keys []string
	var skipped []core.EdgeResult
	for _, edge := range e.edgesForRun(tree, opts) {
		if skip[edge.Key()] {
			skipped = append(skipped, core.EdgeResult{
				EdgeID:   edge.ID,
				FromNode: edge.Source,
				ToNode:   edge.Target,
				FromName: tree.NodeLabel(edge.Source),
				ToName:   tree.NodeLabel(edge.Target),
				Skipped:  true,
			})
			continue
		}
		keys = append(keys, edge.Key())
	}

	results, err := e.client.Run(ctx, tree.ID, opts.Host, opts.DeviceID, keys)
	if err != nil {
		return nil, err
	}

	for i := range results.Edges {
		res := &results.Edges[i]
		if res.FromName == "" {
			res.FromName = tree.NodeLabel(res.FromNode)
		}
		if res.ToName == "" {
			res.ToName = tree.NodeLabel(res.ToNode)
		}
		edge := core.TreeEdge{ID: res.EdgeID, Source: res.FromNode, Target: res.ToNode}
		e.applyEdgeResult(tree.ID, edge, *res)
		e.recordEdge(run, *res)
	}

	for _, res := range skipped {
		results.Edges = append(results.Edges, res)
		e.recordEdge(run, res)
	}
	if len(skipped) > 0 {
		results.Summary = core.Summarize(results.Edges, results.Summary.ExecutionTime)
	}
	return results, nil
}

// edgesForRun returns the edges to exercise, restricted to the preview's
// reachable set when one is loaded. Edges out of the entry node are host
// bootstrap transitions and are exercised like any other.
func (e *Engine) edgesForRun(tree *core.Tree, opts Options) []core.TreeEdge {
	preview := e.session.Snapshot(tree.ID).Preview
	if preview == nil || len(preview.ReachableEdges) == 0 {
		return tree.Edges
	}

	reachable := make(map[string]bool, len(preview.ReachableEdges))
	for _, k := range preview.ReachableEdges {
		reachable[k] = true
	}

	var edges []core.TreeEdge
	for _, edge := range tree.Edges {
		if reachable[edge.Key()] || reachable[core.CompositeEdgeKey(edge.Source, edge.Target)] {
			edges = append(edges, edge)
		}
	}
	return edges
}

// applyEdgeResult maps one edge outcome onto the tree's status colors.
// Skipped edges leave their elements untested.
func (e *Engine) applyEdgeResult(treeID string, edge core.TreeEdge, res core.EdgeResult) {
	if res.Skipped {
		return
	}
	status := core.StatusFromConfidence(res.Confidence())
	e.session.SetEdgeStatus(treeID, edge.Key(), status)
	e.session.SetNodeStatus(treeID, edge.Target, status)
}

// partialResults summarizes what completed before a cancellation.
func (e *Engine) partialResults(treeID string, edges []core.EdgeResult, elapsed time.Duration) *core.ValidationResults {
	return &core.ValidationResults{
		TreeID:  treeID,
		Summary: core.Summarize(edges, elapsed),
		Edges:   edges,
	}
}

// createRun opens a history record. History failures are logged, never
// fatal: a broken local database must not block validation.
func (e *Engine) createRun(treeID string, opts Options) *core.Run {
	if e.history == nil {
		return nil
	}
	run, err := e.history.CreateRun(treeID, opts.Host, opts.DeviceID)
	if err != nil {
		e.logger.Warn("failed to create run record", slog.String("error", err.Error()))
		return nil
	}
	return run
}

func (e *Engine) recordEdge(run *core.Run, res core.EdgeResult) {
	if run == nil {
		return
	}
	if err := e.history.RecordEdgeResult(run.ID, res); err != nil {
		e.logger.Warn("failed to record edge result", slog.String("error", err.Error()))
	}
}

func (e *Engine) completeRun(run *core.Run, status core.RunStatus, summary core.ValidationSummary, errMsg string) {
	if run == nil {
		return
	}
	if err := e.history.CompleteRun(run.ID, status, summary, errMsg); err != nil {
		e.logger.Warn("failed to complete run record", slog.String("error", err.Error()))
	}
}

// Describe renders a short human summary of a run outcome, shared by the
// CLI and report writer.
func Describe(r *core.ValidationResults) string {
	return fmt.Sprintf("%d tested, %d passed, %d failed, %d skipped (%s)",
		r.Summary.TotalTested, r.Summary.Successful, r.Summary.Failed,
		r.Summary.Skipped, r.Summary.OverallHealth)
}
