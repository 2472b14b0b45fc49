package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/cli/config"
	"github.com/treeline-labs/treeline/internal/cli/output"
	"github.com/treeline-labs/treeline/internal/engine"
	"github.com/treeline-labs/treeline/internal/report"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/internal/tui"
	"github.com/treeline-labs/treeline/pkg/core"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Batch     bool
	SkipEdges []string
	TUI       bool
	Report    bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <tree-id>",
		Short: "Run validation against a host",
		Long: `Drive a validation run over the tree's edges on the selected host.

Edges are executed one at a time so progress and partial results survive
failures; --batch hands the whole traversal to the host as a single request
instead. Each edge's outcome is recorded in run history and its confidence
maps to a high/medium/low status.`,
		Example: `  # Validate on the default host
  treeline validate tree-main

  # Validate on a named host and device
  treeline validate tree-main --host living-room --device device2

  # Skip known-broken edges and write a report
  treeline validate tree-main --skip-edges e7,e9 --report`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "Submit the run as one host-driven request")
	cmd.Flags().StringSliceVar(&opts.SkipEdges, "skip-edges", nil, "Edge keys to record as skipped")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "Show interactive progress")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "Write a markdown report after the run")

	return cmd
}

func runValidate(cmd *cobra.Command, treeID string, opts *ValidateOptions) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	catalog, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	tree, err := findTree(catalog, treeID)
	if err != nil {
		return err
	}

	profiles, err := loadProfiles(cfg)
	if err != nil {
		return err
	}
	host, deviceID, err := resolveHost(profiles, cfg)
	if err != nil {
		return err
	}
	c, err := newHostClient(cmd, host)
	if err != nil {
		return err
	}

	history, err := openHistory(cfg, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	sess := session.New(nil)
	eng := engine.New(engine.Config{
		Client:  c,
		Session: sess,
		History: history,
		Logger:  logger,
	})

	runOpts := engine.Options{
		Host:      host.Name,
		DeviceID:  deviceID,
		Batch:     opts.Batch,
		SkipEdges: opts.SkipEdges,
	}

	run := func(ctx context.Context) (*core.ValidationResults, error) {
		return eng.Run(ctx, tree, runOpts)
	}

	var results *core.ValidationResults
	if opts.TUI {
		results, err = tui.RunValidation(cmd.Context(), sess, tree, run)
	} else {
		if r.Mode() == output.ModeText {
			stop := followProgress(sess, tree.ID, r)
			defer stop()
		}
		if r.Mode() != output.ModeJSON {
			r.Printf("Validating %s on %s...\n", tree.ID, host.Name)
		}
		results, err = run(cmd.Context())
	}
	if err != nil {
		// Partial results still get rendered below on cancellation.
		if results == nil {
			return err
		}
		r.Warning(err.Error())
	}

	if opts.Report && results != nil {
		writer := report.NewWriter(cfg.ReportsDir, logger)
		path, werr := writer.Write(latestRun(history, tree.ID), results, nil)
		if werr != nil {
			r.Warning("report not written: " + werr.Error())
		} else {
			results.ReportURL = path
		}
	}

	return renderResults(r, results)
}

// followProgress prints per-edge progress lines as the engine broadcasts
// session updates. Returns a stop func that must be called before rendering
// the final results.
func followProgress(sess *session.Store, treeID string, r *output.Renderer) (stop func()) {
	updates := make(chan struct{}, 1)
	done := make(chan struct{})
	finished := make(chan struct{})

	sess.SetNotifier(broadcastFunc(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	}))

	go func() {
		defer close(finished)
		var lastLine string
		for {
			select {
			case <-done:
				return
			case <-updates:
				p := sess.Snapshot(treeID).Progress
				if p == nil {
					continue
				}
				line := fmt.Sprintf("  [%d/%d] %s > %s  %s",
					p.CurrentStep, p.TotalSteps, p.FromNode, p.ToNode, p.Status)
				if line == lastLine {
					continue
				}
				lastLine = line
				switch p.Status {
				case core.StepStatusFailed:
					r.Println(r.Styles().Error.Render(line))
				case core.StepStatusSuccess:
					r.Println(r.Styles().Success.Render(line))
				case core.StepStatusTesting:
					r.Println(line)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
		sess.SetNotifier(nil)
	}
}

// broadcastFunc adapts a func to the session.Broadcaster interface.
type broadcastFunc func()

func (f broadcastFunc) Broadcast() { f() }

func latestRun(history core.Store, treeID string) *core.Run {
	run, err := history.GetLatestRun(treeID)
	if err != nil {
		return nil
	}
	return run
}

func renderResults(r *output.Renderer, results *core.ValidationResults) error {
	if results == nil {
		return nil
	}
	if r.Mode() == output.ModeJSON {
		return r.JSON(results)
	}

	s := results.Summary
	r.Println()
	r.Header(1, "Validation Results: "+results.TreeID)
	r.Println(engine.Describe(results))
	r.Printf("Execution time: %s\n", s.ExecutionTime.Round(time.Millisecond))
	if results.ReportURL != "" {
		r.Printf("Report: %s\n", results.ReportURL)
	}

	if len(results.Edges) > 0 {
		r.Println()
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Transition", "Outcome", "Confidence", "Status", "Time"})
		for _, e := range results.Edges {
			status := core.StatusUntested
			if !e.Skipped {
				status = core.StatusFromConfidence(e.Confidence())
			}
			t.AppendRow(table.Row{
				transitionLabel(e),
				edgeOutcome(e),
				fmt.Sprintf("%.0f%%", e.Confidence()*100),
				statusStyle(r, status),
				e.ExecutionTime.Round(time.Millisecond),
			})
		}
		renderTable(r, t)
	}

	if s.Failed > 0 {
		return fmt.Errorf("%d of %d edges failed", s.Failed, s.TotalTested)
	}
	return nil
}

func transitionLabel(e core.EdgeResult) string {
	from, to := e.FromName, e.ToName
	if from == "" {
		from = e.FromNode
	}
	if to == "" {
		to = e.ToNode
	}
	return from + " > " + to
}

func edgeOutcome(e core.EdgeResult) string {
	switch {
	case e.Skipped:
		return "skipped"
	case e.Success:
		return "pass"
	default:
		return "fail"
	}
}
