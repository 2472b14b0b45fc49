package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/cli/config"
	"github.com/treeline-labs/treeline/internal/cli/output"
	"github.com/treeline-labs/treeline/internal/report"
	"github.com/treeline-labs/treeline/pkg/core"
)

// ReportOptions holds options for the report command.
type ReportOptions struct {
	Write bool
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Render a validation report",
		Long: `Rebuild the markdown report for a recorded run from run history.

The report prints to stdout by default; --write saves it into the reports
directory instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write the report into the reports directory")

	return cmd
}

func runReport(cmd *cobra.Command, runID string, opts *ReportOptions) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	history, err := openHistory(cfg, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	run, err := history.GetRun(runID)
	if err != nil {
		return err
	}
	edges, err := history.GetEdgeResultsForRun(run.ID)
	if err != nil {
		return err
	}

	results := &core.ValidationResults{
		TreeID:  run.TreeID,
		Summary: core.Summarize(edges, time.Duration(run.ExecutionMS)*time.Millisecond),
		Edges:   edges,
	}

	if opts.Write {
		writer := report.NewWriter(cfg.ReportsDir, logger)
		path, err := writer.Write(run, results, nil)
		if err != nil {
			return err
		}
		r.Success("report written to " + path)
		return nil
	}

	r.Println(report.Render(run, results, nil))
	return nil
}
