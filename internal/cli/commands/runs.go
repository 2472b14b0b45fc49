package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/treeline-labs/treeline/internal/cli/output"
	"github.com/treeline-labs/treeline/pkg/core"
)

var titleCaser = cases.Title(language.English)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show run history",
		Long: `List recorded validation runs, or show one run's per-edge results.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runDetail(cmd, args[0])
			}
			return runList(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}

func runList(cmd *cobra.Command, opts *RunsOptions) error {
	cfg := getConfig()
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	history, err := openHistory(cfg, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	runs, err := history.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	if r.Mode() == output.ModeJSON {
		return r.JSON(runs)
	}

	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(runs)))
	if len(runs) == 0 {
		r.Println(r.Styles().Muted.Render("no runs recorded"))
		return nil
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Tree", "Host", "Status", "Health", "Tested", "Pass", "Fail", "Started", "Duration"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			shortID(run.ID),
			run.TreeID,
			run.Host,
			runStatusLabel(r, run.Status),
			titleCaser.String(string(run.OverallHealth)),
			run.TotalTested,
			run.Successful,
			run.Failed,
			run.StartedAt.Format("2006-01-02 15:04"),
			(time.Duration(run.ExecutionMS) * time.Millisecond).Round(time.Millisecond),
		})
	}
	renderTable(r, t)
	return nil
}

func runDetail(cmd *cobra.Command, runID string) error {
	cfg := getConfig()
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

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

	if r.Mode() == output.ModeJSON {
		return r.JSON(struct {
			Run   *core.Run         `json:"run"`
			Edges []core.EdgeResult `json:"edges"`
		}{run, edges})
	}

	r.Header(1, "Run "+run.ID)
	r.Printf("Tree:    %s\n", run.TreeID)
	r.Printf("Host:    %s", run.Host)
	if run.DeviceID != "" {
		r.Printf(" (%s)", run.DeviceID)
	}
	r.Println()
	r.Printf("Status:  %s\n", runStatusLabel(r, run.Status))
	r.Printf("Health:  %s\n", titleCaser.String(string(run.OverallHealth)))
	r.Printf("Started: %s\n", run.StartedAt.Format(time.RFC3339))
	if run.Error != "" {
		r.Println(r.Styles().Error.Render("Error:   " + run.Error))
	}

	if len(edges) > 0 {
		r.Println()
		t := table.NewWriter()
		t.AppendHeader(table.Row{"#", "Transition", "Outcome", "Actions", "Verifications", "Time"})
		for i, e := range edges {
			t.AppendRow(table.Row{
				i + 1,
				transitionLabel(e),
				edgeOutcome(e),
				fmt.Sprintf("%d/%d", e.ActionsExecuted, e.TotalActions),
				fmt.Sprintf("%d/%d", e.VerificationsPassed, e.TotalVerifications),
				e.ExecutionTime.Round(time.Millisecond),
			})
		}
		renderTable(r, t)
	}
	return nil
}

func runStatusLabel(r *output.Renderer, status core.RunStatus) string {
	switch status {
	case core.RunStatusCompleted:
		return r.Styles().Success.Render(string(status))
	case core.RunStatusFailed:
		return r.Styles().Error.Render(string(status))
	case core.RunStatusCancelled:
		return r.Styles().Warning.Render(string(status))
	default:
		return string(status)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
