// Package report renders validation run reports as Markdown files under the
// project's reports directory.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/treeline-labs/treeline/internal/browser"
	"github.com/treeline-labs/treeline/pkg/core"
)

// Writer persists rendered reports to a directory.
type Writer struct {
	dir    string
	logger *slog.Logger

	// now is swappable for deterministic file names in tests.
	now func() time.Time
}

// NewWriter creates a report writer. The directory is created on first write.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// Write renders a run report and writes it to the reports directory,
// returning the file path.
func (w *Writer) Write(run *core.Run, results *core.ValidationResults, captures []browser.PageCapture) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.md", results.TreeID, w.now().UTC().Format("20060102-150405"))
	path := filepath.Join(w.dir, name)

	content := Render(run, results, captures)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	w.logger.Info("report written", slog.String("path", path))
	return path, nil
}

// Render produces the Markdown report body. Run may be nil when history
// persistence is disabled.
func Render(run *core.Run, results *core.ValidationResults, captures []browser.PageCapture) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation Report: %s\n\n", results.TreeID)

	if run != nil {
		fmt.Fprintf(&b, "- Run: `%s`\n", run.ID)
		fmt.Fprintf(&b, "- Host: %s", run.Host)
		if run.DeviceID != "" {
			fmt.Fprintf(&b, " / %s", run.DeviceID)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "- Started: %s\n", run.StartedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "- Status: %s\n", run.Status)
	}
	b.WriteString("\n")

	b.WriteString("## Summary\n\n")
	b.WriteString(summaryTable(results.Summary))
	b.WriteString("\n\n")

	if len(results.Edges) > 0 {
		b.WriteString("## Edge Results\n\n")
		b.WriteString(edgeTable(results.Edges))
		b.WriteString("\n")
	}

	if results.ReportURL != "" {
		fmt.Fprintf(&b, "\nHost report: %s\n", results.ReportURL)
	}

	for _, c := range captures {
		fmt.Fprintf(&b, "\n## Page Capture: %s\n\n", captureTitle(c))
		if c.Markdown != "" {
			b.WriteString(c.Markdown)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func summaryTable(s core.ValidationSummary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Tested", "Passed", "Failed", "Skipped", "Health", "Duration"})
	t.AppendRow(table.Row{
		s.TotalTested, s.Successful, s.Failed, s.Skipped,
		string(s.OverallHealth), s.ExecutionTime.Round(time.Millisecond).String(),
	})
	return t.RenderMarkdown()
}

func edgeTable(edges []core.EdgeResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Transition", "Outcome", "Confidence", "Duration", "Error"})
	for _, e := range edges {
		t.AppendRow(table.Row{
			transitionLabel(e),
			outcomeLabel(e),
			fmt.Sprintf("%.0f%%", e.Confidence()*100),
			e.ExecutionTime.Round(time.Millisecond).String(),
			e.ErrorMessage,
		})
	}
	return t.RenderMarkdown()
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

func outcomeLabel(e core.EdgeResult) string {
	switch {
	case e.Skipped:
		return "skipped"
	case e.Success:
		return "pass"
	default:
		return "fail"
	}
}

func captureTitle(c browser.PageCapture) string {
	if c.Title != "" {
		return c.Title
	}
	return c.URL
}
