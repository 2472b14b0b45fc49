// Package views renders the UI's HTML. Pages and SSE fragments share the
// same templates: a full page is the layout wrapped around a fragment, and
// live updates re-render just the fragment for datastar to patch in place.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/treeline-labs/treeline/pkg/core"
)

//go:embed templates/*.html
var templateFS embed.FS

// Views holds the parsed template set.
type Views struct {
	t *template.Template
}

// New parses the embedded templates.
func New() (*Views, error) {
	t, err := template.New("").Funcs(funcMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Views{t: t}, nil
}

// Page renders a full page: the named fragment wrapped in the layout.
func (v *Views) Page(w io.Writer, title, fragment string, data any) error {
	content, err := v.Fragment(fragment, data)
	if err != nil {
		return err
	}
	return v.t.ExecuteTemplate(w, "layout.html", map[string]any{
		"Title":   title,
		"Content": template.HTML(content),
	})
}

// Fragment renders a named fragment to a string for SSE patching.
func (v *Views) Fragment(name string, data any) (string, error) {
	var b strings.Builder
	if err := v.t.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"statusClass": statusClass,
		"healthClass": healthClass,
		"percent":     percent,
		"duration":    shortDuration,
		"timeago":     timeAgo,
	}
}

// statusClass maps a status to its CSS class. Entry nodes never appear
// here; they render with a fixed accent in the templates.
func statusClass(s core.Status) string {
	switch s {
	case core.StatusTesting:
		return "status-testing"
	case core.StatusLow:
		return "status-low"
	case core.StatusMedium:
		return "status-medium"
	case core.StatusHigh:
		return "status-high"
	default:
		return "status-untested"
	}
}

func healthClass(h core.Health) string {
	switch h {
	case core.HealthExcellent:
		return "health-excellent"
	case core.HealthGood:
		return "health-good"
	case core.HealthFair:
		return "health-fair"
	default:
		return "health-poor"
	}
}

func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

func shortDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
