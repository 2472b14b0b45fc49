// Package output renders command results in text, markdown, or JSON form.
//
// The renderer picks a mode once at construction. ModeAuto resolves to text
// on a terminal and markdown when piped, so `treeline runs > runs.md` yields
// a document without extra flags.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the rendering style.
type Mode string

// Rendering modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer for the given writers and mode.
// An empty or unknown mode behaves like ModeAuto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
	default:
		mode = ModeAuto
	}

	tty := isTerminal(out)
	if mode == ModeAuto {
		if tty {
			mode = ModeText
		} else {
			mode = ModeMarkdown
		}
	}

	colored := mode == ModeText && tty && termenv.EnvColorProfile() != termenv.Ascii
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styles: newStyles(colored),
	}
}

// Mode returns the resolved rendering mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Out returns the output writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// Styles returns the lipgloss styles for the current mode.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Println writes a line to the output writer.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Printf writes formatted output to the output writer.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section header. Markdown mode emits a #-prefixed heading,
// text mode a bold line.
func (r *Renderer) Header(level int, text string) {
	if level < 1 {
		level = 1
	}
	if r.mode == ModeMarkdown {
		r.Println(strings.Repeat("#", level) + " " + text)
		r.Println()
		return
	}
	r.Println(r.styles.Bold.Render(text))
}

// Success writes a confirmation line.
func (r *Renderer) Success(msg string) {
	if r.mode == ModeMarkdown {
		r.Println("**" + msg + "**")
		return
	}
	r.Println(r.styles.Success.Render("✓ " + msg))
}

// Warning writes a warning line to the error writer.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("warning: "+msg))
}

// Error writes an error line to the error writer.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("error: "+msg))
}

// JSON writes v as indented JSON to the output writer.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
