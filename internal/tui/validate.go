// Package tui provides the interactive progress view for validation runs.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/pkg/core"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cancelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RunValidation runs fn while displaying live progress read from the session
// store. Ctrl+C cancels the context passed to fn; the run's partial results
// are still returned.
func RunValidation(ctx context.Context, sess *session.Store, tree *core.Tree, fn func(ctx context.Context) (*core.ValidationResults, error)) (*core.ValidationResults, error) {
	m := &validateModel{
		sess:   sess,
		tree:   tree,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		status: "starting",
	}

	fnCtx, fnCancel := context.WithCancel(ctx)
	defer fnCancel()

	p := tea.NewProgram(m,
		tea.WithOutput(os.Stderr),
		tea.WithContext(ctx),
	)

	// The engine broadcasts on every session mutation. Coalesce into a
	// non-blocking refresh so a fast host cannot stall a mutation on the
	// program's message queue.
	refresh := make(chan struct{}, 1)
	sess.SetNotifier(broadcastChan(refresh))
	defer sess.SetNotifier(nil)

	forwarderDone := make(chan struct{})
	stopForward := make(chan struct{})
	go func() {
		defer close(forwarderDone)
		for {
			select {
			case <-stopForward:
				return
			case <-refresh:
				p.Send(refreshMsg{})
			}
		}
	}()

	outcome := make(chan doneMsg, 1)
	go func() {
		results, err := fn(fnCtx)
		outcome <- doneMsg{results: results, err: err}
		// Quit the program if it is still running; dropped otherwise.
		p.Send(doneMsg{})
	}()

	_, runErr := p.Run()
	close(stopForward)
	<-forwarderDone

	if runErr != nil {
		return nil, fmt.Errorf("progress view: %w", runErr)
	}

	// On cancellation fn observes the cancelled context and still returns
	// its partial results.
	if m.cancelled {
		fnCancel()
	}
	done := <-outcome
	return done.results, done.err
}

// broadcastChan adapts a channel to the session.Broadcaster interface.
type broadcastChan chan struct{}

func (c broadcastChan) Broadcast() {
	select {
	case c <- struct{}{}:
	default:
	}
}

type refreshMsg struct{}

type doneMsg struct {
	results *core.ValidationResults
	err     error
}

type validateModel struct {
	sess   *session.Store
	tree   *core.Tree
	bar    progress.Model
	status string

	progress  *core.ValidationProgress
	done      bool
	cancelled bool
}

func (m *validateModel) Init() tea.Cmd {
	return nil
}

func (m *validateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			m.status = "cancelling"
			// The runner cancels fn and waits for its doneMsg, which may
			// arrive after the program quit.
			return m, tea.Quit
		}

	case refreshMsg:
		st := m.sess.Snapshot(m.tree.ID)
		m.progress = st.Progress
		if st.Validating {
			m.status = "validating"
		}
		return m, nil

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *validateModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Validating "+m.tree.ID) + "\n\n")

	if p := m.progress; p != nil && p.TotalSteps > 0 {
		ratio := float64(p.CurrentStep) / float64(p.TotalSteps)
		b.WriteString(m.bar.ViewAs(ratio) + "\n\n")
		b.WriteString(stepStyle.Render(fmt.Sprintf("Step %d/%d", p.CurrentStep, p.TotalSteps)))
		b.WriteString("  " + p.FromNode + " > " + p.ToNode + "  ")
		switch p.Status {
		case core.StepStatusSuccess:
			b.WriteString(passStyle.Render(string(p.Status)))
		case core.StepStatusFailed:
			b.WriteString(failStyle.Render(string(p.Status)))
		default:
			b.WriteString(mutedStyle.Render(string(p.Status)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(mutedStyle.Render(m.status) + "\n")
	}

	if m.cancelled {
		b.WriteString("\n" + cancelStyle.Render("cancelling, waiting for the host...") + "\n")
	} else {
		b.WriteString("\n" + mutedStyle.Render("press q or ctrl+c to cancel") + "\n")
	}
	return b.String()
}
