package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by commands. On non-color output
// every style is a no-op, so commands can render unconditionally.
type Styles struct {
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	// Status bands for node and edge confidence colors.
	StatusHigh   lipgloss.Style
	StatusMedium lipgloss.Style
	StatusLow    lipgloss.Style
}

func newStyles(colored bool) *Styles {
	if !colored {
		plain := lipgloss.NewStyle()
		return &Styles{
			Bold: plain, Muted: plain, Success: plain, Warning: plain,
			Error: plain, Info: plain,
			StatusHigh: plain, StatusMedium: plain, StatusLow: plain,
		}
	}
	return &Styles{
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),

		StatusHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StatusLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}
