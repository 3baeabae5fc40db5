package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("69")
	colorMuted  = lipgloss.Color("241")
	colorError  = lipgloss.Color("196")

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 3)

	titleStyle   = lipgloss.NewStyle().Bold(true)
	metaStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorMuted)
	timerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	helpStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	dividerStyle = lipgloss.NewStyle().Foreground(colorMuted)
)
