package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorError   = lipgloss.Color("#EF4444")
	colorSuccess = lipgloss.Color("#10B981")
	colorText    = lipgloss.Color("#F9FAFB")
	colorMuted   = lipgloss.Color("#6B7280")
	colorBorder  = lipgloss.Color("#374151")
	colorBgSel   = lipgloss.Color("#1F2937")
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	activePaneStyle = paneStyle.BorderForeground(colorPrimary)

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	selectedStyle = lipgloss.NewStyle().Background(colorBgSel)
	cursorStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)

	toastStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#000000")).
			Background(colorSuccess)

	toastErrorStyle = toastStyle.
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorError)
)
