package ui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#F97316")
	accentColor  = lipgloss.Color("#10B981")
	textColor    = lipgloss.Color("#F9FAFB")
	mutedColor   = lipgloss.Color("#9CA3AF")
	errorColor   = lipgloss.Color("#EF4444")
	warnColor    = lipgloss.Color("#FACC15")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	ownMessageStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	otherMessageStyle = lipgloss.NewStyle().
				Foreground(primaryColor)

	typingStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)
