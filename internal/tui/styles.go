package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Ink and paper tones with one warm accent for the countdown.
var (
	colorPrimary   = lipgloss.Color("#7C6FE0")
	colorAccent    = lipgloss.Color("#E8675A")
	colorMuted     = lipgloss.Color("#6B6B76")
	colorSuccess   = lipgloss.Color("#4CB782")
	colorWarning   = lipgloss.Color("#E5A443")
	colorError     = lipgloss.Color("#D9534F")
	colorFg        = lipgloss.Color("#D4D2E3")
	colorSubtle    = lipgloss.Color("#3F3F4E")
	colorHighlight = lipgloss.Color("#82A8F0")
)

var moodColors = map[string]lipgloss.Color{
	"enthusiastic": colorWarning,
	"focused":      colorPrimary,
	"reflective":   colorHighlight,
	"creative":     lipgloss.Color("#A77BCA"),
	"analytical":   lipgloss.Color("#3BB8A8"),
	"neutral":      colorMuted,
	"tired":        colorSubtle,
	"stressed":     colorError,
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Underline(true).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	// Panels that take keyboard input: the editor and the forms.
	activePanelStyle = panelStyle.
				BorderForeground(colorPrimary)

	timerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg).
			Align(lipgloss.Center)

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorFg)
	successStyle   = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	highlightStyle = lipgloss.NewStyle().Foreground(colorHighlight)
	nudgeStyle     = lipgloss.NewStyle().Italic(true).Foreground(colorWarning)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	normalItemStyle   = lipgloss.NewStyle().Foreground(colorFg)

	// Daily word-count bars in the history view.
	barStyle      = lipgloss.NewStyle().Foreground(colorPrimary)
	emptyBarStyle = lipgloss.NewStyle().Foreground(colorSubtle)
)

// countdownStyle colors the running clock. Paused and final-minute clocks
// stand out from normal writing time.
func countdownStyle(paused bool, remaining time.Duration) lipgloss.Style {
	c := colorSuccess
	switch {
	case paused:
		c = colorWarning
	case remaining <= time.Minute:
		c = colorAccent
	}
	return timerStyle.Foreground(c)
}

func moodStyle(mood string) lipgloss.Style {
	c, ok := moodColors[mood]
	if !ok {
		c = colorMuted
	}
	return lipgloss.NewStyle().Foreground(c)
}
