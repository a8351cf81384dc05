package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/writingflow/internal/events"
	"github.com/sadopc/writingflow/internal/session"
)

// viewState represents the currently active view.
type viewState int

const (
	viewWrite viewState = iota
	viewHistory
	viewSummary
	viewSettings
)

var viewNames = []string{"Write", "History", "Summary", "Settings"}

// --- Messages ---

// engineEventMsg carries one engine event into the Bubble Tea loop.
type engineEventMsg session.Event

type sessionStartedMsg struct {
	session session.Session
}

type showSummaryMsg struct {
	session session.Session
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// waitForEvent blocks on the next event of sub. It yields nil once the
// subscription is closed, which ends the chain.
func waitForEvent(sub *events.Subscription[session.Event]) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C()
		if !ok {
			return nil
		}
		return engineEventMsg(ev)
	}
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatCountdown renders MM:SS, rounding partial seconds up so a fresh
// 15 minute timer reads 15:00 rather than 14:59.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// shortID keeps the random tail of a UUIDv7; its head is a timestamp.
func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
