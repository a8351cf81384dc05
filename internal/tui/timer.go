package tui

import (
	"time"

	"github.com/sadopc/writingflow/internal/countdown"
	"github.com/sadopc/writingflow/internal/session"
)

// timerModel mirrors the engine's live session and countdown from the
// events it publishes. It never drives the engine itself.
type timerModel struct {
	session *session.Session // nil when nothing is live
	clock   countdown.State

	// idle is set by an inactivity signal and cleared by the next accepted
	// edit or state change.
	idle bool
	// rejected counts edits refused by the backspace guard since the last
	// accepted one.
	rejected int
}

func (t *timerModel) apply(ev session.Event) {
	switch ev.Type {
	case session.TimerChanged, session.TimerExpired:
		// A stopped countdown belongs to no session.
		if ev.SessionID == "" {
			return
		}
		t.clock = ev.Timer

	case session.SessionStateChanged:
		if ev.Session == nil {
			return
		}
		if ev.Session.State.Live() {
			t.track(*ev.Session)
			return
		}
		if t.session != nil && t.session.ID == ev.SessionID {
			t.session = nil
			t.idle = false
			t.rejected = 0
		}

	case session.ContentUpdated:
		if ev.Session != nil && t.matches(ev.SessionID) {
			s := *ev.Session
			t.session = &s
			t.idle = false
			t.rejected = 0
		}

	case session.Inactive:
		if t.matches(ev.SessionID) {
			t.idle = true
		}

	case session.EditRejected:
		if t.matches(ev.SessionID) {
			t.rejected++
		}
	}
}

// track adopts s as the live session.
func (t *timerModel) track(s session.Session) {
	if t.session == nil || t.session.ID != s.ID {
		t.rejected = 0
	}
	t.session = &s
	t.idle = false
	if t.clock.LastUpdate.IsZero() {
		t.clock.Remaining = s.TargetDuration
	}
}

func (t timerModel) matches(id string) bool {
	return t.session != nil && t.session.ID == id
}

func (t timerModel) running() bool {
	return t.session != nil
}

func (t timerModel) paused() bool {
	return t.session != nil && t.session.State == session.StatePaused
}

func (t timerModel) remaining() time.Duration {
	if t.session == nil {
		return 0
	}
	return t.clock.Remaining
}

func (t timerModel) sessionID() string {
	if t.session == nil {
		return ""
	}
	return t.session.ID
}
