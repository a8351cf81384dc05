package session

import (
	"time"

	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/countdown"
)

// EventType identifies what an Event reports.
type EventType uint8

const (
	TimerChanged EventType = iota + 1
	TimerExpired
	Inactive
	EditRejected
	SessionStateChanged
	ContentUpdated
	AnalysisReady
	AnalysisFailed
)

func (t EventType) String() string {
	switch t {
	case TimerChanged:
		return "timer_changed"
	case TimerExpired:
		return "timer_expired"
	case Inactive:
		return "inactive"
	case EditRejected:
		return "edit_rejected"
	case SessionStateChanged:
		return "session_state_changed"
	case ContentUpdated:
		return "content_updated"
	case AnalysisReady:
		return "analysis_ready"
	case AnalysisFailed:
		return "analysis_failed"
	default:
		return "unknown"
	}
}

// Event is published on the engine's bus. Only the fields relevant to Type
// are set.
type Event struct {
	Type      EventType
	SessionID string
	At        time.Time

	// Session is a snapshot for SessionStateChanged, ContentUpdated,
	// EditRejected and AnalysisReady.
	Session *Session
	// Timer is set for TimerChanged and TimerExpired.
	Timer countdown.State
	// Idle is set for Inactive.
	Idle time.Duration
	// Analysis is set for AnalysisReady.
	Analysis *analysis.Result
	// Err is set for AnalysisFailed.
	Err error
}
