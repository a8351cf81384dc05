// Package session owns the lifecycle of timed writing sessions: starting,
// pausing, resuming, completing and cancelling them, tracking content and
// timing, and coordinating the countdown, inactivity monitor and backspace
// guard for the single live session.
package session

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sadopc/writingflow/internal/analysis"
)

const (
	DefaultDuration = 15 * time.Minute
	MinDuration     = time.Minute
	MaxDuration     = time.Hour

	// MaxTitleLength is the maximum title length in runes.
	MaxTitleLength = 100
)

// State is the lifecycle state of a session.
type State uint8

const (
	StateNotStarted State = iota
	StateActive
	StatePaused
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "notStarted"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	switch s {
	case "notStarted":
		return StateNotStarted, nil
	case "active":
		return StateActive, nil
	case "paused":
		return StatePaused, nil
	case "completed":
		return StateCompleted, nil
	case "cancelled":
		return StateCancelled, nil
	}
	return 0, fmt.Errorf("unknown session state %q", s)
}

// Live reports whether the session is active or paused.
func (s State) Live() bool { return s == StateActive || s == StatePaused }

// Terminal reports whether the session is completed or cancelled.
func (s State) Terminal() bool { return s == StateCompleted || s == StateCancelled }

// Session is one timed writing session.
type Session struct {
	ID                 string
	Title              string
	Content            string
	StartTime          time.Time
	EndTime            *time.Time
	Duration           time.Duration // accumulated active time
	TargetDuration     time.Duration
	State              State
	WordCount          int
	CharacterCount     int
	AverageTypingSpeed float64 // characters per minute
	PauseCount         int
	TotalPauseDuration time.Duration
	Summary            *analysis.Result
	LastUpdate         time.Time

	// StateChangedAt is when the current active or paused stretch began.
	StateChangedAt time.Time
}

// Clone returns a copy that shares no pointers with s.
func (s *Session) Clone() Session {
	c := *s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	if s.Summary != nil {
		sum := s.Summary.Clone()
		c.Summary = &sum
	}
	return c
}

// ActiveTime is the active writing time as of now, including the current
// stretch when the session is active.
func (s *Session) ActiveTime(now time.Time) time.Duration {
	d := s.Duration
	if s.State == StateActive && now.After(s.StateChangedAt) {
		d += now.Sub(s.StateChangedAt)
	}
	return d
}

// Remaining is the countdown time left as of now.
func (s *Session) Remaining(now time.Time) time.Duration {
	r := s.TargetDuration - s.ActiveTime(now)
	if r < 0 {
		return 0
	}
	return r
}

// closeStretch folds the current active or paused stretch into the timing
// totals.
func (s *Session) closeStretch(now time.Time) {
	stretch := now.Sub(s.StateChangedAt)
	if stretch < 0 {
		stretch = 0
	}
	switch s.State {
	case StateActive:
		s.Duration += stretch
	case StatePaused:
		s.TotalPauseDuration += stretch
	}
	s.StateChangedAt = now
}

// NormalizeDuration maps a requested target to the one used: zero selects
// DefaultDuration and anything else is clamped to [MinDuration, MaxDuration].
func NormalizeDuration(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultDuration
	case d < MinDuration:
		return MinDuration
	case d > MaxDuration:
		return MaxDuration
	}
	return d
}

// ValidateDuration rejects targets outside [MinDuration, MaxDuration].
func ValidateDuration(d time.Duration) error {
	if d < MinDuration || d > MaxDuration {
		return fmt.Errorf("%w: %s not within %s to %s", ErrInvalidDuration, d, MinDuration, MaxDuration)
	}
	return nil
}

// DefaultTitle names a session after its start time.
func DefaultTitle(start time.Time) string {
	return "Writing Session " + start.Local().Format("Jan 2, 2006 15:04")
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:MaxTitleLength]))
}
