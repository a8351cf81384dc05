package session

import (
	"context"
	"time"
)

// Store persists sessions. It is the source of truth for which session, if
// any, is live.
type Store interface {
	Create(ctx context.Context, s *Session) error
	// Get returns nil, nil when no session has the id.
	Get(ctx context.Context, id string) (*Session, error)
	// GetActive returns the active or paused session, or nil.
	GetActive(ctx context.Context) (*Session, error)
	// Update fails with an error matching ErrSessionNotFound when the
	// session does not exist.
	Update(ctx context.Context, s *Session) error
}

// ActivityKind classifies an ActivityEvent.
type ActivityKind string

const (
	ActivityTyping    ActivityKind = "typing"
	ActivityPause     ActivityKind = "pause"
	ActivityResume    ActivityKind = "resume"
	ActivityBackspace ActivityKind = "backspace"
	ActivityIdle      ActivityKind = "idle"
)

// ActivityEvent is a notable moment in a session's activity timeline.
type ActivityEvent struct {
	ID        int64
	SessionID string
	Kind      ActivityKind
	At        time.Time
	Duration  time.Duration
	Metadata  map[string]string
}

// ActivityLog records activity events. Stores that implement it are used
// automatically.
type ActivityLog interface {
	RecordActivity(ctx context.Context, ev ActivityEvent) error
}
