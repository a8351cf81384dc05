package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/writingflow/internal/session"
)

// RecordActivity appends an activity event to a session's timeline.
func (s *Store) RecordActivity(ctx context.Context, ev session.ActivityEvent) error {
	meta := ev.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_events (session_id, kind, at, duration_ms, metadata) VALUES (?, ?, ?, ?, ?)`,
		ev.SessionID, string(ev.Kind), formatTime(ev.At), ev.Duration.Milliseconds(), string(b),
	)
	if err != nil {
		return unavailable("record activity", err)
	}
	return nil
}

// ListActivity returns a session's activity events in the order they
// happened.
func (s *Store) ListActivity(ctx context.Context, sessionID string) ([]session.ActivityEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, at, duration_ms, metadata
		 FROM activity_events WHERE session_id = ? ORDER BY at, id`, sessionID)
	if err != nil {
		return nil, unavailable("list activity", err)
	}
	defer rows.Close()

	var events []session.ActivityEvent
	for rows.Next() {
		var ev session.ActivityEvent
		var kind, at, meta string
		var durationMS int64
		if err := rows.Scan(&ev.ID, &ev.SessionID, &kind, &at, &durationMS, &meta); err != nil {
			return nil, err
		}
		ev.Kind = session.ActivityKind(kind)
		ev.At = parseTime(at)
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("decode activity metadata: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
