package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/session"
)

const sessionColumns = `id, title, content, state, start_time, end_time, duration_ms, target_ms,
	word_count, character_count, typing_speed, pause_count, total_pause_ms, summary,
	last_update, state_changed_at`

func (s *Store) Create(ctx context.Context, ws *session.Session) error {
	summary, err := encodeSummary(ws.Summary)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ws.ID, ws.Title, ws.Content, ws.State.String(), formatTime(ws.StartTime), nullTime(ws.EndTime),
		ws.Duration.Milliseconds(), ws.TargetDuration.Milliseconds(),
		ws.WordCount, ws.CharacterCount, ws.AverageTypingSpeed, ws.PauseCount,
		ws.TotalPauseDuration.Milliseconds(), summary,
		formatTime(ws.LastUpdate), formatTime(ws.StateChangedAt),
	)
	if err != nil {
		return unavailable("create session", err)
	}
	return nil
}

// Get returns the session with id, or nil when there is none.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	ws, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get session %s", id), err)
	}
	return ws, nil
}

// GetActive returns the active or paused session, or nil.
func (s *Store) GetActive(ctx context.Context) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE state IN ('active', 'paused') ORDER BY start_time DESC LIMIT 1`)
	ws, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get active session", err)
	}
	return ws, nil
}

func (s *Store) Update(ctx context.Context, ws *session.Session) error {
	summary, err := encodeSummary(ws.Summary)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, content = ?, state = ?, end_time = ?, duration_ms = ?,
		 target_ms = ?, word_count = ?, character_count = ?, typing_speed = ?, pause_count = ?,
		 total_pause_ms = ?, summary = ?, last_update = ?, state_changed_at = ?
		 WHERE id = ?`,
		ws.Title, ws.Content, ws.State.String(), nullTime(ws.EndTime), ws.Duration.Milliseconds(),
		ws.TargetDuration.Milliseconds(), ws.WordCount, ws.CharacterCount, ws.AverageTypingSpeed,
		ws.PauseCount, ws.TotalPauseDuration.Milliseconds(), summary,
		formatTime(ws.LastUpdate), formatTime(ws.StateChangedAt), ws.ID,
	)
	if err != nil {
		return unavailable(fmt.Sprintf("update session %s", ws.ID), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &session.NotFoundError{ID: ws.ID}
	}
	return nil
}

// Delete removes a session and its activity events.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return unavailable(fmt.Sprintf("delete session %s", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &session.NotFoundError{ID: id}
	}
	return nil
}

// List returns sessions matching f, newest first.
func (s *Store) List(ctx context.Context, f SessionFilter) ([]session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		query += ` AND start_time < ?`
		args = append(args, formatTime(*f.To))
	}
	if f.State != nil {
		query += ` AND state = ?`
		args = append(args, f.State.String())
	}
	query += ` ORDER BY start_time DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	return s.querySessions(ctx, "list sessions", query, args...)
}

// Search returns sessions whose title or content contains query, ignoring
// case, newest first.
func (s *Store) Search(ctx context.Context, query string) ([]session.Session, error) {
	pattern := "%" + escapeLike(foldText(query)) + "%"
	return s.querySessions(ctx, "search sessions",
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE `+foldFunc+`(title) LIKE ? ESCAPE '\' OR `+foldFunc+`(content) LIKE ? ESCAPE '\'
		 ORDER BY start_time DESC`,
		pattern, pattern,
	)
}

func (s *Store) querySessions(ctx context.Context, op, query string, args ...any) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		sessions = append(sessions, *ws)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.Session, error) {
	var (
		ws                                  session.Session
		state, startTime, lastUpdate, since string
		endTime, summary                    sql.NullString
		durationMS, targetMS, pauseMS       int64
	)
	err := row.Scan(&ws.ID, &ws.Title, &ws.Content, &state, &startTime, &endTime, &durationMS, &targetMS,
		&ws.WordCount, &ws.CharacterCount, &ws.AverageTypingSpeed, &ws.PauseCount, &pauseMS, &summary,
		&lastUpdate, &since)
	if err != nil {
		return nil, err
	}

	ws.State, err = session.ParseState(state)
	if err != nil {
		return nil, err
	}
	ws.StartTime = parseTime(startTime)
	if endTime.Valid {
		t := parseTime(endTime.String)
		ws.EndTime = &t
	}
	ws.Duration = time.Duration(durationMS) * time.Millisecond
	ws.TargetDuration = time.Duration(targetMS) * time.Millisecond
	ws.TotalPauseDuration = time.Duration(pauseMS) * time.Millisecond
	ws.LastUpdate = parseTime(lastUpdate)
	ws.StateChangedAt = parseTime(since)

	if summary.Valid && summary.String != "" {
		var res analysis.Result
		if err := json.Unmarshal([]byte(summary.String), &res); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		ws.Summary = &res
	}
	return &ws, nil
}

func encodeSummary(res *analysis.Result) (sql.NullString, error) {
	if res == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode summary: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, session.ErrSessionNotFound)
}
