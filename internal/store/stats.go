package store

import (
	"context"
	"database/sql"
	"time"
)

const dayLayout = "2006-01-02"

// GetDailySummary aggregates finished sessions per day in [from, to).
func (s *Store) GetDailySummary(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(start_time) AS day, COUNT(*),
		       COALESCE(SUM(word_count), 0), COALESCE(SUM(duration_ms), 0) / 1000
		FROM sessions
		WHERE state IN ('completed', 'cancelled')
		  AND start_time >= ? AND start_time < ?
		GROUP BY day
		ORDER BY day`,
		formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, unavailable("daily summary", err)
	}
	defer rows.Close()

	var summaries []DailySummary
	for rows.Next() {
		var ds DailySummary
		if err := rows.Scan(&ds.Date, &ds.Sessions, &ds.Words, &ds.ActiveSeconds); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}

// GetTodayWords returns the words written in sessions started on now's
// (UTC) day.
func (s *Store) GetTodayWords(ctx context.Context, now time.Time) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(word_count), 0)
		FROM sessions
		WHERE date(start_time) = ?`, now.UTC().Format(dayLayout),
	).Scan(&total)
	if err != nil {
		return 0, unavailable("today words", err)
	}
	return int(total.Int64), nil
}

// GetStats summarizes all sessions. Streaks count UTC days with at least one
// completed session; the current streak may end yesterday.
func (s *Store) GetStats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	var activeMS int64
	var avgSpeed sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(state = 'completed'), 0),
		       COALESCE(SUM(state = 'cancelled'), 0),
		       COALESCE(SUM(word_count), 0),
		       COALESCE(SUM(duration_ms), 0),
		       AVG(CASE WHEN state = 'completed' AND duration_ms > 0
		                THEN character_count * 60000.0 / duration_ms END)
		FROM sessions`,
	).Scan(&st.TotalSessions, &st.CompletedSessions, &st.CancelledSessions, &st.TotalWords, &activeMS, &avgSpeed)
	if err != nil {
		return Stats{}, unavailable("stats", err)
	}
	st.ActiveTime = time.Duration(activeMS) * time.Millisecond
	st.AverageSpeed = avgSpeed.Float64
	if finished := st.CompletedSessions + st.CancelledSessions; finished > 0 {
		st.CompletionRate = float64(st.CompletedSessions) / float64(finished)
	}

	days, err := s.completedDays(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.CurrentStreak, st.LongestStreak = streaks(days, now.UTC())
	return st, nil
}

func (s *Store) completedDays(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date(start_time) FROM sessions
		WHERE state = 'completed' ORDER BY 1`)
	if err != nil {
		return nil, unavailable("completed days", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		t, err := time.Parse(dayLayout, d)
		if err != nil {
			continue
		}
		days = append(days, t)
	}
	return days, rows.Err()
}

// streaks computes the current and longest runs of consecutive days. days
// must be sorted ascending and distinct.
func streaks(days []time.Time, now time.Time) (current, longest int) {
	run := 0
	for i, d := range days {
		if i > 0 && d.Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	if len(days) == 0 {
		return 0, longest
	}
	today, _ := time.Parse(dayLayout, now.Format(dayLayout))
	last := days[len(days)-1]
	if gap := today.Sub(last); gap > 24*time.Hour || gap < 0 {
		return 0, longest
	}
	return run, longest
}
