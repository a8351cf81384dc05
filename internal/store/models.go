package store

import (
	"time"

	"github.com/sadopc/writingflow/internal/session"
)

type Setting struct {
	Key   string
	Value string
}

// SessionFilter is used to filter sessions in queries.
type SessionFilter struct {
	From  *time.Time
	To    *time.Time
	State *session.State
	Limit int
}

// DailySummary aggregates the sessions started on one day.
type DailySummary struct {
	Date          string
	Sessions      int
	Words         int
	ActiveSeconds int64
}

// Stats summarizes the whole writing history.
type Stats struct {
	TotalSessions     int
	CompletedSessions int
	CancelledSessions int
	TotalWords        int
	ActiveTime        time.Duration
	AverageSpeed      float64 // characters per minute over completed sessions
	CompletionRate    float64 // completed / finished, 0..1
	CurrentStreak     int     // consecutive days with a completed session
	LongestStreak     int
}
