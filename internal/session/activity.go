package session

import (
	"strconv"
	"time"
)

// ActivitySummary totals a session's activity timeline.
type ActivitySummary struct {
	RejectedEdits int
	// RemovedChars is how many characters the rejected edits tried to
	// delete.
	RemovedChars int
	IdlePeriods  int
	IdleTime     time.Duration
	Pauses       int
	PausedTime   time.Duration
}

// SummarizeActivity totals events. Resume events carry the length of the
// pause they end.
func SummarizeActivity(events []ActivityEvent) ActivitySummary {
	var sum ActivitySummary
	for _, ev := range events {
		switch ev.Kind {
		case ActivityBackspace:
			sum.RejectedEdits++
			if n, err := strconv.Atoi(ev.Metadata["removed"]); err == nil && n > 0 {
				sum.RemovedChars += n
			}
		case ActivityIdle:
			sum.IdlePeriods++
			sum.IdleTime += ev.Duration
		case ActivityPause:
			sum.Pauses++
		case ActivityResume:
			sum.PausedTime += ev.Duration
		}
	}
	return sum
}

// Empty reports whether nothing notable happened.
func (a ActivitySummary) Empty() bool {
	return a == ActivitySummary{}
}
