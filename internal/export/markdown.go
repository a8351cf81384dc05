package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/writingflow/internal/session"
)

const markdownTime = "Mon Jan 2, 2006 15:04"

// ToMarkdown renders one session as a Markdown report: a stats table, the
// analysis when there is one, the activity timeline when given, and the
// text itself.
func ToMarkdown(s session.Session, activity ...session.ActivityEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Title)

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Started | %s |\n", s.StartTime.Local().Format(markdownTime))
	if s.EndTime != nil {
		fmt.Fprintf(&b, "| Ended | %s |\n", s.EndTime.Local().Format(markdownTime))
	}
	fmt.Fprintf(&b, "| State | %s |\n", s.State)
	fmt.Fprintf(&b, "| Writing time | %s of %s |\n",
		formatDuration(int64(s.Duration/time.Second)), formatDuration(int64(s.TargetDuration/time.Second)))
	fmt.Fprintf(&b, "| Words | %d |\n", s.WordCount)
	fmt.Fprintf(&b, "| Characters | %d |\n", s.CharacterCount)
	fmt.Fprintf(&b, "| Typing speed | %.0f chars/min |\n", s.AverageTypingSpeed)
	fmt.Fprintf(&b, "| Pauses | %d (%s) |\n", s.PauseCount, formatDuration(int64(s.TotalPauseDuration/time.Second)))

	if sum := s.Summary; sum != nil {
		b.WriteString("\n## Analysis\n\n")
		fmt.Fprintf(&b, "**Mood:** %s  \n", sum.Mood)
		fmt.Fprintf(&b, "**Readability:** %.0f/100  \n", sum.ReadabilityScore)
		fmt.Fprintf(&b, "**Average sentence:** %.1f words  \n", sum.AverageSentenceLength)
		fmt.Fprintf(&b, "**Themes:** %s  \n", strings.Join(sum.Themes, ", "))
		fmt.Fprintf(&b, "**Style:** %s\n", strings.Join(sum.Style, ", "))

		if len(sum.Insights) > 0 {
			b.WriteString("\n### Insights\n\n")
			for _, in := range sum.Insights {
				fmt.Fprintf(&b, "- **%s** (%s, %.0f%%): %s\n", in.Title, in.Kind, in.Confidence*100, in.Description)
				for _, sug := range in.Suggestions {
					fmt.Fprintf(&b, "  - %s\n", sug)
				}
			}
		}
		if len(sum.Suggestions) > 0 {
			b.WriteString("\n### Suggestions\n\n")
			for _, sug := range sum.Suggestions {
				fmt.Fprintf(&b, "- %s\n", sug)
			}
		}
	}

	writeActivity(&b, s.StartTime, activity)

	if text := strings.TrimSpace(s.Content); text != "" {
		b.WriteString("\n## Text\n\n")
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				b.WriteString(">\n")
				continue
			}
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}

	return b.String()
}

func writeActivity(b *strings.Builder, start time.Time, events []session.ActivityEvent) {
	sum := session.SummarizeActivity(events)
	if sum.Empty() {
		return
	}

	b.WriteString("\n## Activity\n\n")
	fmt.Fprintf(b, "**Rejected edits:** %d (%d characters)  \n", sum.RejectedEdits, sum.RemovedChars)
	fmt.Fprintf(b, "**Idle periods:** %d (%s)  \n", sum.IdlePeriods, formatDuration(int64(sum.IdleTime/time.Second)))
	fmt.Fprintf(b, "**Pauses:** %d (%s)\n", sum.Pauses, formatDuration(int64(sum.PausedTime/time.Second)))

	b.WriteString("\n| At | Event | Detail |\n|---|---|---|\n")
	for i := 0; i < len(events); i++ {
		ev := events[i]
		at := formatDuration(int64(max(0, ev.At.Sub(start)) / time.Second))

		if ev.Kind == session.ActivityBackspace {
			// Consecutive rejections collapse into one row.
			j := i
			for j < len(events) && events[j].Kind == session.ActivityBackspace {
				j++
			}
			run := session.SummarizeActivity(events[i:j])
			fmt.Fprintf(b, "| %s | Rejected edit ×%d | %d characters |\n", at, run.RejectedEdits, run.RemovedChars)
			i = j - 1
			continue
		}

		label, detail := activityLabel(ev)
		fmt.Fprintf(b, "| %s | %s | %s |\n", at, label, detail)
	}
}

func activityLabel(ev session.ActivityEvent) (string, string) {
	secs := int64(ev.Duration / time.Second)
	switch ev.Kind {
	case session.ActivityIdle:
		return "Idle", formatDuration(secs)
	case session.ActivityPause:
		return "Paused", ""
	case session.ActivityResume:
		return "Resumed", "after " + formatDuration(secs)
	case session.ActivityTyping:
		return "Writing again", ""
	}
	return string(ev.Kind), ""
}
