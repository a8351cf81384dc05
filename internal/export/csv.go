package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/writingflow/internal/session"
)

func ToCSV(sessions []session.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	header := []string{
		"ID", "Title", "State", "Start", "End", "Duration (s)", "Duration", "Target",
		"Words", "Characters", "Speed (chars/min)", "Pauses", "Paused", "Mood",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range sessions {
		endStr := ""
		if s.EndTime != nil {
			endStr = s.EndTime.Local().Format(time.RFC3339)
		}
		mood := ""
		if s.Summary != nil {
			mood = string(s.Summary.Mood)
		}
		secs := int64(s.Duration / time.Second)

		row := []string{
			s.ID,
			s.Title,
			s.State.String(),
			s.StartTime.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", secs),
			formatDuration(secs),
			formatDuration(int64(s.TargetDuration / time.Second)),
			fmt.Sprintf("%d", s.WordCount),
			fmt.Sprintf("%d", s.CharacterCount),
			fmt.Sprintf("%.1f", s.AverageTypingSpeed),
			fmt.Sprintf("%d", s.PauseCount),
			formatDuration(int64(s.TotalPauseDuration / time.Second)),
			mood,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
