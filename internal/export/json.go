package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/session"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	State          string           `json:"state"`
	StartTime      string           `json:"start_time"`
	EndTime        string           `json:"end_time,omitempty"`
	DurationSec    int64            `json:"duration_seconds"`
	Duration       string           `json:"duration"`
	TargetSec      int64            `json:"target_seconds"`
	WordCount      int              `json:"word_count"`
	CharacterCount int              `json:"character_count"`
	TypingSpeed    float64          `json:"typing_speed"`
	PauseCount     int              `json:"pause_count"`
	TotalPauseSec  int64            `json:"total_pause_seconds"`
	Content        string           `json:"content,omitempty"`
	Summary        *analysis.Result `json:"summary,omitempty"`
}

func ToJSON(sessions []session.Session, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(sessions),
		Sessions:   []jsonSession{},
	}

	for _, s := range sessions {
		endStr := ""
		if s.EndTime != nil {
			endStr = s.EndTime.Local().Format(time.RFC3339)
		}
		secs := int64(s.Duration / time.Second)

		export.Sessions = append(export.Sessions, jsonSession{
			ID:             s.ID,
			Title:          s.Title,
			State:          s.State.String(),
			StartTime:      s.StartTime.Local().Format(time.RFC3339),
			EndTime:        endStr,
			DurationSec:    secs,
			Duration:       formatDuration(secs),
			TargetSec:      int64(s.TargetDuration / time.Second),
			WordCount:      s.WordCount,
			CharacterCount: s.CharacterCount,
			TypingSpeed:    s.AverageTypingSpeed,
			PauseCount:     s.PauseCount,
			TotalPauseSec:  int64(s.TotalPauseDuration / time.Second),
			Content:        s.Content,
			Summary:        s.Summary,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
