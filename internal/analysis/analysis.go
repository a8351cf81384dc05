// Package analysis derives mood, themes, style, insights and suggestions
// from the text of a writing session.
//
// Analyzer is the strategy seam: Heuristic is deterministic and always
// available, Ollama asks a local language model, and Fallback composes the
// two so a failing model degrades to the heuristic result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrTextTooShort is returned for empty or whitespace-only text.
	ErrTextTooShort = errors.New("text too short to analyze")

	// ErrAnalysisUnavailable reports that a model-backed analyzer could not
	// produce a result. Fallback absorbs it.
	ErrAnalysisUnavailable = errors.New("analysis backend unavailable")
)

// Analyzer produces a Result for a text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Result, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, text string) (Result, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

// Mood is the dominant tone detected in a text.
type Mood string

const (
	MoodEnthusiastic Mood = "enthusiastic"
	MoodFocused      Mood = "focused"
	MoodReflective   Mood = "reflective"
	MoodCreative     Mood = "creative"
	MoodAnalytical   Mood = "analytical"
	MoodNeutral      Mood = "neutral"
	MoodTired        Mood = "tired"
	MoodStressed     Mood = "stressed"
)

// Moods lists every mood.
var Moods = []Mood{
	MoodEnthusiastic, MoodFocused, MoodReflective, MoodCreative,
	MoodAnalytical, MoodNeutral, MoodTired, MoodStressed,
}

// ParseMood maps a stored or model supplied string to a Mood.
func ParseMood(s string) (Mood, error) {
	for _, m := range Moods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mood %q", s)
}

// InsightKind classifies an Insight.
type InsightKind string

const (
	KindProductivity InsightKind = "productivity"
	KindConsistency  InsightKind = "consistency"
	KindCreativity   InsightKind = "creativity"
	KindStructure    InsightKind = "structure"
	KindVocabulary   InsightKind = "vocabulary"
	KindFlow         InsightKind = "flow"
	KindMood         InsightKind = "mood"
)

var insightKinds = []InsightKind{
	KindProductivity, KindConsistency, KindCreativity, KindStructure,
	KindVocabulary, KindFlow, KindMood,
}

// ParseInsightKind maps a string to an InsightKind.
func ParseInsightKind(s string) (InsightKind, error) {
	for _, k := range insightKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown insight kind %q", s)
}

// Insight is one observation about a text.
type Insight struct {
	Kind        InsightKind `json:"kind"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	Actionable  bool        `json:"actionable"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// Result is the outcome of one analysis. It is not modified after it is
// returned.
type Result struct {
	Mood                  Mood      `json:"mood"`
	Themes                []string  `json:"themes"`
	Insights              []Insight `json:"insights"`
	Style                 []string  `json:"style"`
	Suggestions           []string  `json:"suggestions"`
	WordCount             int       `json:"word_count"`
	ReadabilityScore      float64   `json:"readability_score"`
	AverageSentenceLength float64   `json:"average_sentence_length"`
	Source                string    `json:"source"`
}

// Clone returns a copy that shares no slices with r.
func (r Result) Clone() Result {
	c := r
	c.Themes = slices.Clone(r.Themes)
	c.Style = slices.Clone(r.Style)
	c.Suggestions = slices.Clone(r.Suggestions)
	c.Insights = slices.Clone(r.Insights)
	for i := range c.Insights {
		c.Insights[i].Suggestions = slices.Clone(r.Insights[i].Suggestions)
	}
	return c
}
