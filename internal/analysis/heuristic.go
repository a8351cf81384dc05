package analysis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sadopc/writingflow/internal/textstats"
)

// SourceHeuristic tags results produced by Heuristic.
const SourceHeuristic = "heuristic"

// shortTextWords is the word count below which a "write more" suggestion
// is added.
const shortTextWords = 50

// moodRules is checked in order; the first rule with a matching keyword wins.
var moodRules = []struct {
	mood     Mood
	keywords []string
}{
	{MoodEnthusiastic, []string{"excited", "amazing"}},
	{MoodFocused, []string{"focus", "concentrate"}},
	{MoodReflective, []string{"think", "reflect"}},
	{MoodCreative, []string{"create", "imagine"}},
	{MoodAnalytical, []string{"analyze", "examine"}},
	{MoodTired, []string{"tired", "exhausted"}},
	{MoodStressed, []string{"stress", "worry"}},
}

var themeVocabulary = []string{
	"creativity", "productivity", "mindfulness", "reflection",
	"planning", "goals", "ideas", "inspiration", "motivation",
	"focus", "routine", "habits", "growth", "learning",
}

// placeholderThemes is returned when no vocabulary theme is found.
var placeholderThemes = []string{"writing", "practice"}

const defaultStyle = "balanced, natural style"

var personalPronouns = map[string]bool{
	"i": true, "me": true, "my": true, "mine": true, "myself": true,
	"we": true, "us": true, "our": true, "ours": true,
	"you": true, "your": true, "yours": true,
}

var moodSuggestions = map[Mood][]string{
	MoodTired: {
		"Consider taking a short break to refresh your mind",
		"Try writing in a different environment",
	},
	MoodStressed: {
		"Consider taking a short break to refresh your mind",
		"Try writing in a different environment",
	},
	MoodNeutral: {
		"Try adding more descriptive details to engage readers",
		"Consider varying sentence structure for better flow",
	},
	MoodCreative: {
		"Great creative flow! Consider organizing ideas into sections",
	},
	MoodFocused: {
		"Excellent focus! Maintain this momentum",
	},
}

var defaultSuggestions = []string{"Continue developing your unique voice"}

const writeMoreSuggestion = "Keep going: aim for at least 50 words in your next session"

// Heuristic is the keyword and statistics based analyzer. Its output
// depends only on the input text.
type Heuristic struct{}

// NewHeuristic returns the heuristic analyzer.
func NewHeuristic() Heuristic { return Heuristic{} }

func (Heuristic) Analyze(_ context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrTextTooShort
	}

	stats := textstats.Compute(text)
	lower := cases.Lower(language.Und).String(text)

	mood := DetectMood(lower)
	themes, matched := ExtractThemes(lower)
	style := describeStyle(lower, stats)

	return Result{
		Mood:                  mood,
		Themes:                themes,
		Insights:              buildInsights(text, stats, themes, matched, style),
		Style:                 style,
		Suggestions:           suggest(mood, stats.Words),
		WordCount:             stats.Words,
		ReadabilityScore:      stats.Readability,
		AverageSentenceLength: stats.AverageSentenceLength,
		Source:                SourceHeuristic,
	}, nil
}

// DetectMood returns the first mood whose keywords occur in lower, or
// MoodNeutral.
func DetectMood(lower string) Mood {
	for _, rule := range moodRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.mood
			}
		}
	}
	return MoodNeutral
}

// ExtractThemes returns the vocabulary themes contained in lower, in
// vocabulary order. When none match it returns the placeholder pair and
// false.
func ExtractThemes(lower string) ([]string, bool) {
	var found []string
	for _, theme := range themeVocabulary {
		if strings.Contains(lower, theme) {
			found = append(found, theme)
		}
	}
	if len(found) == 0 {
		return append([]string(nil), placeholderThemes...), false
	}
	return found, true
}

func describeStyle(lower string, stats textstats.Stats) []string {
	var style []string

	switch {
	case stats.AverageWordLength > 6:
		style = append(style, "sophisticated vocabulary")
	case stats.AverageWordLength > 0 && stats.AverageWordLength < 4:
		style = append(style, "concise wording")
	}

	switch {
	case stats.AverageSentenceLength > 20:
		style = append(style, "complex sentence structure")
	case stats.AverageSentenceLength > 0 && stats.AverageSentenceLength < 10:
		style = append(style, "short, direct sentences")
	}

	if hasPersonalPronoun(lower) {
		style = append(style, "personal tone")
	}

	if len(style) == 0 {
		return []string{defaultStyle}
	}
	return style
}

func hasPersonalPronoun(lower string) bool {
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,;:!?\"'()[]-")
		if personalPronouns[w] {
			return true
		}
	}
	return false
}

func buildInsights(text string, stats textstats.Stats, themes []string, themesMatched bool, style []string) []Insight {
	insights := []Insight{{
		Kind:        KindProductivity,
		Title:       "Session output",
		Description: fmt.Sprintf("You wrote %d words across %d sentences.", stats.Words, stats.Sentences),
		Confidence:  0.95,
	}}

	if themesMatched {
		theme := themes[0]
		insights = append(insights, Insight{
			Kind:        KindCreativity,
			Title:       "Dominant theme: " + theme,
			Description: fmt.Sprintf("Your writing keeps returning to %s.", theme),
			Confidence:  0.7,
			Actionable:  true,
			Suggestions: []string{fmt.Sprintf("Develop the theme of %s further in your next session", theme)},
		})
	}

	if style[0] != defaultStyle {
		kind := KindFlow
		switch {
		case stats.AverageSentenceLength > 20 || (stats.AverageSentenceLength > 0 && stats.AverageSentenceLength < 10):
			kind = KindStructure
		case stats.AverageWordLength > 6 || (stats.AverageWordLength > 0 && stats.AverageWordLength < 4):
			kind = KindVocabulary
		}
		insights = append(insights, Insight{
			Kind:        kind,
			Title:       "Writing style",
			Description: "Your writing shows " + strings.Join(style, ", ") + ".",
			Confidence:  0.6,
		})
	}

	if strings.Contains(text, "?") {
		insights = append(insights, Insight{
			Kind:        KindFlow,
			Title:       "Exploratory writing",
			Description: "You are asking questions as you write, a sign of open exploration.",
			Confidence:  0.5,
		})
	}

	return insights
}

func suggest(mood Mood, words int) []string {
	base, ok := moodSuggestions[mood]
	if !ok {
		base = defaultSuggestions
	}
	out := append([]string(nil), base...)
	if words < shortTextWords {
		out = append(out, writeMoreSuggestion)
	}
	return out
}
