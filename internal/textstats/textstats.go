// Package textstats holds the pure text measurements used by the session
// engine and the analyzers. Nothing here keeps state.
package textstats

import (
	"math"
	"strings"
	"time"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// IdealSentenceLength is the sentence length, in words, that scores 100.
const IdealSentenceLength = 15.0

// Stats bundles every measurement for one text.
type Stats struct {
	Words                 int     `json:"words"`
	Characters            int     `json:"characters"`
	Sentences             int     `json:"sentences"`
	AverageSentenceLength float64 `json:"average_sentence_length"`
	AverageWordLength     float64 `json:"average_word_length"`
	Readability           float64 `json:"readability"`
}

// Compute measures text.
func Compute(text string) Stats {
	avg := AverageSentenceLength(text)
	return Stats{
		Words:                 WordCount(text),
		Characters:            CharacterCount(text),
		Sentences:             SentenceCount(text),
		AverageSentenceLength: avg,
		AverageWordLength:     AverageWordLength(text),
		Readability:           ReadabilityScore(avg),
	}
}

// WordCount counts the non-empty whitespace separated tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharacterCount counts user-perceived characters: extended grapheme
// clusters of the NFC form of text. "e" followed by a combining acute
// accent and the precomposed "é" both count as one.
func CharacterCount(text string) int {
	if text == "" {
		return 0
	}
	return uniseg.GraphemeClusterCount(norm.NFC.String(text))
}

// TypingSpeed returns characters per minute. It is 0 when no time elapsed.
func TypingSpeed(charactersDelta int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(charactersDelta) / elapsed.Seconds() * 60
}

// Sentences splits text on '.', '!' and '?' and drops blank fragments.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// SentenceCount is len(Sentences(text)).
func SentenceCount(text string) int {
	return len(Sentences(text))
}

// AverageSentenceLength is the word count of text divided by its sentence
// count, or 0 when there are no sentences.
func AverageSentenceLength(text string) float64 {
	n := SentenceCount(text)
	if n == 0 {
		return 0
	}
	return float64(WordCount(text)) / float64(n)
}

// AverageWordLength is the mean character count of the words in text.
func AverageWordLength(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	total := 0
	for _, w := range words {
		total += CharacterCount(w)
	}
	return float64(total) / float64(len(words))
}

// ReadabilityScore penalises deviation from IdealSentenceLength by two
// points per word, clamped to [0, 100]. An average of 0 (no sentences)
// scores 0.
func ReadabilityScore(avgSentenceLength float64) float64 {
	if avgSentenceLength <= 0 || math.IsNaN(avgSentenceLength) {
		return 0
	}
	score := 100 - 2*math.Abs(avgSentenceLength-IdealSentenceLength)
	return math.Max(0, math.Min(100, score))
}
