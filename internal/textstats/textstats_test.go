package textstats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWordCount(t *testing.T) {
	cases := map[string]int{
		"":                            0,
		"  ":                          0,
		"\n\t \n":                     0,
		"hello":                       1,
		"The quick brown fox jumps.":  5,
		"  leading and trailing  ":    3,
		"line one\nline two\n\nthree": 5,
		"tabs\tare\tseparators":       3,
	}
	for in, want := range cases {
		assert.Equal(t, want, WordCount(in), "WordCount(%q)", in)
	}
}

func TestCharacterCount(t *testing.T) {
	assert.Equal(t, 0, CharacterCount(""))
	assert.Equal(t, 5, CharacterCount("hello"))
	assert.Equal(t, 1, CharacterCount("e\u0301"), "combining sequence is one character")
	assert.Equal(t, 1, CharacterCount("\u00e9"))
	assert.Equal(t, 1, CharacterCount("\U0001F44D\U0001F3FD"), "emoji with skin tone modifier")
	assert.Equal(t, 3, CharacterCount("a b"))
}

func TestTypingSpeed(t *testing.T) {
	assert.Zero(t, TypingSpeed(100, 0))
	assert.Zero(t, TypingSpeed(100, -time.Second))
	assert.InDelta(t, 120.0, TypingSpeed(20, 10*time.Second), 1e-9)
	assert.InDelta(t, 60.0, TypingSpeed(60, time.Minute), 1e-9)
}

func TestSentences(t *testing.T) {
	assert.Empty(t, Sentences(""))
	assert.Empty(t, Sentences("...!?"))
	assert.Len(t, Sentences("One. Two! Three?"), 3)
	assert.Len(t, Sentences("No terminator"), 1)
	assert.Len(t, Sentences("Trailing.   "), 1)
}

func TestAverageSentenceLength(t *testing.T) {
	assert.Zero(t, AverageSentenceLength(""))
	assert.Zero(t, AverageSentenceLength("   "))
	assert.InDelta(t, 5.0, AverageSentenceLength("The quick brown fox jumps."), 1e-9)
	assert.InDelta(t, 2.5, AverageSentenceLength("I write. Every single day!"), 1e-9)
}

func TestAverageWordLength(t *testing.T) {
	assert.Zero(t, AverageWordLength(""))
	assert.InDelta(t, 3.0, AverageWordLength("abc def"), 1e-9)
	assert.InDelta(t, 2.0, AverageWordLength("a abc"), 1e-9)
}

func TestReadabilityScore_SymmetricAndMonotonic(t *testing.T) {
	prev := ReadabilityScore(IdealSentenceLength)
	assert.Equal(t, 100.0, prev)

	for k := 1.0; k < IdealSentenceLength; k++ {
		above := ReadabilityScore(IdealSentenceLength + k)
		below := ReadabilityScore(IdealSentenceLength - k)
		assert.Equal(t, above, below, "symmetric at k=%v", k)
		assert.Less(t, above, prev, "decreasing at k=%v", k)
		prev = above
	}
}

func TestReadabilityScore_Clamped(t *testing.T) {
	assert.Zero(t, ReadabilityScore(0), "no sentences")
	assert.Zero(t, ReadabilityScore(200))
	for _, avg := range []float64{0.5, 3, 15, 27, 65, 1000} {
		s := ReadabilityScore(avg)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
	}
}

func TestCompute(t *testing.T) {
	s := Compute("The quick brown fox jumps.")
	assert.Equal(t, 5, s.Words)
	assert.Equal(t, 26, s.Characters)
	assert.Equal(t, 1, s.Sentences)
	assert.InDelta(t, 5.0, s.AverageSentenceLength, 1e-9)
	assert.InDelta(t, 80.0, s.Readability, 1e-9)
}
