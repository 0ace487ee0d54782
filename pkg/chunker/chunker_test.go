package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyText(t *testing.T) {
	assert.Empty(t, Split("", DefaultOptions()))
	assert.Empty(t, Split("   \n\n  ", DefaultOptions()))
}

func TestSplit_TextSmallerThanSize(t *testing.T) {
	chunks := Split("just a short note", Options{Size: 100, Strategy: StrategyRecursive})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "just a short note", chunks[0].Text)
	assert.Equal(t, 4, chunks[0].WordCount)
	assert.Equal(t, 17, chunks[0].CharacterCount)
}

func TestSplit_FixedWindowsWithOverlap(t *testing.T) {
	chunks := Split("0123456789ABCDEFGHIJ", Options{Size: 10, Overlap: 3, Strategy: StrategyFixed})

	require.Len(t, chunks, 3)
	assert.Equal(t, "0123456789", chunks[0].Text)
	assert.Equal(t, "789ABCDEFG", chunks[1].Text)
	assert.Equal(t, "EFGHIJ", chunks[2].Text)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplit_FixedExactDivision(t *testing.T) {
	chunks := Split("aaaaabbbbb", Options{Size: 5, Overlap: 0, Strategy: StrategyFixed})
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaaa", chunks[0].Text)
	assert.Equal(t, "bbbbb", chunks[1].Text)
}

func TestSplit_FixedDropsBlankPiecesAndReindexes(t *testing.T) {
	// Window 2 over "ab   cd" produces a whitespace-only middle piece.
	chunks := Split("ab   cd", Options{Size: 2, Overlap: 0, Strategy: StrategyFixed})

	require.Len(t, chunks, 3)
	assert.Equal(t, "ab", chunks[0].Text)
	assert.Equal(t, "c", chunks[1].Text)
	assert.Equal(t, "d", chunks[2].Text)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplit_RecursiveKeepsParagraphsWhole(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph there."
	chunks := Split(text, Options{Size: 30, Strategy: StrategyRecursive})

	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph here.", chunks[0].Text)
	assert.Equal(t, "Second paragraph there.", chunks[1].Text)
}

func TestSplit_RecursiveFallsThroughToWords(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	chunks := Split(text, Options{Size: 20, Strategy: StrategyRecursive})

	require.Len(t, chunks, 3)
	assert.Equal(t, "alpha beta gamma", chunks[0].Text)
	assert.Equal(t, "delta epsilon zeta", chunks[1].Text)
	assert.Equal(t, "eta theta", chunks[2].Text)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.CharacterCount, 20)
	}
}

func TestSplit_SentencePacking(t *testing.T) {
	chunks := Split("One. Two. Three.", Options{Size: 10, Strategy: StrategySentence})

	require.Len(t, chunks, 2)
	assert.Equal(t, "One. Two.", chunks[0].Text)
	assert.Equal(t, "Three.", chunks[1].Text)
}

func TestSplit_UnknownStrategyFallsBackToRecursive(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph there."
	got := Split(text, Options{Size: 30, Strategy: "bogus"})
	want := Split(text, Options{Size: 30, Strategy: StrategyRecursive})
	assert.Equal(t, want, got)
}

func TestSplit_ZeroSizeUsesDefault(t *testing.T) {
	chunks := Split("tiny", Options{})
	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Text)
}

func TestCounts(t *testing.T) {
	words, chars := Counts("héllo wörld")
	assert.Equal(t, 2, words)
	assert.Equal(t, 11, chars)

	words, chars = Counts("")
	assert.Equal(t, 0, words)
	assert.Equal(t, 0, chars)
}
