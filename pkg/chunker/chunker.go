// Package chunker splits extracted document text into retrieval-sized
// pieces. It is deliberately free of engine types so the upload
// preparation endpoint and tests can use it standalone.
package chunker

import (
	"strings"
	"unicode/utf8"
)

type Strategy string

const (
	// StrategyFixed cuts rune windows of exactly Size with Overlap
	// runes carried between neighbors.
	StrategyFixed Strategy = "fixed"
	// StrategyRecursive splits on paragraph, line, sentence, then word
	// boundaries until pieces fit Size.
	StrategyRecursive Strategy = "recursive"
	// StrategySentence packs whole sentences until Size is reached.
	StrategySentence Strategy = "sentence"
)

type Options struct {
	Size     int // target piece size in runes
	Overlap  int // runes shared between neighboring fixed pieces
	Strategy Strategy
}

func DefaultOptions() Options {
	return Options{Size: 1000, Overlap: 200, Strategy: StrategyRecursive}
}

// Chunk is one piece of the source text, indexed in document order.
type Chunk struct {
	Index          int
	Text           string
	WordCount      int
	CharacterCount int
}

// Split cuts text according to opts. Blank pieces are dropped, and the
// surviving pieces are indexed contiguously from zero. Unknown
// strategies fall back to recursive.
func Split(text string, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	var pieces []string
	switch opts.Strategy {
	case StrategyFixed:
		pieces = splitFixed(text, opts.Size, opts.Overlap)
	case StrategySentence:
		pieces = splitSentencePacked(text, opts.Size)
	default:
		pieces = splitRecursive(text, recursiveSeparators, opts.Size)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		words, chars := Counts(piece)
		chunks = append(chunks, Chunk{
			Index:          len(chunks),
			Text:           piece,
			WordCount:      words,
			CharacterCount: chars,
		})
	}
	return chunks
}

// Counts returns the whitespace-delimited word count and the rune count
// of text.
func Counts(text string) (words, characters int) {
	return len(strings.Fields(text)), utf8.RuneCountInString(text)
}

func splitFixed(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return pieces
}

// recursiveSeparators is ordered coarsest-first; each level is only
// consulted when the level above still leaves an oversized piece.
var recursiveSeparators = []string{"\n\n", "\n", ". ", " "}

func splitRecursive(text string, separators []string, size int) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	if len(separators) == 0 {
		return splitFixed(text, size, 0)
	}

	sep := separators[0]
	parts := strings.Split(text, sep)

	var pieces []string
	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		pieces = append(pieces, splitRecursive(pending.String(), separators[1:], size)...)
		pending.Reset()
	}

	for _, part := range parts {
		joined := utf8.RuneCountInString(part)
		if pending.Len() > 0 {
			joined += utf8.RuneCountInString(pending.String()) + utf8.RuneCountInString(sep)
		}
		if pending.Len() > 0 && joined > size {
			flush()
		}
		if pending.Len() > 0 {
			pending.WriteString(sep)
		}
		pending.WriteString(part)
	}
	flush()

	return pieces
}

func splitSentencePacked(text string, size int) []string {
	var pieces []string
	var pending strings.Builder

	for _, sentence := range splitSentences(text) {
		if pending.Len() > 0 &&
			utf8.RuneCountInString(pending.String())+utf8.RuneCountInString(sentence) > size {
			pieces = append(pieces, pending.String())
			pending.Reset()
		}
		pending.WriteString(sentence)
	}
	if pending.Len() > 0 {
		pieces = append(pieces, pending.String())
	}
	return pieces
}

// splitSentences cuts after ., !, or ? followed by a space. Trailing
// text without terminal punctuation forms the final sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
