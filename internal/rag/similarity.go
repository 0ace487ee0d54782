package rag

import (
	"math"
	"regexp"
	"strings"
)

// CosineSimilarity scores two embedding vectors in [-1, 1]. Degenerate
// input never errors: empty vectors, mismatched lengths, and zero-norm
// vectors all score 0 so a single bad record cannot take down a whole
// scan.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// LexicalScore is the fallback scorer for plain-text queries with no
// embedding. It is the cosine of the two token sets: the overlap count
// divided by the geometric mean of the set sizes, which lands in
// [0, 1] like the vector score so the same threshold applies.
func LexicalScore(query, text string) float64 {
	qTokens := tokenSet(query)
	tTokens := tokenSet(text)
	if len(qTokens) == 0 || len(tTokens) == 0 {
		return 0
	}

	overlap := 0
	for tok := range qTokens {
		if _, ok := tTokens[tok]; ok {
			overlap++
		}
	}
	return float64(overlap) / (math.Sqrt(float64(len(qTokens))) * math.Sqrt(float64(len(tTokens))))
}

func tokenSet(s string) map[string]struct{} {
	tokens := tokenPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
