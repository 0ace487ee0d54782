package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pharmaqa/rag-engine/internal/llm"
	"github.com/pharmaqa/rag-engine/internal/models"
)

// Reranker re-orders retrieved results by a second relevance judgment.
// It only runs when a caller asks for it; plain searches keep their
// cosine ordering.
type Reranker interface {
	Rerank(ctx context.Context, question string, results []models.SearchResult) ([]models.SearchResult, error)
}

// LLMReranker asks the chat gateway to score every result against the
// question in one call. Any failure, including an unparsable reply,
// leaves the original ordering untouched.
type LLMReranker struct {
	gateway llm.Gateway
	model   string
}

func NewLLMReranker(gw llm.Gateway, model string) *LLMReranker {
	return &LLMReranker{gateway: gw, model: model}
}

func (r *LLMReranker) Rerank(ctx context.Context, question string, results []models.SearchResult) ([]models.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	var sb strings.Builder
	for i, res := range results {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i, clip(res.Text, 500))
	}

	resp, err := r.gateway.Chat(ctx, llm.ChatRequest{
		Model: r.model,
		Messages: []llm.Message{
			{
				Role: "system",
				Content: `You score document excerpts for relevance to a question. Score each excerpt from 0.0 to 1.0.
Return ONLY a JSON array of objects with "index" and "score" fields, for example:
[{"index": 0, "score": 0.95}, {"index": 1, "score": 0.3}]`,
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Question: %s\n\nExcerpts:\n%s", question, sb.String()),
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return results, nil
	}

	scores, ok := parseScores(resp.Content)
	if !ok {
		return results, nil
	}

	reranked := make([]models.SearchResult, len(results))
	copy(reranked, results)
	for i := range reranked {
		if score, found := scores[i]; found {
			reranked[i].Score = score
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}

func parseScores(content string) (map[int]float64, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, false
	}

	scores := make(map[int]float64, len(parsed))
	for _, s := range parsed {
		scores[s.Index] = s.Score
	}
	return scores, true
}

func clip(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
