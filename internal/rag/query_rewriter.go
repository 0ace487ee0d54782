package rag

import (
	"context"
	"strings"

	"github.com/pharmaqa/rag-engine/internal/llm"
)

// QueryRewriter expands a question into alternative phrasings so the
// lexical retrieval path can match documents the original wording
// misses. Embedding-based searches do not use it; their query vector
// already arrives computed.
type QueryRewriter interface {
	Rewrite(ctx context.Context, question string) ([]string, error)
}

// LLMQueryRewriter asks the chat gateway for reformulations. The
// original question always leads the returned list, and any gateway
// failure degrades to that single entry.
type LLMQueryRewriter struct {
	gateway llm.Gateway
	model   string
}

func NewLLMQueryRewriter(gw llm.Gateway, model string) *LLMQueryRewriter {
	return &LLMQueryRewriter{gateway: gw, model: model}
}

func (r *LLMQueryRewriter) Rewrite(ctx context.Context, question string) ([]string, error) {
	resp, err := r.gateway.Chat(ctx, llm.ChatRequest{
		Model: r.model,
		Messages: []llm.Message{
			{
				Role: "system",
				Content: `You rephrase questions for keyword search over quality-assurance documents. Given a question, write 3 alternative phrasings that use different vocabulary for the same information need.
Return ONLY the 3 phrasings, one per line, no numbering or bullets.`,
			},
			{
				Role:    "user",
				Content: question,
			},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return []string{question}, nil
	}

	queries := []string{question}
	for _, line := range strings.Split(strings.TrimSpace(resp.Content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && line != question {
			queries = append(queries, line)
		}
	}
	return queries, nil
}
