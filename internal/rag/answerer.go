package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/pharmaqa/rag-engine/internal/models"
)

// AnswerRequest is one grounded-answer invocation. QueryEmbedding is
// optional: with it, retrieval scores by vector similarity; without
// it, the question itself drives the lexical scorer, optionally
// widened by query rewriting.
type AnswerRequest struct {
	Question       string
	QueryEmbedding []float32
	Options        SearchOptions
	Rerank         bool
	RewriteQuery   bool
}

// Answerer runs the read side end to end: retrieve, optionally
// re-order, then generate with attribution.
type Answerer struct {
	retriever *Retriever
	generator *Generator
	reranker  Reranker
	rewriter  QueryRewriter
}

func NewAnswerer(retriever *Retriever, generator *Generator, reranker Reranker, rewriter QueryRewriter) *Answerer {
	return &Answerer{
		retriever: retriever,
		generator: generator,
		reranker:  reranker,
		rewriter:  rewriter,
	}
}

func (a *Answerer) Answer(ctx context.Context, userID string, req AnswerRequest) (*Answer, error) {
	if req.Question == "" {
		return nil, fmt.Errorf("question is required: %w", models.ErrValidation)
	}

	var (
		resp *SearchResponse
		err  error
	)
	if len(req.QueryEmbedding) > 0 {
		resp, err = a.retriever.Search(ctx, userID, req.QueryEmbedding, req.Options)
	} else {
		resp, err = a.lexicalRetrieve(ctx, userID, req)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	results := resp.Results
	if req.Rerank && a.reranker != nil && len(results) > 0 {
		results, err = a.reranker.Rerank(ctx, req.Question, results)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
	}

	return a.generator.Generate(ctx, req.Question, results)
}

// lexicalRetrieve searches by the question text. With rewriting on,
// every phrasing is searched and the pages merge: a chunk matched by
// several phrasings keeps the score of its first appearance, original
// phrasing first.
func (a *Answerer) lexicalRetrieve(ctx context.Context, userID string, req AnswerRequest) (*SearchResponse, error) {
	queries := []string{req.Question}
	if req.RewriteQuery && a.rewriter != nil {
		if rewritten, err := a.rewriter.Rewrite(ctx, req.Question); err == nil && len(rewritten) > 0 {
			queries = rewritten
		}
	}

	if len(queries) == 1 {
		return a.retriever.SearchText(ctx, userID, queries[0], req.Options)
	}

	type chunkKey struct {
		documentID string
		index      int
	}
	seen := make(map[chunkKey]struct{})
	var merged []models.SearchResult

	for _, q := range queries {
		resp, err := a.retriever.SearchText(ctx, userID, q, req.Options)
		if err != nil {
			// One bad phrasing should not void the others.
			continue
		}
		for _, r := range resp.Results {
			k := chunkKey{documentID: r.DocumentID, index: r.ChunkIndex}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	totalFound := len(merged)
	if req.Options.Limit > 0 && len(merged) > req.Options.Limit {
		merged = merged[:req.Options.Limit]
	}
	return &SearchResponse{Results: merged, TotalFound: totalFound}, nil
}
