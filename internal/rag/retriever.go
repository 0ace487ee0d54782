package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pharmaqa/rag-engine/internal/models"
	"github.com/pharmaqa/rag-engine/internal/store"
)

// Retriever answers similarity queries with a linear scan over the
// user's chunks. Scoring happens in memory as records stream out of the
// store, so only threshold survivors are retained.
type Retriever struct {
	chunks *store.ChunkStore
	docs   *store.DocumentStore
}

func NewRetriever(chunks *store.ChunkStore, docs *store.DocumentStore) *Retriever {
	return &Retriever{chunks: chunks, docs: docs}
}

// SearchOptions tune one query. Threshold is applied as given, without
// clamping; Limit <= 0 short-circuits to an empty result.
type SearchOptions struct {
	Limit       int
	Threshold   float64
	DocumentIDs []string
}

// SearchResponse carries the ranked page plus the number of chunks that
// cleared the threshold before the limit was applied.
type SearchResponse struct {
	Results    []models.SearchResult `json:"results"`
	TotalFound int                   `json:"totalFound"`
}

// Search scores the user's chunks against a query embedding.
func (r *Retriever) Search(ctx context.Context, userID string, query []float32, opts SearchOptions) (*SearchResponse, error) {
	return r.search(ctx, userID, opts, func(c *models.Chunk) float64 {
		return CosineSimilarity(query, c.Embedding)
	})
}

// SearchText scores the user's chunks lexically against a plain-text
// query, for callers that have no embedding at hand.
func (r *Retriever) SearchText(ctx context.Context, userID, query string, opts SearchOptions) (*SearchResponse, error) {
	return r.search(ctx, userID, opts, func(c *models.Chunk) float64 {
		return LexicalScore(query, c.Text)
	})
}

type scoredChunk struct {
	documentID string
	index      int
	text       string
	score      float64
}

func (r *Retriever) search(ctx context.Context, userID string, opts SearchOptions, score func(*models.Chunk) float64) (*SearchResponse, error) {
	if !store.ValidUserID(userID) {
		return nil, fmt.Errorf("user id %q: %w", userID, models.ErrValidation)
	}
	if opts.Limit <= 0 {
		return &SearchResponse{Results: []models.SearchResult{}}, nil
	}

	var wantDocs map[string]struct{}
	if len(opts.DocumentIDs) > 0 {
		wantDocs = make(map[string]struct{}, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			wantDocs[id] = struct{}{}
		}
	}

	it, err := r.chunks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer it.Close()

	var candidates []scoredChunk
	for it.Next() {
		c := it.Chunk()
		if wantDocs != nil {
			if _, ok := wantDocs[c.DocumentID]; !ok {
				continue
			}
		}
		s := score(c)
		if s < opts.Threshold {
			continue
		}
		candidates = append(candidates, scoredChunk{
			documentID: c.DocumentID,
			index:      c.Index,
			text:       c.Text,
			score:      s,
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}

	// Stable sort keeps equal scores in scan order, so a repeated query
	// returns the same page.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	totalFound := len(candidates)
	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	results := make([]models.SearchResult, 0, len(candidates))
	docCache := make(map[string]*models.Document)
	for _, cand := range candidates {
		doc, cached := docCache[cand.documentID]
		if !cached {
			doc, err = r.docs.Get(ctx, userID, cand.documentID)
			if err != nil {
				// The owning document record is gone or unreadable; keep
				// the hit with placeholder metadata instead of dropping it.
				slog.Warn("document lookup failed during result join",
					"documentId", cand.documentID, "error", err)
				doc = nil
			}
			docCache[cand.documentID] = doc
		}

		result := models.SearchResult{
			DocumentID: cand.documentID,
			ChunkIndex: cand.index,
			Text:       cand.text,
			Score:      cand.score,
			Filename:   models.UnknownFilename,
		}
		if doc != nil {
			result.Filename = doc.Filename
			result.Metadata = doc.Metadata
		}
		results = append(results, result)
	}

	return &SearchResponse{Results: results, TotalFound: totalFound}, nil
}
