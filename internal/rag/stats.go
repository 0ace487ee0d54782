package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pharmaqa/rag-engine/internal/models"
	"github.com/pharmaqa/rag-engine/internal/store"
)

// StatsService owns the authoritative side of the per-user aggregates.
// The incremental cache the Pipeline maintains is an optimization; a
// full scan over the user's document records is the source of truth,
// and everything here derives from that scan.
type StatsService struct {
	docs  *store.DocumentStore
	stats *store.StatsStore
	queue ReconcileEnqueuer
}

func NewStatsService(docs *store.DocumentStore, stats *store.StatsStore, queue ReconcileEnqueuer) *StatsService {
	return &StatsService{docs: docs, stats: stats, queue: queue}
}

// Recomputed is the aggregate state derived from one full scan.
type Recomputed struct {
	DocumentCount  int
	ChunkCount     int
	TotalSizeBytes int64
	OldestDocument *time.Time
	NewestDocument *time.Time
}

// Recompute derives the user's aggregates from their document records.
// Chunk and byte totals come from the per-document bookkeeping fields,
// so the scan never has to touch chunk records.
func (s *StatsService) Recompute(ctx context.Context, userID string) (*Recomputed, error) {
	if !store.ValidUserID(userID) {
		return nil, fmt.Errorf("user id %q: %w", userID, models.ErrValidation)
	}

	docs, err := s.docs.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recompute stats: %w", err)
	}

	out := &Recomputed{DocumentCount: len(docs)}
	for i := range docs {
		doc := &docs[i]
		out.ChunkCount += doc.ChunkCount
		out.TotalSizeBytes += doc.Size
		created := doc.CreatedAt
		if out.OldestDocument == nil || created.Before(*out.OldestDocument) {
			out.OldestDocument = &created
		}
		if out.NewestDocument == nil || created.After(*out.NewestDocument) {
			out.NewestDocument = &created
		}
	}
	return out, nil
}

// Reconcile overwrites the cached aggregate with freshly recomputed
// values, repairing whatever drift concurrent increments left behind.
func (s *StatsService) Reconcile(ctx context.Context, userID string) error {
	live, err := s.Recompute(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.stats.Put(ctx, &models.UserStats{
		UserID:         userID,
		DocumentCount:  live.DocumentCount,
		ChunkCount:     live.ChunkCount,
		TotalSizeBytes: live.TotalSizeBytes,
		LastUpdated:    time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("reconcile stats: %w", err)
	}
	return nil
}

// Overview is the stats payload served to callers.
type Overview struct {
	TotalDocuments int        `json:"totalDocuments"`
	TotalChunks    int        `json:"totalChunks"`
	TotalSize      int64      `json:"totalSize"`
	OldestDocument *time.Time `json:"oldestDocument,omitempty"`
	NewestDocument *time.Time `json:"newestDocument,omitempty"`
	LastUpdated    time.Time  `json:"lastUpdated"`
}

// Overview builds the stats response from a live scan, cross-checking
// the incremental cache on the way. Scan counts win; a disagreeing
// cache is reported and queued for repair, never served.
func (s *StatsService) Overview(ctx context.Context, userID string) (*Overview, error) {
	live, err := s.Recompute(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Overview{
		TotalDocuments: live.DocumentCount,
		TotalChunks:    live.ChunkCount,
		TotalSize:      live.TotalSizeBytes,
		OldestDocument: live.OldestDocument,
		NewestDocument: live.NewestDocument,
		LastUpdated:    time.Now().UTC(),
	}

	cached, err := s.stats.Get(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		// First read before any write; nothing to cross-check.
	case err != nil:
		slog.Warn("stats cache unreadable, serving scan only", "userId", userID, "error", err)
	default:
		out.LastUpdated = cached.LastUpdated
		if cached.DocumentCount != live.DocumentCount ||
			cached.ChunkCount != live.ChunkCount ||
			cached.TotalSizeBytes != live.TotalSizeBytes {
			slog.Warn("stats cache drift detected",
				"userId", userID,
				"cachedDocuments", cached.DocumentCount, "liveDocuments", live.DocumentCount,
				"cachedChunks", cached.ChunkCount, "liveChunks", live.ChunkCount,
				"cachedSize", cached.TotalSizeBytes, "liveSize", live.TotalSizeBytes)
			if s.queue != nil {
				if err := s.queue.EnqueueStatsReconcile(ctx, userID); err != nil {
					slog.Warn("could not enqueue stats recompute", "userId", userID, "error", err)
				}
			}
		}
	}

	return out, nil
}
