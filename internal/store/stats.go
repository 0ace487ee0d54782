package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/models"
)

type StatsStore struct {
	kv kv.Store
}

func NewStatsStore(store kv.Store) *StatsStore {
	return &StatsStore{kv: store}
}

// Delta is one incremental adjustment to a user's cached aggregates.
// Fields are signed; deletes pass negatives.
type Delta struct {
	Documents int
	Chunks    int
	SizeBytes int64
}

// Get loads the cached aggregate, or models.ErrNotFound when the user
// has no stats record yet.
func (s *StatsStore) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	data, err := s.kv.Get(ctx, statsKey(userID))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("stats for %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load stats for %s: %w", userID, err)
	}

	var stats models.UserStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode stats for %s: %w", userID, err)
	}
	if stats.SchemaVersion != models.CurrentSchemaVersion {
		return nil, fmt.Errorf("stats for %s: unsupported schema version %d", userID, stats.SchemaVersion)
	}
	return &stats, nil
}

// Put overwrites the cached aggregate.
func (s *StatsStore) Put(ctx context.Context, stats *models.UserStats) error {
	stats.SchemaVersion = models.CurrentSchemaVersion
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats for %s: %w", stats.UserID, err)
	}
	if err := s.kv.Put(ctx, statsKey(stats.UserID), data); err != nil {
		return fmt.Errorf("store stats for %s: %w", stats.UserID, err)
	}
	return nil
}

// Adjust applies a delta with read-modify-write semantics: a missing
// record counts as zeroes, and each counter is clamped at zero on the
// way down. There is no cross-process lock, so concurrent adjustments
// can lose updates; the periodic recompute repairs any drift.
func (s *StatsStore) Adjust(ctx context.Context, userID string, delta Delta) (*models.UserStats, error) {
	stats, err := s.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		stats = &models.UserStats{UserID: userID}
	} else if err != nil {
		return nil, err
	}

	stats.DocumentCount = max(0, stats.DocumentCount+delta.Documents)
	stats.ChunkCount = max(0, stats.ChunkCount+delta.Chunks)
	stats.TotalSizeBytes = max(0, stats.TotalSizeBytes+delta.SizeBytes)
	stats.LastUpdated = time.Now().UTC()

	if err := s.Put(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
