package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/models"
	"github.com/pharmaqa/rag-engine/internal/store"
)

type statsFixture struct {
	docs     *store.DocumentStore
	stats    *store.StatsStore
	enqueuer *captureEnqueuer
	svc      *StatsService
}

func newStatsFixture() *statsFixture {
	raw := kv.NewMemoryStore()
	f := &statsFixture{
		docs:     store.NewDocumentStore(raw),
		stats:    store.NewStatsStore(raw),
		enqueuer: &captureEnqueuer{},
	}
	f.svc = NewStatsService(f.docs, f.stats, f.enqueuer)
	return f
}

func (f *statsFixture) seedDoc(t *testing.T, id string, chunks int, size int64, created time.Time) {
	t.Helper()
	require.NoError(t, f.docs.Put(context.Background(), &models.Document{
		ID: id, UserID: "u1", Filename: id + ".txt",
		FileType: models.FileTypeTxt,
		Size:     size, ChunkCount: chunks, CreatedAt: created,
	}))
}

func TestStatsService_RecomputeFromDocuments(t *testing.T) {
	f := newStatsFixture()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f.seedDoc(t, "d1", 3, 100, base)
	f.seedDoc(t, "d2", 5, 250, base.Add(48*time.Hour))

	live, err := f.svc.Recompute(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, live.DocumentCount)
	assert.Equal(t, 8, live.ChunkCount)
	assert.Equal(t, int64(350), live.TotalSizeBytes)
	require.NotNil(t, live.OldestDocument)
	require.NotNil(t, live.NewestDocument)
	assert.True(t, live.OldestDocument.Equal(base))
	assert.True(t, live.NewestDocument.Equal(base.Add(48*time.Hour)))
}

func TestStatsService_RecomputeEmptyUser(t *testing.T) {
	f := newStatsFixture()
	live, err := f.svc.Recompute(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, live.DocumentCount)
	assert.Nil(t, live.OldestDocument)
	assert.Nil(t, live.NewestDocument)
}

func TestStatsService_RecomputeInvalidUser(t *testing.T) {
	f := newStatsFixture()
	_, err := f.svc.Recompute(context.Background(), "a/b")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestStatsService_ReconcileRepairsDrift(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture()
	f.seedDoc(t, "d1", 4, 200, time.Now().UTC())

	// Drifted cache left behind by lost concurrent updates.
	require.NoError(t, f.stats.Put(ctx, &models.UserStats{
		UserID: "u1", DocumentCount: 9, ChunkCount: 99, TotalSizeBytes: 9999,
	}))

	require.NoError(t, f.svc.Reconcile(ctx, "u1"))

	cached, err := f.stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.DocumentCount)
	assert.Equal(t, 4, cached.ChunkCount)
	assert.Equal(t, int64(200), cached.TotalSizeBytes)
	assert.False(t, cached.LastUpdated.IsZero())
}

func TestStatsService_OverviewServesLiveCounts(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f.seedDoc(t, "d1", 2, 100, base)

	// Cache agrees; its timestamp is preferred over time.Now.
	cachedAt := base.Add(time.Hour)
	require.NoError(t, f.stats.Put(ctx, &models.UserStats{
		UserID: "u1", DocumentCount: 1, ChunkCount: 2, TotalSizeBytes: 100,
		LastUpdated: cachedAt,
	}))

	ov, err := f.svc.Overview(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, ov.TotalDocuments)
	assert.Equal(t, 2, ov.TotalChunks)
	assert.Equal(t, int64(100), ov.TotalSize)
	assert.True(t, ov.LastUpdated.Equal(cachedAt))
	assert.Empty(t, f.enqueuer.users, "no drift, no repair job")
}

func TestStatsService_OverviewDriftSchedulesRepair(t *testing.T) {
	ctx := context.Background()
	f := newStatsFixture()
	f.seedDoc(t, "d1", 2, 100, time.Now().UTC())
	f.seedDoc(t, "d2", 3, 50, time.Now().UTC())

	require.NoError(t, f.stats.Put(ctx, &models.UserStats{
		UserID: "u1", DocumentCount: 1, ChunkCount: 2, TotalSizeBytes: 100,
	}))

	ov, err := f.svc.Overview(ctx, "u1")
	require.NoError(t, err)

	// Scan counts win over the stale cache.
	assert.Equal(t, 2, ov.TotalDocuments)
	assert.Equal(t, 5, ov.TotalChunks)
	assert.Equal(t, int64(150), ov.TotalSize)
	assert.Equal(t, []string{"u1"}, f.enqueuer.users)
}

func TestStatsService_OverviewWithoutCache(t *testing.T) {
	f := newStatsFixture()
	f.seedDoc(t, "d1", 2, 100, time.Now().UTC())

	ov, err := f.svc.Overview(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, ov.TotalDocuments)
	assert.False(t, ov.LastUpdated.IsZero())
	assert.Empty(t, f.enqueuer.users, "missing cache is not drift")
}
