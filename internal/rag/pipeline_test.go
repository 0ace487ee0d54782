package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/models"
	"github.com/pharmaqa/rag-engine/internal/store"
)

// substrFailStore fails writes whose key contains a marker substring.
// Document IDs are generated, so tests target keys by shape instead.
type substrFailStore struct {
	kv.Store
	failPutContaining string
}

func (s *substrFailStore) Put(ctx context.Context, key string, value []byte) error {
	if s.failPutContaining != "" && strings.Contains(key, s.failPutContaining) {
		return errInjectedKV
	}
	return s.Store.Put(ctx, key, value)
}

var errInjectedKV = errors.New("injected failure")

type captureEnqueuer struct {
	users []string
	err   error
}

func (e *captureEnqueuer) EnqueueStatsReconcile(_ context.Context, userID string) error {
	e.users = append(e.users, userID)
	return e.err
}

type pipelineFixture struct {
	raw      kv.Store
	docs     *store.DocumentStore
	chunks   *store.ChunkStore
	stats    *store.StatsStore
	enqueuer *captureEnqueuer
	p        *Pipeline
}

func newPipelineFixture(raw kv.Store) *pipelineFixture {
	if raw == nil {
		raw = kv.NewMemoryStore()
	}
	f := &pipelineFixture{
		raw:      raw,
		docs:     store.NewDocumentStore(raw),
		chunks:   store.NewChunkStore(raw),
		stats:    store.NewStatsStore(raw),
		enqueuer: &captureEnqueuer{},
	}
	f.p = NewPipeline(f.docs, f.chunks, f.stats, f.enqueuer)
	return f
}

func testUpload(nChunks int) UploadInput {
	in := UploadInput{
		Filename: "monograph.txt",
		MIMEType: "text/plain",
		Size:     512,
		Text:     "full extracted text",
		Metadata: models.DocumentMetadata{Category: "regulatory"},
	}
	for i := 0; i < nChunks; i++ {
		in.Chunks = append(in.Chunks, ChunkInput{
			Index:     i,
			Text:      "chunk body text",
			Embedding: []float32{1, 0},
		})
	}
	return in
}

func TestPipeline_IngestPersistsEverything(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	res, err := f.p.Ingest(ctx, "u1", testUpload(3))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "monograph.txt", res.Filename)
	assert.Equal(t, 3, res.ChunkCount)

	doc, err := f.p.Get(ctx, "u1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileTypeTxt, doc.FileType)
	assert.Equal(t, int64(512), doc.Size)
	assert.Equal(t, 3, doc.ChunkCount)
	assert.Equal(t, "regulatory", doc.Metadata.Category)

	it, err := f.chunks.ListByUser(ctx, "u1")
	require.NoError(t, err)
	defer it.Close()
	n := 0
	for it.Next() {
		assert.Equal(t, res.ID, it.Chunk().DocumentID)
		n++
	}
	assert.Equal(t, 3, n)

	stats, err := f.stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, 3, stats.ChunkCount)
	assert.Equal(t, int64(512), stats.TotalSizeBytes)
}

func TestPipeline_IngestFillsMissingCounts(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	in := testUpload(1)
	in.Chunks[0].Text = "three word chunk"

	res, err := f.p.Ingest(ctx, "u1", in)
	require.NoError(t, err)

	it, err := f.chunks.ListByUser(ctx, "u1")
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Next())
	c := it.Chunk()
	assert.Equal(t, res.ID, c.DocumentID)
	assert.Equal(t, 3, c.WordCount)
	assert.Equal(t, len("three word chunk"), c.CharacterCount)
}

func TestPipeline_IngestValidation(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	cases := []struct {
		name   string
		userID string
		mutate func(*UploadInput)
	}{
		{"invalid user", "a/b", func(in *UploadInput) {}},
		{"empty filename", "u1", func(in *UploadInput) { in.Filename = "" }},
		{"negative size", "u1", func(in *UploadInput) { in.Size = -1 }},
		{"no chunks", "u1", func(in *UploadInput) { in.Chunks = nil }},
		{"gap in indices", "u1", func(in *UploadInput) { in.Chunks[1].Index = 5 }},
		{"indices not from zero", "u1", func(in *UploadInput) { in.Chunks[0].Index = 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := testUpload(2)
			tc.mutate(&in)
			_, err := f.p.Ingest(ctx, tc.userID, in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestPipeline_IngestRollsBackOnChunkFailure(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(&substrFailStore{
		Store:             kv.NewMemoryStore(),
		failPutContaining: "_chunk_1",
	})

	_, err := f.p.Ingest(ctx, "u1", testUpload(3))
	require.Error(t, err)

	var be *store.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3, be.Total)
	assert.Len(t, be.Failed, 1)

	// Nothing survives the rollback: no document, no sibling chunks,
	// no stats record.
	docs, err := f.p.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	it, err := f.chunks.ListByUser(ctx, "u1")
	require.NoError(t, err)
	defer it.Close()
	assert.False(t, it.Next())

	_, err = f.stats.Get(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPipeline_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	res, err := f.p.Ingest(ctx, "u1", testUpload(3))
	require.NoError(t, err)

	del, err := f.p.Delete(ctx, "u1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, del.DocumentID)
	assert.Equal(t, "monograph.txt", del.Filename)

	_, err = f.p.Get(ctx, "u1", res.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	it, err := f.chunks.ListByUser(ctx, "u1")
	require.NoError(t, err)
	defer it.Close()
	assert.False(t, it.Next())

	stats, err := f.stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, stats.DocumentCount)
	assert.Zero(t, stats.ChunkCount)
	assert.Zero(t, stats.TotalSizeBytes)
}

func TestPipeline_DeleteMissingDocument(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	_, err := f.p.Delete(ctx, "u1", "no-such-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPipeline_DeleteIsUserScoped(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	res, err := f.p.Ingest(ctx, "u1", testUpload(1))
	require.NoError(t, err)

	_, err = f.p.Delete(ctx, "u2", res.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The record is untouched for its owner.
	_, err = f.p.Get(ctx, "u1", res.ID)
	assert.NoError(t, err)
}

func TestPipeline_DeleteValidation(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	_, err := f.p.Delete(ctx, "u1", "")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.p.Delete(ctx, "", "d1")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPipeline_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(nil)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		id      string
		created time.Time
	}{
		{"older", base},
		{"newer", base.Add(time.Hour)},
		{"tie-b", base.Add(2 * time.Hour)},
		{"tie-a", base.Add(2 * time.Hour)},
	}
	for _, d := range seed {
		require.NoError(t, f.docs.Put(ctx, &models.Document{
			ID: d.id, UserID: "u1", Filename: d.id + ".txt",
			FileType: models.FileTypeTxt, CreatedAt: d.created,
		}))
	}

	list, err := f.p.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 4)

	ids := []string{list[0].ID, list[1].ID, list[2].ID, list[3].ID}
	// Newest first; equal timestamps fall back to ID order.
	assert.Equal(t, []string{"tie-a", "tie-b", "newer", "older"}, ids)
}

func TestPipeline_StatsFailureSchedulesReconcile(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(&substrFailStore{
		Store:             kv.NewMemoryStore(),
		failPutContaining: "stats:",
	})

	res, err := f.p.Ingest(ctx, "u1", testUpload(2))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)

	// The upload survives a stats write failure; the repair job is
	// scheduled instead.
	assert.Equal(t, []string{"u1"}, f.enqueuer.users)
}
