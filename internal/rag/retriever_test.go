package rag

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/models"
	"github.com/pharmaqa/rag-engine/internal/store"
)

type retrieverFixture struct {
	raw    kv.Store
	docs   *store.DocumentStore
	chunks *store.ChunkStore
	ret    *Retriever
}

func newRetrieverFixture() *retrieverFixture {
	raw := kv.NewMemoryStore()
	docs := store.NewDocumentStore(raw)
	chunks := store.NewChunkStore(raw)
	return &retrieverFixture{
		raw:    raw,
		docs:   docs,
		chunks: chunks,
		ret:    NewRetriever(chunks, docs),
	}
}

func (f *retrieverFixture) seedDocument(t *testing.T, userID, docID, filename string, embeddings ...[]float32) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.docs.Put(ctx, &models.Document{
		ID:         docID,
		UserID:     userID,
		Filename:   filename,
		FileType:   models.FileTypeTxt,
		ChunkCount: len(embeddings),
		Metadata:   models.DocumentMetadata{Category: "testing"},
	}))

	chunks := make([]models.Chunk, len(embeddings))
	for i, emb := range embeddings {
		chunks[i] = models.Chunk{
			DocumentID: docID,
			UserID:     userID,
			Index:      i,
			Text:       "chunk text",
			Embedding:  emb,
		}
	}
	for _, r := range f.chunks.PutBatch(ctx, chunks) {
		require.NoError(t, r.Err)
	}
}

func TestRetriever_SearchRanksAboveThreshold(t *testing.T) {
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "aspirin.txt",
		[]float32{1, 0}, []float32{0, 1}, []float32{1, 1})

	resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 10, Threshold: 0.5})
	require.NoError(t, err)

	// The orthogonal chunk scores 0 and is cut; the exact match ranks
	// above the diagonal one.
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.TotalFound)
	assert.Equal(t, 0, resp.Results[0].ChunkIndex)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
	assert.Equal(t, 2, resp.Results[1].ChunkIndex)
	assert.InDelta(t, 1/math.Sqrt2, resp.Results[1].Score, 1e-9)
}

func TestRetriever_ThresholdIsInclusive(t *testing.T) {
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "doc.txt", []float32{1, 1})

	threshold := 1 / math.Sqrt2
	resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 10, Threshold: threshold})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	resp, err = f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 10, Threshold: math.Nextafter(threshold, 1)})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestRetriever_LimitCapsPageNotTotal(t *testing.T) {
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "doc.txt",
		[]float32{1, 0}, []float32{1, 0.1}, []float32{1, 0.2}, []float32{1, 0.3})

	resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 2, Threshold: 0.5})
	require.NoError(t, err)

	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 4, resp.TotalFound)
	assert.GreaterOrEqual(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestRetriever_NonPositiveLimitReturnsEmpty(t *testing.T) {
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "doc.txt", []float32{1, 0})

	for _, limit := range []int{0, -1} {
		resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
			SearchOptions{Limit: limit})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
		assert.Zero(t, resp.TotalFound)
	}
}

func TestRetriever_EmptyStoreReturnsEmpty(t *testing.T) {
	f := newRetrieverFixture()
	resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.TotalFound)
}

func TestRetriever_DocumentFilter(t *testing.T) {
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "first.txt", []float32{1, 0})
	f.seedDocument(t, "u1", "d2", "second.txt", []float32{1, 0})

	resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 10, DocumentIDs: []string{"d2"}})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "d2", resp.Results[0].DocumentID)
	assert.Equal(t, "second.txt", resp.Results[0].Filename)
}

func TestRetriever_UserIsolation(t *testing.T) {
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "mine.txt", []float32{1, 0})
	f.seedDocument(t, "u2", "d2", "theirs.txt", []float32{1, 0})

	resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 10})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "d1", resp.Results[0].DocumentID)
}

func TestRetriever_MissingDocumentJoinsUnknown(t *testing.T) {
	ctx := context.Background()
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "doc.txt", []float32{1, 0})
	require.NoError(t, f.docs.Delete(ctx, "u1", "d1"))

	resp, err := f.ret.Search(ctx, "u1", []float32{1, 0}, SearchOptions{Limit: 10})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.UnknownFilename, resp.Results[0].Filename)
	assert.Empty(t, resp.Results[0].Metadata.Category)
}

func TestRetriever_MetadataJoin(t *testing.T) {
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "monograph.txt", []float32{1, 0})

	resp, err := f.ret.Search(context.Background(), "u1", []float32{1, 0},
		SearchOptions{Limit: 10})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "monograph.txt", resp.Results[0].Filename)
	assert.Equal(t, "testing", resp.Results[0].Metadata.Category)
}

func TestRetriever_InvalidUserID(t *testing.T) {
	f := newRetrieverFixture()
	for _, id := range []string{"", "a/b"} {
		_, err := f.ret.Search(context.Background(), id, []float32{1, 0},
			SearchOptions{Limit: 10})
		assert.ErrorIs(t, err, models.ErrValidation, "id=%q", id)
	}
}

func TestRetriever_SearchTextScoresLexically(t *testing.T) {
	ctx := context.Background()
	f := newRetrieverFixture()
	f.seedDocument(t, "u1", "d1", "doc.txt", []float32{1, 0}, []float32{1, 0})

	// Overwrite the seeded chunk texts with distinguishable content.
	chunks := []models.Chunk{
		{DocumentID: "d1", UserID: "u1", Index: 0, Text: "aspirin dosage for adults", Embedding: []float32{1, 0}},
		{DocumentID: "d1", UserID: "u1", Index: 1, Text: "storage conditions and shelf life", Embedding: []float32{1, 0}},
	}
	for _, r := range f.chunks.PutBatch(ctx, chunks) {
		require.NoError(t, r.Err)
	}

	resp, err := f.ret.SearchText(ctx, "u1", "aspirin dosage", SearchOptions{Limit: 10, Threshold: 0.3})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0, resp.Results[0].ChunkIndex)
	assert.Greater(t, resp.Results[0].Score, 0.3)
}
