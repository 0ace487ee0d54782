package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pharmaqa/rag-engine/internal/models"
	"github.com/pharmaqa/rag-engine/internal/store"
	"github.com/pharmaqa/rag-engine/pkg/chunker"
)

// ReconcileEnqueuer schedules a background stats recompute for a user.
// The pipeline treats enqueueing as best-effort; a nil enqueuer simply
// disables the repair path.
type ReconcileEnqueuer interface {
	EnqueueStatsReconcile(ctx context.Context, userID string) error
}

// Pipeline owns the write side of the engine: ingesting uploads,
// deleting documents with their chunks, and keeping the per-user stats
// cache roughly honest.
type Pipeline struct {
	docs   *store.DocumentStore
	chunks *store.ChunkStore
	stats  *store.StatsStore
	queue  ReconcileEnqueuer
}

func NewPipeline(docs *store.DocumentStore, chunks *store.ChunkStore, stats *store.StatsStore, queue ReconcileEnqueuer) *Pipeline {
	return &Pipeline{docs: docs, chunks: chunks, stats: stats, queue: queue}
}

// UploadInput is a fully prepared document: text already extracted,
// chunks already cut and embedded by the caller. The json tags are the
// upload wire format.
type UploadInput struct {
	Filename     string                  `json:"filename"`
	OriginalName string                  `json:"originalName,omitempty"`
	MIMEType     string                  `json:"type,omitempty"`
	Size         int64                   `json:"size"`
	Text         string                  `json:"text,omitempty"`
	Metadata     models.DocumentMetadata `json:"metadata,omitempty"`
	Chunks       []ChunkInput            `json:"chunks"`
}

type ChunkInput struct {
	Index          int       `json:"index"`
	Text           string    `json:"text"`
	WordCount      int       `json:"wordCount,omitempty"`
	CharacterCount int       `json:"characterCount,omitempty"`
	Embedding      []float32 `json:"embedding"`
}

type UploadResult struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunkCount"`
}

type DeleteResult struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
}

// Ingest persists a document and all of its chunks. Chunk writes fan
// out concurrently; if any of them fail the whole upload is rolled
// back, so a stored document always has its full set of chunks. The
// stats cache is adjusted best-effort afterwards and never fails the
// upload.
func (p *Pipeline) Ingest(ctx context.Context, userID string, in UploadInput) (*UploadResult, error) {
	if err := validateUpload(userID, &in); err != nil {
		return nil, err
	}

	documentID := uuid.NewString()
	now := time.Now().UTC()

	doc := &models.Document{
		ID:           documentID,
		UserID:       userID,
		Filename:     in.Filename,
		OriginalName: in.OriginalName,
		FileType:     models.FileTypeFromMIME(in.MIMEType),
		Size:         in.Size,
		Text:         in.Text,
		Metadata:     in.Metadata,
		ChunkCount:   len(in.Chunks),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.docs.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	chunks := make([]models.Chunk, len(in.Chunks))
	for i, c := range in.Chunks {
		words, chars := c.WordCount, c.CharacterCount
		if words == 0 && chars == 0 {
			words, chars = chunker.Counts(c.Text)
		}
		chunks[i] = models.Chunk{
			DocumentID:     documentID,
			UserID:         userID,
			Index:          c.Index,
			Text:           c.Text,
			WordCount:      words,
			CharacterCount: chars,
			Embedding:      c.Embedding,
			CreatedAt:      now,
		}
	}

	results := p.chunks.PutBatch(ctx, chunks)
	if batchErr := store.NewBatchError("persist chunks", results); batchErr != nil {
		slog.Error("chunk persistence failed, rolling back upload",
			"userId", userID, "documentId", documentID,
			"failed", len(batchErr.Failed), "total", batchErr.Total)
		p.rollbackIngest(ctx, userID, documentID)
		return nil, fmt.Errorf("ingest %s: %w", in.Filename, batchErr)
	}

	p.adjustStats(ctx, userID, store.Delta{Documents: 1, Chunks: len(chunks), SizeBytes: in.Size})

	return &UploadResult{
		ID:         documentID,
		Filename:   in.Filename,
		ChunkCount: len(chunks),
	}, nil
}

func validateUpload(userID string, in *UploadInput) error {
	if !store.ValidUserID(userID) {
		return fmt.Errorf("user id %q: %w", userID, models.ErrValidation)
	}
	if in.Filename == "" {
		return fmt.Errorf("filename is required: %w", models.ErrValidation)
	}
	if in.Size < 0 {
		return fmt.Errorf("size must not be negative: %w", models.ErrValidation)
	}
	if len(in.Chunks) == 0 {
		return fmt.Errorf("document has no chunks: %w", models.ErrValidation)
	}
	for i, c := range in.Chunks {
		if c.Index != i {
			return fmt.Errorf("chunk indices must be contiguous from 0, got %d at position %d: %w",
				c.Index, i, models.ErrValidation)
		}
	}
	return nil
}

// rollbackIngest undoes a partially persisted upload. Best-effort: what
// it cannot remove it logs, and the next reconcile pass reports the
// leftovers.
func (p *Pipeline) rollbackIngest(ctx context.Context, userID, documentID string) {
	results, err := p.chunks.DeleteByDocument(ctx, userID, documentID)
	if err != nil {
		slog.Error("rollback could not list chunks", "documentId", documentID, "error", err)
	} else if be := store.NewBatchError("rollback chunks", results); be != nil {
		slog.Error("rollback left chunks behind", "documentId", documentID, "error", be)
	}
	if err := p.docs.Delete(ctx, userID, documentID); err != nil {
		slog.Error("rollback could not remove document record", "documentId", documentID, "error", err)
	}
}

// Delete removes a document and all of its chunks. Individual chunk
// deletions that fail are logged and skipped; the document record is
// removed regardless so the document disappears from listings.
func (p *Pipeline) Delete(ctx context.Context, userID, documentID string) (*DeleteResult, error) {
	if !store.ValidUserID(userID) {
		return nil, fmt.Errorf("user id %q: %w", userID, models.ErrValidation)
	}
	if documentID == "" {
		return nil, fmt.Errorf("document id is required: %w", models.ErrValidation)
	}

	doc, err := p.docs.Get(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	results, err := p.chunks.DeleteByDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if be := store.NewBatchError("delete chunks", results); be != nil {
		slog.Warn("some chunks could not be deleted",
			"documentId", documentID, "failed", len(be.Failed), "total", be.Total)
	}

	if err := p.docs.Delete(ctx, userID, documentID); err != nil {
		return nil, err
	}

	p.adjustStats(ctx, userID, store.Delta{
		Documents: -1,
		Chunks:    -doc.ChunkCount,
		SizeBytes: -doc.Size,
	})

	return &DeleteResult{DocumentID: documentID, Filename: doc.Filename}, nil
}

// Get loads one document record, including its extracted text.
func (p *Pipeline) Get(ctx context.Context, userID, documentID string) (*models.Document, error) {
	if !store.ValidUserID(userID) {
		return nil, fmt.Errorf("user id %q: %w", userID, models.ErrValidation)
	}
	if documentID == "" {
		return nil, fmt.Errorf("document id is required: %w", models.ErrValidation)
	}
	return p.docs.Get(ctx, userID, documentID)
}

// List returns the user's documents as summaries, newest first.
func (p *Pipeline) List(ctx context.Context, userID string) ([]models.DocumentSummary, error) {
	if !store.ValidUserID(userID) {
		return nil, fmt.Errorf("user id %q: %w", userID, models.ErrValidation)
	}

	docs, err := p.docs.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	summaries := make([]models.DocumentSummary, len(docs))
	for i := range docs {
		summaries[i] = docs[i].Summary()
	}
	return summaries, nil
}

// adjustStats applies an incremental stats delta. Failures are logged
// and a background recompute is scheduled instead of failing the
// caller's operation.
func (p *Pipeline) adjustStats(ctx context.Context, userID string, delta store.Delta) {
	if _, err := p.stats.Adjust(ctx, userID, delta); err != nil {
		slog.Warn("stats adjustment failed, scheduling recompute", "userId", userID, "error", err)
		p.enqueueReconcile(ctx, userID)
	}
}

func (p *Pipeline) enqueueReconcile(ctx context.Context, userID string) {
	if p.queue == nil {
		return
	}
	if err := p.queue.EnqueueStatsReconcile(ctx, userID); err != nil {
		slog.Warn("could not enqueue stats recompute", "userId", userID, "error", err)
	}
}
