package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/models"
)

type ChunkStore struct {
	kv kv.Store
}

func NewChunkStore(store kv.Store) *ChunkStore {
	return &ChunkStore{kv: store}
}

// PutBatch writes every chunk concurrently and waits for all of them to
// settle. The returned slice is positional: results[i] reports chunk
// i's outcome regardless of what happened to its siblings.
func (s *ChunkStore) PutBatch(ctx context.Context, chunks []models.Chunk) []BatchResult {
	results := make([]BatchResult, len(chunks))

	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &chunks[i]
			key := chunkKey(c.UserID, c.DocumentID, c.Index)
			results[i] = BatchResult{Key: key, Err: s.putChunk(ctx, key, c)}
		}()
	}
	wg.Wait()

	return results
}

func (s *ChunkStore) putChunk(ctx context.Context, key string, c *models.Chunk) error {
	c.SchemaVersion = models.CurrentSchemaVersion
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode chunk %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store chunk %s: %w", key, err)
	}
	return nil
}

// DeleteByDocument removes every persisted chunk of one document,
// concurrently, including strays from earlier partial writes. The
// listing error, if any, is returned alongside whatever per-key results
// were produced.
func (s *ChunkStore) DeleteByDocument(ctx context.Context, userID, documentID string) ([]BatchResult, error) {
	it, err := s.kv.List(ctx, chunkDocPrefix(userID, documentID))
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", documentID, err)
	}

	var keys []string
	for it.Next() {
		keys = append(keys, it.Key())
	}
	listErr := it.Err()
	_ = it.Close()
	if listErr != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", documentID, listErr)
	}

	results := make([]BatchResult, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.kv.Delete(ctx, key); err != nil {
				results[i] = BatchResult{Key: key, Err: fmt.Errorf("delete chunk %s: %w", key, err)}
				return
			}
			results[i] = BatchResult{Key: key}
		}()
	}
	wg.Wait()

	return results, nil
}

// ListByUser opens a lazy scan over all of the user's chunks, across
// every document.
func (s *ChunkStore) ListByUser(ctx context.Context, userID string) (*ChunkIterator, error) {
	it, err := s.kv.List(ctx, chunkUserPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return &ChunkIterator{it: it}, nil
}

// ChunkIterator decodes chunk records as the underlying listing
// advances. Unreadable records are skipped and logged.
type ChunkIterator struct {
	it    kv.Iterator
	chunk *models.Chunk
}

func (ci *ChunkIterator) Next() bool {
	for ci.it.Next() {
		chunk, err := decodeChunk(ci.it.Key(), ci.it.Value())
		if err != nil {
			slog.Warn("skipping unreadable chunk record", "key", ci.it.Key(), "error", err)
			continue
		}
		ci.chunk = chunk
		return true
	}
	return false
}

// Chunk returns the record positioned by the last successful Next. The
// pointer is invalidated by the following Next call.
func (ci *ChunkIterator) Chunk() *models.Chunk { return ci.chunk }

func (ci *ChunkIterator) Err() error { return ci.it.Err() }

func (ci *ChunkIterator) Close() error { return ci.it.Close() }

func decodeChunk(key string, data []byte) (*models.Chunk, error) {
	var chunk models.Chunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if chunk.SchemaVersion != models.CurrentSchemaVersion {
		return nil, fmt.Errorf("decode %s: unsupported schema version %d", key, chunk.SchemaVersion)
	}
	return &chunk, nil
}
