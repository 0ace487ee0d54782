package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/models"
)

type DocumentStore struct {
	kv kv.Store
}

func NewDocumentStore(store kv.Store) *DocumentStore {
	return &DocumentStore{kv: store}
}

// Put writes the document record, stamping the current schema version.
// Writing an existing ID overwrites it.
func (s *DocumentStore) Put(ctx context.Context, doc *models.Document) error {
	doc.SchemaVersion = models.CurrentSchemaVersion
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	if err := s.kv.Put(ctx, docKey(doc.UserID, doc.ID), data); err != nil {
		return fmt.Errorf("store document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, userID, documentID string) (*models.Document, error) {
	data, err := s.kv.Get(ctx, docKey(userID, documentID))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("document %s: %w", documentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}
	return decodeDocument(docKey(userID, documentID), data)
}

// Delete removes the document record. Deleting an absent record is not
// an error at this layer; existence checks live in the engine.
func (s *DocumentStore) Delete(ctx context.Context, userID, documentID string) error {
	if err := s.kv.Delete(ctx, docKey(userID, documentID)); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return nil
}

// List drains the user's document records. Records that no longer
// decode are skipped and logged, never fatal to the listing.
func (s *DocumentStore) List(ctx context.Context, userID string) ([]models.Document, error) {
	it, err := s.kv.List(ctx, docPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer it.Close()

	var docs []models.Document
	for it.Next() {
		doc, err := decodeDocument(it.Key(), it.Value())
		if err != nil {
			slog.Warn("skipping unreadable document record", "key", it.Key(), "error", err)
			continue
		}
		docs = append(docs, *doc)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func decodeDocument(key string, data []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if doc.SchemaVersion != models.CurrentSchemaVersion {
		return nil, fmt.Errorf("decode %s: unsupported schema version %d", key, doc.SchemaVersion)
	}
	return &doc, nil
}
