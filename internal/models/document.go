package models

import (
	"strings"
	"time"
)

// CurrentSchemaVersion is stamped onto every persisted record. Readers
// reject records whose version they do not understand instead of
// guessing at field meanings.
const CurrentSchemaVersion = 1

// UnknownFilename is substituted when a search result's owning document
// record cannot be loaded during the metadata join.
const UnknownFilename = "Unknown"

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDoc  FileType = "doc"
	FileTypeDocx FileType = "docx"
	FileTypeTxt  FileType = "txt"
)

// FileTypeFromMIME maps an upload's declared MIME type to the coarse
// file type stored on the document record. Unrecognized types fall back
// to txt.
func FileTypeFromMIME(mimeType string) FileType {
	// Strip parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch strings.TrimSpace(strings.ToLower(mimeType)) {
	case "application/pdf":
		return FileTypePDF
	case "application/msword":
		return FileTypeDoc
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FileTypeDocx
	default:
		return FileTypeTxt
	}
}

// DocumentMetadata carries caller-supplied classification for a
// document. Category and Tags are first-class because search responses
// surface them; anything else rides in Extra.
type DocumentMetadata struct {
	Category string            `json:"category,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

type Document struct {
	SchemaVersion int              `json:"schemaVersion"`
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	Filename      string           `json:"filename"`
	OriginalName  string           `json:"originalName,omitempty"`
	FileType      FileType         `json:"fileType"`
	Size          int64            `json:"size"`
	Text          string           `json:"text,omitempty"`
	Metadata      DocumentMetadata `json:"metadata"`
	ChunkCount    int              `json:"chunkCount"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Summary strips the extracted text so listings stay light.
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:         d.ID,
		Filename:   d.Filename,
		FileType:   d.FileType,
		Size:       d.Size,
		ChunkCount: d.ChunkCount,
		Metadata:   d.Metadata,
		CreatedAt:  d.CreatedAt,
	}
}

type DocumentSummary struct {
	ID         string           `json:"id"`
	Filename   string           `json:"filename"`
	FileType   FileType         `json:"fileType"`
	Size       int64            `json:"size"`
	ChunkCount int              `json:"chunkCount"`
	Metadata   DocumentMetadata `json:"metadata"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Chunk is one retrievable fragment of a document. Embeddings are
// computed upstream and arrive with the upload; the engine only stores
// and compares them.
type Chunk struct {
	SchemaVersion  int       `json:"schemaVersion"`
	DocumentID     string    `json:"documentId"`
	UserID         string    `json:"userId"`
	Index          int       `json:"index"`
	Text           string    `json:"text"`
	WordCount      int       `json:"wordCount"`
	CharacterCount int       `json:"characterCount"`
	Embedding      []float32 `json:"embedding"`
	CreatedAt      time.Time `json:"createdAt"`
}
