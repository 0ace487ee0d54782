package models

// SearchResult is one scored chunk joined with its owning document's
// metadata. Results are never persisted; they are assembled per query.
type SearchResult struct {
	DocumentID string           `json:"documentId"`
	Filename   string           `json:"filename"`
	ChunkIndex int              `json:"chunkIndex"`
	Text       string           `json:"text"`
	Score      float64          `json:"score"`
	Metadata   DocumentMetadata `json:"metadata"`
}
