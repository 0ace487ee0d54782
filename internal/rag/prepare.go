package rag

import (
	"github.com/pharmaqa/rag-engine/pkg/chunker"
	"github.com/pharmaqa/rag-engine/pkg/tokenizer"
)

// PreparedChunk is one upload-ready piece of an extracted document.
// The upstream embedding producer fills in the vector before the
// chunk comes back through Ingest; the token estimate helps it batch.
type PreparedChunk struct {
	Index          int    `json:"index"`
	Text           string `json:"text"`
	WordCount      int    `json:"wordCount"`
	CharacterCount int    `json:"characterCount"`
	TokenEstimate  int    `json:"tokenEstimate"`
}

// PrepareChunks splits extracted text into the pieces an upload will
// carry, with the counts each chunk record stores.
func PrepareChunks(text string, opts chunker.Options) []PreparedChunk {
	pieces := chunker.Split(text, opts)

	prepared := make([]PreparedChunk, len(pieces))
	for i, p := range pieces {
		prepared[i] = PreparedChunk{
			Index:          p.Index,
			Text:           p.Text,
			WordCount:      p.WordCount,
			CharacterCount: p.CharacterCount,
			TokenEstimate:  tokenizer.EstimateTokens(p.Text),
		}
	}
	return prepared
}
