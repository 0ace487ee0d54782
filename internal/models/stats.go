package models

import "time"

// UserStats is the cached per-user aggregate. It is maintained
// incrementally on upload and delete and can drift under concurrent
// writers; a full recompute over the document records is the source of
// truth.
type UserStats struct {
	SchemaVersion  int       `json:"schemaVersion"`
	UserID         string    `json:"userId"`
	DocumentCount  int       `json:"documentCount"`
	ChunkCount     int       `json:"chunkCount"`
	TotalSizeBytes int64     `json:"totalSizeBytes"`
	LastUpdated    time.Time `json:"lastUpdated"`
}
