// Package store layers typed document, chunk, and stats records over
// the kv substrate. It owns key composition, JSON encoding, and the
// schema-version check on the way back out; records that fail to decode
// are skipped and logged rather than failing whole listings.
package store

import (
	"fmt"
	"strings"
)

// Keys are segregated by record type, then namespaced per user:
//
//	doc:{userId}/{documentId}
//	chunk:{userId}/{documentId}_chunk_{index}
//	stats:{userId}
//
// The user segment always ends at "/", so per-user prefix listings can
// never leak across users.
const (
	docKeyPrefix   = "doc:"
	chunkKeyPrefix = "chunk:"
	statsKeyPrefix = "stats:"
)

func docKey(userID, documentID string) string {
	return docKeyPrefix + userID + "/" + documentID
}

func docPrefix(userID string) string {
	return docKeyPrefix + userID + "/"
}

func chunkKey(userID, documentID string, index int) string {
	return fmt.Sprintf("%s%s/%s_chunk_%d", chunkKeyPrefix, userID, documentID, index)
}

func chunkDocPrefix(userID, documentID string) string {
	return chunkKeyPrefix + userID + "/" + documentID + "_chunk_"
}

func chunkUserPrefix(userID string) string {
	return chunkKeyPrefix + userID + "/"
}

func statsKey(userID string) string {
	return statsKeyPrefix + userID
}

// ValidUserID rejects IDs that would break key namespacing. A slash in
// the user segment would let one user's prefix listing cover another's
// records.
func ValidUserID(id string) bool {
	return id != "" && !strings.Contains(id, "/")
}
