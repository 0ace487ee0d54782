package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pharmaqa/rag-engine/internal/auth"
	"github.com/pharmaqa/rag-engine/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the engine's sentinel errors onto statuses.
// fallback covers unclassified errors, so LLM-facing handlers can
// report 502 where store-facing ones report 500.
func writeServiceError(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, fallback, err.Error())
	}
}

// requestUser pulls the authenticated user id off the request context.
// The auth middleware guarantees it; a miss means a route was mounted
// outside the authenticated group.
func requestUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return "", false
	}
	return id, true
}
