package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmaqa/rag-engine/internal/rag"
)

type DocumentsHandler struct {
	pipeline *rag.Pipeline
	stats    *rag.StatsService
}

func NewDocumentsHandler(pipeline *rag.Pipeline, stats *rag.StatsService) *DocumentsHandler {
	return &DocumentsHandler{pipeline: pipeline, stats: stats}
}

// Upload ingests a fully prepared document: text extracted, chunks cut
// and embedded upstream.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var in rag.UploadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.pipeline.Ingest(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	docs, err := h.pipeline.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "total": len(docs)})
}

func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	doc, err := h.pipeline.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	res, err := h.pipeline.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "document deleted",
		"documentId": res.DocumentID,
		"filename":   res.Filename,
	})
}

// Stats serves the per-user aggregates, recomputed from a live scan.
func (h *DocumentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	overview, err := h.stats.Overview(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}
