package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pharmaqa/rag-engine/internal/config"
	"github.com/pharmaqa/rag-engine/internal/rag"
	"github.com/pharmaqa/rag-engine/pkg/chunker"
	"github.com/pharmaqa/rag-engine/pkg/textextract"
)

type RAGHandler struct {
	retriever *rag.Retriever
	answerer  *rag.Answerer
	search    config.SearchConfig
	chunk     config.ChunkConfig
}

func NewRAGHandler(retriever *rag.Retriever, answerer *rag.Answerer, search config.SearchConfig, chunk config.ChunkConfig) *RAGHandler {
	return &RAGHandler{retriever: retriever, answerer: answerer, search: search, chunk: chunk}
}

// searchOptions are the per-request tuning knobs. Pointer fields
// distinguish "omitted" from explicit zero, which matters for
// threshold 0.
type searchOptions struct {
	Limit       *int     `json:"limit"`
	Threshold   *float64 `json:"threshold"`
	DocumentIDs []string `json:"documentIds"`
}

func (h *RAGHandler) resolveOptions(opts *searchOptions) rag.SearchOptions {
	out := rag.SearchOptions{
		Limit:     h.search.DefaultLimit,
		Threshold: h.search.DefaultThreshold,
	}
	if opts == nil {
		return out
	}
	if opts.Limit != nil {
		out.Limit = *opts.Limit
	}
	if opts.Threshold != nil {
		out.Threshold = *opts.Threshold
	}
	out.DocumentIDs = opts.DocumentIDs
	return out
}

type searchRequest struct {
	Query          string         `json:"query"`
	QueryEmbedding []float32      `json:"queryEmbedding"`
	Options        *searchOptions `json:"options"`
}

// Search scores the caller's chunks against a query embedding, or
// lexically against plain query text when no embedding is supplied.
func (h *RAGHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.QueryEmbedding) == 0 && req.Query == "" {
		writeError(w, http.StatusBadRequest, "query or queryEmbedding required")
		return
	}

	opts := h.resolveOptions(req.Options)

	var (
		resp *rag.SearchResponse
		err  error
	)
	if len(req.QueryEmbedding) > 0 {
		resp, err = h.retriever.Search(r.Context(), userID, req.QueryEmbedding, opts)
	} else {
		resp, err = h.retriever.SearchText(r.Context(), userID, req.Query, opts)
	}
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type answerRequest struct {
	Question       string         `json:"question"`
	QueryEmbedding []float32      `json:"queryEmbedding"`
	Options        *searchOptions `json:"options"`
	Rerank         bool           `json:"rerank"`
	RewriteQuery   bool           `json:"rewriteQuery"`
}

// Answer retrieves context for the question and asks the completion
// gateway for a grounded answer with a sources footer.
func (h *RAGHandler) Answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.answerer.Answer(r.Context(), userID, rag.AnswerRequest{
		Question:       req.Question,
		QueryEmbedding: req.QueryEmbedding,
		Options:        h.resolveOptions(req.Options),
		Rerank:         req.Rerank,
		RewriteQuery:   req.RewriteQuery,
	})
	if err != nil {
		writeServiceError(w, err, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// Prepare extracts text from an uploaded file and splits it into
// chunks with token estimates, ready for the caller to embed. Nothing
// is persisted.
func (h *RAGHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	opts, err := h.chunkOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := textextract.DetectKind(header.Filename, header.Header.Get("Content-Type"))
	extracted, err := textextract.Extract(file, header.Size, kind)
	if err != nil {
		var unsupported *textextract.ErrUnsupported
		if errors.As(err, &unsupported) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	chunks := rag.PrepareChunks(extracted.Text, opts)

	payload := map[string]interface{}{
		"filename":   header.Filename,
		"fileType":   kind,
		"text":       extracted.Text,
		"chunks":     chunks,
		"chunkCount": len(chunks),
	}
	if extracted.Pages > 0 {
		payload["pages"] = extracted.Pages
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *RAGHandler) chunkOptions(r *http.Request) (chunker.Options, error) {
	opts := chunker.Options{
		Size:     h.chunk.Size,
		Overlap:  h.chunk.Overlap,
		Strategy: chunker.Strategy(h.chunk.Strategy),
	}
	if v := r.FormValue("strategy"); v != "" {
		opts.Strategy = chunker.Strategy(v)
	}
	if v := r.FormValue("chunkSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("chunkSize must be a positive integer")
		}
		opts.Size = n
	}
	if v := r.FormValue("chunkOverlap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("chunkOverlap must be a non-negative integer")
		}
		opts.Overlap = n
	}
	return opts, nil
}
