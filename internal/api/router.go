package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pharmaqa/rag-engine/internal/api/handlers"
	"github.com/pharmaqa/rag-engine/internal/api/middleware"
	"github.com/pharmaqa/rag-engine/internal/auth"
	"github.com/pharmaqa/rag-engine/internal/config"
	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/llm"
	"github.com/pharmaqa/rag-engine/internal/queue"
	"github.com/pharmaqa/rag-engine/internal/rag"
	"github.com/pharmaqa/rag-engine/internal/store"
)

type Router struct {
	mux   *chi.Mux
	store kv.Store
	queue *queue.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway
}

// NewRouter wires the engine onto the given record store. queueClient
// may be nil, which disables background stats reconciliation.
func NewRouter(kvStore kv.Store, queueClient *queue.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		store: kvStore,
		queue: queueClient,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth),
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.store)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Record stores
	docs := store.NewDocumentStore(rt.store)
	chunks := store.NewChunkStore(rt.store)
	statsStore := store.NewStatsStore(rt.store)

	// A nil *queue.Client must stay a nil interface, or the pipeline
	// would call through it.
	var enqueuer rag.ReconcileEnqueuer
	if rt.queue != nil {
		enqueuer = rt.queue
	}

	// Engine services
	pipeline := rag.NewPipeline(docs, chunks, statsStore, enqueuer)
	retriever := rag.NewRetriever(chunks, docs)
	statsSvc := rag.NewStatsService(docs, statsStore, enqueuer)

	completer := llm.NewCompleter(rt.llmGW, rt.cfg.LLM.DefaultModel)
	generator := rag.NewGenerator(completer)
	reranker := rag.NewLLMReranker(rt.llmGW, rt.cfg.LLM.DefaultModel)
	rewriter := rag.NewLLMQueryRewriter(rt.llmGW, rt.cfg.LLM.DefaultModel)
	answerer := rag.NewAnswerer(retriever, generator, reranker, rewriter)

	if available := rt.llmGW.ListModels(); len(available) > 0 {
		slog.Info("llm providers registered", "models", len(available))
	} else {
		slog.Warn("no llm providers configured, answer endpoint will fail upstream")
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		docH := handlers.NewDocumentsHandler(pipeline, statsSvc)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/stats", docH.Stats)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
		})

		ragH := handlers.NewRAGHandler(retriever, answerer, rt.cfg.Search, rt.cfg.Chunk)
		r.Route("/rag", func(r chi.Router) {
			r.Post("/search", ragH.Search)
			r.Post("/answer", ragH.Answer)
			r.Post("/prepare", ragH.Prepare)
		})
	})

	return r
}
