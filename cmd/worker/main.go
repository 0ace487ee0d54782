package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/pharmaqa/rag-engine/internal/config"
	"github.com/pharmaqa/rag-engine/internal/kv"
	"github.com/pharmaqa/rag-engine/internal/queue"
	"github.com/pharmaqa/rag-engine/internal/queue/workers"
	"github.com/pharmaqa/rag-engine/internal/rag"
	"github.com/pharmaqa/rag-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	kvStore, closeStore, err := kv.Open(context.Background(), cfg.Store)
	if err != nil {
		slog.Error("failed to open record store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	docs := store.NewDocumentStore(kvStore)
	statsStore := store.NewStatsStore(kvStore)
	// The worker is the reconcile consumer; it never enqueues.
	statsSvc := rag.NewStatsService(docs, statsStore, nil)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	statsWorker := workers.NewStatsWorker(statsSvc)
	registry.Register(queue.TypeStatsReconcile, asynq.HandlerFunc(statsWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
