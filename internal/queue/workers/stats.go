package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/pharmaqa/rag-engine/internal/queue"
	"github.com/pharmaqa/rag-engine/internal/rag"
)

// StatsWorker repairs a user's stats cache by recomputing it from a
// full scan over their document records.
type StatsWorker struct {
	stats *rag.StatsService
}

func NewStatsWorker(stats *rag.StatsService) *StatsWorker {
	return &StatsWorker{stats: stats}
}

func (w *StatsWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.StatsReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	slog.Info("reconciling stats", "user_id", payload.UserID)

	if err := w.stats.Reconcile(ctx, payload.UserID); err != nil {
		return fmt.Errorf("reconcile stats for %s: %w", payload.UserID, err)
	}

	slog.Info("stats reconciled", "user_id", payload.UserID)
	return nil
}
