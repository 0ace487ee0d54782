package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pharmaqa/rag-engine/internal/config"
)

// Client enqueues background tasks. It satisfies rag.ReconcileEnqueuer.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.QueueConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueStatsReconcile schedules a full recompute of one user's stats
// cache. A fixed task id collapses duplicate pending reconciles for the
// same user into one.
func (c *Client) EnqueueStatsReconcile(ctx context.Context, userID string) error {
	err := c.enqueue(ctx, TypeStatsReconcile, StatsReconcilePayload{UserID: userID},
		asynq.TaskID("stats-reconcile:"+userID),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
