package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmaqa/rag-engine/internal/config"
)

// Open builds the store named by cfg.Driver. The returned closer
// releases whatever connection the driver opened; callers defer it for
// the life of the process.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, func(), error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		return NewMemoryStore(), func() {}, nil

	case config.StoreDriverPostgres:
		pool, err := NewPostgresPool(ctx, cfg.PostgresURL, cfg.PostgresMaxConns, cfg.PostgresMinConns)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisStore(client, cfg.RedisKeyPrefix), func() { _ = client.Close() }, nil

	case config.StoreDriverMongo:
		client, err := NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(shutCtx)
		}
		return NewMongoStore(client, cfg.MongoDatabase, cfg.MongoCollection), closer, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
