package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists records as plain string values under a shared
// namespace prefix, so one Redis database can host the engine next to
// other tenants.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

var (
	_ Store  = (*RedisStore)(nil)
	_ Pinger = (*RedisStore)(nil)
)

// NewRedisStore wraps an already-connected client. namespace is
// prepended to every key; pass "" to use the database as-is.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.namespace+key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List collects the matching keys with SCAN, sorts them, then fetches
// values on demand as the iterator advances. SCAN may repeat keys
// while the keyspace is rehashing, so duplicates are dropped up front.
func (s *RedisStore) List(ctx context.Context, prefix string) (Iterator, error) {
	match := globEscape(s.namespace+prefix) + "*"

	seen := make(map[string]struct{})
	var keys []string
	scan := s.client.Scan(ctx, 0, match, 100).Iterator()
	for scan.Next(ctx) {
		k := scan.Val()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	sort.Strings(keys)

	return &redisIterator{ctx: ctx, store: s, keys: keys, pos: -1}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type redisIterator struct {
	ctx   context.Context
	store *RedisStore
	keys  []string
	pos   int
	value []byte
	err   error
}

func (it *redisIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.pos+1 < len(it.keys) {
		it.pos++
		value, err := it.store.client.Get(it.ctx, it.keys[it.pos]).Bytes()
		if errors.Is(err, redis.Nil) {
			// Deleted between SCAN and GET; move on.
			continue
		}
		if err != nil {
			it.err = fmt.Errorf("get %s: %w", it.keys[it.pos], err)
			return false
		}
		it.value = value
		return true
	}
	return false
}

func (it *redisIterator) Key() string {
	return strings.TrimPrefix(it.keys[it.pos], it.store.namespace)
}

func (it *redisIterator) Value() []byte { return it.value }

func (it *redisIterator) Err() error { return it.err }

func (it *redisIterator) Close() error {
	it.keys = nil
	return nil
}

// globEscape neutralizes Redis MATCH glob characters so user-derived
// key segments are matched literally.
func globEscape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`*`, `\*`,
		`?`, `\?`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return r.Replace(s)
}
