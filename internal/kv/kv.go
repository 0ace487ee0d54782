// Package kv provides the key-value substrate the engine persists
// into. Every backend exposes the same small contract: point reads and
// writes of opaque JSON values plus lazy prefix listing. Higher layers
// own key composition and record encoding; this package never inspects
// values.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when no value exists for the key.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store is a flat key-value namespace. Put overwrites unconditionally,
// Delete of a missing key is a no-op, and List returns a forward-only
// iterator over every key with the given prefix.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) (Iterator, error)
}

// Iterator walks a prefix listing lazily. It is single-use: callers
// drain it with Next or abandon it with Close, then check Err. Key and
// Value are only valid after Next reports true and until the next call
// to Next.
type Iterator interface {
	Next() bool
	Key() string
	Value() []byte
	Err() error
	Close() error
}

// Pinger is implemented by backends with a remote connection worth
// health-checking.
type Pinger interface {
	Ping(ctx context.Context) error
}
