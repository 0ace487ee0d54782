package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps everything in a map guarded by an RWMutex. It backs
// local development and tests; nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List snapshots the matching entries under the read lock so the
// iterator stays valid while writers proceed. Keys come back in
// ascending order.
func (s *MemoryStore) List(_ context.Context, prefix string) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	entries := make([]memoryEntry, len(keys))
	for i, k := range keys {
		v := s.data[k]
		cp := make([]byte, len(v))
		copy(cp, v)
		entries[i] = memoryEntry{key: k, value: cp}
	}
	return &memoryIterator{entries: entries, pos: -1}, nil
}

type memoryEntry struct {
	key   string
	value []byte
}

type memoryIterator struct {
	entries []memoryEntry
	pos     int
}

func (it *memoryIterator) Next() bool {
	if it.pos+1 >= len(it.entries) {
		return false
	}
	it.pos++
	return true
}

func (it *memoryIterator) Key() string {
	return it.entries[it.pos].key
}

func (it *memoryIterator) Value() []byte {
	return it.entries[it.pos].value
}

func (it *memoryIterator) Err() error { return nil }

func (it *memoryIterator) Close() error {
	it.entries = nil
	return nil
}
