package session

import (
	"context"
	"sync"
	"time"
)

// memoryStore is a minimal in-process Store used only by this
// package's tests; it ignores TTLs entirely.
type memoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]map[string]string)}
}

func (m *memoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.data[key]
	if !ok {
		h = make(map[string]string)
		m.data[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memoryStore) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key][field], nil
}

func (m *memoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data[key]))
	for k, v := range m.data[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	return nil
}
