package docstore

import (
	"context"
	"maps"
	"sync"
)

// Backend is a key-value persistence target for documents.
type Backend interface {
	// Get returns the value stored under key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores every entry atomically.
	Put(ctx context.Context, entries map[string][]byte) error
	Close() error
}

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Put(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.data, entries)
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
