package storage

import (
	"context"
	"sync"

	"repo-pulse/internal/history"
)

// MemoryBackend holds the last known History for the lifetime of the process.
type MemoryBackend struct {
	mu   sync.RWMutex
	data history.History
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(_ context.Context) (history.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ErrEmpty
	}
	return m.data.Clone(), nil
}

func (m *MemoryBackend) Save(_ context.Context, h history.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = h.Clone()
	return nil
}
