package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryHandle keeps rows in a map. It is used for tests and dry runs.
type MemoryHandle struct {
	mu   sync.RWMutex
	rows map[Key][]byte
}

var _ Handle = (*MemoryHandle)(nil)

func NewMemoryHandle() *MemoryHandle {
	return &MemoryHandle{rows: make(map[Key][]byte)}
}

func (m *MemoryHandle) Get(ctx context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.rows[key]
	if !ok {
		return nil, ErrNotFound
	}

	return slices.Clone(data), nil
}

func (m *MemoryHandle) Put(ctx context.Context, key Key, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[key] = slices.Clone(data)
	return nil
}

// Len returns the number of stored rows.
func (m *MemoryHandle) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rows)
}

func (m *MemoryHandle) Close() error {
	return nil
}
