package queue

import (
	"context"
	"sync"
)

// Memory is an in-process Store for single-run deployments and tests.
type Memory struct {
	mu    sync.Mutex
	items []Item
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Enqueue implements [Store].
func (m *Memory) Enqueue(_ context.Context, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

// Drain implements [Store].
func (m *Memory) Drain(_ context.Context) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items, nil
}

// Len returns the number of queued items.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
