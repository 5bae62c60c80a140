package journal

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory journal for tests and short-lived processes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	closed  bool
}

// NewMemoryStore creates an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	list := m.entries[e.TargetID]
	e.Sequence = 1
	if n := len(list); n > 0 {
		e.Sequence = list[n-1].Sequence + 1
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.Payload = append([]byte(nil), e.Payload...)
	m.entries[e.TargetID] = append(list, e)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, targetID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	list := m.entries[targetID]
	out := make([]Entry, len(list))
	copy(out, list)
	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	n := 0
	for _, list := range m.entries {
		n += len(list)
	}
	return n, nil
}

// DeleteTarget implements Store.
func (m *MemoryStore) DeleteTarget(_ context.Context, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.entries, targetID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}
