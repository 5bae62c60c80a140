package identity

import "sync"

// Table holds per-target state keyed by ID.
// It uses sync.RWMutex since lookups far outnumber writes.
type Table[V any] struct {
	mu      sync.RWMutex
	entries map[ID]V
}

// NewTable creates an empty table.
func NewTable[V any]() *Table[V] {
	return &Table[V]{entries: make(map[ID]V)}
}

// Get returns the value for id and whether it exists.
func (t *Table[V]) Get(id ID) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[id]
	return v, ok
}

// Put adds or replaces the value for id.
func (t *Table[V]) Put(id ID, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = v
}

// Delete removes id and returns the value it held.
func (t *Table[V]) Delete(id ID) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[id]
	delete(t.entries, id)
	return v, ok
}

// Len returns the number of entries.
func (t *Table[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Range calls fn for each entry of a snapshot until fn returns false.
// fn may modify the table.
func (t *Table[V]) Range(fn func(id ID, v V) bool) {
	t.mu.RLock()
	snapshot := make(map[ID]V, len(t.entries))
	for k, v := range t.entries {
		snapshot[k] = v
	}
	t.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// GetOrCreate returns the value for id, creating it with factory when
// missing. factory runs at most once per id.
func (t *Table[V]) GetOrCreate(id ID, factory func() V) V {
	t.mu.RLock()
	v, ok := t.entries[id]
	t.mu.RUnlock()
	if ok {
		return v
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.entries[id]; ok {
		return v
	}
	v = factory()
	t.entries[id] = v
	return v
}
