package object

import (
	"encoding/json"
	"sort"
	"strconv"
	"sync"
)

// Array is an ordered list with JavaScript array mutation semantics.
// Mutators on a frozen array leave it unchanged.
type Array struct {
	marks

	mu     sync.RWMutex
	items  []any
	frozen bool
}

// NewArray creates an array holding a copy of items.
func NewArray(items ...any) *Array {
	return &Array{items: append([]any(nil), items...)}
}

// Len returns the number of elements.
func (a *Array) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// At returns the element at i, or nil when i is out of range.
func (a *Array) At(i int) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Values returns a snapshot of the elements.
func (a *Array) Values() []any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]any(nil), a.items...)
}

// SetAt replaces the element at i.
func (a *Array) SetAt(i int, v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return propErr("set", strconv.Itoa(i), ErrFrozen)
	}
	if i < 0 || i >= len(a.items) {
		return propErr("set", strconv.Itoa(i), ErrIndexOutOfRange)
	}
	a.items[i] = v
	return nil
}

// SetLength truncates the array or pads it with nil elements.
func (a *Array) SetLength(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return propErr("set", "length", ErrFrozen)
	}
	if n < 0 {
		return propErr("set", "length", ErrIndexOutOfRange)
	}
	if n <= len(a.items) {
		clear(a.items[n:])
		a.items = a.items[:n]
		return nil
	}
	a.items = append(a.items, make([]any, n-len(a.items))...)
	return nil
}

// Push appends values and returns the new length.
func (a *Array) Push(values ...any) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.frozen {
		a.items = append(a.items, values...)
	}
	return len(a.items)
}

// Pop removes and returns the last element.
func (a *Array) Pop() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen || len(a.items) == 0 {
		return nil
	}
	last := a.items[len(a.items)-1]
	a.items[len(a.items)-1] = nil
	a.items = a.items[:len(a.items)-1]
	return last
}

// Shift removes and returns the first element.
func (a *Array) Shift() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen || len(a.items) == 0 {
		return nil
	}
	first := a.items[0]
	a.items = append([]any(nil), a.items[1:]...)
	return first
}

// Unshift prepends values and returns the new length.
func (a *Array) Unshift(values ...any) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.frozen && len(values) > 0 {
		items := make([]any, 0, len(values)+len(a.items))
		items = append(items, values...)
		a.items = append(items, a.items...)
	}
	return len(a.items)
}

// Splice removes deleteCount elements starting at start, inserts items in
// their place and returns the removed elements. A negative start counts
// from the end.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return nil
	}

	n := len(a.items)
	s := relativeIndex(start, n)
	dc := min(max(deleteCount, 0), n-s)

	removed := make([]any, dc)
	copy(removed, a.items[s:s+dc])
	next := make([]any, 0, n-dc+len(items))
	next = append(next, a.items[:s]...)
	next = append(next, items...)
	next = append(next, a.items[s+dc:]...)
	a.items = next
	return removed
}

// Reverse reverses the array in place.
func (a *Array) Reverse() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return
	}
	for i, j := 0, len(a.items)-1; i < j; i, j = i+1, j-1 {
		a.items[i], a.items[j] = a.items[j], a.items[i]
	}
}

// Sort stably sorts the array with less. less runs on a snapshot without
// the lock held, so it may read the array; the sorted snapshot replaces
// the contents when it returns.
func (a *Array) Sort(less func(x, y any) bool) {
	if less == nil || a.Frozen() {
		return
	}
	items := a.Values()
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.frozen {
		a.items = items
	}
}

// Fill assigns v to every index in [start, end). Negative bounds count from the end.
func (a *Array) Fill(v any, start, end int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return
	}
	n := len(a.items)
	for i := relativeIndex(start, n); i < relativeIndex(end, n); i++ {
		a.items[i] = v
	}
}

// CopyWithin copies the elements in [start, end) to the position target.
// Negative positions count from the end; the length never changes.
func (a *Array) CopyWithin(target, start, end int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return
	}
	n := len(a.items)
	t, s, e := relativeIndex(target, n), relativeIndex(start, n), relativeIndex(end, n)
	count := min(e-s, n-t)
	if count <= 0 {
		return
	}
	copy(a.items[t:t+count], a.items[s:s+count])
}

// Freeze stops every further mutation.
func (a *Array) Freeze() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frozen = true
}

// Frozen reports whether Freeze was called.
func (a *Array) Frozen() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frozen
}

// Clone returns a deep copy of the elements.
func (a *Array) Clone() *Array {
	values := a.Values()
	for i, v := range values {
		values[i] = Clone(v)
	}
	return &Array{items: values}
}

// MarshalJSON encodes the elements as a JSON array.
func (a *Array) MarshalJSON() ([]byte, error) {
	values := a.Values()
	if values == nil {
		values = []any{}
	}
	return json.Marshal(values)
}

func relativeIndex(i, n int) int {
	if i < 0 {
		return max(n+i, 0)
	}
	return min(i, n)
}
