package resource

import (
	"sync"
)

// Table maps handles to values of a single type. Released slots are reused
// with a new generation, so a stale handle never resolves to a newer value.
// Table is safe for concurrent use.
type Table[T any] struct {
	kind      string
	entries   []entry[T]
	freeList  []int
	live      int
	mu        sync.RWMutex
	closed    bool
	observers []Observer
	obsMu     sync.RWMutex
}

type entry[T any] struct {
	value T
	gen   uint32
	valid bool
}

// NewTable creates an empty table. Kind labels the values in lifecycle events.
func NewTable[T any](kind string) *Table[T] {
	return &Table[T]{
		kind:     kind,
		entries:  make([]entry[T], 0, 64),
		freeList: make([]int, 0, 16),
	}
}

// Kind returns the label given to NewTable.
func (t *Table[T]) Kind() string {
	return t.kind
}

// Insert adds a value and returns its handle. It returns 0 once the table is closed.
func (t *Table[T]) Insert(value T) Handle {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}

	var idx int
	if n := len(t.freeList); n > 0 {
		idx = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		t.entries = append(t.entries, entry[T]{gen: 1})
		idx = len(t.entries) - 1
	}

	e := &t.entries[idx]
	e.value = value
	e.valid = true
	t.live++
	h := makeHandle(idx, e.gen)
	t.mu.Unlock()

	t.notify(Event{
		Type:   EventCreated,
		Handle: h,
		Kind:   t.kind,
		Value:  value,
	})

	return h
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	var zero T
	idx, ok := h.slot()
	if !ok {
		return zero, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if idx >= len(t.entries) {
		return zero, false
	}
	e := t.entries[idx]
	if !e.valid || e.gen != h.generation() {
		return zero, false
	}
	return e.value, true
}

// Remove drops a value and returns (value, true) if the handle was live.
// Values implementing Dropper are dropped after removal.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	value, ok := t.take(h)
	if !ok {
		return value, false
	}

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: h,
		Kind:   t.kind,
		Value:  value,
	})

	return value, true
}

func (t *Table[T]) take(h Handle) (T, bool) {
	var zero T
	idx, ok := h.slot()
	if !ok {
		return zero, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if idx >= len(t.entries) {
		return zero, false
	}
	e := &t.entries[idx]
	if !e.valid || e.gen != h.generation() {
		return zero, false
	}

	value := e.value
	e.value = zero
	e.valid = false
	e.gen++
	t.live--
	t.freeList = append(t.freeList, idx)
	return value, true
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each iterates over live values until fn returns false.
// fn must not modify the table.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid {
			if !fn(makeHandle(i, e.gen), e.value) {
				break
			}
		}
	}
}

// Clear drops all values.
func (t *Table[T]) Clear() {
	var handles []Handle
	t.Each(func(h Handle, _ T) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close drops all values and stops accepting inserts.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
