package store

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

var (
	_ Store[any] = (*MemoryStore[any])(nil)
	_ Taker[any] = (*MemoryStore[any])(nil)
)

type memoryEntry[V any] struct {
	key    Key
	value  V
	expiry *expiryItem // nil when the entry never expires
}

// expiryItem is one slot of the expiry heap. index is its current position
// in the heap slice and is kept up to date by Swap.
type expiryItem struct {
	expiresAt time.Time
	key       string
	index     int
}

// expiryHeap orders items by ascending expiry so the sweep only ever looks
// at the front.
type expiryHeap []*expiryItem

func (h expiryHeap) Len() int { return len(h) }

func (h expiryHeap) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }

func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap) Push(x any) {
	item := x.(*expiryItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// MemoryStore is a thread-safe in-memory Store. Expired entries are swept
// at the start of every operation, so no background goroutine is needed.
type MemoryStore[V any] struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry[V]
	expiries  expiryHeap
	now       func() time.Time
	observers Observers[V]
}

// MemoryOption configures a MemoryStore.
type MemoryOption[V any] func(*MemoryStore[V])

// WithClock replaces time.Now (primarily for testing).
func WithClock[V any](now func() time.Time) MemoryOption[V] {
	return func(s *MemoryStore[V]) {
		s.now = now
	}
}

// WithObservers registers mutation callbacks.
func WithObservers[V any](observers Observers[V]) MemoryOption[V] {
	return func(s *MemoryStore[V]) {
		s.observers = observers
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore[V any](options ...MemoryOption[V]) *MemoryStore[V] {
	s := &MemoryStore[V]{
		entries: make(map[string]*memoryEntry[V]),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get returns the live value stored under key.
func (s *MemoryStore[V]) Get(_ context.Context, key Key) (V, bool, error) {
	var zero V
	if err := checkKey(key); err != nil {
		return zero, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	entry, ok := s.entries[key.String()]
	if !ok {
		return zero, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key, replacing any previous value and expiry.
func (s *MemoryStore[V]) Set(ctx context.Context, key Key, value V, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	s.sweep()
	id := key.String()
	if previous, ok := s.entries[id]; ok {
		s.dropExpiry(previous)
	}
	entry := &memoryEntry[V]{key: key, value: value}
	if ttl > 0 {
		entry.expiry = &expiryItem{expiresAt: s.now().Add(ttl), key: id}
		heap.Push(&s.expiries, entry.expiry)
	}
	s.entries[id] = entry
	s.mu.Unlock()

	return s.observers.set(ctx, key, value)
}

// Delete removes key if present.
func (s *MemoryStore[V]) Delete(ctx context.Context, key Key) error {
	previous, existed, err := s.remove(key)
	if err != nil {
		return err
	}
	return s.observers.delete(ctx, key, previous, existed)
}

// Take removes key and returns the value it held, in one critical section.
func (s *MemoryStore[V]) Take(ctx context.Context, key Key) (V, bool, error) {
	previous, existed, err := s.remove(key)
	if err != nil {
		return previous, false, err
	}
	if err := s.observers.delete(ctx, key, previous, existed); err != nil {
		return previous, existed, err
	}
	return previous, existed, nil
}

// IsEmpty reports whether no live entries remain.
func (s *MemoryStore[V]) IsEmpty(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.entries) == 0, nil
}

// Len returns the number of live entries.
func (s *MemoryStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.entries)
}

func (s *MemoryStore[V]) remove(key Key) (V, bool, error) {
	var zero V
	if err := checkKey(key); err != nil {
		return zero, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	id := key.String()
	entry, ok := s.entries[id]
	if !ok {
		return zero, false, nil
	}
	s.dropExpiry(entry)
	delete(s.entries, id)
	return entry.value, true, nil
}

// sweep discards every entry whose expiry is at or before now. Must be
// called with the lock held.
func (s *MemoryStore[V]) sweep() {
	now := s.now()
	for len(s.expiries) > 0 && !s.expiries[0].expiresAt.After(now) {
		item := heap.Pop(&s.expiries).(*expiryItem)
		delete(s.entries, item.key)
	}
}

// dropExpiry removes the heap slot owned by entry. Must be called with the
// lock held.
func (s *MemoryStore[V]) dropExpiry(entry *memoryEntry[V]) {
	if entry.expiry == nil || entry.expiry.index < 0 {
		return
	}
	heap.Remove(&s.expiries, entry.expiry.index)
	entry.expiry = nil
}
