package store

import "sync"

// Slot is a single-value overwrite-only cache guarded by a read-write
// lock. The upload cache and the OAuth token cache both use one slot
// keyed implicitly by "latest"; writes are last-write-wins.
type Slot[T any] struct {
	mu  sync.RWMutex
	val T
	set bool
}

func NewSlot[T any]() *Slot[T] { return &Slot[T]{} }

// Get returns the cached value and whether one has been set.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val, s.set
}

// Set replaces the cached value.
func (s *Slot[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = v
	s.set = true
}

// Clear empties the slot.
func (s *Slot[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.val = zero
	s.set = false
}
