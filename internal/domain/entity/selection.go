package entity

import "fmt"

// SelectionStore holds one slot per sampled frame, each either absent or a
// Mask. Its length is fixed at construction. Updates are copy-on-write:
// With returns a new store and leaves the receiver untouched, so a snapshot
// handed to the compositor never changes underneath it.
type SelectionStore struct {
	slots []*Mask
}

func NewSelectionStore(frameCount int) *SelectionStore {
	if frameCount < 0 {
		frameCount = 0
	}
	return &SelectionStore{slots: make([]*Mask, frameCount)}
}

func (s *SelectionStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// Get returns the mask stored for index, if any.
func (s *SelectionStore) Get(index int) (Mask, bool) {
	if s == nil || index < 0 || index >= len(s.slots) || s.slots[index] == nil {
		return Mask{}, false
	}
	return *s.slots[index], true
}

func (s *SelectionStore) Has(index int) bool {
	_, ok := s.Get(index)
	return ok
}

// With returns a copy of the store with index set to mask.
func (s *SelectionStore) With(index int, mask Mask) (*SelectionStore, error) {
	if index < 0 || index >= s.Len() {
		return nil, fmt.Errorf("selection index %d out of range [0,%d)", index, s.Len())
	}
	next := &SelectionStore{slots: make([]*Mask, len(s.slots))}
	copy(next.slots, s.slots)
	m := mask
	next.slots[index] = &m
	return next, nil
}

// Without returns a copy of the store with index cleared.
func (s *SelectionStore) Without(index int) (*SelectionStore, error) {
	if index < 0 || index >= s.Len() {
		return nil, fmt.Errorf("selection index %d out of range [0,%d)", index, s.Len())
	}
	next := &SelectionStore{slots: make([]*Mask, len(s.slots))}
	copy(next.slots, s.slots)
	next.slots[index] = nil
	return next, nil
}

// Slots returns the ordered masks, nil for absent entries.
func (s *SelectionStore) Slots() []*Mask {
	out := make([]*Mask, s.Len())
	if s != nil {
		copy(out, s.slots)
	}
	return out
}

// Count returns how many frames carry a mask.
func (s *SelectionStore) Count() int {
	n := 0
	for _, m := range s.Slots() {
		if m != nil {
			n++
		}
	}
	return n
}
