// Package idalloc hands out the numeric ids that identify items in an export.
package idalloc

import (
	"fmt"
	"math"

	"cedx/internal/errors"
)

// Allocator issues unique, strictly increasing ids.
type Allocator interface {
	Allocate() (uint32, error)
}

// Factory creates the allocator for one export of the named document.
// Allocators are never shared between exports.
type Factory func(document string) (Allocator, error)

// Sequence allocates first, first+1, ... up to and including last.
type Sequence struct {
	next      uint32
	last      uint32
	issued    int
	exhausted bool
}

// NewSequence creates a sequence over [first, last]. first must be non-zero.
func NewSequence(first, last uint32) (*Sequence, error) {
	if first == 0 {
		return nil, errors.New(errors.ConfigInvalid, "first id must be at least 1", nil)
	}
	if last < first {
		return nil, errors.Newf(errors.AllocationExhausted, "empty id range [%d, %d]", first, last)
	}
	return &Sequence{next: first, last: last}, nil
}

// Allocate returns the next id, or ALLOCATION_EXHAUSTED once the range is used up.
func (s *Sequence) Allocate() (uint32, error) {
	if s.exhausted {
		return 0, errors.Newf(errors.AllocationExhausted, "id range exhausted after %d ids (last %d)", s.issued, s.last)
	}
	id := s.next
	s.issued++
	if id == s.last {
		s.exhausted = true
	} else {
		s.next++
	}
	return id, nil
}

// Issued returns how many ids have been handed out.
func (s *Sequence) Issued() int { return s.issued }

// Remaining returns how many ids are still available.
func (s *Sequence) Remaining() uint64 {
	if s.exhausted {
		return 0
	}
	return uint64(s.last) - uint64(s.next) + 1
}

// SessionFactory starts every export at first.
func SessionFactory(first uint32) Factory {
	return func(string) (Allocator, error) {
		return newAllocator(first)
	}
}

// HighestFunc reports the highest id previously issued for a document, or 0.
type HighestFunc func(document string) (uint32, error)

// ContinueFactory starts each export one past the highest id already issued
// for the document, and never below first.
func ContinueFactory(first uint32, highest HighestFunc) Factory {
	return func(document string) (Allocator, error) {
		prev, err := highest(document)
		if err != nil {
			return nil, fmt.Errorf("reading id history for %q: %w", document, err)
		}
		if prev == math.MaxUint32 {
			return nil, errors.Newf(errors.AllocationExhausted, "document %q has used every id", document)
		}
		start := first
		if prev+1 > start {
			start = prev + 1
		}
		return newAllocator(start)
	}
}

func newAllocator(first uint32) (Allocator, error) {
	seq, err := NewSequence(first, math.MaxUint32)
	if err != nil {
		return nil, err
	}
	return seq, nil
}
