// Package fallible lets containers report running out of memory as an
// ordinary error instead of crashing the process. Growth is charged against
// an Allocator before it happens.
package fallible

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrAllocationFailed is returned (wrapped) whenever an Allocator refuses a
// reservation.
var ErrAllocationFailed = errors.New("allocation failed")

// AllocationError carries the details of a refused reservation.
type AllocationError struct {
	Requested int
	Available int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation failed: requested %d slots, %d available", e.Requested, e.Available)
}

func (e *AllocationError) Unwrap() error {
	return ErrAllocationFailed
}

// Allocator decides whether containers may grow.
type Allocator interface {
	// Reserve asks for n more slots.
	Reserve(n int) error
	// Reset forgets every reservation made so far.
	Reset()
}

type unlimited struct{}

func (unlimited) Reserve(int) error { return nil }
func (unlimited) Reset()            {}

// Unlimited never refuses a reservation.
var Unlimited Allocator = unlimited{}

// Budget refuses reservations once more than a fixed number of slots has
// been handed out. It is safe for concurrent use.
type Budget struct {
	max  int64
	used atomic.Int64
}

// NewBudget returns an allocator that hands out at most limit slots. A
// non-positive limit means no limit.
func NewBudget(limit int) Allocator {
	if limit <= 0 {
		return Unlimited
	}
	return &Budget{max: int64(limit)}
}

func (b *Budget) Reserve(n int) error {
	if used := b.used.Add(int64(n)); used > b.max {
		b.used.Add(-int64(n))
		return &AllocationError{Requested: n, Available: int(b.max - (used - int64(n)))}
	}
	return nil
}

func (b *Budget) Reset() {
	b.used.Store(0)
}

// Used returns the number of slots handed out.
func (b *Budget) Used() int {
	return int(b.used.Load())
}

// FailAfter returns an allocator that grants exactly n reservations and
// refuses every one after that, regardless of size. It is meant for
// exercising failure paths.
func FailAfter(n int) Allocator {
	return &countdown{left: n, initial: n}
}

type countdown struct {
	left, initial int
}

func (c *countdown) Reserve(n int) error {
	if c.left <= 0 {
		return &AllocationError{Requested: n}
	}
	c.left--
	return nil
}

func (c *countdown) Reset() {
	c.left = c.initial
}

// TryPush appends v to s, reserving from a first when s has to grow.
func TryPush[T any](a Allocator, s []T, v T) ([]T, error) {
	if len(s) == cap(s) {
		if err := a.Reserve(growth(cap(s))); err != nil {
			return s, err
		}
	}
	return append(s, v), nil
}

// growth mirrors the amortized doubling of append closely enough for
// accounting purposes.
func growth(c int) int {
	if c == 0 {
		return 1
	}
	return c
}
