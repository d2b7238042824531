// Package selectormap provides the indexed containers used to find the
// selectors that may be interested in a given element feature.
package selectormap

import (
	"iter"

	"cssinv/common"
	"cssinv/fallible"
)

// NameMap maps class or id names to lists of entries. Whether names are
// compared case sensitively is decided per call by the quirks mode, not
// when the map is created.
type NameMap[T any] struct {
	alloc fallible.Allocator
	m     map[string][]T
}

// NewNameMap returns an empty map charging growth to a.
func NewNameMap[T any](a fallible.Allocator) *NameMap[T] {
	if a == nil {
		a = fallible.Unlimited
	}
	return &NameMap[T]{alloc: a, m: make(map[string][]T)}
}

// Key returns the name as stored for the given quirks mode.
func Key(name string, quirks common.QuirksMode) string {
	if quirks.ClassAndIDCaseSensitivity() == common.ASCIICaseInsensitive {
		return asciiLower(name)
	}
	return name
}

// TryPush appends v to the list kept for name, creating the list if needed.
// Nothing is modified when the allocator refuses.
func (nm *NameMap[T]) TryPush(name string, quirks common.QuirksMode, v T) error {
	k := Key(name, quirks)
	list, ok := nm.m[k]
	if !ok {
		if err := nm.alloc.Reserve(1); err != nil {
			return err
		}
	}
	list, err := fallible.TryPush(nm.alloc, list, v)
	if err != nil {
		if !ok {
			// the key stays charged, Len and All skip it while empty
			nm.m[k] = nil
		}
		return err
	}
	nm.m[k] = list
	return nil
}

// Get returns the list kept for name.
func (nm *NameMap[T]) Get(name string, quirks common.QuirksMode) []T {
	return nm.m[Key(name, quirks)]
}

// Len returns the number of names with at least one value.
func (nm *NameMap[T]) Len() int {
	n := 0
	for _, list := range nm.m {
		if len(list) > 0 {
			n++
		}
	}
	return n
}

// Entries returns the total number of values across all names.
func (nm *NameMap[T]) Entries() int {
	n := 0
	for _, list := range nm.m {
		n += len(list)
	}
	return n
}

// All yields every name with a non-empty list, in no particular order.
func (nm *NameMap[T]) All() iter.Seq2[string, []T] {
	return func(yield func(string, []T) bool) {
		for k, list := range nm.m {
			if len(list) == 0 {
				continue
			}
			if !yield(k, list) {
				return
			}
		}
	}
}

// Clear removes every name.
func (nm *NameMap[T]) Clear() {
	clear(nm.m)
}

// asciiLower folds ASCII letters only, which is what CSS means by case
// insensitive for class and id names.
func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if c := b[j]; 'A' <= c && c <= 'Z' {
					b[j] = c + 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
