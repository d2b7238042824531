package selectormap

import (
	"iter"

	"cssinv/common"
	"cssinv/fallible"
	"cssinv/selectors"
)

// Entry is anything that can be indexed by the compound selector it
// points to.
type Entry interface {
	// Iter returns an iterator positioned at the compound the entry is
	// keyed on.
	Iter() *selectors.Iter
}

// SelectorMap indexes entries by the most selective feature of their
// compound: id, then class, then local name. Entries with none of those
// land in a catch-all list that every lookup has to scan.
type SelectorMap[T Entry] struct {
	alloc      fallible.Allocator
	ids        *NameMap[T]
	classes    *NameMap[T]
	localNames map[string][]T
	other      []T
	count      int
}

// New returns an empty map charging growth to a.
func New[T Entry](a fallible.Allocator) *SelectorMap[T] {
	if a == nil {
		a = fallible.Unlimited
	}
	return &SelectorMap[T]{
		alloc:      a,
		ids:        NewNameMap[T](a),
		classes:    NewNameMap[T](a),
		localNames: make(map[string][]T),
	}
}

type bucketKind int

const (
	bucketOther bucketKind = iota
	bucketLocalName
	bucketClass
	bucketID
)

func findBucket(it *selectors.Iter) (bucketKind, string) {
	kind, name := bucketOther, ""
	for c := range it.Compound() {
		switch c.Kind {
		case selectors.KindID:
			return bucketID, c.Name
		case selectors.KindClass:
			if kind < bucketClass {
				kind, name = bucketClass, c.Name
			}
		case selectors.KindLocalName:
			if kind < bucketLocalName {
				kind, name = bucketLocalName, c.LowerName
			}
		}
	}
	return kind, name
}

// Insert adds entry to the bucket picked from its compound.
func (m *SelectorMap[T]) Insert(entry T, quirks common.QuirksMode) error {
	var err error
	switch kind, name := findBucket(entry.Iter()); kind {
	case bucketID:
		err = m.ids.TryPush(name, quirks, entry)
	case bucketClass:
		err = m.classes.TryPush(name, quirks, entry)
	case bucketLocalName:
		list, ok := m.localNames[name]
		if !ok {
			if err = m.alloc.Reserve(1); err != nil {
				return err
			}
		}
		list, err = fallible.TryPush(m.alloc, list, entry)
		if err == nil || !ok {
			m.localNames[name] = list
		}
	default:
		m.other, err = fallible.TryPush(m.alloc, m.other, entry)
	}
	if err != nil {
		return err
	}
	m.count++
	return nil
}

// Features describes an element for lookups.
type Features struct {
	ID        string
	Classes   []string
	LocalName string
}

// Lookup yields every entry that may apply to an element with the given
// features. Entries are not matched, callers still have to do that.
func (m *SelectorMap[T]) Lookup(f Features, quirks common.QuirksMode) iter.Seq[T] {
	return func(yield func(T) bool) {
		if f.ID != "" {
			for _, e := range m.ids.Get(f.ID, quirks) {
				if !yield(e) {
					return
				}
			}
		}
		for _, class := range f.Classes {
			for _, e := range m.classes.Get(class, quirks) {
				if !yield(e) {
					return
				}
			}
		}
		if f.LocalName != "" {
			for _, e := range m.localNames[asciiLower(f.LocalName)] {
				if !yield(e) {
					return
				}
			}
		}
		for _, e := range m.other {
			if !yield(e) {
				return
			}
		}
	}
}

// All yields every entry in the map.
func (m *SelectorMap[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, list := range m.ids.All() {
			for _, e := range list {
				if !yield(e) {
					return
				}
			}
		}
		for _, list := range m.classes.All() {
			for _, e := range list {
				if !yield(e) {
					return
				}
			}
		}
		for _, list := range m.localNames {
			for _, e := range list {
				if !yield(e) {
					return
				}
			}
		}
		for _, e := range m.other {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (m *SelectorMap[T]) Len() int {
	return m.count
}

// Clear removes every entry.
func (m *SelectorMap[T]) Clear() {
	m.ids.Clear()
	m.classes.Clear()
	clear(m.localNames)
	m.other = nil
	m.count = 0
}
