// Package invalidation maps the classes, ids, states and attributes style
// rules look at to the selector fragments that look at them, so that a
// change to one element only has to be checked against the rules that may
// care about it.
package invalidation

import (
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"cssinv/common"
	"cssinv/dom"
	"cssinv/fallible"
	"cssinv/selectormap"
	"cssinv/selectors"
)

// Flags record whether special attribute selectors are used anywhere in the
// map.
type Flags uint8

const (
	// HasClassAttrSelector is set when [class] or similar is used.
	HasClassAttrSelector Flags = 1 << iota
	// HasIDAttrSelector is set when [id] or similar is used.
	HasIDAttrSelector
)

func (f Flags) String() string {
	var parts []string
	if f&HasClassAttrSelector != 0 {
		parts = append(parts, "class-attr")
	}
	if f&HasIDAttrSelector != 0 {
		parts = append(parts, "id-attr")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Map is where invalidation dependencies are stored.
//
// Unlike a plain selector map the same selector may appear many times, once
// per compound that depends on something mutable. Lookups go by id, class,
// or scan the state and other attribute buckets.
//
// A Map is built by a single writer and must not be modified while it is
// being read. Once built, any number of readers may use it concurrently.
type Map struct {
	log   *zap.Logger
	alloc fallible.Allocator

	classToSelector                  *selectormap.NameMap[Dependency]
	idToSelector                     *selectormap.NameMap[Dependency]
	stateAffectingSelectors          *selectormap.SelectorMap[StateDependency]
	documentStateSelectors           []DocumentStateDependency
	otherAttributeAffectingSelectors *selectormap.SelectorMap[Dependency]
	flags                            Flags
}

// WithAllocator charges all growth of the map to a.
func WithAllocator(a fallible.Allocator) func(*Map) {
	return func(m *Map) {
		m.alloc = a
	}
}

// New creates an empty Map.
func New(log *zap.Logger, options ...func(*Map)) *Map {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Map{log: log.Named("invalidation-map"), alloc: fallible.Unlimited}
	for _, o := range options {
		o(m)
	}
	m.classToSelector = selectormap.NewNameMap[Dependency](m.alloc)
	m.idToSelector = selectormap.NewNameMap[Dependency](m.alloc)
	m.stateAffectingSelectors = selectormap.New[StateDependency](m.alloc)
	m.otherAttributeAffectingSelectors = selectormap.New[Dependency](m.alloc)
	return m
}

// Len returns the number of dependencies stored in the map.
func (m *Map) Len() int {
	return m.stateAffectingSelectors.Len() +
		len(m.documentStateSelectors) +
		m.otherAttributeAffectingSelectors.Len() +
		m.idToSelector.Entries() +
		m.classToSelector.Entries()
}

// Flags returns which special attribute selectors were seen.
func (m *Map) Flags() Flags {
	return m.flags
}

// Clear empties the map.
func (m *Map) Clear() {
	m.classToSelector.Clear()
	m.idToSelector.Clear()
	m.stateAffectingSelectors.Clear()
	m.documentStateSelectors = nil
	m.otherAttributeAffectingSelectors.Clear()
	m.flags = 0
	m.alloc.Reset()
}

// NoteSelector adds the dependencies of a selector to the map.
//
// On allocation failure it stops right away. Whatever was added before the
// failure stays, so the map has to be thrown away and rebuilt.
func (m *Map) NoteSelector(sel *selectors.Selector, quirks common.QuirksMode) error {
	m.log.Debug("Noting selector", zap.Stringer("selector", sel))

	var (
		it            = sel.Iter()
		index         int
		documentState dom.DocumentState
	)
	for {
		sequenceStart := index

		collector := compoundCollector{
			documentState: &documentState,
			flags:         &m.flags,
		}

		// Combinators can not be nested inside simple selectors (:not() only
		// takes compounds), so visiting the compound is enough.
		for ss := range it.Compound() {
			ss.Visit(&collector)
			index++
		}

		dep := Dependency{Selector: sel, Offset: sequenceStart}

		for _, class := range collector.classes {
			if err := m.classToSelector.TryPush(class, quirks, dep); err != nil {
				return m.failed(sel, err)
			}
		}

		for _, id := range collector.ids {
			if err := m.idToSelector.TryPush(id, quirks, dep); err != nil {
				return m.failed(sel, err)
			}
		}

		if !collector.state.IsEmpty() {
			if err := m.stateAffectingSelectors.Insert(StateDependency{Dependency: dep, State: collector.state}, quirks); err != nil {
				return m.failed(sel, err)
			}
		}

		if collector.otherAttributes {
			if err := m.otherAttributeAffectingSelectors.Insert(dep, quirks); err != nil {
				return m.failed(sel, err)
			}
		}

		if _, ok := it.NextSequence(); !ok {
			break
		}
		index++ // the combinator
	}

	if !documentState.IsEmpty() {
		list, err := fallible.TryPush(m.alloc, m.documentStateSelectors, DocumentStateDependency{
			Selector: sel,
			State:    documentState,
		})
		if err != nil {
			return m.failed(sel, err)
		}
		m.documentStateSelectors = list
	}
	return nil
}

func (m *Map) failed(sel *selectors.Selector, err error) error {
	m.log.Warn("Unable to note selector", zap.Stringer("selector", sel), zap.Error(err))
	return fmt.Errorf("unable to note selector %q: %w", sel.String(), err)
}

// ClassDependencies returns the dependencies on a class name.
func (m *Map) ClassDependencies(name string, quirks common.QuirksMode) []Dependency {
	return m.classToSelector.Get(name, quirks)
}

// IDDependencies returns the dependencies on an id.
func (m *Map) IDDependencies(name string, quirks common.QuirksMode) []Dependency {
	return m.idToSelector.Get(name, quirks)
}

// StateDependencies yields the state dependencies that may apply to an
// element with the given features and that depend on any of the changed
// states.
func (m *Map) StateDependencies(changed dom.ElementState, f selectormap.Features, quirks common.QuirksMode) iter.Seq[StateDependency] {
	return func(yield func(StateDependency) bool) {
		for dep := range m.stateAffectingSelectors.Lookup(f, quirks) {
			if dep.State.Intersects(changed) && !yield(dep) {
				return
			}
		}
	}
}

// DocumentStateDependencies yields the selectors depending on any of the
// changed document states.
func (m *Map) DocumentStateDependencies(changed dom.DocumentState) iter.Seq[DocumentStateDependency] {
	return func(yield func(DocumentStateDependency) bool) {
		for _, dep := range m.documentStateSelectors {
			if dep.State.Intersects(changed) && !yield(dep) {
				return
			}
		}
	}
}

// OtherAttributeDependencies yields the attribute dependencies that may
// apply to an element with the given features.
func (m *Map) OtherAttributeDependencies(f selectormap.Features, quirks common.QuirksMode) iter.Seq[Dependency] {
	return m.otherAttributeAffectingSelectors.Lookup(f, quirks)
}
