package invalidation

import (
	"go.uber.org/zap"

	"cssinv/common"
	"cssinv/dom"
	"cssinv/selectormap"
	"cssinv/selectors"
)

// ElementChange describes what changed on one element. Features are the
// ones the element has after the change.
type ElementChange struct {
	Element selectormap.Features

	ClassesAdded   []string
	ClassesRemoved []string
	OldID          string
	NewID          string
	StateChanged   dom.ElementState
	// OtherAttributesChanged is set when any attribute other than id and
	// class changed.
	OtherAttributesChanged bool
}

// Invalidations are candidate dependencies grouped by how far they reach.
// None of them has been matched yet.
type Invalidations struct {
	byKind [Parts + 1][]Dependency
	// the same fragment can be reached from several buckets
	seen map[fragment]struct{}
}

type fragment struct {
	sel    *selectors.Selector
	offset int
}

// Of returns the candidates of one kind.
func (inv *Invalidations) Of(k Kind) []Dependency {
	return inv.byKind[k]
}

// Len returns the total number of candidates.
func (inv *Invalidations) Len() int {
	n := 0
	for _, deps := range inv.byKind {
		n += len(deps)
	}
	return n
}

// InvalidatesSelf reports whether the changed element has to be restyled.
func (inv *Invalidations) InvalidatesSelf() bool {
	return len(inv.byKind[Element]) > 0 || len(inv.byKind[ElementAndDescendants]) > 0
}

func (inv *Invalidations) add(dep Dependency) {
	key := fragment{dep.Selector, dep.Offset}
	if _, ok := inv.seen[key]; ok {
		return
	}
	if inv.seen == nil {
		inv.seen = make(map[fragment]struct{})
	}
	inv.seen[key] = struct{}{}
	k := dep.InvalidationKind()
	inv.byKind[k] = append(inv.byKind[k], dep)
}

// Collect gathers every dependency that may be affected by the change.
// Removed classes and the old id are looked up too, since a selector that
// matched before the change may stop matching.
func (m *Map) Collect(ch *ElementChange, quirks common.QuirksMode) *Invalidations {
	inv := &Invalidations{}

	for _, class := range ch.ClassesAdded {
		for _, dep := range m.ClassDependencies(class, quirks) {
			inv.add(dep)
		}
	}
	for _, class := range ch.ClassesRemoved {
		for _, dep := range m.ClassDependencies(class, quirks) {
			inv.add(dep)
		}
	}

	if selectormap.Key(ch.OldID, quirks) != selectormap.Key(ch.NewID, quirks) {
		for _, id := range []string{ch.OldID, ch.NewID} {
			if id == "" {
				continue
			}
			for _, dep := range m.IDDependencies(id, quirks) {
				inv.add(dep)
			}
		}
	}

	// state and attribute buckets are keyed on the compound, so the element
	// has to be described as it was before as well as after
	lookup := ch.Element
	lookup.Classes = append(append([]string(nil), ch.Element.Classes...), ch.ClassesRemoved...)
	if lookup.ID == "" {
		lookup.ID = ch.OldID
	}

	if !ch.StateChanged.IsEmpty() {
		for dep := range m.StateDependencies(ch.StateChanged, lookup, quirks) {
			inv.add(dep.Dependency)
		}
		if ch.OldID != "" && ch.OldID != lookup.ID {
			for dep := range m.StateDependencies(ch.StateChanged, selectormap.Features{ID: ch.OldID}, quirks) {
				inv.add(dep.Dependency)
			}
		}
	}

	if ch.OtherAttributesChanged {
		for dep := range m.OtherAttributeDependencies(lookup, quirks) {
			inv.add(dep)
		}
	}

	m.log.Debug("Collected invalidations", zap.Int("candidates", inv.Len()), zap.Bool("self", inv.InvalidatesSelf()))
	return inv
}
