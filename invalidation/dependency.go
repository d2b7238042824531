package invalidation

import (
	"cssinv/dom"
	"cssinv/selectors"
)

// Dependency points at a compound selector inside a complex selector. The
// compound starts at Offset, counted in matching order.
//
// For a selector |a _ b _ c _ d _ e| where b and d depend on state or
// attributes, dependencies are produced for the compounds starting at b and
// at d, even though neither suffix is a selector of its own in any
// stylesheet.
type Dependency struct {
	Selector *selectors.Selector
	Offset   int
}

// Kind tells how far down the tree a dependency may have effect.
type Kind int

const (
	// Element means only the element that changed may be affected.
	Element Kind = iota
	// ElementAndDescendants means the element and its descendants, this is
	// what pseudo-elements produce.
	ElementAndDescendants
	// Descendants means descendants of the element that changed.
	Descendants
	// Siblings means later siblings of the element that changed.
	Siblings
	// SlottedElements means elements slotted into the element that changed.
	SlottedElements
	// Parts means shadow parts of the element that changed.
	Parts
)

func (k Kind) String() string {
	switch k {
	case Element:
		return "element"
	case ElementAndDescendants:
		return "element-and-descendants"
	case Descendants:
		return "descendants"
	case Siblings:
		return "siblings"
	case SlottedElements:
		return "slotted-elements"
	case Parts:
		return "parts"
	default:
		return "unknown"
	}
}

// Combinator returns the combinator to the right of the compound this
// dependency represents, or false for the rightmost compound.
func (d Dependency) Combinator() (selectors.Combinator, bool) {
	if d.Offset == 0 {
		return 0, false
	}
	return d.Selector.CombinatorAtMatchOrder(d.Offset - 1), true
}

// InvalidationKind returns the kind of invalidation a change to the
// compound would generate.
func (d Dependency) InvalidationKind() Kind {
	c, ok := d.Combinator()
	if !ok {
		return Element
	}
	switch c {
	case selectors.CombinatorChild, selectors.CombinatorDescendant:
		return Descendants
	case selectors.CombinatorLaterSibling, selectors.CombinatorNextSibling:
		return Siblings
	case selectors.CombinatorPseudoElement:
		return ElementAndDescendants
	case selectors.CombinatorSlotAssignment:
		return SlottedElements
	case selectors.CombinatorPart:
		return Parts
	}
	panic("invalidation: unknown combinator " + c.String())
}

// Iter positions a selector iterator at the compound, which is what the
// selector map indexes on.
func (d Dependency) Iter() *selectors.Iter {
	return d.Selector.IterFrom(d.Offset)
}

// StateDependency is a Dependency that also records which element states
// the compound depends on.
type StateDependency struct {
	Dependency
	State dom.ElementState
}

// DocumentStateDependency records a selector that depends on document
// state. There is no offset: when document state changes it changes for the
// whole document.
type DocumentStateDependency struct {
	Selector *selectors.Selector
	State    dom.DocumentState
}
