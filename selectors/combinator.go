package selectors

// Combinator joins two compound selectors.
type Combinator uint8

const (
	// CombinatorChild is ">".
	CombinatorChild Combinator = iota
	// CombinatorDescendant is whitespace.
	CombinatorDescendant
	// CombinatorNextSibling is "+".
	CombinatorNextSibling
	// CombinatorLaterSibling is "~".
	CombinatorLaterSibling
	// CombinatorPseudoElement is the implicit combinator in front of a
	// pseudo-element, as in "div::before".
	CombinatorPseudoElement
	// CombinatorSlotAssignment is the implicit combinator in front of
	// "::slotted()".
	CombinatorSlotAssignment
	// CombinatorPart is the implicit combinator in front of "::part()".
	CombinatorPart
)

func (c Combinator) String() string {
	switch c {
	case CombinatorChild:
		return "child"
	case CombinatorDescendant:
		return "descendant"
	case CombinatorNextSibling:
		return "next-sibling"
	case CombinatorLaterSibling:
		return "later-sibling"
	case CombinatorPseudoElement:
		return "pseudo-element"
	case CombinatorSlotAssignment:
		return "slot-assignment"
	case CombinatorPart:
		return "part"
	default:
		return "unknown"
	}
}

// IsAncestor reports whether the combinator walks up the tree.
func (c Combinator) IsAncestor() bool {
	return c == CombinatorChild || c == CombinatorDescendant ||
		c == CombinatorPseudoElement || c == CombinatorSlotAssignment
}

// IsSibling reports whether the combinator walks to previous siblings.
func (c Combinator) IsSibling() bool {
	return c == CombinatorNextSibling || c == CombinatorLaterSibling
}

// source returns the text the combinator is written as between compounds.
// Implicit combinators have no text.
func (c Combinator) source() string {
	switch c {
	case CombinatorChild:
		return " > "
	case CombinatorDescendant:
		return " "
	case CombinatorNextSibling:
		return " + "
	case CombinatorLaterSibling:
		return " ~ "
	default:
		return ""
	}
}
