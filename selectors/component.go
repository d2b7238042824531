package selectors

import (
	"strconv"
	"strings"

	"cssinv/dom"
)

// Kind is the variant tag of a Component.
type Kind uint8

const (
	KindCombinator Kind = iota
	KindExplicitUniversalType
	KindLocalName
	KindNamespace
	KindID
	KindClass
	KindAttributeExists
	KindAttribute
	KindAttributeOther
	KindNonTSPseudoClass
	KindNegation
	KindRoot
	KindEmpty
	KindScope
	KindFirstChild
	KindLastChild
	KindOnlyChild
	KindFirstOfType
	KindLastOfType
	KindOnlyOfType
	KindNthChild
	KindNthLastChild
	KindNthOfType
	KindNthLastOfType
	KindHost
	KindSlotted
	KindPart
	KindPseudoElement
)

// AttrOperator is the matching operator of an attribute selector.
type AttrOperator uint8

const (
	AttrOpExists AttrOperator = iota
	AttrOpEqual
	AttrOpIncludes
	AttrOpDashMatch
	AttrOpPrefix
	AttrOpSuffix
	AttrOpSubstring
)

var attrOperatorText = [...]string{"", "=", "~=", "|=", "^=", "$=", "*="}

// AttrCase is the case sensitivity flag of an attribute selector value.
type AttrCase uint8

const (
	AttrCaseDefault AttrCase = iota
	AttrCaseInsensitive
	AttrCaseSensitive
)

// NamespaceConstraint restricts the namespace an attribute may be in.
type NamespaceConstraint struct {
	// Any is set for "*|attr".
	Any bool
	// URL is the required namespace when Any is false. Empty means the
	// attribute must be in no namespace.
	URL dom.Namespace
	// Prefix is the prefix as written, kept for serialization.
	Prefix string
}

// MayMatchNoNamespace reports whether an attribute without a namespace may
// satisfy the constraint.
func (nc NamespaceConstraint) MayMatchNoNamespace() bool {
	return nc.Any || nc.URL.IsEmpty()
}

// AttrSelector is the payload of the attribute component kinds.
type AttrSelector struct {
	Namespace NamespaceConstraint
	// explicit prefix was written, "|attr" or "ns|attr"
	hasPrefix bool
	Name      string
	LowerName string
	Operator  AttrOperator
	Value     string
	Case      AttrCase
}

// NthData is the An+B argument of the nth-* pseudo-classes.
type NthData struct {
	A, B int
}

func (n NthData) String() string {
	switch {
	case n.A == 2 && n.B == 1:
		return "odd"
	case n.A == 2 && n.B == 0:
		return "even"
	case n.A == 0:
		return strconv.Itoa(n.B)
	}
	var sb strings.Builder
	switch n.A {
	case 1:
	case -1:
		sb.WriteByte('-')
	default:
		sb.WriteString(strconv.Itoa(n.A))
	}
	sb.WriteByte('n')
	if n.B > 0 {
		sb.WriteByte('+')
		sb.WriteString(strconv.Itoa(n.B))
	} else if n.B < 0 {
		sb.WriteString(strconv.Itoa(n.B))
	}
	return sb.String()
}

// Component is one simple selector or combinator. Which payload fields are
// meaningful depends on Kind.
type Component struct {
	Kind Kind

	// KindCombinator
	Combinator Combinator
	// KindLocalName, KindID, KindClass, KindPseudoElement, KindNamespace (prefix)
	Name string
	// KindLocalName
	LowerName string
	// KindNamespace
	Namespace dom.Namespace
	// KindAttribute*
	Attr *AttrSelector
	// KindNonTSPseudoClass
	PseudoClass *NonTSPseudoClass
	// KindNth*
	Nth NthData
	// KindNegation: list of compound selectors
	List [][]Component
	// KindHost (optional), KindSlotted: a single compound selector
	Inner []Component
	// KindPart
	Parts []string
}

// IsCombinator reports whether c separates two compound selectors.
func (c *Component) IsCombinator() bool {
	return c.Kind == KindCombinator
}

// Visitor receives callbacks for every simple selector of a selector,
// including the ones nested in :not(), :host() and ::slotted(). Returning
// false stops the traversal.
type Visitor interface {
	VisitSimpleSelector(c *Component) bool
	VisitAttributeSelector(ns NamespaceConstraint, localName, localNameLower string) bool
}

// Visit runs v over c and the components nested in it.
func (c *Component) Visit(v Visitor) bool {
	if !v.VisitSimpleSelector(c) {
		return false
	}
	switch c.Kind {
	case KindAttributeExists, KindAttribute, KindAttributeOther:
		if !v.VisitAttributeSelector(c.Attr.Namespace, c.Attr.Name, c.Attr.LowerName) {
			return false
		}
	case KindNegation:
		for _, compound := range c.List {
			for i := range compound {
				if !compound[i].Visit(v) {
					return false
				}
			}
		}
	case KindHost, KindSlotted:
		for i := range c.Inner {
			if !c.Inner[i].Visit(v) {
				return false
			}
		}
	}
	return true
}

func (c *Component) specificity() Specificity {
	switch c.Kind {
	case KindID:
		return Specificity{1, 0, 0}
	case KindClass, KindAttributeExists, KindAttribute, KindAttributeOther,
		KindNonTSPseudoClass, KindRoot, KindEmpty, KindScope,
		KindFirstChild, KindLastChild, KindOnlyChild,
		KindFirstOfType, KindLastOfType, KindOnlyOfType,
		KindNthChild, KindNthLastChild, KindNthOfType, KindNthLastOfType:
		return Specificity{0, 1, 0}
	case KindLocalName, KindPseudoElement, KindPart:
		return Specificity{0, 0, 1}
	case KindNegation:
		var out Specificity
		for _, compound := range c.List {
			if s := compoundSpecificity(compound); out.less(s) {
				out = s
			}
		}
		return out
	case KindHost:
		return Specificity{0, 1, 0}.add(compoundSpecificity(c.Inner))
	case KindSlotted:
		return Specificity{0, 0, 1}.add(compoundSpecificity(c.Inner))
	default:
		return Specificity{}
	}
}

func compoundSpecificity(compound []Component) Specificity {
	var out Specificity
	for i := range compound {
		out = out.add(compound[i].specificity())
	}
	return out
}

// writeTo serializes a simple selector. Combinators are written by the
// selector since their text depends on neighbours.
func (c *Component) writeTo(sb *strings.Builder) {
	switch c.Kind {
	case KindExplicitUniversalType:
		sb.WriteByte('*')
	case KindLocalName:
		sb.WriteString(c.Name)
	case KindNamespace:
		sb.WriteString(c.Name)
		sb.WriteByte('|')
	case KindID:
		sb.WriteByte('#')
		sb.WriteString(c.Name)
	case KindClass:
		sb.WriteByte('.')
		sb.WriteString(c.Name)
	case KindAttributeExists, KindAttribute, KindAttributeOther:
		writeAttr(sb, c.Attr)
	case KindNonTSPseudoClass:
		sb.WriteString(c.PseudoClass.String())
	case KindNegation:
		sb.WriteString(":not(")
		for i, compound := range c.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeCompound(sb, compound)
		}
		sb.WriteByte(')')
	case KindRoot:
		sb.WriteString(":root")
	case KindEmpty:
		sb.WriteString(":empty")
	case KindScope:
		sb.WriteString(":scope")
	case KindFirstChild:
		sb.WriteString(":first-child")
	case KindLastChild:
		sb.WriteString(":last-child")
	case KindOnlyChild:
		sb.WriteString(":only-child")
	case KindFirstOfType:
		sb.WriteString(":first-of-type")
	case KindLastOfType:
		sb.WriteString(":last-of-type")
	case KindOnlyOfType:
		sb.WriteString(":only-of-type")
	case KindNthChild:
		sb.WriteString(":nth-child(" + c.Nth.String() + ")")
	case KindNthLastChild:
		sb.WriteString(":nth-last-child(" + c.Nth.String() + ")")
	case KindNthOfType:
		sb.WriteString(":nth-of-type(" + c.Nth.String() + ")")
	case KindNthLastOfType:
		sb.WriteString(":nth-last-of-type(" + c.Nth.String() + ")")
	case KindHost:
		sb.WriteString(":host")
		if len(c.Inner) > 0 {
			sb.WriteByte('(')
			writeCompound(sb, c.Inner)
			sb.WriteByte(')')
		}
	case KindSlotted:
		sb.WriteString("::slotted(")
		writeCompound(sb, c.Inner)
		sb.WriteByte(')')
	case KindPart:
		sb.WriteString("::part(" + strings.Join(c.Parts, " ") + ")")
	case KindPseudoElement:
		sb.WriteString("::")
		sb.WriteString(c.Name)
	}
}

func writeCompound(sb *strings.Builder, compound []Component) {
	for i := range compound {
		compound[i].writeTo(sb)
	}
}

func writeAttr(sb *strings.Builder, a *AttrSelector) {
	sb.WriteByte('[')
	switch {
	case a.Namespace.Any:
		sb.WriteString("*|")
	case a.hasPrefix:
		sb.WriteString(a.Namespace.Prefix)
		sb.WriteByte('|')
	}
	sb.WriteString(a.Name)
	if a.Operator != AttrOpExists {
		sb.WriteString(attrOperatorText[a.Operator])
		sb.WriteString(strconv.Quote(a.Value))
		switch a.Case {
		case AttrCaseInsensitive:
			sb.WriteString(" i")
		case AttrCaseSensitive:
			sb.WriteString(" s")
		}
	}
	sb.WriteByte(']')
}
