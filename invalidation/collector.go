package invalidation

import (
	"cssinv/dom"
	"cssinv/selectors"
)

// compoundCollector gathers what a single compound selector depends on.
type compoundCollector struct {
	// element state, per compound
	state dom.ElementState
	// document state is global, so it accumulates over the whole selector
	documentState *dom.DocumentState
	// usually one of each, more with :not() or .a.b
	classes []string
	ids     []string
	// set for any attribute selector other than .class and #id, including
	// [class] and [id]
	otherAttributes bool
	flags           *Flags
}

func (c *compoundCollector) VisitSimpleSelector(s *selectors.Component) bool {
	switch s.Kind {
	case selectors.KindID:
		c.ids = append(c.ids, s.Name)
	case selectors.KindClass:
		c.classes = append(c.classes, s.Name)
	case selectors.KindNonTSPseudoClass:
		pc := s.PseudoClass
		c.otherAttributes = c.otherAttributes || pc.IsAttrBased()
		c.state |= pc.StateFlag()
		*c.documentState |= pc.DocumentStateFlag()
	}
	return true
}

func (c *compoundCollector) VisitAttributeSelector(ns selectors.NamespaceConstraint, _, localNameLower string) bool {
	c.otherAttributes = true
	if ns.MayMatchNoNamespace() {
		switch localNameLower {
		case "id":
			*c.flags |= HasIDAttrSelector
		case "class":
			*c.flags |= HasClassAttrSelector
		}
	}
	return true
}
