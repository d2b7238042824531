// Package selectors models parsed CSS complex selectors.
//
// A Selector keeps its components in matching order: the rightmost compound
// selector comes first, followed by the combinator to its left, then the next
// compound, and so on. Every simple selector and every combinator occupies
// one position, so an offset into a Selector identifies where a compound
// starts without building a new selector.
package selectors

import (
	"iter"
	"strconv"
	"strings"
)

// Specificity is the CSS specificity (A, B, C).
type Specificity [3]uint16

func (s Specificity) less(other Specificity) bool {
	for i := range s {
		if s[i] < other[i] {
			return true
		}
		if s[i] > other[i] {
			return false
		}
	}
	return false
}

func (s Specificity) add(other Specificity) Specificity {
	for i, sp := range other {
		s[i] += sp
	}
	return s
}

// Selector is an immutable complex selector. It is shared by pointer and
// must not be modified once built.
type Selector struct {
	components  []Component
	specificity Specificity
}

// Len returns the number of positions (simple selectors and combinators).
func (s *Selector) Len() int {
	return len(s.components)
}

// Specificity returns the specificity of the selector.
func (s *Selector) Specificity() Specificity {
	return s.specificity
}

// ComponentAt returns the component at a matching order position.
func (s *Selector) ComponentAt(i int) *Component {
	return &s.components[i]
}

// CombinatorAtMatchOrder returns the combinator at a matching order
// position. It panics if the position holds a simple selector.
func (s *Selector) CombinatorAtMatchOrder(i int) Combinator {
	c := &s.components[i]
	if c.Kind != KindCombinator {
		panic("selectors: position " + strconv.Itoa(i) + " of " + s.String() + " is not a combinator")
	}
	return c.Combinator
}

// HasPseudoElement reports whether the selector targets a pseudo-element.
func (s *Selector) HasPseudoElement() bool {
	for i := range s.components {
		if s.components[i].Kind == KindCombinator {
			return false
		}
		if s.components[i].Kind == KindPseudoElement {
			return true
		}
	}
	return false
}

// Iter returns an iterator positioned at the rightmost compound.
func (s *Selector) Iter() *Iter {
	return &Iter{components: s.components}
}

// IterFrom returns an iterator positioned at offset, which must be the
// start of a compound.
func (s *Selector) IterFrom(offset int) *Iter {
	return &Iter{components: s.components, pos: offset}
}

// Visit runs v over every component in matching order.
func (s *Selector) Visit(v Visitor) bool {
	for i := range s.components {
		if s.components[i].Kind == KindCombinator {
			continue
		}
		if !s.components[i].Visit(v) {
			return false
		}
	}
	return true
}

// String serializes the selector in source order.
func (s *Selector) String() string {
	var sb strings.Builder
	// Walk compounds right to left and emit them left to right.
	var (
		compounds [][]Component
		combs     []Combinator
		start     int
	)
	for i := range s.components {
		if s.components[i].Kind == KindCombinator {
			compounds = append(compounds, s.components[start:i])
			combs = append(combs, s.components[i].Combinator)
			start = i + 1
		}
	}
	compounds = append(compounds, s.components[start:])
	for i := len(compounds) - 1; i >= 0; i-- {
		writeCompound(&sb, compounds[i])
		if i > 0 {
			sb.WriteString(combs[i-1].source())
		}
	}
	return sb.String()
}

// Iter walks a selector one compound at a time in matching order.
type Iter struct {
	components []Component
	pos        int
}

// Next returns the next simple selector of the current compound, or false
// when the compound is exhausted.
func (it *Iter) Next() (*Component, bool) {
	if it.pos >= len(it.components) || it.components[it.pos].Kind == KindCombinator {
		return nil, false
	}
	c := &it.components[it.pos]
	it.pos++
	return c, true
}

// Compound yields the remaining simple selectors of the current compound.
func (it *Iter) Compound() iter.Seq[*Component] {
	return func(yield func(*Component) bool) {
		for {
			c, ok := it.Next()
			if !ok || !yield(c) {
				return
			}
		}
	}
}

// NextSequence skips what is left of the current compound and moves past
// the combinator that follows it. It returns false when there are no more
// compounds.
func (it *Iter) NextSequence() (Combinator, bool) {
	for it.pos < len(it.components) && it.components[it.pos].Kind != KindCombinator {
		it.pos++
	}
	if it.pos >= len(it.components) {
		return 0, false
	}
	c := it.components[it.pos].Combinator
	it.pos++
	return c, true
}

// Builder assembles a Selector from compounds given in source order.
type Builder struct {
	compounds [][]Component
	combs     []Combinator
	current   []Component
}

// PushSimple appends a simple selector to the current compound.
func (b *Builder) PushSimple(c Component) {
	b.current = append(b.current, c)
}

// PushCombinator closes the current compound.
func (b *Builder) PushCombinator(c Combinator) {
	b.compounds = append(b.compounds, b.current)
	b.combs = append(b.combs, c)
	b.current = nil
}

// HasCurrent reports whether the current compound holds any simple selector.
func (b *Builder) HasCurrent() bool {
	return len(b.current) > 0
}

// Build returns the selector and resets the builder.
func (b *Builder) Build() *Selector {
	compounds := append(b.compounds, b.current)
	size := len(b.combs)
	for _, c := range compounds {
		size += len(c)
	}
	sel := &Selector{components: make([]Component, 0, size)}
	for i := len(compounds) - 1; i >= 0; i-- {
		sel.components = append(sel.components, compounds[i]...)
		sel.specificity = sel.specificity.add(compoundSpecificity(compounds[i]))
		if i > 0 {
			sel.components = append(sel.components, Component{Kind: KindCombinator, Combinator: b.combs[i-1]})
		}
	}
	*b = Builder{}
	return sel
}
