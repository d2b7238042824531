package selectors

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"cssinv/dom"
)

// ParseError describes why selector text could not be parsed.
type ParseError struct {
	Input  string
	Pos    int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid selector %q at offset %d: %s", e.Input, e.Pos, e.Reason)
}

// Options controls selector parsing.
type Options struct {
	// Namespaces maps declared prefixes (@namespace) to namespace URLs.
	Namespaces map[string]dom.Namespace
}

// WithNamespaces makes prefixes usable in type and attribute selectors.
func WithNamespaces(ns map[string]dom.Namespace) func(*Options) {
	return func(o *Options) {
		o.Namespaces = ns
	}
}

type token struct {
	tt   css.TokenType
	data string
	pos  int
}

type parser struct {
	input string
	toks  []token
	i     int
	opts  *Options
}

// Parse parses a single complex selector.
func Parse(text string, options ...func(*Options)) (*Selector, error) {
	list, err := ParseList(text, options...)
	if err != nil {
		return nil, err
	}
	if len(list) != 1 {
		return nil, &ParseError{Input: text, Reason: fmt.Sprintf("expected a single selector, got %d", len(list))}
	}
	return list[0], nil
}

// ParseList parses a comma separated selector list.
func ParseList(text string, options ...func(*Options)) ([]*Selector, error) {
	opts := &Options{}
	for _, o := range options {
		o(opts)
	}
	toks, err := tokenize(text)
	if err != nil {
		return nil, &ParseError{Input: text, Reason: err.Error()}
	}
	p := &parser{input: text, toks: toks, opts: opts}
	return p.parseList()
}

func tokenize(text string) ([]token, error) {
	l := css.NewLexer(parse.NewInputString(text))
	var (
		toks []token
		pos  int
	)
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return toks, nil
		}
		if tt != css.CommentToken {
			toks = append(toks, token{tt: tt, data: string(data), pos: pos})
		}
		pos += len(data)
	}
}

func (p *parser) errorf(format string, args ...any) error {
	pos := len(p.input)
	if p.i < len(p.toks) {
		pos = p.toks[p.i].pos
	}
	return &ParseError{Input: p.input, Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) peekAt(n int) token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return token{tt: css.ErrorToken}
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) atEnd() bool {
	return p.i >= len(p.toks)
}

func (p *parser) skipWS() bool {
	skipped := false
	for p.i < len(p.toks) && p.toks[p.i].tt == css.WhitespaceToken {
		p.i++
		skipped = true
	}
	return skipped
}

func isDelim(t token, d string) bool {
	return t.tt == css.DelimToken && t.data == d
}

func (p *parser) parseList() ([]*Selector, error) {
	var list []*Selector
	for {
		sel, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		list = append(list, sel)
		p.skipWS()
		if p.atEnd() {
			return list, nil
		}
		if p.peek().tt != css.CommaToken {
			return nil, p.errorf("unexpected %q", p.peek().data)
		}
		p.i++
	}
}

func (p *parser) parseComplex() (*Selector, error) {
	var b Builder
	p.skipWS()
	for {
		pseudo, err := p.parseCompound(&b, false)
		if err != nil {
			return nil, err
		}
		ws := p.skipWS()
		t := p.peek()
		if p.atEnd() || t.tt == css.CommaToken {
			return b.Build(), nil
		}

		comb := CombinatorDescendant
		switch {
		case isDelim(t, ">"):
			comb = CombinatorChild
		case isDelim(t, "+"):
			comb = CombinatorNextSibling
		case isDelim(t, "~"):
			comb = CombinatorLaterSibling
		case !ws:
			return nil, p.errorf("unexpected %q", t.data)
		}
		if pseudo {
			return nil, p.errorf("combinator after pseudo-element")
		}
		if comb != CombinatorDescendant {
			p.i++
			p.skipWS()
		}
		b.PushCombinator(comb)
	}
}

// parseCompound parses one compound selector into b. Pseudo-elements split
// the compound with an implicit combinator. It reports whether a
// pseudo-element was seen.
func (p *parser) parseCompound(b *Builder, nested bool) (bool, error) {
	empty := true
	ok, err := p.parseTypeSelector(b)
	if err != nil {
		return false, err
	}
	if ok {
		empty = false
	}

	var (
		pseudo     bool
		lastPseudo Kind
	)
loop:
	for {
		t := p.peek()
		switch {
		case t.tt == css.HashToken:
			if pseudo {
				return false, p.errorf("id selector after pseudo-element")
			}
			b.PushSimple(Component{Kind: KindID, Name: t.data[1:]})
			p.i++
		case isDelim(t, "."):
			if pseudo {
				return false, p.errorf("class selector after pseudo-element")
			}
			name := p.peekAt(1)
			if name.tt != css.IdentToken {
				return false, p.errorf("expected class name")
			}
			b.PushSimple(Component{Kind: KindClass, Name: name.data})
			p.i += 2
		case t.tt == css.LeftBracketToken:
			if pseudo {
				return false, p.errorf("attribute selector after pseudo-element")
			}
			p.i++
			c, err := p.parseAttribute()
			if err != nil {
				return false, err
			}
			b.PushSimple(c)
		case t.tt == css.ColonToken && p.peekAt(1).tt == css.ColonToken:
			p.i += 2
			c, comb, err := p.parsePseudoElement(nested)
			if err != nil {
				return false, err
			}
			if pseudo && lastPseudo != KindSlotted && lastPseudo != KindPart {
				return false, p.errorf("pseudo-element after pseudo-element")
			}
			if b.HasCurrent() {
				b.PushCombinator(comb)
			}
			b.PushSimple(c)
			pseudo, lastPseudo = true, c.Kind
		case t.tt == css.ColonToken:
			p.i++
			c, legacy, err := p.parsePseudoClass(nested)
			if err != nil {
				return false, err
			}
			if legacy {
				if pseudo {
					return false, p.errorf("pseudo-element after pseudo-element")
				}
				if b.HasCurrent() {
					b.PushCombinator(CombinatorPseudoElement)
				}
				b.PushSimple(c)
				pseudo, lastPseudo = true, c.Kind
				break
			}
			if pseudo && c.Kind != KindNonTSPseudoClass {
				return false, p.errorf("structural pseudo-class after pseudo-element")
			}
			b.PushSimple(c)
		default:
			break loop
		}
		empty = false
	}
	if empty {
		if p.atEnd() {
			return false, p.errorf("expected selector")
		}
		return false, p.errorf("unexpected %q", p.peek().data)
	}
	return pseudo, nil
}

func (p *parser) resolvePrefix(prefix string) (dom.Namespace, error) {
	if ns, ok := p.opts.Namespaces[prefix]; ok {
		return ns, nil
	}
	return "", p.errorf("undeclared namespace prefix %q", prefix)
}

func (p *parser) parseTypeSelector(b *Builder) (bool, error) {
	t0, t1, t2 := p.peek(), p.peekAt(1), p.peekAt(2)
	nameAfterBar := t2.tt == css.IdentToken || isDelim(t2, "*")

	switch {
	case isDelim(t0, "*") && isDelim(t1, "|") && nameAfterBar:
		// any namespace, nothing to constrain
		p.i += 2
	case isDelim(t0, "|") && (t1.tt == css.IdentToken || isDelim(t1, "*")):
		b.PushSimple(Component{Kind: KindNamespace, Namespace: dom.NamespaceNone})
		p.i++
	case t0.tt == css.IdentToken && isDelim(t1, "|") && nameAfterBar:
		ns, err := p.resolvePrefix(t0.data)
		if err != nil {
			return false, err
		}
		b.PushSimple(Component{Kind: KindNamespace, Name: t0.data, Namespace: ns})
		p.i += 2
	}

	t := p.peek()
	switch {
	case t.tt == css.IdentToken:
		b.PushSimple(Component{Kind: KindLocalName, Name: t.data, LowerName: strings.ToLower(t.data)})
		p.i++
		return true, nil
	case isDelim(t, "*"):
		b.PushSimple(Component{Kind: KindExplicitUniversalType})
		p.i++
		return true, nil
	}
	return b.HasCurrent(), nil
}

func (p *parser) parseAttribute() (Component, error) {
	p.skipWS()
	attr := &AttrSelector{}
	t0, t1, t2 := p.peek(), p.peekAt(1), p.peekAt(2)
	switch {
	case isDelim(t0, "*") && isDelim(t1, "|"):
		attr.Namespace.Any = true
		p.i += 2
	case isDelim(t0, "|") && t1.tt == css.IdentToken:
		attr.hasPrefix = true
		p.i++
	case t0.tt == css.IdentToken && isDelim(t1, "|") && t2.tt == css.IdentToken:
		ns, err := p.resolvePrefix(t0.data)
		if err != nil {
			return Component{}, err
		}
		attr.hasPrefix = true
		attr.Namespace = NamespaceConstraint{URL: ns, Prefix: t0.data}
		p.i += 2
	}

	name := p.peek()
	if name.tt != css.IdentToken {
		return Component{}, p.errorf("expected attribute name")
	}
	attr.Name, attr.LowerName = name.data, strings.ToLower(name.data)
	p.i++
	p.skipWS()

	t := p.peek()
	switch {
	case t.tt == css.RightBracketToken:
	case isDelim(t, "="):
		attr.Operator = AttrOpEqual
	case t.tt == css.IncludeMatchToken:
		attr.Operator = AttrOpIncludes
	case t.tt == css.DashMatchToken:
		attr.Operator = AttrOpDashMatch
	case t.tt == css.PrefixMatchToken:
		attr.Operator = AttrOpPrefix
	case t.tt == css.SuffixMatchToken:
		attr.Operator = AttrOpSuffix
	case t.tt == css.SubstringMatchToken:
		attr.Operator = AttrOpSubstring
	default:
		return Component{}, p.errorf("unexpected %q in attribute selector", t.data)
	}

	if attr.Operator != AttrOpExists {
		p.i++
		p.skipWS()
		v := p.peek()
		switch v.tt {
		case css.IdentToken:
			attr.Value = v.data
		case css.StringToken:
			attr.Value = unquote(v.data)
		default:
			return Component{}, p.errorf("expected attribute value")
		}
		p.i++
		p.skipWS()
		if f := p.peek(); f.tt == css.IdentToken {
			switch strings.ToLower(f.data) {
			case "i":
				attr.Case = AttrCaseInsensitive
			case "s":
				attr.Case = AttrCaseSensitive
			default:
				return Component{}, p.errorf("unknown attribute flag %q", f.data)
			}
			p.i++
			p.skipWS()
		}
	}

	if p.peek().tt != css.RightBracketToken {
		return Component{}, p.errorf("expected ']'")
	}
	p.i++

	kind := KindAttribute
	switch {
	case attr.Namespace.Any || !attr.Namespace.URL.IsEmpty():
		kind = KindAttributeOther
	case attr.Operator == AttrOpExists:
		kind = KindAttributeExists
	}
	return Component{Kind: kind, Attr: attr}, nil
}

var legacyPseudoElements = map[string]bool{
	"before":       true,
	"after":        true,
	"first-line":   true,
	"first-letter": true,
}

var structuralPseudoClasses = map[string]Kind{
	"root":          KindRoot,
	"empty":         KindEmpty,
	"scope":         KindScope,
	"first-child":   KindFirstChild,
	"last-child":    KindLastChild,
	"only-child":    KindOnlyChild,
	"first-of-type": KindFirstOfType,
	"last-of-type":  KindLastOfType,
	"only-of-type":  KindOnlyOfType,
}

var nthPseudoClasses = map[string]Kind{
	"nth-child":        KindNthChild,
	"nth-last-child":   KindNthLastChild,
	"nth-of-type":      KindNthOfType,
	"nth-last-of-type": KindNthLastOfType,
}

// parsePseudoClass parses what follows a single colon. The second result is
// true for the legacy single colon pseudo-elements.
func (p *parser) parsePseudoClass(nested bool) (Component, bool, error) {
	t := p.peek()
	switch t.tt {
	case css.IdentToken:
		name := strings.ToLower(t.data)
		p.i++
		if legacyPseudoElements[name] {
			if nested {
				return Component{}, false, p.errorf("pseudo-element inside functional pseudo-class")
			}
			return Component{Kind: KindPseudoElement, Name: name}, true, nil
		}
		if kind, ok := structuralPseudoClasses[name]; ok {
			return Component{Kind: kind}, false, nil
		}
		if name == "host" {
			return Component{Kind: KindHost}, false, nil
		}
		kind, info, ok := lookupPseudoClass(name)
		if !ok || info.functional {
			return Component{}, false, p.errorf("unsupported pseudo-class :%s", name)
		}
		return Component{Kind: KindNonTSPseudoClass, PseudoClass: &NonTSPseudoClass{Kind: kind}}, false, nil

	case css.FunctionToken:
		name := strings.ToLower(strings.TrimSuffix(t.data, "("))
		p.i++
		args, err := p.functionArgs()
		if err != nil {
			return Component{}, false, err
		}
		sub := &parser{input: p.input, toks: args, opts: p.opts}

		if kind, ok := nthPseudoClasses[name]; ok {
			nth, err := sub.parseNth()
			if err != nil {
				return Component{}, false, err
			}
			return Component{Kind: kind, Nth: nth}, false, nil
		}
		switch name {
		case "not":
			list, err := sub.parseCompoundList()
			if err != nil {
				return Component{}, false, err
			}
			return Component{Kind: KindNegation, List: list}, false, nil
		case "host":
			list, err := sub.parseCompoundList()
			if err != nil {
				return Component{}, false, err
			}
			if len(list) != 1 {
				return Component{}, false, sub.errorf(":host() takes a single compound selector")
			}
			return Component{Kind: KindHost, Inner: list[0]}, false, nil
		case "lang":
			sub.skipWS()
			arg := sub.peek()
			var lang string
			switch arg.tt {
			case css.IdentToken:
				lang = arg.data
			case css.StringToken:
				lang = unquote(arg.data)
			default:
				return Component{}, false, sub.errorf("expected language")
			}
			return Component{Kind: KindNonTSPseudoClass, PseudoClass: &NonTSPseudoClass{Kind: PseudoClassLang, Lang: lang}}, false, nil
		case "dir", "-moz-locale-dir":
			dir, err := sub.parseDirection()
			if err != nil {
				return Component{}, false, err
			}
			kind := PseudoClassDir
			if name != "dir" {
				kind = PseudoClassLocaleDir
			}
			return Component{Kind: KindNonTSPseudoClass, PseudoClass: &NonTSPseudoClass{Kind: kind, Dir: dir}}, false, nil
		}
		return Component{}, false, p.errorf("unsupported pseudo-class :%s()", name)
	}
	return Component{}, false, p.errorf("expected pseudo-class name")
}

func (p *parser) parsePseudoElement(nested bool) (Component, Combinator, error) {
	if nested {
		return Component{}, 0, p.errorf("pseudo-element inside functional pseudo-class")
	}
	t := p.peek()
	switch t.tt {
	case css.IdentToken:
		p.i++
		return Component{Kind: KindPseudoElement, Name: strings.ToLower(t.data)}, CombinatorPseudoElement, nil
	case css.FunctionToken:
		name := strings.ToLower(strings.TrimSuffix(t.data, "("))
		p.i++
		args, err := p.functionArgs()
		if err != nil {
			return Component{}, 0, err
		}
		sub := &parser{input: p.input, toks: args, opts: p.opts}
		switch name {
		case "slotted":
			list, err := sub.parseCompoundList()
			if err != nil {
				return Component{}, 0, err
			}
			if len(list) != 1 {
				return Component{}, 0, sub.errorf("::slotted() takes a single compound selector")
			}
			return Component{Kind: KindSlotted, Inner: list[0]}, CombinatorSlotAssignment, nil
		case "part":
			var names []string
			for {
				sub.skipWS()
				if sub.atEnd() {
					break
				}
				if sub.peek().tt != css.IdentToken {
					return Component{}, 0, sub.errorf("expected part name")
				}
				names = append(names, sub.peek().data)
				sub.i++
			}
			if len(names) == 0 {
				return Component{}, 0, sub.errorf("expected part name")
			}
			return Component{Kind: KindPart, Parts: names}, CombinatorPart, nil
		}
		return Component{}, 0, p.errorf("unsupported pseudo-element ::%s()", name)
	}
	return Component{}, 0, p.errorf("expected pseudo-element name")
}

// functionArgs returns the tokens up to the parenthesis closing the function
// that was just consumed.
func (p *parser) functionArgs() ([]token, error) {
	start, depth := p.i, 1
	for ; p.i < len(p.toks); p.i++ {
		switch p.toks[p.i].tt {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				args := p.toks[start:p.i]
				p.i++
				return args, nil
			}
		}
	}
	return nil, p.errorf("unclosed parenthesis")
}

// parseCompoundList parses comma separated compound selectors, as accepted
// by :not(), :host() and ::slotted().
func (p *parser) parseCompoundList() ([][]Component, error) {
	var list [][]Component
	for {
		p.skipWS()
		var b Builder
		if _, err := p.parseCompound(&b, true); err != nil {
			return nil, err
		}
		if len(b.compounds) > 0 {
			return nil, p.errorf("combinators are not allowed here")
		}
		list = append(list, b.current)
		p.skipWS()
		if p.atEnd() {
			return list, nil
		}
		if p.peek().tt != css.CommaToken {
			return nil, p.errorf("combinators are not allowed here")
		}
		p.i++
	}
}

func (p *parser) parseNth() (NthData, error) {
	var sb strings.Builder
	for _, t := range p.toks {
		if t.tt != css.WhitespaceToken {
			sb.WriteString(t.data)
		}
	}
	s := strings.ToLower(sb.String())
	switch s {
	case "odd":
		return NthData{A: 2, B: 1}, nil
	case "even":
		return NthData{A: 2, B: 0}, nil
	}

	idx := strings.IndexByte(s, 'n')
	if idx < 0 {
		b, err := strconv.Atoi(s)
		if err != nil {
			return NthData{}, p.errorf("invalid An+B expression %q", s)
		}
		return NthData{B: b}, nil
	}

	var (
		nth NthData
		err error
	)
	switch a := s[:idx]; a {
	case "", "+":
		nth.A = 1
	case "-":
		nth.A = -1
	default:
		if nth.A, err = strconv.Atoi(a); err != nil {
			return NthData{}, p.errorf("invalid An+B expression %q", s)
		}
	}
	if rest := s[idx+1:]; rest != "" {
		if nth.B, err = strconv.Atoi(rest); err != nil {
			return NthData{}, p.errorf("invalid An+B expression %q", s)
		}
	}
	return nth, nil
}

func (p *parser) parseDirection() (Direction, error) {
	p.skipWS()
	t := p.peek()
	if t.tt == css.IdentToken {
		switch strings.ToLower(t.data) {
		case "ltr":
			return DirectionLTR, nil
		case "rtl":
			return DirectionRTL, nil
		}
	}
	return 0, p.errorf("expected ltr or rtl")
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
