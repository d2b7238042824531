package css

import (
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"cssinv/dom"
	"cssinv/selectors"
)

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func cssEscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MediaQuery is a single query of a @media prelude.
type MediaQuery struct {
	Raw      string         // Query as written, normalized whitespace
	Type     string         // Media type, empty when only features are given
	Negated  bool           // "not" in front of the query
	Features []MediaFeature // Parenthesized conditions joined by "and"
}

// MediaFeature is one parenthesized condition of a media query.
type MediaFeature struct {
	Name    string // Feature as written inside parentheses, e.g. "min-width:600px"
	Negated bool
}

// Evaluate reports whether the query applies to medium.
//
// There is no viewport to look at, so every feature is taken to match.
// Style invalidation errs on the side of including rules: a rule that never
// applies only costs extra candidates, a missing one loses restyles.
func (mq MediaQuery) Evaluate(medium string) bool {
	var matches bool
	switch t := strings.ToLower(mq.Type); t {
	case "", "all":
		matches = true
	default:
		matches = strings.EqualFold(t, medium)
	}
	if mq.Negated {
		return !matches
	}
	return matches
}

// MediaQueryList is the comma separated prelude of a @media rule. An empty
// list matches every medium.
type MediaQueryList []MediaQuery

// Evaluate reports whether any query of the list applies to medium.
func (l MediaQueryList) Evaluate(medium string) bool {
	if len(l) == 0 {
		return true
	}
	for _, mq := range l {
		if mq.Evaluate(medium) {
			return true
		}
	}
	return false
}

func (l MediaQueryList) String() string {
	parts := make([]string, 0, len(l))
	for _, mq := range l {
		parts = append(parts, mq.Raw)
	}
	return strings.Join(parts, ", ")
}

// Value is a declaration value. Values are kept as written since nothing
// here computes styles.
type Value struct {
	Raw       string
	Important bool
}

func (v Value) String() string {
	if v.Important {
		return v.Raw + " !important"
	}
	return v.Raw
}

// Rule is a style rule: a selector list and its declarations.
type Rule struct {
	SelectorText string
	Selectors    []*selectors.Selector
	Properties   map[string]Value
}

// GetProperty returns the value for a property, or empty Value if not found.
func (r Rule) GetProperty(name string) (Value, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of Rule, MediaBlock, or Import is non-nil.
type StylesheetItem struct {
	Rule       *Rule
	MediaBlock *MediaBlock
	Import     *Import
}

// Import is an @import rule.
type Import struct {
	URL   string
	Media MediaQueryList
}

// MediaBlock is a @media block with its queries and nested rules.
type MediaBlock struct {
	Queries MediaQueryList
	Rules   []Rule
}

// Stylesheet is a parsed CSS stylesheet.
type Stylesheet struct {
	Charset    string                   // Value of @charset, if present
	Namespaces map[string]dom.Namespace // Prefixes declared with @namespace
	Items      []StylesheetItem         // All top-level items in source order
	Warnings   []string                 // Dropped rules and unsupported constructs
}

// Imports returns all @import rules from the stylesheet in source order.
func (s *Stylesheet) Imports() []Import {
	var imports []Import
	for _, item := range s.Items {
		if item.Import != nil {
			imports = append(imports, *item.Import)
		}
	}
	return imports
}

// RulesBySelector returns all top-level rules whose selector list was
// written as selector.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, item := range s.Items {
		if item.Rule != nil && item.Rule.SelectorText == selector {
			matches = append(matches, *item.Rule)
		}
	}
	return matches
}

// Rules yields the style rules applying to medium in source order,
// descending into @media blocks whose queries match.
func (s *Stylesheet) Rules(medium string) iter.Seq[*Rule] {
	return func(yield func(*Rule) bool) {
		for _, item := range s.Items {
			switch {
			case item.Rule != nil:
				if !yield(item.Rule) {
					return
				}
			case item.MediaBlock != nil:
				if !item.MediaBlock.Queries.Evaluate(medium) {
					continue
				}
				for i := range item.MediaBlock.Rules {
					if !yield(&item.MediaBlock.Rules[i]) {
						return
					}
				}
			}
		}
	}
}

// Selectors yields every selector of the rules applying to medium.
func (s *Stylesheet) Selectors(medium string) iter.Seq[*selectors.Selector] {
	return func(yield func(*selectors.Selector) bool) {
		for rule := range s.Rules(medium) {
			for _, sel := range rule.Selectors {
				if !yield(sel) {
					return
				}
			}
		}
	}
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Property order within a rule is sorted alphabetically for deterministic output.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(n int, err error) error {
		total += int64(n)
		return err
	}

	if s.Charset != "" {
		if err := write(fmt.Fprintf(w, "@charset \"%s\";\n", cssEscapeDoubleQuoted(s.Charset))); err != nil {
			return total, err
		}
	}
	prefixes := make([]string, 0, len(s.Namespaces))
	for prefix := range s.Namespaces {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		if err := write(fmt.Fprintf(w, "@namespace %s url(\"%s\");\n", prefix, cssEscapeDoubleQuoted(string(s.Namespaces[prefix])))); err != nil {
			return total, err
		}
	}

	for i, item := range s.Items {
		var err error
		switch {
		case item.Import != nil:
			if len(item.Import.Media) > 0 {
				err = write(fmt.Fprintf(w, "@import url(\"%s\") %s;\n", cssEscapeDoubleQuoted(item.Import.URL), item.Import.Media))
			} else {
				err = write(fmt.Fprintf(w, "@import url(\"%s\");\n", cssEscapeDoubleQuoted(item.Import.URL)))
			}
		case item.MediaBlock != nil:
			err = write(writeMediaBlock(w, item.MediaBlock))
		case item.Rule != nil:
			err = write(writeRule(w, item.Rule, ""))
		}
		if err != nil {
			return total, err
		}

		// Add blank line between items (except after last)
		if i < len(s.Items)-1 {
			if err := write(fmt.Fprint(w, "\n")); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func selectorListText(rule *Rule) string {
	if len(rule.Selectors) == 0 {
		return rule.SelectorText
	}
	parts := make([]string, 0, len(rule.Selectors))
	for _, sel := range rule.Selectors {
		parts = append(parts, sel.String())
	}
	return strings.Join(parts, ", ")
}

// writeRule writes a single CSS rule to w with every line prefixed by indent.
func writeRule(w io.Writer, rule *Rule, indent string) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "%s%s {\n", indent, selectorListText(rule))
	total += n
	if err != nil {
		return total, err
	}

	names := make([]string, 0, len(rule.Properties))
	for name := range rule.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n, err = fmt.Fprintf(w, "%s  %s: %s;\n", indent, name, rule.Properties[name])
		total += n
		if err != nil {
			return total, err
		}
	}

	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += n
	return total, err
}

// writeMediaBlock writes an @media block to w.
func writeMediaBlock(w io.Writer, mb *MediaBlock) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "@media %s {\n", mb.Queries)
	total += n
	if err != nil {
		return total, err
	}

	for i := range mb.Rules {
		n, err = writeRule(w, &mb.Rules[i], "  ")
		total += n
		if err != nil {
			return total, err
		}
		// Blank line between rules in a media block (except after last)
		if i < len(mb.Rules)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += n
			if err != nil {
				return total, err
			}
		}
	}

	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}
