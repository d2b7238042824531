package selectors_test

import (
	"errors"
	"testing"

	"cssinv/dom"
	"cssinv/selectors"
)

func mustParse(t *testing.T, text string) *selectors.Selector {
	t.Helper()
	sel, err := selectors.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	return sel
}

// kinds returns component kinds in matching order.
func kinds(sel *selectors.Selector) []selectors.Kind {
	out := make([]selectors.Kind, 0, sel.Len())
	for i := range sel.Len() {
		out = append(out, sel.ComponentAt(i).Kind)
	}
	return out
}

func equalKinds(a, b []selectors.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParse_MatchingOrder(t *testing.T) {
	sel := mustParse(t, "div.a > p#b:hover")

	want := []selectors.Kind{
		selectors.KindLocalName, selectors.KindID, selectors.KindNonTSPseudoClass,
		selectors.KindCombinator,
		selectors.KindLocalName, selectors.KindClass,
	}
	if got := kinds(sel); !equalKinds(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	if c := sel.CombinatorAtMatchOrder(3); c != selectors.CombinatorChild {
		t.Errorf("combinator = %v, want child", c)
	}
	if sel.ComponentAt(0).Name != "p" {
		t.Errorf("rightmost compound starts with %q, want p", sel.ComponentAt(0).Name)
	}
}

func TestParse_Combinators(t *testing.T) {
	tests := []struct {
		input string
		want  selectors.Combinator
	}{
		{"a b", selectors.CombinatorDescendant},
		{"a > b", selectors.CombinatorChild},
		{"a>b", selectors.CombinatorChild},
		{"a + b", selectors.CombinatorNextSibling},
		{"a ~ b", selectors.CombinatorLaterSibling},
		{"a::before", selectors.CombinatorPseudoElement},
		{"slot::slotted(.x)", selectors.CombinatorSlotAssignment},
		{"x-foo::part(label)", selectors.CombinatorPart},
		{"p:after", selectors.CombinatorPseudoElement},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel := mustParse(t, tt.input)
			if sel.Len() != 3 {
				t.Fatalf("Len() = %d, want 3", sel.Len())
			}
			if got := sel.CombinatorAtMatchOrder(1); got != tt.want {
				t.Errorf("combinator = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_LonePseudoElementHasNoCombinator(t *testing.T) {
	sel := mustParse(t, "::before")
	if sel.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sel.Len())
	}
	if !sel.HasPseudoElement() {
		t.Error("expected HasPseudoElement")
	}
}

func TestParse_Attributes(t *testing.T) {
	ns := selectors.WithNamespaces(map[string]dom.Namespace{"svg": dom.NamespaceSVG})
	tests := []struct {
		input    string
		kind     selectors.Kind
		op       selectors.AttrOperator
		value    string
		mayMatch bool
	}{
		{"[class]", selectors.KindAttributeExists, selectors.AttrOpExists, "", true},
		{"[ID=foo]", selectors.KindAttribute, selectors.AttrOpEqual, "foo", true},
		{`[lang|="en"]`, selectors.KindAttribute, selectors.AttrOpDashMatch, "en", true},
		{"[rel~=next i]", selectors.KindAttribute, selectors.AttrOpIncludes, "next", true},
		{"[href^='http']", selectors.KindAttribute, selectors.AttrOpPrefix, "http", true},
		{"[href$=pdf]", selectors.KindAttribute, selectors.AttrOpSuffix, "pdf", true},
		{"[title*=x]", selectors.KindAttribute, selectors.AttrOpSubstring, "x", true},
		{"[*|class]", selectors.KindAttributeOther, selectors.AttrOpExists, "", true},
		{"[|class]", selectors.KindAttributeExists, selectors.AttrOpExists, "", true},
		{"[svg|class]", selectors.KindAttributeOther, selectors.AttrOpExists, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel, err := selectors.Parse(tt.input, ns)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			c := sel.ComponentAt(0)
			if c.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", c.Kind, tt.kind)
			}
			if c.Attr.Operator != tt.op {
				t.Errorf("operator = %v, want %v", c.Attr.Operator, tt.op)
			}
			if c.Attr.Value != tt.value {
				t.Errorf("value = %q, want %q", c.Attr.Value, tt.value)
			}
			if got := c.Attr.Namespace.MayMatchNoNamespace(); got != tt.mayMatch {
				t.Errorf("MayMatchNoNamespace() = %v, want %v", got, tt.mayMatch)
			}
		})
	}
}

func TestParse_PseudoClasses(t *testing.T) {
	sel := mustParse(t, ":hover:focus-within:dir(rtl):lang(en):-moz-window-inactive")

	var (
		state    dom.ElementState
		docState dom.DocumentState
		attr     bool
	)
	for i := range sel.Len() {
		pc := sel.ComponentAt(i).PseudoClass
		state |= pc.StateFlag()
		docState |= pc.DocumentStateFlag()
		attr = attr || pc.IsAttrBased()
	}
	if want := dom.StateHover | dom.StateFocusWithin | dom.StateDirRTL; state != want {
		t.Errorf("state = %v, want %v", state, want)
	}
	if docState != dom.DocumentStateWindowInactive {
		t.Errorf("document state = %v, want window-inactive", docState)
	}
	if !attr {
		t.Error(":lang() must be attribute based")
	}
}

func TestParse_Nth(t *testing.T) {
	tests := []struct {
		input string
		want  selectors.NthData
	}{
		{":nth-child(odd)", selectors.NthData{A: 2, B: 1}},
		{":nth-child(even)", selectors.NthData{A: 2, B: 0}},
		{":nth-child(3)", selectors.NthData{A: 0, B: 3}},
		{":nth-child(2n+1)", selectors.NthData{A: 2, B: 1}},
		{":nth-child(-n + 3)", selectors.NthData{A: -1, B: 3}},
		{":nth-of-type(n)", selectors.NthData{A: 1, B: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel := mustParse(t, tt.input)
			if got := sel.ComponentAt(0).Nth; got != tt.want {
				t.Errorf("nth = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_Negation(t *testing.T) {
	sel := mustParse(t, "a:not(.x, #y)")
	neg := sel.ComponentAt(1)
	if neg.Kind != selectors.KindNegation {
		t.Fatalf("kind = %v, want negation", neg.Kind)
	}
	if len(neg.List) != 2 {
		t.Fatalf("negation list = %d, want 2", len(neg.List))
	}
	if neg.List[0][0].Kind != selectors.KindClass || neg.List[1][0].Kind != selectors.KindID {
		t.Errorf("unexpected negation contents %+v", neg.List)
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"",
		"a >",
		"a:not(b c)",
		"::before .a",
		"[svg|class]",
		":unknown-thing",
		"a:nth-child(foo)",
		"a:not(::before)",
		"[a=]",
		"..a",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := selectors.Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", input)
			}
			var pe *selectors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	list, err := selectors.ParseList("a, .b:hover , #c > d")
	if err != nil {
		t.Fatalf("ParseList() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if _, err := selectors.Parse("a, b"); err == nil {
		t.Error("Parse() of a list must fail")
	}
}

func TestSelector_String(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"div.a>p#b:hover", "div.a > p#b:hover"},
		{".foo   :hover", ".foo :hover"},
		{"a+b~c", "a + b ~ c"},
		{"a::before", "a::before"},
		{"[rel~=next i]", `[rel~="next" i]`},
		{"a:not(.x,#y)", "a:not(.x, #y)"},
		{":nth-child(2n-1)", ":nth-child(2n-1)"},
		{"slot::slotted(.x)", "slot::slotted(.x)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mustParse(t, tt.input).String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelector_Specificity(t *testing.T) {
	tests := []struct {
		input string
		want  selectors.Specificity
	}{
		{"*", selectors.Specificity{0, 0, 0}},
		{"li", selectors.Specificity{0, 0, 1}},
		{"ul li", selectors.Specificity{0, 0, 2}},
		{"ul ol+li", selectors.Specificity{0, 0, 3}},
		{"h1 + *[rel=up]", selectors.Specificity{0, 1, 1}},
		{"ul ol li.red", selectors.Specificity{0, 1, 3}},
		{"li.red.level", selectors.Specificity{0, 2, 1}},
		{"#x34y", selectors.Specificity{1, 0, 0}},
		{"#s12:not(FOO)", selectors.Specificity{1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mustParse(t, tt.input).Specificity(); got != tt.want {
				t.Errorf("Specificity() = %v, want %v", got, tt.want)
			}
		})
	}
}
