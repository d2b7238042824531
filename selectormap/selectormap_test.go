package selectormap_test

import (
	"errors"
	"slices"
	"testing"

	"cssinv/common"
	"cssinv/fallible"
	"cssinv/selectormap"
	"cssinv/selectors"
)

type entry struct {
	sel    *selectors.Selector
	offset int
}

func (e entry) Iter() *selectors.Iter {
	return e.sel.IterFrom(e.offset)
}

func newEntry(t *testing.T, text string) entry {
	t.Helper()
	sel, err := selectors.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	return entry{sel: sel}
}

func collect(seq func(func(entry) bool)) []string {
	var out []string
	for e := range seq {
		out = append(out, e.sel.String())
	}
	slices.Sort(out)
	return out
}

func TestSelectorMap_Lookup(t *testing.T) {
	m := selectormap.New[entry](nil)
	for _, text := range []string{"div#main.a", "span.a.b", "p:hover", ":focus", "x > .b"} {
		if err := m.Insert(newEntry(t, text), common.QuirksModeNoQuirks); err != nil {
			t.Fatalf("Insert(%q) error = %v", text, err)
		}
	}
	if m.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", m.Len())
	}

	tests := []struct {
		name string
		f    selectormap.Features
		want []string
	}{
		{"id", selectormap.Features{ID: "main"}, []string{":focus", "div#main.a"}},
		{"class", selectormap.Features{Classes: []string{"a", "b"}}, []string{":focus", "span.a.b", "x > .b"}},
		{"local name", selectormap.Features{LocalName: "P"}, []string{":focus", "p:hover"}},
		{"nothing", selectormap.Features{}, []string{":focus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(m.Lookup(tt.f, common.QuirksModeNoQuirks))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Lookup() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := len(collect(m.All())); got != 5 {
		t.Errorf("All() yielded %d entries, want 5", got)
	}

	m.Clear()
	if m.Len() != 0 || len(collect(m.All())) != 0 {
		t.Error("Clear() left entries behind")
	}
}

func TestNameMap_QuirksMode(t *testing.T) {
	nm := selectormap.NewNameMap[int](nil)
	if err := nm.TryPush("Foo", common.QuirksModeQuirks, 1); err != nil {
		t.Fatalf("TryPush() error = %v", err)
	}
	if err := nm.TryPush("Bar", common.QuirksModeNoQuirks, 2); err != nil {
		t.Fatalf("TryPush() error = %v", err)
	}

	if got := nm.Get("FOO", common.QuirksModeQuirks); len(got) != 1 {
		t.Errorf("quirks lookup of FOO = %v, want one entry", got)
	}
	if got := nm.Get("bar", common.QuirksModeNoQuirks); len(got) != 0 {
		t.Errorf("case sensitive lookup of bar = %v, want none", got)
	}
	if got := nm.Get("Bar", common.QuirksModeLimitedQuirks); len(got) != 1 {
		t.Errorf("limited quirks lookup of Bar = %v, want one entry", got)
	}
	if nm.Len() != 2 || nm.Entries() != 2 {
		t.Errorf("Len()=%d Entries()=%d, want 2 and 2", nm.Len(), nm.Entries())
	}
}

func TestKey(t *testing.T) {
	if got := selectormap.Key("ÄbC", common.QuirksModeQuirks); got != "Äbc" {
		t.Errorf("Key() = %q, only ASCII must be folded", got)
	}
	if got := selectormap.Key("AbC", common.QuirksModeNoQuirks); got != "AbC" {
		t.Errorf("Key() = %q, want unchanged", got)
	}
}

func TestSelectorMap_AllocationFailure(t *testing.T) {
	m := selectormap.New[entry](fallible.FailAfter(0))
	err := m.Insert(newEntry(t, ":hover"), common.QuirksModeNoQuirks)
	if !errors.Is(err, fallible.ErrAllocationFailed) {
		t.Fatalf("Insert() error = %v, want ErrAllocationFailed", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after failed insert, want 0", m.Len())
	}
}

func TestNameMap_FailedFirstPush(t *testing.T) {
	// the key reservation is granted, growing the list is not
	nm := selectormap.NewNameMap[int](fallible.FailAfter(1))
	err := nm.TryPush("a", common.QuirksModeNoQuirks, 1)
	if !errors.Is(err, fallible.ErrAllocationFailed) {
		t.Fatalf("TryPush() error = %v, want ErrAllocationFailed", err)
	}
	if nm.Len() != 0 || nm.Entries() != 0 {
		t.Errorf("Len()=%d Entries()=%d after failed push, want 0 and 0", nm.Len(), nm.Entries())
	}
	for k := range nm.All() {
		t.Errorf("All() yielded %q after failed push", k)
	}
	if got := nm.Get("a", common.QuirksModeNoQuirks); len(got) != 0 {
		t.Errorf("Get() = %v, want none", got)
	}
}
