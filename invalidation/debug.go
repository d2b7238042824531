package invalidation

import (
	"cmp"
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"cssinv/selectormap"
	"cssinv/utils/debug"
)

type treeWriter struct {
	*debug.TreeWriter
}

func (tw treeWriter) dependency(depth int, dep Dependency) {
	if c, ok := dep.Combinator(); ok {
		tw.Line(depth, "%q offset=%d combinator=%q kind=%s", dep.Selector.String(), dep.Offset, c.String(), dep.InvalidationKind())
		return
	}
	tw.Line(depth, "%q offset=%d kind=%s", dep.Selector.String(), dep.Offset, dep.InvalidationKind())
}

func (tw treeWriter) names(title string, nm *selectormap.NameMap[Dependency]) {
	tw.Section(0, title, nm.Len())
	entries := maps.Collect(nm.All())
	keys := slices.Collect(maps.Keys(entries))
	sort.Sort(natural.StringSlice(keys))
	for _, k := range keys {
		deps := entries[k]
		tw.Line(1, "%q (%d)", k, len(deps))
		for _, dep := range deps {
			tw.dependency(2, dep)
		}
	}
}

func compareDependencies(a, b Dependency) int {
	as, bs := a.Selector.String(), b.Selector.String()
	switch {
	case natural.Less(as, bs):
		return -1
	case natural.Less(bs, as):
		return 1
	}
	return cmp.Compare(a.Offset, b.Offset)
}

// Dump returns a readable tree of everything stored in the map. Names and
// selectors are sorted so two dumps of maps built from the same selectors
// compare equal. It exists for manual inspection only.
func (m *Map) Dump() string {
	if m == nil {
		return "<nil Map>"
	}

	tw := treeWriter{debug.NewTreeWriter()}
	tw.Line(0, "Invalidation map: %d dependencies, flags=%s", m.Len(), m.flags)

	tw.names("Classes", m.classToSelector)
	tw.names("IDs", m.idToSelector)

	states := slices.SortedFunc(m.stateAffectingSelectors.All(), func(a, b StateDependency) int {
		return compareDependencies(a.Dependency, b.Dependency)
	})
	tw.Section(0, "State", len(states))
	for _, dep := range states {
		tw.dependency(1, dep.Dependency)
		tw.Line(2, "state=%s", dep.State)
	}

	tw.Section(0, "Document state", len(m.documentStateSelectors))
	for _, dep := range m.documentStateSelectors {
		tw.Line(1, "%q state=%s", dep.Selector.String(), dep.State)
	}

	others := slices.SortedFunc(m.otherAttributeAffectingSelectors.All(), compareDependencies)
	tw.Section(0, "Other attributes", len(others))
	for _, dep := range others {
		tw.dependency(1, dep)
	}

	return tw.String()
}
