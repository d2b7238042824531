// Package dom holds the element and document level facts selectors can
// depend on: state bits and namespace constants.
package dom

import "strings"

// ElementState is a set of dynamic element states a pseudo-class can depend on.
type ElementState uint64

const (
	StateActive ElementState = 1 << iota
	StateFocus
	StateHover
	StateEnabled
	StateDisabled
	StateChecked
	StateIndeterminate
	StatePlaceholderShown
	StateTarget
	StateFullscreen
	StateValid
	StateInvalid
	StateRequired
	StateOptional
	StateReadOnly
	StateReadWrite
	StateDefault
	StateVisited
	StateUnvisited
	StateDefined
	StateFocusWithin
	StateFocusVisible
	StateAutofill
	StateDirLTR
	StateDirRTL
)

var elementStateNames = [...]string{
	"active", "focus", "hover", "enabled", "disabled", "checked",
	"indeterminate", "placeholder-shown", "target", "fullscreen", "valid",
	"invalid", "required", "optional", "read-only", "read-write", "default",
	"visited", "link", "defined", "focus-within", "focus-visible", "autofill",
	"dir-ltr", "dir-rtl",
}

// IsEmpty reports whether no bits are set.
func (s ElementState) IsEmpty() bool {
	return s == 0
}

// Intersects reports whether s and other share at least one bit.
func (s ElementState) Intersects(other ElementState) bool {
	return s&other != 0
}

// Contains reports whether every bit of other is set in s.
func (s ElementState) Contains(other ElementState) bool {
	return s&other == other
}

func (s ElementState) String() string {
	if s == 0 {
		return "empty"
	}
	var parts []string
	for i, name := range elementStateNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// ElementStateByName returns the state bit for a state name as printed by
// String, or false for unknown names.
func ElementStateByName(name string) (ElementState, bool) {
	name = strings.ToLower(name)
	for i, n := range elementStateNames {
		if n == name {
			return 1 << i, true
		}
	}
	return 0, false
}

// DocumentState is a set of document wide states. A change to any of them
// affects every element of the document.
type DocumentState uint64

const (
	DocumentStateWindowInactive DocumentState = 1 << iota
	DocumentStateRTLLocale
	DocumentStateLWTheme
	DocumentStateLWThemeBrightText
	DocumentStateLWThemeDarkText
)

var documentStateNames = [...]string{
	"window-inactive", "rtl-locale", "lwtheme", "lwtheme-brighttext", "lwtheme-darktext",
}

// IsEmpty reports whether no bits are set.
func (s DocumentState) IsEmpty() bool {
	return s == 0
}

// Intersects reports whether s and other share at least one bit.
func (s DocumentState) Intersects(other DocumentState) bool {
	return s&other != 0
}

func (s DocumentState) String() string {
	if s == 0 {
		return "empty"
	}
	var parts []string
	for i, name := range documentStateNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// DocumentStateByName returns the state bit for a name as printed by String.
func DocumentStateByName(name string) (DocumentState, bool) {
	name = strings.ToLower(name)
	for i, n := range documentStateNames {
		if n == name {
			return 1 << i, true
		}
	}
	return 0, false
}
