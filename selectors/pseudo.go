package selectors

import (
	"strings"

	"cssinv/dom"
)

// PseudoClassKind identifies a non tree-structural pseudo-class.
type PseudoClassKind uint8

const (
	PseudoClassActive PseudoClassKind = iota
	PseudoClassFocus
	PseudoClassFocusWithin
	PseudoClassFocusVisible
	PseudoClassHover
	PseudoClassEnabled
	PseudoClassDisabled
	PseudoClassChecked
	PseudoClassIndeterminate
	PseudoClassPlaceholderShown
	PseudoClassTarget
	PseudoClassFullscreen
	PseudoClassValid
	PseudoClassInvalid
	PseudoClassRequired
	PseudoClassOptional
	PseudoClassReadOnly
	PseudoClassReadWrite
	PseudoClassDefault
	PseudoClassLink
	PseudoClassVisited
	PseudoClassAnyLink
	PseudoClassDefined
	PseudoClassAutofill
	PseudoClassLang
	PseudoClassDir
	PseudoClassWindowInactive
	PseudoClassLocaleDir
	PseudoClassLWTheme
	PseudoClassLWThemeBrightText
	PseudoClassLWThemeDarkText
)

type pseudoClassInfo struct {
	name     string
	state    dom.ElementState
	docState dom.DocumentState
	// functional pseudo-classes take an argument in parentheses
	functional bool
}

var pseudoClasses = map[PseudoClassKind]pseudoClassInfo{
	PseudoClassActive:            {name: "active", state: dom.StateActive},
	PseudoClassFocus:             {name: "focus", state: dom.StateFocus},
	PseudoClassFocusWithin:       {name: "focus-within", state: dom.StateFocusWithin},
	PseudoClassFocusVisible:      {name: "focus-visible", state: dom.StateFocusVisible},
	PseudoClassHover:             {name: "hover", state: dom.StateHover},
	PseudoClassEnabled:           {name: "enabled", state: dom.StateEnabled},
	PseudoClassDisabled:          {name: "disabled", state: dom.StateDisabled},
	PseudoClassChecked:           {name: "checked", state: dom.StateChecked},
	PseudoClassIndeterminate:     {name: "indeterminate", state: dom.StateIndeterminate},
	PseudoClassPlaceholderShown:  {name: "placeholder-shown", state: dom.StatePlaceholderShown},
	PseudoClassTarget:            {name: "target", state: dom.StateTarget},
	PseudoClassFullscreen:        {name: "fullscreen", state: dom.StateFullscreen},
	PseudoClassValid:             {name: "valid", state: dom.StateValid},
	PseudoClassInvalid:           {name: "invalid", state: dom.StateInvalid},
	PseudoClassRequired:          {name: "required", state: dom.StateRequired},
	PseudoClassOptional:          {name: "optional", state: dom.StateOptional},
	PseudoClassReadOnly:          {name: "read-only", state: dom.StateReadOnly},
	PseudoClassReadWrite:         {name: "read-write", state: dom.StateReadWrite},
	PseudoClassDefault:           {name: "default", state: dom.StateDefault},
	PseudoClassLink:              {name: "link", state: dom.StateUnvisited},
	PseudoClassVisited:           {name: "visited", state: dom.StateVisited},
	PseudoClassAnyLink:           {name: "any-link", state: dom.StateVisited | dom.StateUnvisited},
	PseudoClassDefined:           {name: "defined", state: dom.StateDefined},
	PseudoClassAutofill:          {name: "autofill", state: dom.StateAutofill},
	PseudoClassLang:              {name: "lang", functional: true},
	PseudoClassDir:               {name: "dir", functional: true},
	PseudoClassWindowInactive:    {name: "-moz-window-inactive", docState: dom.DocumentStateWindowInactive},
	PseudoClassLocaleDir:         {name: "-moz-locale-dir", docState: dom.DocumentStateRTLLocale, functional: true},
	PseudoClassLWTheme:           {name: "-moz-lwtheme", docState: dom.DocumentStateLWTheme},
	PseudoClassLWThemeBrightText: {name: "-moz-lwtheme-brighttext", docState: dom.DocumentStateLWThemeBrightText},
	PseudoClassLWThemeDarkText:   {name: "-moz-lwtheme-darktext", docState: dom.DocumentStateLWThemeDarkText},
}

var pseudoClassByName = func() map[string]PseudoClassKind {
	m := make(map[string]PseudoClassKind, len(pseudoClasses))
	for k, info := range pseudoClasses {
		m[info.name] = k
	}
	return m
}()

// Direction is the argument of :dir() and :-moz-locale-dir().
type Direction uint8

const (
	DirectionLTR Direction = iota
	DirectionRTL
)

func (d Direction) String() string {
	if d == DirectionRTL {
		return "rtl"
	}
	return "ltr"
}

// NonTSPseudoClass is a pseudo-class that depends on something other than
// the position of the element in the tree.
type NonTSPseudoClass struct {
	Kind PseudoClassKind
	// Lang is the argument of :lang().
	Lang string
	// Dir is the argument of :dir() and :-moz-locale-dir().
	Dir Direction
}

// StateFlag returns the element states this pseudo-class depends on.
func (pc *NonTSPseudoClass) StateFlag() dom.ElementState {
	if pc.Kind == PseudoClassDir {
		if pc.Dir == DirectionRTL {
			return dom.StateDirRTL
		}
		return dom.StateDirLTR
	}
	return pseudoClasses[pc.Kind].state
}

// DocumentStateFlag returns the document states this pseudo-class depends on.
func (pc *NonTSPseudoClass) DocumentStateFlag() dom.DocumentState {
	return pseudoClasses[pc.Kind].docState
}

// IsAttrBased reports whether matching depends on attribute values rather
// than element state.
func (pc *NonTSPseudoClass) IsAttrBased() bool {
	return pc.Kind == PseudoClassLang
}

func (pc *NonTSPseudoClass) String() string {
	info := pseudoClasses[pc.Kind]
	switch pc.Kind {
	case PseudoClassLang:
		return ":" + info.name + "(" + pc.Lang + ")"
	case PseudoClassDir, PseudoClassLocaleDir:
		return ":" + info.name + "(" + pc.Dir.String() + ")"
	}
	return ":" + info.name
}

func lookupPseudoClass(name string) (PseudoClassKind, pseudoClassInfo, bool) {
	kind, ok := pseudoClassByName[strings.ToLower(name)]
	if !ok {
		return 0, pseudoClassInfo{}, false
	}
	return kind, pseudoClasses[kind], true
}
