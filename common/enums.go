// The only reason this package exists is because enums are needed both by
// configuration and by the style packages, and I do not want the style
// packages to depend on program configuration. So enums live separately.
package common

// Document compatibility mode.
// ENUM(no-quirks, limited-quirks, quirks)
type QuirksMode int

// CaseSensitivity describes how class and id names are compared.
type CaseSensitivity int

const (
	CaseSensitive CaseSensitivity = iota
	ASCIICaseInsensitive
)

// ClassAndIDCaseSensitivity returns how class and id selectors compare names
// in a document operating in this mode. Only full quirks mode folds case.
func (q QuirksMode) ClassAndIDCaseSensitivity() CaseSensitivity {
	if q == QuirksModeQuirks {
		return ASCIICaseInsensitive
	}
	return CaseSensitive
}
