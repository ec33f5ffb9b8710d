package classify

import (
	"fmt"
	"slices"
)

// Style is the module format assigned to a package.
type Style string

const (
	StyleESM  Style = "esm"  // native ECMAScript modules only
	StyleDual Style = "dual" // entry points for both ESM and CommonJS consumers
	StyleFaux Style = "faux" // legacy bundler-only "module" field, no native ESM
	StyleCJS  Style = "cjs"  // CommonJS only
)

// Styles lists every style in reporting order.
var Styles = []Style{StyleESM, StyleDual, StyleFaux, StyleCJS}

// Valid reports whether s is one of the four known styles.
func (s Style) Valid() bool {
	return slices.Contains(Styles, s)
}

// Rank returns the position of s in reporting order, or -1 if s is unknown.
func (s Style) Rank() int {
	return slices.Index(Styles, s)
}

func (s Style) String() string { return string(s) }

// ParseStyle converts a string such as "esm" into a Style.
func ParseStyle(v string) (Style, error) {
	s := Style(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown style %q", v)
	}
	return s, nil
}
