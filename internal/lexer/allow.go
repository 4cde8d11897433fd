package lexer

import (
	"fmt"
	"strings"
)

// AllowList restricts the token types a script may contain. Metadata,
// comment and whitespace tokens are always allowed.
type AllowList struct {
	types map[Type]bool
}

// NewAllowList builds an allow-list from token type names, matched
// case-insensitively. Unknown names are an error.
func NewAllowList(names []string) (*AllowList, error) {
	a := &AllowList{types: make(map[Type]bool, len(names))}
	var unknown []string
	for _, name := range names {
		ty, ok := ParseType(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		a.types[ty] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown token names in allow-list: %s", strings.Join(unknown, ", "))
	}
	return a, nil
}

// Allows reports whether tokens of type t may be emitted. A nil list allows
// everything.
func (a *AllowList) Allows(t Type) bool {
	if a == nil {
		return true
	}
	switch t.Family() {
	case FamilyMetadata, FamilyComment, FamilyWhitespace:
		return true
	}
	return a.types[t]
}

// Names returns the allowed token type names.
func (a *AllowList) Names() []string {
	if a == nil {
		return nil
	}
	var names []string
	for t := Type(0); t < tokenTypeCount; t++ {
		if a.types[t] {
			names = append(names, t.String())
		}
	}
	return names
}
