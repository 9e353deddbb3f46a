package auth

import (
	"sort"
	"strings"
)

// Scope is a set of space-delimited scope tokens (RFC 6749 section 3.3).
type Scope map[string]struct{}

func ParseScope(s string) Scope {
	scope := Scope{}
	for _, token := range strings.Fields(s) {
		scope[token] = struct{}{}
	}
	return scope
}

func (s Scope) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Contains reports whether every token of other is granted by s.
func (s Scope) Contains(other Scope) bool {
	for token := range other {
		if !s.Has(token) {
			return false
		}
	}
	return true
}

func (s Scope) IsEmpty() bool {
	return len(s) == 0
}

// String returns the tokens sorted and space separated.
func (s Scope) String() string {
	tokens := make([]string, 0, len(s))
	for token := range s {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
