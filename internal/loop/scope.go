package loop

import (
	"strings"
)

// Scope is a hierarchical timer key. Children are formed with Child and are
// cancelled together with their parent.
type Scope string

// Root is the empty scope. Timers registered under Root are only cancelled
// individually.
const Root Scope = ""

// Child returns the scope parent/name[/more...].
func (s Scope) Child(names ...string) Scope {
	parts := make([]string, 0, len(names)+1)
	if s != Root {
		parts = append(parts, string(s))
	}
	for _, n := range names {
		if n != "" {
			parts = append(parts, n)
		}
	}
	return Scope(strings.Join(parts, "/"))
}

// Contains reports whether other is s or a descendant of s.
// Root contains every scope.
func (s Scope) Contains(other Scope) bool {
	if s == Root || s == other {
		return true
	}
	return strings.HasPrefix(string(other), string(s)+"/")
}

// String returns the scope path.
func (s Scope) String() string {
	return string(s)
}
