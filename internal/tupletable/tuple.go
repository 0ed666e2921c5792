// Package tupletable keeps tuples of NodeIDs in several differently ordered
// indexes so that any pattern can be answered by a range scan.
package tupletable

import (
	"strings"

	"github.com/aleksaelezovic/tdbgo/internal/encoding"
)

// Tuple is a fixed-length row of node ids. In patterns, encoding.NodeIDAny
// matches anything.
type Tuple []encoding.NodeID

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, id := range t {
		parts[i] = id.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Equal compares two tuples slot by slot.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// Matches reports whether t matches pattern.
func (t Tuple) Matches(pattern Tuple) bool {
	for i, id := range pattern {
		if id != encoding.NodeIDAny && t[i] != id {
			return false
		}
	}
	return true
}

// AnyTuple returns a pattern of n wildcards.
func AnyTuple(n int) Tuple {
	t := make(Tuple, n)
	for i := range t {
		t[i] = encoding.NodeIDAny
	}
	return t
}
