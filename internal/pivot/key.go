package pivot

import (
	"fmt"

	"github.com/spf13/cast"
)

// Key is the canonical form of a dimension value. Every lookup that
// compares dimension values (trie children, cuboid children, group-by,
// highlight and filter membership) goes through Key, so 3, 3.0, int64(3)
// and "3" all address the same member.
func Key(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// Equal compares two values by canonical key.
func Equal(a, b any) bool {
	return Key(a) == Key(b)
}

// PathEqual reports whether two value paths have the same length and the
// same canonical key at every position.
func PathEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Number converts a measure value to float64. Non-numeric values report false.
func Number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if _, ok := v.(bool); ok {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}
