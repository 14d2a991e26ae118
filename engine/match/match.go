// Package match compiles criterion value expressions into Matchers and
// evaluates fact values against them.
//
// Expression grammar, one or two comma-separated parts:
//
//	>N  >=N  <N  <=N   range bounds (a min and a max may be combined)
//	!value             not equal
//	&N  ~&N            bit test / inverted bit test
//	value              equality
//
// Any token may be an enumeration reference of the form [Enum::Key].
package match

import (
	"fmt"
	"strconv"
	"strings"
)

// EnumLookup resolves an enumeration reference to its numeric value.
type EnumLookup func(enum, key string) (float32, bool)

// Matcher is a compiled value expression.
type Matcher struct {
	Valid   bool
	Numeric bool

	HasMin       bool
	MinInclusive bool
	Min          float32

	HasMax       bool
	MaxInclusive bool
	Max          float32

	NotEqual  bool
	BitTest   bool
	BitInvert bool

	Token string // resolved comparison token
	Raw   string // expression as authored

	// Unresolved lists enumeration references that did not resolve at
	// compile time. Their tokens are kept literally.
	Unresolved []string

	value float32 // numeric form of Token
}

// Match reports whether a fact value satisfies the matcher. An absent fact
// is passed as "".
func (m *Matcher) Match(value string, enums EnumLookup) bool {
	if !m.Valid {
		return false
	}

	if !m.Numeric {
		eq := wildcardEqual(m.Token, value)
		if m.NotEqual {
			return !eq
		}
		return eq
	}

	v := atof(value)
	if strings.HasPrefix(value, "[") && enums != nil {
		if enum, key, ok := splitEnumRef(value); ok {
			if ev, ok := enums(enum, key); ok {
				v = ev
			}
		}
	}

	if m.BitTest {
		set := int64(v)&int64(m.value) != 0
		if m.BitInvert {
			return !set
		}
		return set
	}

	if m.HasMin {
		if m.MinInclusive && v < m.Min {
			return false
		}
		if !m.MinInclusive && v <= m.Min {
			return false
		}
	}
	if m.HasMax {
		if m.MaxInclusive && v > m.Max {
			return false
		}
		if !m.MaxInclusive && v >= m.Max {
			return false
		}
	}

	if m.NotEqual {
		return v != m.value
	}

	if !m.HasMin && !m.HasMax {
		// A missing fact never equals a number, not even zero.
		if value == "" {
			return false
		}
		return v == m.value
	}
	return true
}

// String renders the matcher for diagnostics.
func (m *Matcher) String() string {
	if !m.Valid {
		return fmt.Sprintf("invalid(%q)", m.Raw)
	}
	var parts []string
	if m.HasMin {
		op := ">"
		if m.MinInclusive {
			op = ">="
		}
		parts = append(parts, op+formatFloat(m.Min))
	}
	if m.HasMax {
		op := "<"
		if m.MaxInclusive {
			op = "<="
		}
		parts = append(parts, op+formatFloat(m.Max))
	}
	switch {
	case m.BitTest && m.BitInvert:
		parts = append(parts, "~&"+m.Token)
	case m.BitTest:
		parts = append(parts, "&"+m.Token)
	case m.NotEqual:
		parts = append(parts, "!="+m.Token)
	case !m.HasMin && !m.HasMax:
		parts = append(parts, "=="+m.Token)
	}
	kind := "string"
	if m.Numeric {
		kind = "numeric"
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, " && "), kind)
}

// wildcardEqual compares case-insensitively. A trailing '*' in the
// pattern matches any suffix.
func wildcardEqual(pattern, value string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		if len(value) < len(prefix) {
			return false
		}
		return strings.EqualFold(value[:len(prefix)], prefix)
	}
	return strings.EqualFold(pattern, value)
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
