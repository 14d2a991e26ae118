package match

import (
	"fmt"
	"strings"
)

// CompileError reports an expression that cannot be compiled.
type CompileError struct {
	Expr   string
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("match expression %q: %s", e.Expr, e.Reason)
}

type opKind int

const (
	opEqual opKind = iota
	opNotEqual
	opMin
	opMax
	opBit
	opBitInvert
)

type part struct {
	op        opKind
	inclusive bool
	token     string
}

// Compile compiles a value expression. enums may be nil.
func Compile(expr string, enums EnumLookup) (Matcher, error) {
	m := Matcher{Raw: expr}

	pieces := strings.Split(expr, ",")
	if len(pieces) > 2 {
		return m, &CompileError{Expr: expr, Reason: "at most two comma-separated parts are allowed"}
	}

	parts := make([]part, 0, len(pieces))
	for _, piece := range pieces {
		p, err := parsePart(strings.TrimSpace(piece))
		if err != nil {
			return m, &CompileError{Expr: expr, Reason: err.Error()}
		}
		p.token = m.resolve(p.token, enums)
		parts = append(parts, p)
	}

	if len(parts) == 2 {
		a, b := parts[0], parts[1]
		if !isRange(a.op) || !isRange(b.op) {
			return m, &CompileError{Expr: expr, Reason: "only a min and a max bound may be combined"}
		}
		if a.op == b.op {
			return m, &CompileError{Expr: expr, Reason: "conflicting bounds in the same direction"}
		}
	}

	for _, p := range parts {
		switch p.op {
		case opMin, opMax, opBit, opBitInvert:
			if !looksNumeric(p.token) {
				return m, &CompileError{Expr: expr, Reason: fmt.Sprintf("%q is not numeric", p.token)}
			}
		}
	}

	for _, p := range parts {
		switch p.op {
		case opMin:
			m.HasMin, m.MinInclusive, m.Min = true, p.inclusive, atof(p.token)
			m.Numeric = true
		case opMax:
			m.HasMax, m.MaxInclusive, m.Max = true, p.inclusive, atof(p.token)
			m.Numeric = true
		case opBit, opBitInvert:
			m.BitTest, m.BitInvert = true, p.op == opBitInvert
			m.Numeric = true
			m.Token = p.token
		case opNotEqual:
			m.NotEqual = true
			m.Numeric = looksNumeric(p.token)
			m.Token = p.token
		case opEqual:
			m.Numeric = looksNumeric(p.token)
			m.Token = p.token
		}
	}
	if m.Numeric && m.Token != "" {
		m.value = atof(m.Token)
	}

	m.Valid = true
	return m, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string, enums EnumLookup) Matcher {
	m, err := Compile(expr, enums)
	if err != nil {
		panic(err)
	}
	return m
}

func isRange(op opKind) bool {
	return op == opMin || op == opMax
}

// parsePart reads the operator prefix of one comma-separated part.
func parsePart(s string) (part, error) {
	var p part
	switch {
	case strings.HasPrefix(s, ">="):
		p.op, p.inclusive, p.token = opMin, true, s[2:]
	case strings.HasPrefix(s, ">"):
		p.op, p.token = opMin, s[1:]
	case strings.HasPrefix(s, "<="):
		p.op, p.inclusive, p.token = opMax, true, s[2:]
	case strings.HasPrefix(s, "<"):
		p.op, p.token = opMax, s[1:]
	case strings.HasPrefix(s, "~&"):
		p.op, p.token = opBitInvert, s[2:]
	case strings.HasPrefix(s, "&"):
		p.op, p.token = opBit, s[1:]
	case strings.HasPrefix(s, "!"):
		p.op, p.token = opNotEqual, s[1:]
	default:
		p.op, p.token = opEqual, s
	}
	p.token = strings.TrimSpace(p.token)

	if p.op != opEqual && p.token == "" {
		return p, fmt.Errorf("operator without operand in %q", s)
	}
	if p.token != "" && strings.ContainsAny(p.token[:1], "<>!&~=") {
		return p, fmt.Errorf("conflicting operators in %q", s)
	}
	return p, nil
}

// resolve replaces an enumeration reference with its numeric literal.
func (m *Matcher) resolve(token string, enums EnumLookup) string {
	enum, key, ok := splitEnumRef(token)
	if !ok {
		return token
	}
	if enums != nil {
		if v, ok := enums(enum, key); ok {
			return formatFloat(v)
		}
	}
	m.Unresolved = append(m.Unresolved, token)
	return token
}

// splitEnumRef parses "[Enum::Key]".
func splitEnumRef(token string) (enum, key string, ok bool) {
	if !strings.HasPrefix(token, "[") || !strings.HasSuffix(token, "]") {
		return "", "", false
	}
	enum, key, ok = strings.Cut(token[1:len(token)-1], "::")
	if !ok || enum == "" || key == "" {
		return "", "", false
	}
	return enum, key, true
}
