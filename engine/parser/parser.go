// Package parser reads criteria modifier lists of the form
// "name:value[:number], ..." into facts.
// Intentionally dumb: no expressions, just splitting and quoting.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/responsecore/types"
)

// ConceptKey is the fact name a bare leading word is bound to.
const ConceptKey = "concept"

// Modifier is one "name:value[:number]" item.
type Modifier struct {
	Name     string
	Value    string
	Number   float32 // weight for facts, duration for contexts
	HasValue bool
	HasNum   bool
}

// Split tokenizes a modifier list. Items are separated by commas or
// whitespace; a value may be double-quoted to contain either.
func Split(input string) ([]Modifier, error) {
	var mods []Modifier
	for _, item := range tokenize(input) {
		mod, err := parseItem(item)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// Parse converts a console line into facts. A leading bare word with no
// colon is shorthand for "concept:<word>".
//
//	hello who:npc health:25:2
func Parse(input string) ([]types.Fact, error) {
	mods, err := Split(input)
	if err != nil {
		return nil, err
	}

	facts := make([]types.Fact, 0, len(mods))
	for i, m := range mods {
		if !m.HasValue {
			if i != 0 {
				return nil, fmt.Errorf("fact %q has no value", m.Name)
			}
			facts = append(facts, types.Fact{Name: ConceptKey, Value: m.Name, Weight: 1})
			continue
		}
		w := float32(1)
		if m.HasNum {
			if m.Number < 0 {
				return nil, fmt.Errorf("fact %q has negative weight %v", m.Name, m.Number)
			}
			w = m.Number
		}
		facts = append(facts, types.Fact{Name: m.Name, Value: m.Value, Weight: w})
	}
	return facts, nil
}

// tokenize splits on commas and unquoted whitespace. Quotes are kept so
// parseItem can tell a quoted colon from a separator.
func tokenize(input string) []string {
	var (
		items   []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if cur.Len() > 0 {
			items = append(items, cur.String())
			cur.Reset()
		}
	}
	for _, r := range input {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case inQuote:
			cur.WriteRune(r)
		case r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return items
}

func parseItem(item string) (Modifier, error) {
	fields := splitColons(item)
	if len(fields) > 3 {
		return Modifier{}, fmt.Errorf("malformed item %q", item)
	}

	m := Modifier{Name: unquote(fields[0])}
	if m.Name == "" {
		return Modifier{}, fmt.Errorf("item %q has no name", item)
	}
	if len(fields) >= 2 {
		m.Value = unquote(fields[1])
		m.HasValue = true
	}
	if len(fields) == 3 {
		n, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return Modifier{}, fmt.Errorf("item %q: bad number %q", item, fields[2])
		}
		m.Number = float32(n)
		m.HasNum = true
	}
	return m, nil
}

// splitColons splits on colons outside double quotes.
func splitColons(s string) []string {
	var (
		fields  []string
		start   int
		inQuote bool
	)
	for i, r := range s {
		switch r {
		case '"':
			inQuote = !inQuote
		case ':':
			if !inQuote {
				fields = append(fields, s[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, s[start:])
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
