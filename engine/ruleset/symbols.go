package ruleset

import "github.com/nathoo/responsecore/engine/criteria"

// Symbol is an interned, case-folded name.
type Symbol int32

// NoSymbol is returned for names that were never interned.
const NoSymbol Symbol = -1

// Symbols is a per-ruleset string interning table. Names are folded with
// the same rules as fact names, so lookups are case-insensitive.
type Symbols struct {
	ids   map[string]Symbol
	names []string
}

// NewSymbols creates an empty table.
func NewSymbols() *Symbols {
	return &Symbols{ids: map[string]Symbol{}}
}

// Intern returns the symbol for name, adding it if needed.
func (s *Symbols) Intern(name string) Symbol {
	key := criteria.Key(name)
	if id, ok := s.ids[key]; ok {
		return id
	}
	id := Symbol(len(s.names))
	s.ids[key] = id
	s.names = append(s.names, key)
	return id
}

// Lookup returns the symbol for name without interning it.
func (s *Symbols) Lookup(name string) Symbol {
	if id, ok := s.ids[criteria.Key(name)]; ok {
		return id
	}
	return NoSymbol
}

// Name returns the folded name of a symbol.
func (s *Symbols) Name(id Symbol) string {
	if id < 0 || int(id) >= len(s.names) {
		return ""
	}
	return s.names[id]
}

// Len returns the number of interned names.
func (s *Symbols) Len() int { return len(s.names) }
