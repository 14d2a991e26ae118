// Package criteria implements the Criteria Set: an ordered-by-name store of
// weighted facts with case-insensitive unique names.
package criteria

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/responsecore/types"
	"golang.org/x/text/cases"
)

// DefaultWeight is the weight callers give a fact that was supplied
// without one.
const DefaultWeight float32 = 1.0

type entry struct {
	key    string // folded name
	name   string
	value  string
	weight float32
}

// Set is an ordered collection of facts. Indices returned by Find are valid
// only until the next mutation. A Set is not safe for concurrent use.
type Set struct {
	entries []entry
}

var fold = cases.Fold()

// Key returns the case-folded form of a fact name.
func Key(name string) string {
	return fold.String(strings.TrimSpace(name))
}

// New returns an empty set.
func New() *Set {
	return &Set{}
}

// FromFacts builds a set from facts. Later facts overwrite earlier ones
// with the same name. Weights are stored as given.
func FromFacts(facts []types.Fact) *Set {
	s := New()
	for _, f := range facts {
		s.Append(f.Name, f.Value, f.Weight)
	}
	return s
}

// search returns the insertion index for key and whether it is present.
func (s *Set) search(key string) (int, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].key >= key
	})
	return i, i < len(s.entries) && s.entries[i].key == key
}

// Append inserts a fact or overwrites the fact with the same name.
// A zero weight is kept, so a matching criterion scores nothing.
func (s *Set) Append(name, value string, weight float32) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := Key(name)
	e := entry{key: key, name: name, value: value, weight: weight}

	i, found := s.search(key)
	if found {
		s.entries[i] = e
		return
	}
	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// Merge appends every fact of other, overwriting same-named facts.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		s.Append(e.name, e.value, e.weight)
	}
}

// Remove deletes the named fact. It reports whether the fact existed.
func (s *Set) Remove(name string) bool {
	i, found := s.search(Key(name))
	if !found {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// Find returns the index of the named fact.
func (s *Set) Find(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	return s.search(Key(name))
}

// Lookup returns the value and weight of the named fact.
func (s *Set) Lookup(name string) (value string, weight float32, ok bool) {
	i, ok := s.Find(name)
	if !ok {
		return "", 0, false
	}
	return s.entries[i].value, s.entries[i].weight, true
}

// Len returns the number of facts.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Name returns the name of the fact at index i as it was appended.
func (s *Set) Name(i int) string { return s.entries[i].name }

// Value returns the value of the fact at index i.
func (s *Set) Value(i int) string { return s.entries[i].value }

// Weight returns the weight of the fact at index i.
func (s *Set) Weight(i int) float32 { return s.entries[i].weight }

// Facts returns the facts in name order.
func (s *Set) Facts() []types.Fact {
	if s == nil {
		return []types.Fact{}
	}
	out := make([]types.Fact, len(s.entries))
	for i, e := range s.entries {
		out[i] = types.Fact{Name: e.name, Value: e.value, Weight: e.weight}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	c := New()
	if s == nil {
		return c
	}
	c.entries = make([]entry, len(s.entries))
	copy(c.entries, s.entries)
	return c
}

// Clear removes every fact.
func (s *Set) Clear() {
	s.entries = s.entries[:0]
}

// String renders the set as "name:value[:weight]" pairs.
func (s *Set) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for i, e := range s.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.name)
		b.WriteByte(':')
		b.WriteString(e.value)
		if e.weight != DefaultWeight {
			b.WriteByte(':')
			b.WriteString(formatWeight(e.weight))
		}
	}
	return b.String()
}

func formatWeight(w float32) string {
	return strconv.FormatFloat(float64(w), 'g', -1, 32)
}
