// Package ruleset holds a built ruleset: the criteria tree, the rule
// database, the response groups with their selection state, and the
// enumerations. A Ruleset is built once from authored definitions and its
// selection state mutates on every dispatch until reset or rebuilt.
//
// A Ruleset is not safe for concurrent use. Distinct rulesets share nothing.
package ruleset

import (
	"github.com/nathoo/responsecore/engine/match"
	"github.com/nathoo/responsecore/types"
)

// Criterion is a node of the criteria tree. A leaf has Key, Value and
// Matcher set and no children; a composite has only Children.
type Criterion struct {
	ID       string
	Key      string // fact name, interned
	Value    string
	Matcher  match.Matcher
	Weight   float32
	Required bool
	Children []int // criterion indices
}

// IsLeaf reports whether c tests a fact directly.
func (c *Criterion) IsLeaf() bool {
	return len(c.Children) == 0
}

// Rule is a named bundle of criteria and candidate response groups.
type Rule struct {
	ID                  string
	Criteria            []int // criterion indices
	Groups              []int // group indices
	Enabled             bool
	MatchOnce           bool
	Spent               bool // a match-once rule that has fired
	Context             string
	ApplyContextToWorld bool
}

// Active reports whether the rule takes part in selection.
func (r *Rule) Active() bool {
	return r.Enabled && !r.Spent
}

// Ruleset is a built, queryable ruleset.
type Ruleset struct {
	symbols *Symbols

	criteria []Criterion
	rules    []Rule
	groups   []Group

	criterionIndex map[Symbol]int
	ruleIndex      map[Symbol]int
	groupIndex     map[Symbol]int
	enums          map[Symbol]map[Symbol]float32

	warnings []BuildWarning
}

func newRuleset() *Ruleset {
	return &Ruleset{
		symbols:        NewSymbols(),
		criterionIndex: map[Symbol]int{},
		ruleIndex:      map[Symbol]int{},
		groupIndex:     map[Symbol]int{},
		enums:          map[Symbol]map[Symbol]float32{},
	}
}

// Symbols returns the ruleset's interning table.
func (rs *Ruleset) Symbols() *Symbols { return rs.symbols }

// Warnings returns the anomalies found while building.
func (rs *Ruleset) Warnings() []BuildWarning { return rs.warnings }

// NumCriteria returns the number of criteria.
func (rs *Ruleset) NumCriteria() int { return len(rs.criteria) }

// NumRules returns the number of rules.
func (rs *Ruleset) NumRules() int { return len(rs.rules) }

// NumGroups returns the number of response groups.
func (rs *Ruleset) NumGroups() int { return len(rs.groups) }

// Criterion returns the criterion at index i.
func (rs *Ruleset) Criterion(i int) *Criterion { return &rs.criteria[i] }

// Rule returns the rule at index i.
func (rs *Ruleset) Rule(i int) *Rule { return &rs.rules[i] }

// Group returns the response group at index i.
func (rs *Ruleset) Group(i int) *Group { return &rs.groups[i] }

// FindCriterion returns the index of the named criterion.
func (rs *Ruleset) FindCriterion(name string) (int, bool) {
	return find(rs.criterionIndex, rs.symbols.Lookup(name))
}

// FindRule returns the index of the named rule.
func (rs *Ruleset) FindRule(name string) (int, bool) {
	return find(rs.ruleIndex, rs.symbols.Lookup(name))
}

// FindGroup returns the index of the named response group.
func (rs *Ruleset) FindGroup(name string) (int, bool) {
	return find(rs.groupIndex, rs.symbols.Lookup(name))
}

func find(index map[Symbol]int, sym Symbol) (int, bool) {
	if sym == NoSymbol {
		return 0, false
	}
	i, ok := index[sym]
	return i, ok
}

// LookupEnum resolves an enumeration reference. It satisfies match.EnumLookup.
func (rs *Ruleset) LookupEnum(enum, key string) (float32, bool) {
	values, ok := rs.enums[rs.symbols.Lookup(enum)]
	if !ok {
		return 0, false
	}
	v, ok := values[rs.symbols.Lookup(key)]
	return v, ok
}

// ResetSelectionState resets every group and re-arms every spent
// match-once rule.
func (rs *Ruleset) ResetSelectionState() {
	for i := range rs.groups {
		rs.groups[i].Reset()
	}
	for i := range rs.rules {
		rs.rules[i].Spent = false
	}
}

// AllResponses returns every concrete (non-reference) response in group
// order.
func (rs *Ruleset) AllResponses() []types.Response {
	var out []types.Response
	for i := range rs.groups {
		for _, r := range rs.groups[i].Responses {
			if r.Type == types.ResponseGroupRef {
				continue
			}
			out = append(out, types.Response{Type: r.Type, Value: r.Value})
		}
	}
	return out
}
