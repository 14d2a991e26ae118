package ruleset

import (
	"fmt"
	"sort"

	"github.com/nathoo/responsecore/engine/match"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
	"github.com/rs/zerolog"
)

// BuildWarning is a load-time anomaly. The offending item was skipped or
// repaired and building continued.
type BuildWarning struct {
	Kind   string // "criterion", "rule", "group", "enumeration", "response"
	Name   string
	Ref    string // referenced name, if any
	Reason string
}

func (w BuildWarning) String() string {
	if w.Ref != "" {
		return fmt.Sprintf("%s %q: %s %q", w.Kind, w.Name, w.Reason, w.Ref)
	}
	return fmt.Sprintf("%s %q: %s", w.Kind, w.Name, w.Reason)
}

// Options configures Build.
type Options struct {
	Logger zerolog.Logger
}

type builder struct {
	rs     *Ruleset
	log    zerolog.Logger
	defs   *state.Defs
	byName map[Symbol]int // criterion def index by name
	status map[Symbol]buildStatus
}

type buildStatus int

const (
	unbuilt buildStatus = iota
	visiting
	built
	failed
)

// Build compiles authored definitions into a ruleset. Anomalies never
// abort the build: they are logged, recorded as warnings and the
// offending item is skipped.
func Build(defs *state.Defs, opts Options) *Ruleset {
	b := &builder{
		rs:     newRuleset(),
		log:    opts.Logger,
		defs:   defs,
		byName: map[Symbol]int{},
		status: map[Symbol]buildStatus{},
	}
	b.buildEnumerations()
	b.buildGroups()
	b.buildCriteria()
	b.buildRules()
	return b.rs
}

func (b *builder) warn(w BuildWarning) {
	b.rs.warnings = append(b.rs.warnings, w)
	b.log.Warn().
		Str("kind", w.Kind).
		Str("name", w.Name).
		Str("ref", w.Ref).
		Str("reason", w.Reason).
		Msg("ruleset load warning")
}

func (b *builder) buildEnumerations() {
	for _, def := range b.defs.Enumerations {
		sym := b.rs.symbols.Intern(def.ID)
		if _, dup := b.rs.enums[sym]; dup {
			b.warn(BuildWarning{Kind: "enumeration", Name: def.ID, Reason: "duplicate name"})
			continue
		}
		values := make(map[Symbol]float32, len(def.Values))
		for key, v := range def.Values {
			values[b.rs.symbols.Intern(key)] = v
		}
		b.rs.enums[sym] = values
	}
}

func (b *builder) buildGroups() {
	for _, def := range b.defs.Groups {
		sym := b.rs.symbols.Intern(def.ID)
		if _, dup := b.rs.groupIndex[sym]; dup {
			b.warn(BuildWarning{Kind: "group", Name: def.ID, Reason: "duplicate name"})
			continue
		}
		g, ok := b.newGroup(def)
		if !ok {
			continue
		}
		b.rs.groupIndex[sym] = len(b.rs.groups)
		b.rs.groups = append(b.rs.groups, g)
	}

	// Group references resolve once every group has an index.
	for gi := range b.rs.groups {
		g := &b.rs.groups[gi]
		kept := g.Responses[:0]
		for _, r := range g.Responses {
			if r.Type == types.ResponseGroupRef {
				target, ok := b.rs.FindGroup(r.Value)
				if !ok {
					b.warn(BuildWarning{Kind: "response", Name: g.ID, Ref: r.Value, Reason: "references unknown group"})
					continue
				}
				r.Target = target
			}
			kept = append(kept, r)
		}
		g.Responses = kept
		if len(g.Responses) == 0 {
			b.warn(BuildWarning{Kind: "group", Name: g.ID, Reason: "has no usable responses"})
		}
	}
}

func (b *builder) newGroup(def types.ResponseGroupDef) (Group, bool) {
	g := Group{
		ID:                  def.ID,
		Params:              def.Params,
		Sequential:          def.Sequential,
		NoRepeat:            def.NoRepeat,
		DepleteBeforeRepeat: !def.PermitRepeats,
	}
	if def.NoRepeat && def.PermitRepeats && !def.Sequential {
		b.warn(BuildWarning{Kind: "group", Name: def.ID, Reason: "norepeat overrides permitrepeats"})
		g.DepleteBeforeRepeat = true
	}
	if g.Params.Odds < 0 || g.Params.Odds > 100 {
		b.warn(BuildWarning{Kind: "group", Name: def.ID, Reason: fmt.Sprintf("odds %d out of range, using 100", g.Params.Odds)})
		g.Params.Odds = 100
	}

	for _, rd := range def.Responses {
		if !validResponseType(rd.Type) {
			b.warn(BuildWarning{Kind: "response", Name: def.ID, Ref: string(rd.Type), Reason: "unknown response type"})
			continue
		}
		r := Response{
			Type:   rd.Type,
			Value:  rd.Value,
			Weight: rd.Weight,
			First:  rd.First,
			Last:   rd.Last,
			Target: -1,
		}
		if r.First && r.Last {
			b.warn(BuildWarning{Kind: "response", Name: def.ID, Ref: rd.Value, Reason: "cannot be both first and last, keeping first"})
			r.Last = false
		}
		g.Responses = append(g.Responses, r)
	}
	if len(g.Responses) == 0 {
		b.warn(BuildWarning{Kind: "group", Name: def.ID, Reason: "has no responses"})
		return Group{}, false
	}
	g.Reset()
	return g, true
}

func validResponseType(t types.ResponseType) bool {
	switch t {
	case types.ResponseNone, types.ResponseSpeak, types.ResponseSentence,
		types.ResponseScene, types.ResponseGroupRef, types.ResponsePrint:
		return true
	}
	return false
}

func (b *builder) buildCriteria() {
	for i, def := range b.defs.Criteria {
		sym := b.rs.symbols.Intern(def.ID)
		if _, dup := b.byName[sym]; dup {
			b.warn(BuildWarning{Kind: "criterion", Name: def.ID, Reason: "duplicate name"})
			continue
		}
		b.byName[sym] = i
	}
	for _, def := range b.defs.Criteria {
		b.criterion(def.ID)
	}
}

// criterion builds the named criterion and its children depth-first,
// returning its index. Cycles and failed children are reported.
func (b *builder) criterion(name string) (int, bool) {
	sym := b.rs.symbols.Lookup(name)
	defIdx, ok := b.byName[sym]
	if sym == NoSymbol || !ok {
		return 0, false
	}

	switch b.status[sym] {
	case built:
		return b.rs.criterionIndex[sym], true
	case failed:
		return 0, false
	case visiting:
		b.warn(BuildWarning{Kind: "criterion", Name: name, Reason: "is part of a reference cycle"})
		b.status[sym] = failed
		return 0, false
	}
	b.status[sym] = visiting

	def := b.defs.Criteria[defIdx]
	c, ok := b.compileCriterion(def)
	if !ok || b.status[sym] == failed {
		b.status[sym] = failed
		return 0, false
	}

	b.status[sym] = built
	idx := len(b.rs.criteria)
	b.rs.criteria = append(b.rs.criteria, c)
	b.rs.criterionIndex[sym] = idx
	return idx, true
}

func (b *builder) compileCriterion(def types.CriterionDef) (Criterion, bool) {
	c := Criterion{
		ID:       def.ID,
		Weight:   def.Weight,
		Required: def.Required,
	}

	isLeaf := def.Key != ""
	isComposite := len(def.Children) > 0
	switch {
	case isLeaf && isComposite:
		b.warn(BuildWarning{Kind: "criterion", Name: def.ID, Reason: "has both a fact name and children"})
		return c, false
	case !isLeaf && !isComposite:
		b.warn(BuildWarning{Kind: "criterion", Name: def.ID, Reason: "has neither a fact name nor children"})
		return c, false
	}

	if isComposite {
		for _, child := range def.Children {
			idx, ok := b.criterion(child)
			if !ok {
				b.warn(BuildWarning{Kind: "criterion", Name: def.ID, Ref: child, Reason: "skipping unusable child"})
				continue
			}
			c.Children = append(c.Children, idx)
		}
		if len(c.Children) == 0 {
			b.warn(BuildWarning{Kind: "criterion", Name: def.ID, Reason: "has no usable children"})
			return c, false
		}
		return c, true
	}

	m, err := match.Compile(def.Value, b.rs.LookupEnum)
	if err != nil {
		b.log.Error().Err(err).Str("criterion", def.ID).Msg("dropping criterion")
		b.rs.warnings = append(b.rs.warnings, BuildWarning{Kind: "criterion", Name: def.ID, Reason: err.Error()})
		return c, false
	}
	for _, ref := range m.Unresolved {
		b.warn(BuildWarning{Kind: "criterion", Name: def.ID, Ref: ref, Reason: "unresolved enumeration"})
	}
	c.Key = b.rs.symbols.Name(b.rs.symbols.Intern(def.Key))
	c.Value = def.Value
	c.Matcher = m
	return c, true
}

// buildRules scans rules in source order. Defs without one keep their
// slice order, and a duplicate name loses to the earlier definition.
func (b *builder) buildRules() {
	defs := make([]types.RuleDef, len(b.defs.Rules))
	copy(defs, b.defs.Rules)
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].SourceOrder < defs[j].SourceOrder
	})

	for _, def := range defs {
		sym := b.rs.symbols.Intern(def.ID)
		if _, dup := b.rs.ruleIndex[sym]; dup {
			b.warn(BuildWarning{Kind: "rule", Name: def.ID, Reason: "duplicate name"})
			continue
		}
		r, ok := b.newRule(def)
		if !ok {
			continue
		}
		b.rs.ruleIndex[sym] = len(b.rs.rules)
		b.rs.rules = append(b.rs.rules, r)
	}
}

func (b *builder) newRule(def types.RuleDef) (Rule, bool) {
	r := Rule{
		ID:                  def.ID,
		Enabled:             !def.Disabled,
		MatchOnce:           def.MatchOnce,
		Context:             def.Context,
		ApplyContextToWorld: def.ApplyContextToWorld,
	}

	if len(def.Criteria) == 0 {
		b.warn(BuildWarning{Kind: "rule", Name: def.ID, Reason: "has no criteria"})
		return r, false
	}
	for _, name := range def.Criteria {
		idx, ok := b.criterion(name)
		if !ok {
			// Dropping one criterion would widen the rule, so drop the rule.
			b.warn(BuildWarning{Kind: "rule", Name: def.ID, Ref: name, Reason: "references unknown or invalid criterion"})
			return r, false
		}
		r.Criteria = append(r.Criteria, idx)
	}

	for _, name := range def.Groups {
		idx, ok := b.rs.FindGroup(name)
		if !ok {
			b.warn(BuildWarning{Kind: "rule", Name: def.ID, Ref: name, Reason: "references unknown group"})
			continue
		}
		r.Groups = append(r.Groups, idx)
	}
	if len(r.Groups) == 0 {
		b.warn(BuildWarning{Kind: "rule", Name: def.ID, Reason: "has no usable response groups"})
		return r, false
	}
	return r, true
}
