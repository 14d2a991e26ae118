// Package loader loads Lua ruleset content into Go structs at load time.
// The Lua VM is discarded after loading, so no Lua runs at dispatch time.
package loader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
)

// reader reads typed fields from one definition table, recording type
// errors and unknown fields.
type reader struct {
	what  string // e.g. `criterion "IsHello"`
	tbl   *lua.LTable
	ve    *ValidationError
	known map[string]bool
}

func newReader(what string, tbl *lua.LTable, ve *ValidationError) *reader {
	return &reader{what: what, tbl: tbl, ve: ve, known: map[string]bool{}}
}

func (r *reader) get(key string) lua.LValue {
	r.known[key] = true
	return r.tbl.RawGetString(key)
}

func (r *reader) typeError(key, want string, v lua.LValue) {
	r.ve.Errors = append(r.ve.Errors, fmt.Sprintf(
		"%s: field %q: expected %s, got %s", r.what, key, want, v.Type()))
}

// str returns a string field, or "" if missing. Numbers are accepted and
// formatted.
func (r *reader) str(key string) string {
	switch v := r.get(key).(type) {
	case *lua.LNilType:
		return ""
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	default:
		r.typeError(key, "string", v)
		return ""
	}
}

// boolean returns a bool field, or def if missing.
func (r *reader) boolean(key string, def bool) bool {
	switch v := r.get(key).(type) {
	case *lua.LNilType:
		return def
	case lua.LBool:
		return bool(v)
	default:
		r.typeError(key, "boolean", v)
		return def
	}
}

// number returns a numeric field, or def if missing.
func (r *reader) number(key string, def float64) float64 {
	switch v := r.get(key).(type) {
	case *lua.LNilType:
		return def
	case lua.LNumber:
		return float64(v)
	default:
		r.typeError(key, "number", v)
		return def
	}
}

// names returns a list of names given either as a table of strings or as
// one whitespace-separated string.
func (r *reader) names(key string) []string {
	switch v := r.get(key).(type) {
	case *lua.LNilType:
		return nil
	case lua.LString:
		return strings.Fields(string(v))
	case *lua.LTable:
		var out []string
		for i := 1; i <= v.MaxN(); i++ {
			s, ok := v.RawGetInt(i).(lua.LString)
			if !ok {
				r.typeError(fmt.Sprintf("%s[%d]", key, i), "string", v.RawGetInt(i))
				continue
			}
			out = append(out, string(s))
		}
		return out
	default:
		r.typeError(key, "string or table", v)
		return nil
	}
}

// table returns a table field, or nil if missing.
func (r *reader) table(key string) *lua.LTable {
	switch v := r.get(key).(type) {
	case *lua.LNilType:
		return nil
	case *lua.LTable:
		return v
	default:
		r.typeError(key, "table", v)
		return nil
	}
}

// interval reads "min,max", a single number, or { min, max }.
func (r *reader) interval(key string) types.Interval {
	switch v := r.get(key).(type) {
	case *lua.LNilType:
		return types.Interval{}
	case lua.LNumber:
		return types.Interval{Min: float32(v), Max: float32(v)}
	case lua.LString:
		iv, err := parseInterval(string(v))
		if err != nil {
			r.ve.Errors = append(r.ve.Errors, fmt.Sprintf("%s: field %q: %v", r.what, key, err))
		}
		return iv
	case *lua.LTable:
		lo, ok1 := v.RawGetInt(1).(lua.LNumber)
		hi, ok2 := v.RawGetInt(2).(lua.LNumber)
		if !ok1 || !ok2 {
			r.typeError(key, "{ min, max }", v)
			return types.Interval{}
		}
		return r.checkInterval(key, types.Interval{Min: float32(lo), Max: float32(hi)})
	default:
		r.typeError(key, "interval", v)
		return types.Interval{}
	}
}

func (r *reader) checkInterval(key string, iv types.Interval) types.Interval {
	if iv.Max < iv.Min {
		r.ve.Errors = append(r.ve.Errors, fmt.Sprintf(
			"%s: field %q: max %v is below min %v", r.what, key, iv.Max, iv.Min))
	}
	return iv
}

// parseInterval parses "min,max" or "value".
func parseInterval(s string) (types.Interval, error) {
	first, second, found := strings.Cut(s, ",")
	lo, err := strconv.ParseFloat(strings.TrimSpace(first), 32)
	if err != nil {
		return types.Interval{}, fmt.Errorf("bad interval %q", s)
	}
	hi := lo
	if found {
		hi, err = strconv.ParseFloat(strings.TrimSpace(second), 32)
		if err != nil {
			return types.Interval{}, fmt.Errorf("bad interval %q", s)
		}
	}
	if hi < lo {
		return types.Interval{}, fmt.Errorf("interval %q: max is below min", s)
	}
	return types.Interval{Min: float32(lo), Max: float32(hi)}, nil
}

// done warns about string-keyed fields nothing read.
func (r *reader) done() {
	var unknown []string
	r.tbl.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok && !r.known[string(ks)] {
			unknown = append(unknown, string(ks))
		}
	})
	sort.Strings(unknown)
	for _, key := range unknown {
		r.ve.Warnings = append(r.ve.Warnings, fmt.Sprintf("%s: unknown field %q", r.what, key))
	}
}

// compile converts all collected Lua data into a Defs struct. Type errors
// and unknown fields are collected rather than returned one at a time.
func compile(coll *collector) (*state.Defs, *ValidationError) {
	defs := &state.Defs{}
	ve := &ValidationError{}

	for _, raw := range coll.enums {
		defs.Enumerations = append(defs.Enumerations, compileEnumeration(raw, ve))
	}
	for _, raw := range coll.criteria {
		defs.Criteria = append(defs.Criteria, compileCriterion(raw, ve))
	}
	for _, raw := range coll.groups {
		defs.Groups = append(defs.Groups, compileGroup(raw, ve))
	}
	for _, raw := range coll.rules {
		defs.Rules = append(defs.Rules, compileRule(raw, ve))
	}
	return defs, ve
}

func compileEnumeration(raw rawDef, ve *ValidationError) types.EnumerationDef {
	enum := types.EnumerationDef{ID: raw.id, Values: map[string]float32{}}
	raw.table.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"enumeration %q (%s): keys must be names", raw.id, raw.file))
			return
		}
		n, ok := v.(lua.LNumber)
		if !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"enumeration %q (%s): %s: expected number, got %s", raw.id, raw.file, key, v.Type()))
			return
		}
		enum.Values[string(key)] = float32(n)
	})
	return enum
}

func compileCriterion(raw rawDef, ve *ValidationError) types.CriterionDef {
	r := newReader(fmt.Sprintf("criterion %q (%s)", raw.id, raw.file), raw.table, ve)
	c := types.CriterionDef{
		ID:       raw.id,
		Key:      r.str("name"),
		Value:    r.str("value"),
		Weight:   float32(r.number("weight", 1)),
		Required: r.boolean("required", false),
		Children: r.names("children"),
	}
	r.done()
	return c
}

func compileGroup(raw rawDef, ve *ValidationError) types.ResponseGroupDef {
	what := fmt.Sprintf("response group %q (%s)", raw.id, raw.file)
	r := newReader(what, raw.table, ve)
	g := types.ResponseGroupDef{
		ID:            raw.id,
		Sequential:    r.boolean("sequential", false),
		NoRepeat:      r.boolean("norepeat", false),
		PermitRepeats: r.boolean("permitrepeats", false),
		Params:        types.ResponseParams{Odds: 100},
	}
	if params := r.table("params"); params != nil {
		g.Params = compileParams(newReader(what+" params", params, ve))
	}
	r.done()

	for i := 1; i <= raw.table.MaxN(); i++ {
		entry, ok := raw.table.RawGetInt(i).(*lua.LTable)
		if !ok || entry.RawGetString(responseKey) == lua.LNil {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s: entry %d is not a response (use Speak, Sentence, Scene, Response or Print)", what, i))
			continue
		}
		g.Responses = append(g.Responses, compileResponse(what, i, entry, ve))
	}
	return g
}

func compileParams(r *reader) types.ResponseParams {
	p := types.ResponseParams{
		Delay:         r.interval("delay"),
		PreDelay:      r.interval("predelay"),
		RespeakDelay:  r.interval("respeakdelay"),
		WeaponDelay:   r.interval("weapondelay"),
		Odds:          int(r.number("odds", 100)),
		SoundLevel:    r.str("soundlevel"),
		SpeakOnce:     r.boolean("speakonce", false),
		NoScene:       r.boolean("noscene", false),
		StopOnNonIdle: r.boolean("stop_on_nonidle", false),
	}
	r.done()
	return p
}

func compileResponse(group string, i int, tbl *lua.LTable, ve *ValidationError) types.ResponseDef {
	r := newReader(fmt.Sprintf("%s entry %d", group, i), tbl, ve)
	resp := types.ResponseDef{
		Type:   types.ResponseType(r.str(responseKey)),
		Value:  r.str("value"),
		Weight: float32(r.number("weight", 1)),
		First:  r.boolean("first", false),
		Last:   r.boolean("last", false),
	}
	r.done()
	if resp.Value == "" {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s entry %d: %s has no value", group, i, resp.Type))
	}
	return resp
}

func compileRule(raw rawDef, ve *ValidationError) types.RuleDef {
	r := newReader(fmt.Sprintf("rule %q (%s)", raw.id, raw.file), raw.table, ve)
	rule := types.RuleDef{
		ID:                  raw.id,
		Criteria:            r.names("criteria"),
		Groups:              r.names("response"),
		Disabled:            !r.boolean("enabled", true),
		MatchOnce:           r.boolean("matchonce", false),
		Context:             r.str("context"),
		ApplyContextToWorld: r.boolean("applycontexttoworld", false),
		SourceOrder:         raw.order,
	}
	r.done()
	return rule
}
