// Package engine provides FindBestResponse, the top-level resolver that
// wires together rule selection, response-group resolution, context
// application and events into a single dispatch.
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/effects"
	"github.com/nathoo/responsecore/engine/events"
	"github.com/nathoo/responsecore/engine/responses"
	"github.com/nathoo/responsecore/engine/rules"
	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/engine/save"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
)

// Options configures an Engine.
type Options struct {
	// Name is the registry name, DefaultName when empty.
	Name      string
	Seed      int64
	MaxDepth  int     // group-reference depth, 0 means responses.DefaultMaxDepth
	Epsilon   float32 // score threshold, 0 means rules.DefaultEpsilon
	Lifecycle Lifecycle
	Logger    zerolog.Logger
}

// Engine holds a built ruleset, the remembered contexts and the RNG that
// drives tie-breaks and sampling. An Engine is not safe for concurrent
// use; distinct engines share nothing.
type Engine struct {
	Name      string
	Defs      *state.Defs
	Ruleset   *ruleset.Ruleset
	Contexts  *state.Contexts
	RNG       *RNG
	Lifecycle Lifecycle

	maxDepth  int
	epsilon   float32
	handlers  []events.Handler
	precache  bool
	precached []types.Response
	logger    zerolog.Logger
}

// New builds an engine from definitions. Load warnings are logged and kept
// on the ruleset.
func New(defs *state.Defs, opts Options) *Engine {
	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	e := &Engine{
		Name:      name,
		Contexts:  state.NewContexts(),
		RNG:       NewRNG(opts.Seed),
		Lifecycle: opts.Lifecycle,
		maxDepth:  opts.MaxDepth,
		epsilon:   opts.Epsilon,
		precache:  opts.Lifecycle.PrecacheOnLoad,
		logger:    opts.Logger.With().Str("ruleset", name).Logger(),
	}
	e.Reload(defs)
	return e
}

// Reload rebuilds the ruleset from new definitions. Selection state starts
// fresh; contexts are kept.
func (e *Engine) Reload(defs *state.Defs) []ruleset.BuildWarning {
	e.Defs = defs
	e.Ruleset = ruleset.Build(defs, ruleset.Options{Logger: e.logger})
	e.logger.Info().
		Int("criteria", e.Ruleset.NumCriteria()).
		Int("rules", e.Ruleset.NumRules()).
		Int("groups", e.Ruleset.NumGroups()).
		Int("warnings", len(e.Ruleset.Warnings())).
		Msg("ruleset loaded")
	e.precached = nil
	if e.precache {
		e.precacheAll()
	}
	return e.Ruleset.Warnings()
}

// RestoreRNG re-creates the RNG from seed and advances to the saved position.
func (e *Engine) RestoreRNG(seed int64, position int64) {
	e.RNG = RestoreRNG(seed, position)
}

// On registers a handler for an event type. An empty type matches every
// event.
func (e *Engine) On(eventType string, fn func(types.Event)) {
	e.handlers = append(e.handlers, events.Handler{EventType: eventType, Fn: fn})
}

// FindBestResponse picks the best rule for facts and resolves one of its
// response groups to a concrete response. filter may be nil.
func (e *Engine) FindBestResponse(facts *criteria.Set, filter types.Filter) types.Outcome {
	out := e.find(facts, filter, nil)
	events.Dispatch(out.Events, e.handlers)
	return out
}

// FindBestResponseTrace is FindBestResponse with a scoring trace.
func (e *Engine) FindBestResponseTrace(facts *criteria.Set, filter types.Filter) (types.Outcome, *rules.Trace) {
	tr := &rules.Trace{}
	out := e.find(facts, filter, tr)
	events.Dispatch(out.Events, e.handlers)
	return out, tr
}

// Respond runs a full dispatch for a speaker: expired context is dropped,
// the world and speaker contexts are layered under the query, and the
// winning rule's context is applied. tr may be nil.
func (e *Engine) Respond(speaker string, query *criteria.Set, filter types.Filter, now time.Time, tr *rules.Trace) (types.Outcome, error) {
	expired := effects.Expire(e.Contexts, now)

	facts := e.Contexts.Gather(speaker, query)
	out := e.find(facts, filter, tr)
	out.Events = append(expired, out.Events...)

	applied, err := effects.ApplyContext(e.Contexts, speaker, out, now)
	if err != nil {
		e.logger.Warn().Err(err).Str("rule", out.Rule).Msg("context not applied")
	}
	out.Events = append(out.Events, applied...)

	events.Dispatch(out.Events, e.handlers)
	return out, err
}

func (e *Engine) find(facts *criteria.Set, filter types.Filter, tr *rules.Trace) types.Outcome {
	var out types.Outcome
	if facts == nil {
		facts = criteria.New()
	}

	// 1. Select the best rule.
	ri, score, ok := rules.SelectBest(e.Ruleset, facts, e.RNG, rules.Options{Epsilon: e.epsilon, Trace: tr})
	if !ok {
		out.Events = append(out.Events, event(events.SelectionMiss, "reason", "no_rule"))
		e.logger.Debug().Stringer("facts", facts).Msg("no rule matched")
		return out
	}
	rule := e.Ruleset.Rule(ri)
	out.Matched = true
	out.Rule = rule.ID
	out.Score = score
	out.Context = rule.Context
	out.ApplyContextToWorld = rule.ApplyContextToWorld
	out.Events = append(out.Events, event(events.RuleMatched, "rule", rule.ID, "score", score))

	// 2. Pick one of the rule's groups.
	gi := rule.Groups[0]
	if len(rule.Groups) > 1 {
		gi = rule.Groups[e.RNG.RandomInt(0, len(rule.Groups)-1)]
	}

	// 3. Resolve the group to a concrete response.
	sel, ok := responses.Resolve(e.Ruleset, gi, filter, e.RNG, e.maxDepth)
	for _, step := range sel.Steps {
		name := e.Ruleset.Group(step.Group).ID
		if step.Exhausted {
			out.Events = append(out.Events, event(events.GroupExhausted, "group", name))
		}
		if step.Disabled {
			out.Events = append(out.Events, event(events.GroupDisabled, "group", name))
		}
	}
	if ok {
		g := e.Ruleset.Group(sel.Group)
		out.Response = sel.Response
		out.Group = g.ID
		out.Params = g.Params
		out.Events = append(out.Events, event(events.ResponseSelected,
			"rule", rule.ID, "group", g.ID, "type", string(sel.Response.Type), "value", sel.Response.Value))
	} else {
		out.Group = e.Ruleset.Group(gi).ID
		out.Events = append(out.Events, event(events.SelectionMiss, "reason", "no_response", "rule", rule.ID, "group", out.Group))
		e.logger.Debug().Str("rule", rule.ID).Str("group", out.Group).Msg("rule matched with nothing to say")
	}

	// 4. A match-once rule never fires again until reset.
	if rule.MatchOnce {
		rule.Spent = true
		out.Events = append(out.Events, event(events.RuleDisabled, "rule", rule.ID))
	}

	return out
}

func event(typ string, kv ...any) types.Event {
	data := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i].(string)] = kv[i+1]
	}
	return types.Event{Type: typ, Data: data}
}

// GetAllResponses returns every concrete response in the ruleset.
func (e *Engine) GetAllResponses() []types.Response {
	return e.Ruleset.AllResponses()
}

// PrecacheResponses turns response precaching on or off. Turning it on
// precaches every response immediately and after every reload.
func (e *Engine) PrecacheResponses(enable bool) {
	e.precache = enable
	if !enable {
		e.precached = nil
		return
	}
	e.precacheAll()
}

// Precached returns the responses handed to the precache hook since the
// last reload.
func (e *Engine) Precached() []types.Response {
	return e.precached
}

func (e *Engine) precacheAll() {
	e.precached = e.GetAllResponses()
	if e.Lifecycle.Precache != nil {
		for _, r := range e.precached {
			e.Lifecycle.Precache(r)
		}
	}
	e.logger.Debug().Int("responses", len(e.precached)).Msg("responses precached")
}

// NewRound applies the lifecycle's round boundary policy.
func (e *Engine) NewRound() {
	if e.Lifecycle.ResetOnNewRound {
		e.Ruleset.ResetSelectionState()
	}
	if e.Lifecycle.ClearContextsOnNewRound {
		e.Contexts.Reset()
	}
	e.logger.Info().Str("policy", e.Lifecycle.Name).Msg("new round")
}

// ResetSelectionState resets every group and re-arms match-once rules.
func (e *Engine) ResetSelectionState() {
	e.Ruleset.ResetSelectionState()
}

// Save serializes the engine's selection state, contexts and RNG position.
func (e *Engine) Save() ([]byte, error) {
	return save.Save(e.Name, e.Ruleset, e.Contexts, e.RNG.Seed(), e.RNG.Position())
}

// Load restores state produced by Save.
func (e *Engine) Load(data []byte) error {
	sd, err := save.Load(data)
	if err != nil {
		return err
	}
	save.Apply(e.Ruleset, e.Contexts, sd)
	e.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	return nil
}
