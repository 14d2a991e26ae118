// Package effects applies a fired rule's context to the remembered speaker
// and world facts. Every context item is one atomic write. No logic in
// effects.
package effects

import (
	"fmt"
	"time"

	"github.com/nathoo/responsecore/engine/events"
	"github.com/nathoo/responsecore/engine/parser"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
)

// ApplyContext writes the outcome's context string into the speaker's
// context, or the world's when the rule applies its context to the world.
// Each item is "name:value[:seconds]"; a positive duration expires the
// fact that long after now. Items are all parsed before any is applied.
func ApplyContext(ctx *state.Contexts, speaker string, out types.Outcome, now time.Time) ([]types.Event, error) {
	if !out.Matched || out.Context == "" {
		return nil, nil
	}
	mods, err := parser.Split(out.Context)
	if err != nil {
		return nil, fmt.Errorf("rule %s context: %w", out.Rule, err)
	}
	for _, m := range mods {
		if !m.HasValue {
			return nil, fmt.Errorf("rule %s context: %q has no value", out.Rule, m.Name)
		}
	}

	scope := speaker
	if out.ApplyContextToWorld {
		scope = state.WorldScope
	}

	var evts []types.Event
	for _, m := range mods {
		var expires time.Time
		if m.HasNum && m.Number > 0 {
			expires = now.Add(time.Duration(float64(m.Number) * float64(time.Second)))
		}
		ctx.Set(scope, m.Name, m.Value, expires)
		evts = append(evts, types.Event{
			Type: events.ContextApplied,
			Data: map[string]any{"scope": scope, "name": m.Name, "value": m.Value, "rule": out.Rule},
		})
	}
	return evts, nil
}

// Expire removes context facts whose duration has run out.
func Expire(ctx *state.Contexts, now time.Time) []types.Event {
	var evts []types.Event
	for _, key := range ctx.Expire(now) {
		evts = append(evts, types.Event{
			Type: events.ContextExpired,
			Data: map[string]any{"key": key},
		})
	}
	return evts
}
