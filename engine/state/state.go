// Package state holds the authored ruleset definitions and the mutable
// speaker and world contexts, with override layering (query facts override
// speaker context, which overrides world context).
package state

import (
	"sort"
	"time"

	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/types"
)

// Defs holds the immutable ruleset definitions loaded from Lua.
type Defs struct {
	Criteria     []types.CriterionDef
	Rules        []types.RuleDef
	Groups       []types.ResponseGroupDef
	Enumerations []types.EnumerationDef
}

// WorldScope is the scope name of the world context.
const WorldScope = ""

// Contexts holds the facts remembered between queries: one set for the
// world and one per speaker.
type Contexts struct {
	World    *criteria.Set
	Speakers map[string]*criteria.Set
	expiry   map[expiryKey]time.Time
}

type expiryKey struct {
	scope string
	name  string // folded
}

// NewContexts creates empty contexts.
func NewContexts() *Contexts {
	return &Contexts{
		World:    criteria.New(),
		Speakers: map[string]*criteria.Set{},
		expiry:   map[expiryKey]time.Time{},
	}
}

// Scope returns the set for a scope, creating speaker sets on demand.
// WorldScope returns the world set.
func (c *Contexts) Scope(scope string) *criteria.Set {
	if scope == WorldScope {
		return c.World
	}
	set, ok := c.Speakers[scope]
	if !ok {
		set = criteria.New()
		c.Speakers[scope] = set
	}
	return set
}

// Set writes a fact into a scope. A zero expiry means it never expires.
func (c *Contexts) Set(scope, name, value string, expires time.Time) {
	c.Scope(scope).Append(name, value, criteria.DefaultWeight)
	key := expiryKey{scope: scope, name: criteria.Key(name)}
	if expires.IsZero() {
		delete(c.expiry, key)
		return
	}
	c.expiry[key] = expires
}

// Gather layers world, speaker and query facts into a fresh set.
// query may be nil.
func (c *Contexts) Gather(speaker string, query *criteria.Set) *criteria.Set {
	out := c.World.Clone()
	if speaker != WorldScope {
		if set, ok := c.Speakers[speaker]; ok {
			out.Merge(set)
		}
	}
	out.Merge(query)
	return out
}

// Expire removes facts whose expiry is at or before now and returns the
// removed "scope:name" pairs in sorted order.
func (c *Contexts) Expire(now time.Time) []string {
	var removed []string
	for key, at := range c.expiry {
		if at.After(now) {
			continue
		}
		c.Scope(key.scope).Remove(key.name)
		delete(c.expiry, key)
		removed = append(removed, key.scope+":"+key.name)
	}
	sort.Strings(removed)
	return removed
}

// SpeakerNames returns the names of all speakers with context, sorted.
func (c *Contexts) SpeakerNames() []string {
	names := make([]string, 0, len(c.Speakers))
	for name := range c.Speakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears every context.
func (c *Contexts) Reset() {
	c.World.Clear()
	c.Speakers = map[string]*criteria.Set{}
	c.expiry = map[expiryKey]time.Time{}
}
