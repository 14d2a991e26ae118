package responses

import (
	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/types"
)

// DefaultMaxDepth bounds how many group references one resolution follows.
const DefaultMaxDepth = 8

// Step records one group visited during resolution and what selecting
// from it did to the group.
type Step struct {
	Group     int
	Exhausted bool // a new generation was started
	Disabled  bool // the group disabled itself
}

// Selection is a resolved response and the group it was finally drawn from.
// Steps is filled in on a miss as well.
type Selection struct {
	Response types.Response
	Group    int
	Index    int
	Depth    int // group references followed
	Steps    []Step
}

// Resolve selects from a group, following group-reference responses into
// their target groups. Following more than maxDepth references is a miss,
// so reference cycles terminate. maxDepth <= 0 means DefaultMaxDepth.
func Resolve(rs *ruleset.Ruleset, group int, filter types.Filter, rnd types.Random, maxDepth int) (Selection, bool) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var sel Selection
	for depth := 0; depth <= maxDepth; depth++ {
		g := rs.Group(group)
		gen, enabled := g.Generation, g.Enabled
		i, ok := Select(g, filter, rnd)
		sel.Steps = append(sel.Steps, Step{
			Group:     group,
			Exhausted: g.Generation != gen,
			Disabled:  enabled && !g.Enabled,
		})
		if !ok {
			return sel, false
		}
		r := g.Responses[i]
		if r.Type != types.ResponseGroupRef {
			sel.Response = types.Response{Type: r.Type, Value: r.Value}
			sel.Group = group
			sel.Index = i
			sel.Depth = depth
			return sel, true
		}
		group = r.Target
	}
	return sel, false
}
