// Package responses selects concrete responses from response groups:
// weighted random selection with depletion, first/last stickiness, filter
// vetoes, sequential mode and group-reference resolution.
package responses

import (
	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/types"
)

// Select picks one response from g and marks it used. It returns the
// response index, or false when the group is disabled, empty or has
// nothing eligible. filter may be nil.
func Select(g *ruleset.Group, filter types.Filter, rnd types.Random) (int, bool) {
	if !g.Enabled || len(g.Responses) == 0 {
		return -1, false
	}
	if g.Sequential {
		return selectSequential(g, filter)
	}
	return selectWeighted(g, filter, rnd)
}

// fake is a provisional depletion, undone before Select returns.
type fake struct {
	index  int
	marker int
}

func allowed(filter types.Filter, r *ruleset.Response) bool {
	return filter == nil || filter.IsValidResponse(r.Type, r.Value)
}

// fakeDeplete marks every undepleted response the filter rejects as used,
// recording the previous markers.
func fakeDeplete(g *ruleset.Group, filter types.Filter, fakes []fake) []fake {
	for i := range g.Responses {
		if g.IsDepleted(i) {
			continue
		}
		if allowed(filter, &g.Responses[i]) {
			continue
		}
		fakes = append(fakes, fake{index: i, marker: g.Responses[i].Marker})
		g.MarkUsed(i)
	}
	return fakes
}

// restore undoes provisional depletions, newest first, so a response faked
// twice gets its original marker back.
func restore(g *ruleset.Group, fakes []fake) {
	for i := len(fakes) - 1; i >= 0; i-- {
		g.Responses[fakes[i].index].Marker = fakes[i].marker
	}
}

func selectWeighted(g *ruleset.Group, filter types.Filter, rnd types.Random) (int, bool) {
	checkFilter := filter != nil && g.DepleteBeforeRepeat

	// Step 1: Steer away from currently invalid responses without
	// permanently depleting them.
	var fakes []fake
	if checkFilter {
		fakes = fakeDeplete(g, filter, fakes)
	}
	defer func() { restore(g, fakes) }()

	// Step 2: Start a new generation when everything is used.
	if !g.HasUndepleted() {
		g.BumpGeneration()
		if checkFilter {
			fakes = fakeDeplete(g, filter, fakes)
		}
		if !g.HasUndepleted() {
			if g.NoRepeat {
				g.Enabled = false
			}
			return -1, false
		}
		if g.NoRepeat {
			// Every response has been used once; never repeat.
			g.Enabled = false
			return -1, false
		}
	}

	available := func(i int) bool {
		return !g.DepleteBeforeRepeat || !g.IsDepleted(i)
	}

	// Step 3: An unused first response always goes next.
	for i := range g.Responses {
		if g.Responses[i].First && !g.IsDepleted(i) && allowed(filter, &g.Responses[i]) {
			g.MarkUsed(i)
			return i, true
		}
	}

	// Step 4: A last response goes only when nothing else is left.
	last, others := -1, 0
	for i := range g.Responses {
		if !available(i) {
			continue
		}
		if g.Responses[i].Last {
			if last < 0 && allowed(filter, &g.Responses[i]) {
				last = i
			}
			continue
		}
		others++
	}
	if others == 0 {
		if last < 0 {
			return -1, false
		}
		g.MarkUsed(last)
		return last, true
	}

	// Step 5: Streaming weighted sampling. Each candidate replaces the
	// running choice with probability weight/total-so-far.
	var total float32
	chosen := -1
	for i := range g.Responses {
		r := &g.Responses[i]
		if !available(i) || r.Last {
			continue
		}
		total += r.Weight
		if rnd.RandomFloat(0, total) > r.Weight {
			continue
		}
		if !g.DepleteBeforeRepeat && !allowed(filter, r) {
			total -= r.Weight
			continue
		}
		chosen = i
	}
	if chosen < 0 {
		return -1, false
	}

	// Step 6: Mark the choice used; deferred restore undoes the fakes.
	g.MarkUsed(chosen)
	return chosen, true
}

func selectSequential(g *ruleset.Group, filter types.Filter) (int, bool) {
	n := len(g.Responses)
	if g.Cursor < 0 || g.Cursor >= n {
		g.Cursor = 0
	}

	for tries := 0; tries < n; tries++ {
		idx := g.Cursor
		g.Cursor++
		if g.Cursor >= n {
			g.Cursor = 0
			if g.NoRepeat {
				g.Enabled = false
			}
		}
		if allowed(filter, &g.Responses[idx]) {
			g.MarkUsed(idx)
			return idx, true
		}
		if !g.Enabled {
			return -1, false
		}
	}

	if g.NoRepeat {
		g.Enabled = false
	}
	return -1, false
}
