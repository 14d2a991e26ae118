// Package rules scores rules against a criteria set and selects the best
// one, breaking ties at random.
package rules

import (
	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/types"
)

// DefaultEpsilon is the score a rule must exceed to be selected.
const DefaultEpsilon float32 = 0.001

// Options configures SelectBest.
type Options struct {
	Epsilon float32 // 0 means DefaultEpsilon
	Trace   *Trace
}

// SelectBest scans every active rule and returns the index and score of
// the highest-scoring one. Equal best scores are broken uniformly at
// random. ok is false when no rule scores above the epsilon.
func SelectBest(rs *ruleset.Ruleset, facts *criteria.Set, rnd types.Random, opts Options) (idx int, score float32, ok bool) {
	// Step 1: Seed the best score so all-zero rules never qualify.
	best := opts.Epsilon
	if best <= 0 {
		best = DefaultEpsilon
	}

	// Step 2: Score every rule, keeping the tie set at the best score.
	var ties []int
	for i := 0; i < rs.NumRules(); i++ {
		s := ScoreRule(rs, facts, i, opts.Trace)
		switch {
		case s > best:
			best = s
			ties = append(ties[:0], i)
		case s == best:
			ties = append(ties, i)
		}
	}

	// Step 3: Break ties.
	switch len(ties) {
	case 0:
		return 0, 0, false
	case 1:
		return ties[0], best, true
	default:
		return ties[rnd.RandomInt(0, len(ties)-1)], best, true
	}
}
