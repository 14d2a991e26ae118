package rules

import (
	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/ruleset"
)

// ScoreCriterion scores one node of the criteria tree against facts.
//
// A leaf scores fact.weight * node.weight when its matcher accepts the fact
// value (an absent fact is the empty string) and 0 otherwise; a failed
// required leaf excludes. A composite scores node.weight times the sum of
// its children and excludes when required and that sum is 0. Exclusion
// from a child does not propagate through a composite.
func ScoreCriterion(rs *ruleset.Ruleset, facts *criteria.Set, idx int, tr *Trace) (float32, bool) {
	return scoreNode(rs, facts, idx, 0, tr)
}

func scoreNode(rs *ruleset.Ruleset, facts *criteria.Set, idx, depth int, tr *Trace) (float32, bool) {
	c := rs.Criterion(idx)

	if !c.IsLeaf() {
		var sum float32
		for _, child := range c.Children {
			s, _ := scoreNode(rs, facts, child, depth+1, tr)
			sum += s
		}
		score := c.Weight * sum
		exclude := c.Required && sum == 0
		tr.criterion(TraceEntry{
			Criterion: c.ID,
			Depth:     depth,
			Matched:   sum > 0,
			Score:     score,
			Excluded:  exclude,
		})
		return score, exclude
	}

	value, weight, found := facts.Lookup(c.Key)
	if !found {
		value = ""
	}
	matched := c.Matcher.Match(value, rs.LookupEnum)

	var score float32
	exclude := false
	if matched {
		// An absent fact that matches (e.g. "!hello") counts with weight 1.
		if !found {
			weight = criteria.DefaultWeight
		}
		score = weight * c.Weight
	} else if c.Required {
		exclude = true
	}

	tr.criterion(TraceEntry{
		Criterion: c.ID,
		Depth:     depth,
		Key:       c.Key,
		Expr:      c.Value,
		Value:     value,
		Found:     found,
		Matched:   matched,
		Score:     score,
		Excluded:  exclude,
	})
	return score, exclude
}
