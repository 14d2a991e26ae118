package rules

import (
	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/ruleset"
)

// ScoreRule returns the sum of a rule's top-level criterion scores. Any
// top-level exclusion voids the whole score, and an inactive rule always
// scores 0.
func ScoreRule(rs *ruleset.Ruleset, facts *criteria.Set, idx int, tr *Trace) float32 {
	r := rs.Rule(idx)
	if !r.Active() {
		return 0
	}

	tr.beginRule(r.ID)

	var total float32
	excluded := false
	for _, c := range r.Criteria {
		s, ex := ScoreCriterion(rs, facts, c, tr)
		if ex {
			// Keep scoring so the trace shows every criterion.
			excluded = true
			continue
		}
		total += s
	}
	if excluded {
		total = 0
	}

	tr.endRule(total, excluded)
	return total
}
