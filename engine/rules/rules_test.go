package rules

import (
	"math/rand"
	"testing"

	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
)

// seededRandom implements types.Random over math/rand.
type seededRandom struct{ src *rand.Rand }

func newSeededRandom(seed int64) *seededRandom {
	return &seededRandom{src: rand.New(rand.NewSource(seed))}
}

func (r *seededRandom) RandomInt(lo, hi int) int {
	return lo + r.src.Intn(hi-lo+1)
}

func (r *seededRandom) RandomFloat(lo, hi float32) float32 {
	return lo + r.src.Float32()*(hi-lo)
}

// tiedDefs has four rules that all score 1 on concept:hello alone;
// "Best" pulls ahead when who:npc is present.
func tiedDefs() *state.Defs {
	return &state.Defs{
		Criteria: []types.CriterionDef{
			{ID: "IsHello", Key: "concept", Value: "hello", Weight: 1, Required: true},
			{ID: "IsNPC", Key: "who", Value: "npc", Weight: 1},
		},
		Groups: []types.ResponseGroupDef{
			{ID: "G", Responses: []types.ResponseDef{{Type: types.ResponseSpeak, Value: "x", Weight: 1}}},
		},
		Rules: []types.RuleDef{
			{ID: "A", Criteria: []string{"IsHello"}, Groups: []string{"G"}},
			{ID: "B", Criteria: []string{"IsHello"}, Groups: []string{"G"}},
			{ID: "C", Criteria: []string{"IsHello"}, Groups: []string{"G"}},
			{ID: "Best", Criteria: []string{"IsHello", "IsNPC"}, Groups: []string{"G"}},
		},
	}
}

func TestSelectBest_HighestWins(t *testing.T) {
	rs := ruleset.Build(tiedDefs(), ruleset.Options{})
	facts := criteria.FromFacts([]types.Fact{
		{Name: "concept", Value: "hello", Weight: 1},
		{Name: "who", Value: "npc", Weight: 1},
	})

	idx, score, ok := SelectBest(rs, facts, newSeededRandom(1), Options{})
	if !ok {
		t.Fatal("expected a match")
	}
	if got := rs.Rule(idx).ID; got != "Best" {
		t.Errorf("winner = %q, want Best", got)
	}
	if score != 2 {
		t.Errorf("score = %v, want 2", score)
	}
}

func TestSelectBest_NoMatch(t *testing.T) {
	rs := ruleset.Build(tiedDefs(), ruleset.Options{})
	facts := criteria.FromFacts([]types.Fact{{Name: "concept", Value: "bye", Weight: 1}})

	if _, _, ok := SelectBest(rs, facts, newSeededRandom(1), Options{}); ok {
		t.Error("all-zero rules must never qualify")
	}
}

func TestSelectBest_ZeroWeights(t *testing.T) {
	t.Run("fact", func(t *testing.T) {
		rs := ruleset.Build(tiedDefs(), ruleset.Options{})
		facts := criteria.FromFacts([]types.Fact{{Name: "concept", Value: "hello", Weight: 0}})

		if _, score, ok := SelectBest(rs, facts, newSeededRandom(1), Options{}); ok {
			t.Errorf("zero-weight fact selected a rule with score %v", score)
		}
	})

	t.Run("criterion", func(t *testing.T) {
		defs := tiedDefs()
		defs.Criteria[0].Weight = 0
		rs := ruleset.Build(defs, ruleset.Options{})
		facts := criteria.FromFacts([]types.Fact{{Name: "concept", Value: "hello", Weight: 1}})

		if _, score, ok := SelectBest(rs, facts, newSeededRandom(1), Options{}); ok {
			t.Errorf("zero-weight criterion selected a rule with score %v", score)
		}
	})
}

func TestSelectBest_EpsilonThreshold(t *testing.T) {
	rs := ruleset.Build(tiedDefs(), ruleset.Options{})
	facts := criteria.FromFacts([]types.Fact{{Name: "concept", Value: "hello", Weight: 1}})

	if _, _, ok := SelectBest(rs, facts, newSeededRandom(1), Options{Epsilon: 5}); ok {
		t.Error("scores below the epsilon must not qualify")
	}
}

func TestSelectBest_DeterministicWithSeed(t *testing.T) {
	facts := criteria.FromFacts([]types.Fact{{Name: "concept", Value: "hello", Weight: 1}})

	var first string
	for run := 0; run < 5; run++ {
		rs := ruleset.Build(tiedDefs(), ruleset.Options{})
		idx, _, ok := SelectBest(rs, facts, newSeededRandom(42), Options{})
		if !ok {
			t.Fatal("expected a match")
		}
		name := rs.Rule(idx).ID
		if run == 0 {
			first = name
		} else if name != first {
			t.Fatalf("run %d picked %q, run 0 picked %q", run, name, first)
		}
	}
}

func TestSelectBest_TiesAreUniform(t *testing.T) {
	rs := ruleset.Build(tiedDefs(), ruleset.Options{})
	facts := criteria.FromFacts([]types.Fact{{Name: "concept", Value: "hello", Weight: 1}})

	counts := map[string]int{}
	const n = 3000
	for seed := int64(0); seed < n; seed++ {
		idx, _, _ := SelectBest(rs, facts, newSeededRandom(seed), Options{})
		counts[rs.Rule(idx).ID]++
	}

	for _, name := range []string{"A", "B", "C", "Best"} {
		if counts[name] < 600 || counts[name] > 900 {
			t.Errorf("%s won %d of %d, want roughly a quarter", name, counts[name], n)
		}
	}
}

func TestSelectBest_TraceRecordsEveryRule(t *testing.T) {
	rs := ruleset.Build(tiedDefs(), ruleset.Options{})
	facts := criteria.FromFacts([]types.Fact{{Name: "concept", Value: "hello", Weight: 1}})

	tr := &Trace{}
	SelectBest(rs, facts, newSeededRandom(1), Options{Trace: tr})
	if len(tr.Rules) != 4 {
		t.Errorf("trace has %d rules, want 4", len(tr.Rules))
	}
}
