package responses

import (
	"math/rand"
	"testing"

	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seededRandom struct{ src *rand.Rand }

func newSeededRandom(seed int64) *seededRandom {
	return &seededRandom{src: rand.New(rand.NewSource(seed))}
}

func (r *seededRandom) RandomInt(lo, hi int) int { return lo + r.src.Intn(hi-lo+1) }

func (r *seededRandom) RandomFloat(lo, hi float32) float32 {
	return lo + r.src.Float32()*(hi-lo)
}

// scriptedRandom replays fixed draws and records the float ranges asked for.
type scriptedRandom struct {
	floats []float32
	his    []float32
}

func (s *scriptedRandom) RandomInt(lo, hi int) int { return lo }

func (s *scriptedRandom) RandomFloat(lo, hi float32) float32 {
	s.his = append(s.his, hi)
	if len(s.floats) == 0 {
		return lo
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func newGroup(values ...string) *ruleset.Group {
	g := &ruleset.Group{ID: "test", DepleteBeforeRepeat: true}
	for _, v := range values {
		g.Responses = append(g.Responses, ruleset.Response{
			Type: types.ResponseSpeak, Value: v, Weight: 1, Target: -1,
		})
	}
	g.Reset()
	return g
}

func rejecting(values ...string) types.Filter {
	return types.FilterFunc(func(_ types.ResponseType, v string) bool {
		for _, r := range values {
			if r == v {
				return false
			}
		}
		return true
	})
}

var approveAll = types.FilterFunc(func(types.ResponseType, string) bool { return true })

func pick(t *testing.T, g *ruleset.Group, f types.Filter, rnd types.Random) string {
	t.Helper()
	i, ok := Select(g, f, rnd)
	require.True(t, ok, "selection missed")
	return g.Responses[i].Value
}

func TestSelect_DepletesBeforeRepeat(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := newGroup("a", "b", "c", "d")
		rnd := newSeededRandom(seed)

		seen := map[string]bool{}
		for i := 0; i < 4; i++ {
			v := pick(t, g, approveAll, rnd)
			require.False(t, seen[v], "seed %d repeated %q before exhausting the group", seed, v)
			seen[v] = true
		}
		assert.Equal(t, 1, g.Generation)
		assert.False(t, g.HasUndepleted())

		pick(t, g, approveAll, rnd)
		assert.Equal(t, 2, g.Generation, "the fifth call repeats only after a generation bump")
	}
}

func TestSelect_FirstIsSticky(t *testing.T) {
	g := newGroup("a", "b", "c")
	g.Responses[0].Weight = 100
	g.Responses[2].First = true

	rnd := newSeededRandom(7)
	assert.Equal(t, "c", pick(t, g, nil, rnd))
	assert.NotEqual(t, "c", pick(t, g, nil, rnd))
	assert.NotEqual(t, "c", pick(t, g, nil, rnd))

	// A new generation puts the first response first again.
	assert.Equal(t, "c", pick(t, g, nil, rnd))
}

func TestSelect_LastOnlyWhenAloneRemaining(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := newGroup("a", "z", "b")
		g.Responses[1].Last = true
		g.Responses[1].Weight = 1000
		rnd := newSeededRandom(seed)

		first := pick(t, g, nil, rnd)
		second := pick(t, g, nil, rnd)
		assert.NotEqual(t, "z", first)
		assert.NotEqual(t, "z", second)
		assert.Equal(t, "z", pick(t, g, nil, rnd))
	}
}

func TestSelect_FilterFakeDepletionIsRestored(t *testing.T) {
	g := newGroup("a", "b")
	rnd := newSeededRandom(1)

	assert.Equal(t, "b", pick(t, g, rejecting("a"), rnd))
	assert.False(t, g.IsDepleted(0), "a filter veto must not persist")
	assert.True(t, g.IsDepleted(1))

	assert.Equal(t, "a", pick(t, g, nil, rnd))
	assert.Equal(t, 1, g.Generation)
}

func TestSelect_FilterRejectsEverything(t *testing.T) {
	g := newGroup("a", "b")
	rnd := newSeededRandom(1)

	_, ok := Select(g, rejecting("a", "b"), rnd)
	assert.False(t, ok)
	assert.True(t, g.Enabled, "plain groups fail for this call only")
	assert.Equal(t, 0, g.Responses[0].Marker)
	assert.Equal(t, 0, g.Responses[1].Marker)

	assert.Equal(t, "a", pick(t, g, rejecting("b"), rnd))
}

func TestSelect_WeightedNoRepeatDisables(t *testing.T) {
	g := newGroup("a", "b")
	g.NoRepeat = true
	rnd := newSeededRandom(3)

	pick(t, g, nil, rnd)
	pick(t, g, nil, rnd)

	_, ok := Select(g, nil, rnd)
	assert.False(t, ok)
	assert.False(t, g.Enabled)

	_, ok = Select(g, nil, rnd)
	assert.False(t, ok)

	g.Reset()
	pick(t, g, nil, rnd)
}

func TestSelect_PermitRepeatsHonoursFilter(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		g := newGroup("a", "b", "c")
		g.DepleteBeforeRepeat = false
		v := pick(t, g, rejecting("b"), newSeededRandom(seed))
		assert.NotEqual(t, "b", v)
	}
}

func TestSelect_PermitRepeatsCanRepeat(t *testing.T) {
	g := newGroup("a", "b")
	g.DepleteBeforeRepeat = false
	rnd := newSeededRandom(5)

	counts := map[string]int{}
	for i := 0; i < 200; i++ {
		counts[pick(t, g, nil, rnd)]++
	}
	assert.Equal(t, 1, g.Generation)
	assert.Greater(t, counts["a"], 50)
	assert.Greater(t, counts["b"], 50)
}

func TestSelect_WeightedDistribution(t *testing.T) {
	g := newGroup("light", "heavy")
	g.DepleteBeforeRepeat = false
	g.Responses[1].Weight = 3
	rnd := newSeededRandom(11)

	counts := map[string]int{}
	const n = 4000
	for i := 0; i < n; i++ {
		counts[pick(t, g, nil, rnd)]++
	}
	assert.InDelta(t, 0.75, float64(counts["heavy"])/n, 0.04)
}

func TestSelect_StreamingSamplingOrder(t *testing.T) {
	// The first candidate is always taken at total == weight.
	g := newGroup("a", "b", "c")
	g.DepleteBeforeRepeat = false
	rnd := &scriptedRandom{floats: []float32{0.9, 1.5, 2.5}}
	assert.Equal(t, "a", pick(t, g, nil, rnd))
	assert.Equal(t, []float32{1, 2, 3}, rnd.his)

	// A vetoed candidate that loses the draw keeps its weight in the
	// running total; the later candidate then sees a larger total.
	g = newGroup("a", "b", "c")
	g.DepleteBeforeRepeat = false
	rnd = &scriptedRandom{floats: []float32{0.5, 1.5, 0.5}}
	assert.Equal(t, "c", pick(t, g, rejecting("b"), rnd))
	assert.Equal(t, []float32{1, 2, 3}, rnd.his)

	// A vetoed candidate that wins the draw is rolled back.
	g = newGroup("a", "b", "c")
	g.DepleteBeforeRepeat = false
	rnd = &scriptedRandom{floats: []float32{0.5, 0.5, 1.5}}
	assert.Equal(t, "a", pick(t, g, rejecting("b"), rnd))
	assert.Equal(t, []float32{1, 2, 2}, rnd.his)

	// A vetoed first candidate leaves nothing selected.
	g = newGroup("a", "b")
	g.DepleteBeforeRepeat = false
	rnd = &scriptedRandom{floats: []float32{0.5, 0.5}}
	assert.Equal(t, "b", pick(t, g, rejecting("a"), rnd))
	assert.Equal(t, []float32{1, 1}, rnd.his)
}

func TestSelect_Sequential(t *testing.T) {
	g := newGroup("a", "b", "c")
	g.Sequential = true

	var got []string
	for i := 0; i < 5; i++ {
		got = append(got, pick(t, g, nil, nil))
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, got)
	assert.True(t, g.Enabled)
}

func TestSelect_SequentialNoRepeatDisablesAfterOnePass(t *testing.T) {
	g := newGroup("a", "b", "c")
	g.Sequential = true
	g.NoRepeat = true

	assert.Equal(t, "a", pick(t, g, nil, nil))
	assert.Equal(t, "b", pick(t, g, nil, nil))
	assert.Equal(t, "c", pick(t, g, nil, nil))
	assert.False(t, g.Enabled)

	for i := 0; i < 3; i++ {
		_, ok := Select(g, nil, nil)
		assert.False(t, ok)
	}
}

func TestSelect_SequentialSkipsFiltered(t *testing.T) {
	g := newGroup("a", "b", "c")
	g.Sequential = true
	f := rejecting("b")

	assert.Equal(t, "a", pick(t, g, f, nil))
	assert.Equal(t, "c", pick(t, g, f, nil))
	assert.Equal(t, "a", pick(t, g, f, nil))
}

func TestSelect_SequentialAllFiltered(t *testing.T) {
	g := newGroup("a", "b")
	g.Sequential = true
	_, ok := Select(g, rejecting("a", "b"), nil)
	assert.False(t, ok)
	assert.True(t, g.Enabled)

	g.NoRepeat = true
	g.Reset()
	_, ok = Select(g, rejecting("a", "b"), nil)
	assert.False(t, ok)
	assert.False(t, g.Enabled)
}

func TestSelect_DisabledOrEmpty(t *testing.T) {
	g := newGroup("a")
	g.Enabled = false
	_, ok := Select(g, nil, newSeededRandom(1))
	assert.False(t, ok)

	_, ok = Select(newGroup(), nil, newSeededRandom(1))
	assert.False(t, ok)
}
