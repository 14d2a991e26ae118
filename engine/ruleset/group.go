package ruleset

import "github.com/nathoo/responsecore/types"

// Response is one entry of a response group.
type Response struct {
	Type   types.ResponseType
	Value  string
	Weight float32
	First  bool
	Last   bool
	Target int // group index for ResponseGroupRef, -1 otherwise

	// Marker records the generation in which the response was last used.
	Marker int
}

// Group is a response group plus its mutable selection state.
type Group struct {
	ID        string
	Responses []Response
	Params    types.ResponseParams

	Sequential          bool
	NoRepeat            bool
	DepleteBeforeRepeat bool

	Generation int
	Cursor     int
	Enabled    bool
}

// IsDepleted reports whether response i has been used this generation.
func (g *Group) IsDepleted(i int) bool {
	return g.Responses[i].Marker == g.Generation
}

// HasUndepleted reports whether any response is still available in the
// current generation. It is always true without depletion tracking.
func (g *Group) HasUndepleted() bool {
	if !g.DepleteBeforeRepeat {
		return true
	}
	for i := range g.Responses {
		if !g.IsDepleted(i) {
			return true
		}
	}
	return false
}

// MarkUsed depletes response i for the current generation.
func (g *Group) MarkUsed(i int) {
	g.Responses[i].Marker = g.Generation
}

// BumpGeneration starts a new generation, making every response available.
func (g *Group) BumpGeneration() {
	g.Generation++
}

// Reset re-enables the group and clears all selection state.
func (g *Group) Reset() {
	g.Enabled = true
	g.Cursor = 0
	g.Generation = 1
	for i := range g.Responses {
		g.Responses[i].Marker = 0
	}
}
