// Package save implements JSON serialization and deserialization of a
// ruleset's runtime selection state and the remembered contexts.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/ruleset"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
)

// Version is the current save format version.
const Version = "1"

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version     string                  `json:"version"`
	Ruleset     string                  `json:"ruleset"`
	Selection   ruleset.Snapshot        `json:"selection"`
	RNGSeed     int64                   `json:"rng_seed"`
	RNGPosition int64                   `json:"rng_position"`
	World       []types.Fact            `json:"world"`
	Speakers    map[string][]types.Fact `json:"speakers"`
}

// Save serializes selection state and contexts to JSON bytes. Context
// expiry times are not saved; restored facts never expire.
func Save(name string, rs *ruleset.Ruleset, ctx *state.Contexts, seed, position int64) ([]byte, error) {
	data := SaveData{
		Version:     Version,
		Ruleset:     name,
		Selection:   rs.Snapshot(),
		RNGSeed:     seed,
		RNGPosition: position,
		World:       ctx.World.Facts(),
		Speakers:    make(map[string][]types.Fact, len(ctx.Speakers)),
	}
	for _, speaker := range ctx.SpeakerNames() {
		data.Speakers[speaker] = ctx.Speakers[speaker].Facts()
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version != "" && sd.Version != Version {
		return nil, fmt.Errorf("unsupported save version %q", sd.Version)
	}
	// Ensure maps are never nil after load.
	if sd.Selection.Groups == nil {
		sd.Selection.Groups = map[string]ruleset.GroupState{}
	}
	if sd.Selection.SpentRules == nil {
		sd.Selection.SpentRules = []string{}
	}
	if sd.World == nil {
		sd.World = []types.Fact{}
	}
	if sd.Speakers == nil {
		sd.Speakers = map[string][]types.Fact{}
	}
	return &sd, nil
}

// Apply applies loaded save data onto a ruleset and contexts. The RNG is
// left to the caller.
func Apply(rs *ruleset.Ruleset, ctx *state.Contexts, sd *SaveData) {
	rs.Restore(sd.Selection)
	ctx.Reset()
	ctx.World.Merge(criteria.FromFacts(sd.World))
	for speaker, facts := range sd.Speakers {
		ctx.Scope(speaker).Merge(criteria.FromFacts(facts))
	}
}
