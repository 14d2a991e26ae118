package ruleset

// GroupState is the mutable selection state of one response group.
type GroupState struct {
	Generation int   `json:"generation"`
	Cursor     int   `json:"cursor"`
	Enabled    bool  `json:"enabled"`
	Markers    []int `json:"markers"`
}

// Snapshot is the mutable selection state of a ruleset, keyed by name.
type Snapshot struct {
	Groups     map[string]GroupState `json:"groups"`
	SpentRules []string              `json:"spent_rules"`
}

// Snapshot captures the current selection state.
func (rs *Ruleset) Snapshot() Snapshot {
	snap := Snapshot{
		Groups:     make(map[string]GroupState, len(rs.groups)),
		SpentRules: []string{},
	}
	for i := range rs.groups {
		g := &rs.groups[i]
		markers := make([]int, len(g.Responses))
		for j, r := range g.Responses {
			markers[j] = r.Marker
		}
		snap.Groups[g.ID] = GroupState{
			Generation: g.Generation,
			Cursor:     g.Cursor,
			Enabled:    g.Enabled,
			Markers:    markers,
		}
	}
	for i := range rs.rules {
		if rs.rules[i].Spent {
			snap.SpentRules = append(snap.SpentRules, rs.rules[i].ID)
		}
	}
	return snap
}

// Restore applies a snapshot. Groups and rules the snapshot does not know
// are reset; entries naming unknown groups or rules are ignored, as are
// marker lists whose length no longer matches the group.
func (rs *Ruleset) Restore(snap Snapshot) {
	rs.ResetSelectionState()
	for name, gs := range snap.Groups {
		i, ok := rs.FindGroup(name)
		if !ok {
			continue
		}
		g := &rs.groups[i]
		if len(gs.Markers) != len(g.Responses) {
			continue
		}
		g.Generation = gs.Generation
		g.Cursor = gs.Cursor
		g.Enabled = gs.Enabled
		for j := range g.Responses {
			g.Responses[j].Marker = gs.Markers[j]
		}
	}
	for _, name := range snap.SpentRules {
		if i, ok := rs.FindRule(name); ok {
			rs.rules[i].Spent = true
		}
	}
}
