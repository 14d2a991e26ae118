package engine

import "github.com/nathoo/responsecore/types"

// DefaultName is the registry name of the default ruleset.
const DefaultName = "default"

// Lifecycle decides what happens to an engine at load time and at round
// boundaries.
type Lifecycle struct {
	Name string

	// PrecacheOnLoad precaches every response after each (re)load.
	PrecacheOnLoad bool
	// ResetOnNewRound resets selection state on NewRound.
	ResetOnNewRound bool
	// ClearContextsOnNewRound forgets speaker and world context on NewRound.
	ClearContextsOnNewRound bool
	// Teardown is called when the engine is removed from a registry.
	Teardown func(*Engine)
	// Precache receives each response when precaching.
	Precache func(types.Response)
}

// DefaultLifecycle is the policy of the long-lived default ruleset.
func DefaultLifecycle() Lifecycle {
	return Lifecycle{
		Name:            "default",
		PrecacheOnLoad:  true,
		ResetOnNewRound: true,
	}
}

// InstancedLifecycle is the policy of a scoped ruleset that lives only as
// long as its scope.
func InstancedLifecycle() Lifecycle {
	return Lifecycle{
		Name:                    "instanced",
		ResetOnNewRound:         true,
		ClearContextsOnNewRound: true,
	}
}
