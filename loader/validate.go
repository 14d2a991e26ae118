package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled defs for problems the ruleset builder
// cannot see: blank names, an empty ruleset and definitions nothing uses.
// Reference and expression problems are left to the builder, which skips
// the offending item.
func validate(defs *state.Defs, ve *ValidationError) {
	blank := func(kind string, id string) {
		if strings.TrimSpace(id) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s with a blank name", kind))
		}
	}
	for _, e := range defs.Enumerations {
		blank("enumeration", e.ID)
	}
	for _, c := range defs.Criteria {
		blank("criterion", c.ID)
	}
	for _, g := range defs.Groups {
		blank("response group", g.ID)
	}
	for _, r := range defs.Rules {
		blank("rule", r.ID)
	}

	if len(defs.Rules) == 0 {
		ve.Errors = append(ve.Errors, "no rules defined")
		return
	}

	enabled := 0
	for _, r := range defs.Rules {
		if !r.Disabled {
			enabled++
		}
	}
	if enabled == 0 {
		ve.Warnings = append(ve.Warnings, "every rule is disabled")
	}

	// Warnings: definitions nothing refers to.
	usedCriteria := map[string]bool{}
	usedGroups := map[string]bool{}
	for _, r := range defs.Rules {
		for _, c := range r.Criteria {
			usedCriteria[criteria.Key(c)] = true
		}
		for _, g := range r.Groups {
			usedGroups[criteria.Key(g)] = true
		}
	}
	for _, c := range defs.Criteria {
		for _, child := range c.Children {
			usedCriteria[criteria.Key(child)] = true
		}
	}
	for _, g := range defs.Groups {
		for _, resp := range g.Responses {
			if resp.Type == types.ResponseGroupRef {
				usedGroups[criteria.Key(resp.Value)] = true
			}
		}
	}
	for _, c := range defs.Criteria {
		if !usedCriteria[criteria.Key(c.ID)] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("criterion %q is never used", c.ID))
		}
	}
	for _, g := range defs.Groups {
		if !usedGroups[criteria.Key(g.ID)] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("response group %q is never used", g.ID))
		}
	}
}
