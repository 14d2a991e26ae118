// Package events implements single-pass event handler dispatch.
// Handlers observe dispatch results; they cannot emit further events.
package events

import "github.com/nathoo/responsecore/types"

// Event types emitted by a dispatch.
const (
	RuleMatched      = "rule_matched"
	RuleDisabled     = "rule_disabled"
	ResponseSelected = "response_selected"
	GroupExhausted   = "group_exhausted"
	GroupDisabled    = "group_disabled"
	SelectionMiss    = "selection_miss"
	ContextApplied   = "context_applied"
	ContextExpired   = "context_expired"
)

// Handler reacts to events of one type. An empty EventType matches every
// event. When, if set, must also approve the event.
type Handler struct {
	EventType string
	When      func(types.Event) bool
	Fn        func(types.Event)
}

func (h Handler) matches(e types.Event) bool {
	if h.EventType != "" && h.EventType != e.Type {
		return false
	}
	return h.When == nil || h.When(e)
}

// Dispatch runs handlers against the emitted events in order. Single pass,
// no recursion. Returns the number of handler calls made.
func Dispatch(events []types.Event, handlers []Handler) int {
	fired := 0
	for _, event := range events {
		for _, handler := range handlers {
			if !handler.matches(event) {
				continue
			}
			if handler.Fn != nil {
				handler.Fn(event)
			}
			fired++
		}
	}
	return fired
}
