// Package tui provides a Bubble Tea console for querying response rulesets,
// with live reload of the ruleset directories.
package tui

// History holds submitted queries for Up/Down recall. Re-submitting a query
// moves it to the newest position instead of storing it twice.
type History struct {
	entries []string
	max     int
	cursor  int // -1 = not navigating
}

// NewHistory creates a history holding at most max queries.
func NewHistory(max int) *History {
	return &History{max: max, cursor: -1}
}

// Push records a query as the newest entry and ends navigation.
func (h *History) Push(query string) {
	for i, e := range h.entries {
		if e == query {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, query)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	h.cursor = -1
}

// Older steps back one entry, stopping at the oldest.
func (h *History) Older() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Newer steps forward one entry. Stepping past the newest ends navigation
// and returns false.
func (h *History) Newer() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return "", false
	}
	return h.entries[h.cursor], true
}

// Len returns the number of stored queries.
func (h *History) Len() int { return len(h.entries) }
