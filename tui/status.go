package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line showing the
// active ruleset, speaker and RNG position.
func (m Model) renderStatusBar() string {
	e := m.session.Engine()

	speaker := m.session.Speaker
	if speaker == "" {
		speaker = "-"
	}
	left := fmt.Sprintf(" %s | %d rules | speaker: %s", e.Name, e.Ruleset.NumRules(), speaker)

	right := fmt.Sprintf("rng:%d ", e.RNG.Position())
	if m.session.Trace {
		right = "trace | " + right
	}
	if m.watching {
		right = "watching | " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
