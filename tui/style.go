package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleQuery = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleSpeech = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSummary = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleReload = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindText lineKind = iota
	kindSpeech
	kindSummary
	kindSystem
	kindError
	kindTrace
	kindReload
)

// classifyLine determines what kind of console line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[rule "):
		return kindSummary
	case strings.HasPrefix(line, "[Reloaded "):
		return kindReload
	case strings.HasPrefix(line, "[") && strings.Contains(line, "failed"),
		strings.HasPrefix(line, "[Bad query"),
		strings.HasPrefix(line, "[Context not applied"):
		return kindError
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case isLabeledResponse(line):
		return kindSpeech
	default:
		return kindText
	}
}

// isLabeledResponse reports whether a line is a "(type) value" response.
func isLabeledResponse(line string) bool {
	if !strings.HasPrefix(line, "(") {
		return false
	}
	end := strings.Index(line, ") ")
	return end > 1 && !strings.ContainsAny(line[1:end], " ()")
}

func renderLine(line string, kind lineKind) string {
	switch kind {
	case kindSpeech:
		return styleSpeech.Render(line)
	case kindSummary:
		return styleSummary.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	case kindReload:
		return styleReload.Render(line)
	default:
		return styleText.Render(line)
	}
}
