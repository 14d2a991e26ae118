package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nathoo/responsecore/cli"
	"github.com/nathoo/responsecore/engine"
	"github.com/nathoo/responsecore/engine/state"
)

// Options configures the console.
type Options struct {
	SaveDir string

	// Rulesets maps ruleset names to directories. With Load set, the
	// directories are watched and a changed ruleset is reloaded in place.
	Rulesets map[string]string
	Load     func(dir string) (*state.Defs, error)

	Logger zerolog.Logger
}

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text    string
	kind    lineKind
	isQuery bool
}

// Model is the Bubble Tea model for the response console.
type Model struct {
	session *cli.Session
	opts    Options
	changes <-chan string // nil when not watching

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width    int
	height   int
	ready    bool
	watching bool
	quitting bool
}

// outputMsg carries console output into the Update loop.
type outputMsg struct {
	query string // echoed query (empty for banners and reloads)
	lines []string
}

// rulesetChangedMsg reports that a watched ruleset changed on disk.
type rulesetChangedMsg struct {
	name string
}

// New creates a console model over the registry's rulesets.
func New(reg *engine.Registry, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		session: cli.NewSession(reg, opts.SaveDir),
		opts:    opts,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program, watching the ruleset directories when
// opts.Load is set.
func Run(reg *engine.Registry, opts Options) error {
	m := New(reg, opts)
	if opts.Load != nil && len(opts.Rulesets) > 0 {
		w, err := NewWatcher(opts.Rulesets, DefaultDebounce, opts.Logger)
		if err != nil {
			return fmt.Errorf("watching rulesets: %w", err)
		}
		defer w.Close()
		m.changes = w.Changes()
		m.watching = true
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial commands: the banner and, when watching, the
// first wait for a ruleset change.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.banner()}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	return tea.Batch(cmds...)
}

func (m Model) banner() tea.Cmd {
	return func() tea.Msg {
		e := m.session.Engine()
		lines := []string{
			fmt.Sprintf("[Ruleset %s: %d criteria, %d rules, %d groups.]",
				e.Name, e.Ruleset.NumCriteria(), e.Ruleset.NumRules(), e.Ruleset.NumGroups()),
		}
		for _, w := range e.Ruleset.Warnings() {
			lines = append(lines, fmt.Sprintf("[warning: %s]", w))
		}
		lines = append(lines, "[Type a query such as \"hello who:guard\", or /help.]")
		return outputMsg{lines: lines}
	}
}

// waitForChange blocks until the watcher reports a ruleset.
func waitForChange(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		name, ok := <-ch
		if !ok {
			return nil
		}
		return rulesetChangedMsg{name: name}
	}
}

// Update handles messages (key presses, window resize, output, reloads).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Older(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			next, _ := m.history.Newer()
			m.input.SetValue(next)
			m.input.CursorEnd()
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case outputMsg:
		m = m.appendOutput(msg)

	case rulesetChangedMsg:
		m = m.appendOutput(outputMsg{lines: m.reload(msg.name)})
		if m.changes == nil {
			return m, nil
		}
		return m, waitForChange(m.changes)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter runs the submitted line through the session.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}
	m.history.Push(input)

	lines, quit := m.session.Exec(input)
	if strings.HasPrefix(input, "/help") {
		lines = append(lines, "", "Navigation: PgUp/PgDn to scroll, Up/Down for query history")
	}
	m = m.appendOutput(outputMsg{query: input, lines: lines})
	if quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// reload rebuilds the named ruleset from its directory. A failed load
// keeps the running ruleset.
func (m Model) reload(name string) []string {
	dir, ok := m.opts.Rulesets[name]
	if !ok || m.opts.Load == nil {
		return nil
	}
	e := m.session.Registry.Get(name)
	if e.Name != name {
		return []string{fmt.Sprintf("[Reload of %s skipped: not registered.]", name)}
	}

	defs, err := m.opts.Load(dir)
	if err != nil {
		return []string{fmt.Sprintf("[Reload of %s failed: %v]", name, err)}
	}
	warnings := e.Reload(defs)
	lines := []string{fmt.Sprintf("[Reloaded %s: %d rules, %d warnings.]", name, e.Ruleset.NumRules(), len(warnings))}
	for _, w := range warnings {
		lines = append(lines, fmt.Sprintf("[warning: %s]", w))
	}
	return lines
}

// appendOutput adds lines to the transcript and refreshes the viewport.
func (m Model) appendOutput(msg outputMsg) Model {
	if len(msg.lines) == 0 && msg.query == "" {
		return m
	}
	if msg.query != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.query, isQuery: true})
	}
	for _, line := range msg.lines {
		m.rawLines = append(m.rawLines, rawLine{text: line, kind: classifyLine(line)})
	}

	// Blank line separator between queries.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	styled := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		wrapped := wordWrap(rl.text, width)
		if rl.isQuery {
			styled = append(styled, styleQuery.Render(wrapped))
			continue
		}
		styled = append(styled, renderLine(wrapped, rl.kind))
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Leading indentation is kept.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	indent := text[:len(text)-len(strings.TrimLeft(text, " "))]
	var b strings.Builder
	b.WriteString(indent)
	lineLen := len(indent)

	for i, word := range strings.Fields(text) {
		if i > 0 && lineLen+1+len(word) > width {
			b.WriteString("\n")
			b.WriteString(indent)
			lineLen = len(indent)
		} else if i > 0 {
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}

// View renders the full layout: viewport, status bar, input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
