package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/nathoo/responsecore/engine"
	"github.com/nathoo/responsecore/engine/state"
	"github.com/nathoo/responsecore/types"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"Hello there.", kindText},
		{"(speak) hello.wav", kindSpeech},
		{"(sentence) GUARD_HELLO", kindSpeech},
		{"(not a label) at all", kindText},
		{"[rule Greet | group Greetings | score 1.000]", kindSummary},
		{"[State saved to test.]", kindSystem},
		{"[Load failed: no such file]", kindError},
		{"[Bad query: fact \"who\" has no value]", kindError},
		{"[trace] rule Greet: score 1.000", kindTrace},
		{"[Reloaded default: 4 rules, 0 warnings.]", kindReload},
		{"", kindText},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"The guard looks you over and waves you through.", 20,
			"The guard looks you\nover and waves you\nthrough."},
		{"", 80, ""},
		{"a b c d e", 3, "a b\nc d\ne"},
		{"  (speak) one two", 12, "  (speak)\n  one two"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_OlderAndNewer(t *testing.T) {
	h := NewHistory(5)
	h.Push("hello")
	h.Push("bye")
	h.Push("hello who:guard")

	for _, want := range []string{"hello who:guard", "bye", "hello", "hello"} {
		got, ok := h.Older()
		if !ok || got != want {
			t.Errorf("Older() = %q, %v; want %q", got, ok, want)
		}
	}

	if got, ok := h.Newer(); !ok || got != "bye" {
		t.Errorf("Newer() = %q, %v; want bye", got, ok)
	}
	h.Newer() // "hello who:guard"
	if _, ok := h.Newer(); ok {
		t.Error("Newer past the newest entry should return false")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Older(); ok {
		t.Error("Older on empty history should return false")
	}
	if _, ok := h.Newer(); ok {
		t.Error("Newer on empty history should return false")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(3)
	for _, q := range []string{"a", "b", "c", "d"} {
		h.Push(q)
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	h.Older()
	h.Older()
	if got, _ := h.Older(); got != "b" {
		t.Errorf("oldest = %q, want b", got)
	}
}

func TestHistory_ResubmitMovesToNewest(t *testing.T) {
	h := NewHistory(5)
	h.Push("hello")
	h.Push("bye")
	h.Push("hello")

	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
	if got, _ := h.Older(); got != "hello" {
		t.Errorf("newest = %q, want hello", got)
	}
}

// testDefs returns a minimal ruleset for TUI testing.
func testDefs(rules ...string) *state.Defs {
	defs := &state.Defs{
		Criteria: []types.CriterionDef{
			{ID: "IsHello", Key: "concept", Value: "hello", Weight: 1, Required: true},
		},
		Groups: []types.ResponseGroupDef{
			{ID: "Greetings", Responses: []types.ResponseDef{
				{Type: types.ResponsePrint, Value: "Hello there.", Weight: 1},
			}, Params: types.ResponseParams{Odds: 100}},
		},
	}
	for _, id := range rules {
		defs.Rules = append(defs.Rules, types.RuleDef{
			ID: id, Criteria: []string{"IsHello"}, Groups: []string{"Greetings"},
		})
	}
	return defs
}

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	opts.SaveDir = t.TempDir()
	reg := engine.NewRegistry(engine.New(testDefs("Greet", "Wave"), engine.Options{Seed: 1}))
	return New(reg, opts)
}

func transcript(m Model) string {
	var lines []string
	for _, rl := range m.rawLines {
		lines = append(lines, rl.text)
	}
	return strings.Join(lines, "\n")
}

func submit(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(input)
	updated, cmd := m.handleEnter()
	return updated.(Model), cmd
}

func TestModel_Query(t *testing.T) {
	m := newTestModel(t, Options{})
	m, _ = submit(t, m, "hello")

	out := transcript(m)
	if !strings.Contains(out, "> hello") {
		t.Error("expected echoed query")
	}
	if !strings.Contains(out, "Hello there.") {
		t.Errorf("expected response, got:\n%s", out)
	}
	if m.history.Len() != 1 {
		t.Errorf("history Len = %d, want 1", m.history.Len())
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, Options{})
	m, cmd := submit(t, m, "/quit")
	if !m.quitting {
		t.Error("expected quitting after /quit")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if m.View() != "" {
		t.Error("View should be empty once quitting")
	}
}

func TestModel_HelpMentionsNavigation(t *testing.T) {
	m := newTestModel(t, Options{})
	m, _ = submit(t, m, "/help")
	if !strings.Contains(transcript(m), "PgUp/PgDn") {
		t.Error("expected navigation help")
	}
}

func TestModel_StatusBar(t *testing.T) {
	m := newTestModel(t, Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = updated.(Model)
	m, _ = submit(t, m, "/speaker guard")

	view := m.View()
	if !strings.Contains(view, "default | 2 rules | speaker: guard") {
		t.Errorf("expected status bar, got:\n%s", view)
	}
}

func TestModel_Reload(t *testing.T) {
	var loadedFrom string
	m := newTestModel(t, Options{
		Rulesets: map[string]string{"default": "rulesets/demo"},
		Load: func(dir string) (*state.Defs, error) {
			loadedFrom = dir
			return testDefs("Greet"), nil
		},
	})

	updated, _ := m.Update(rulesetChangedMsg{name: "default"})
	m = updated.(Model)

	if loadedFrom != "rulesets/demo" {
		t.Errorf("loaded from %q", loadedFrom)
	}
	if !strings.Contains(transcript(m), "[Reloaded default: 1 rules, 0 warnings.]") {
		t.Errorf("expected reload message, got:\n%s", transcript(m))
	}
	if n := m.session.Engine().Ruleset.NumRules(); n != 1 {
		t.Errorf("NumRules after reload = %d, want 1", n)
	}
}

func TestModel_ReloadFailureKeepsRuleset(t *testing.T) {
	m := newTestModel(t, Options{
		Rulesets: map[string]string{"default": "rulesets/demo"},
		Load: func(string) (*state.Defs, error) {
			return nil, errors.New("syntax error")
		},
	})

	updated, _ := m.Update(rulesetChangedMsg{name: "default"})
	m = updated.(Model)

	if !strings.Contains(transcript(m), "Reload of default failed: syntax error") {
		t.Errorf("expected failure message, got:\n%s", transcript(m))
	}
	if n := m.session.Engine().Ruleset.NumRules(); n != 2 {
		t.Errorf("NumRules = %d, want the old 2", n)
	}
}

func TestModel_ReloadUnregistered(t *testing.T) {
	m := newTestModel(t, Options{
		Rulesets: map[string]string{"town": "rulesets/town"},
		Load: func(string) (*state.Defs, error) {
			t.Error("Load should not be called")
			return nil, nil
		},
	})

	updated, _ := m.Update(rulesetChangedMsg{name: "town"})
	m = updated.(Model)
	if !strings.Contains(transcript(m), "Reload of town skipped") {
		t.Errorf("expected skip message, got:\n%s", transcript(m))
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitChange(t *testing.T, w *Watcher) string {
	t.Helper()
	select {
	case name := <-w.Changes():
		return name
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}

func TestWatcher_ReportsLuaChanges(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "shared")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(map[string]string{"guard": dir}, 20*time.Millisecond, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeFile(t, filepath.Join(dir, "rules.lua"), "-- edited")
	if got := waitChange(t, w); got != "guard" {
		t.Errorf("change = %q, want guard", got)
	}

	writeFile(t, filepath.Join(sub, "lines.lua"), "-- edited")
	if got := waitChange(t, w); got != "guard" {
		t.Errorf("change = %q, want guard", got)
	}
}

func TestWatcher_RulesetFor(t *testing.T) {
	w := &Watcher{dirs: map[string]string{filepath.Clean("/rules/guard"): "guard"}}

	tests := []struct {
		event fsnotify.Event
		want  string
		ok    bool
	}{
		{fsnotify.Event{Name: "/rules/guard/rules.lua", Op: fsnotify.Write}, "guard", true},
		{fsnotify.Event{Name: "/rules/guard/new.lua", Op: fsnotify.Create}, "guard", true},
		{fsnotify.Event{Name: "/rules/guard/notes.txt", Op: fsnotify.Write}, "", false},
		{fsnotify.Event{Name: "/rules/guard/rules.lua", Op: fsnotify.Chmod}, "", false},
		{fsnotify.Event{Name: "/rules/town/rules.lua", Op: fsnotify.Write}, "", false},
	}
	for _, tt := range tests {
		got, ok := w.rulesetFor(tt.event)
		if got != tt.want || ok != tt.ok {
			t.Errorf("rulesetFor(%v) = %q, %v; want %q, %v", tt.event, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWatcher_CloseEndsChanges(t *testing.T) {
	w, err := NewWatcher(map[string]string{"default": t.TempDir()}, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-w.Changes(); ok {
		t.Error("Changes should be closed after Close")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
