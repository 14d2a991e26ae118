package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nathoo/responsecore/engine"
	"github.com/nathoo/responsecore/engine/criteria"
	"github.com/nathoo/responsecore/engine/parser"
	"github.com/nathoo/responsecore/engine/rules"
	"github.com/nathoo/responsecore/types"
)

// Session holds the console state shared by the plain and Bubble Tea
// consoles: which ruleset and speaker queries go to, the trace toggle and
// the last query for "again". Exec turns one input line into output lines;
// system lines are bracketed.
type Session struct {
	Registry *engine.Registry
	Instance string // "" selects the default ruleset
	Speaker  string // "" queries without speaker context
	SaveDir  string
	Trace    bool
	Now      func() time.Time

	lastQuery string
}

// NewSession creates a session over reg that saves into saveDir.
func NewSession(reg *engine.Registry, saveDir string) *Session {
	return &Session{Registry: reg, SaveDir: saveDir, Now: time.Now}
}

// Engine returns the engine queries currently go to.
func (s *Session) Engine() *engine.Engine {
	return s.Registry.Get(s.Instance)
}

// Exec runs one line of input: a meta-command starting with '/', "again"
// (or "g") to repeat the last query, or a list of criteria modifiers such
// as "concept:hello who:guard". It reports whether the console should exit.
func (s *Session) Exec(input string) ([]string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, false
	}
	if strings.HasPrefix(input, "/") {
		return s.handleMeta(input)
	}

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if s.lastQuery == "" {
			return []string{system("Nothing to repeat.")}, false
		}
		input = s.lastQuery
	}
	return s.query(input), false
}

func (s *Session) query(input string) []string {
	facts, err := parser.Parse(input)
	if err != nil {
		return []string{system(fmt.Sprintf("Bad query: %v", err))}
	}
	s.lastQuery = input

	var tr *rules.Trace
	if s.Trace {
		tr = &rules.Trace{}
	}
	out, err := s.Engine().Respond(s.Speaker, criteria.FromFacts(facts), nil, s.Now(), tr)

	lines := FormatOutcome(out)
	if err != nil {
		lines = append(lines, system(fmt.Sprintf("Context not applied: %v", err)))
	}
	if s.Trace {
		lines = append(lines, formatTrace(tr, out.Events)...)
	}
	return lines
}

// FormatOutcome renders an outcome as console lines: the response itself,
// then a bracketed summary of where it came from.
func FormatOutcome(out types.Outcome) []string {
	if !out.Matched {
		return []string{system("No rule matched.")}
	}
	var lines []string
	if out.Response.Type == "" {
		lines = append(lines, system(fmt.Sprintf("%s has nothing left to say.", out.Group)))
	} else {
		lines = append(lines, FormatResponse(out.Response))
	}

	summary := fmt.Sprintf("rule %s | group %s | score %.3f", out.Rule, out.Group, out.Score)
	if p := out.Params; p.Odds > 0 && p.Odds < 100 {
		summary += fmt.Sprintf(" | odds %d", p.Odds)
	}
	if d := out.Params.Delay; d.Max > 0 {
		summary += fmt.Sprintf(" | delay %g-%gs", d.Min, d.Max)
	}
	if out.Params.SoundLevel != "" {
		summary += " | " + out.Params.SoundLevel
	}
	return append(lines, system(summary))
}

// FormatResponse renders one response. Printed text is shown as is; other
// types are labeled.
func FormatResponse(r types.Response) string {
	if r.Type == types.ResponsePrint {
		return r.Value
	}
	return fmt.Sprintf("(%s) %s", r.Type, r.Value)
}

func formatTrace(tr *rules.Trace, evts []types.Event) []string {
	var buf bytes.Buffer
	tr.Write(&buf)

	var lines []string
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if line != "" {
			lines = append(lines, "[trace] "+line)
		}
	}
	for _, e := range evts {
		lines = append(lines, fmt.Sprintf("[trace] event %s %s", e.Type, formatData(e.Data)))
	}
	return lines
}

func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, data[k])
	}
	return strings.Join(parts, " ")
}

// handleMeta dispatches meta-commands. Returns true if the console should
// exit.
func (s *Session) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{system("Goodbye.")}, true

	case "/save":
		return s.cmdSave(arg), false

	case "/load":
		return s.cmdLoad(arg), false

	case "/help":
		return helpLines(), false

	case "/state":
		return s.cmdState(), false

	case "/responses":
		return s.cmdResponses(), false

	case "/reset":
		s.Engine().ResetSelectionState()
		return []string{system("Selection state reset.")}, false

	case "/round":
		s.Registry.NewRound()
		return []string{system("New round started.")}, false

	case "/speaker":
		s.Speaker = arg
		if arg == "" {
			return []string{system("Speaking as nobody.")}, false
		}
		return []string{system(fmt.Sprintf("Speaking as %s.", arg))}, false

	case "/instance":
		return s.cmdInstance(arg), false

	case "/trace":
		s.Trace = !s.Trace
		if s.Trace {
			return []string{system("Trace output enabled.")}, false
		}
		return []string{system("Trace output disabled.")}, false

	default:
		return []string{system(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))}, false
	}
}

func (s *Session) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := s.Engine().Save()
	if err != nil {
		return []string{system(fmt.Sprintf("Save failed: %v", err))}
	}

	if err := os.MkdirAll(s.SaveDir, 0o755); err != nil {
		return []string{system(fmt.Sprintf("Save failed: %v", err))}
	}

	path := filepath.Join(s.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{system(fmt.Sprintf("Save failed: %v", err))}
	}

	return []string{system(fmt.Sprintf("State saved to %s.", name))}
}

func (s *Session) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(s.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{system(fmt.Sprintf("Load failed: %v", err))}
	}

	if err := s.Engine().Load(data); err != nil {
		return []string{system(fmt.Sprintf("Load failed: %v", err))}
	}
	return []string{system(fmt.Sprintf("State loaded from %s.", name))}
}

func (s *Session) cmdState() []string {
	e := s.Engine()
	speaker := s.Speaker
	if speaker == "" {
		speaker = "(none)"
	}
	lines := []string{
		system(fmt.Sprintf("Ruleset: %s (%s)", e.Name, e.Lifecycle.Name)),
		system(fmt.Sprintf("Speaker: %s", speaker)),
		system(fmt.Sprintf("RNG: seed %d, position %d", e.RNG.Seed(), e.RNG.Position())),
	}
	if e.Contexts.World.Len() > 0 {
		lines = append(lines, system(fmt.Sprintf("World: %s", e.Contexts.World)))
	}
	for _, name := range e.Contexts.SpeakerNames() {
		set := e.Contexts.Speakers[name]
		if set.Len() > 0 {
			lines = append(lines, system(fmt.Sprintf("%s: %s", name, set)))
		}
	}
	return lines
}

func (s *Session) cmdResponses() []string {
	all := s.Engine().GetAllResponses()
	if len(all) == 0 {
		return []string{system("No responses.")}
	}
	lines := make([]string, 0, len(all)+1)
	lines = append(lines, system(fmt.Sprintf("%d responses:", len(all))))
	for _, r := range all {
		lines = append(lines, "  "+FormatResponse(r))
	}
	return lines
}

func (s *Session) cmdInstance(name string) []string {
	if name == "" {
		s.Instance = ""
		names := append([]string{engine.DefaultName}, s.Registry.Names()...)
		return []string{system(fmt.Sprintf("Using the default ruleset. Available: %s", strings.Join(names, ", ")))}
	}
	s.Instance = name
	if got := s.Engine().Name; got != name {
		return []string{system(fmt.Sprintf("No ruleset %s, falling back to %s.", name, got))}
	}
	return []string{system(fmt.Sprintf("Using ruleset %s.", name))}
}

func helpLines() []string {
	return []string{
		"Queries are criteria lists, for example:",
		"  concept:hello who:guard health:20",
		"  hello who:guard   (a leading bare word is the concept)",
		"  again (g)         repeat the last query",
		"",
		"System:",
		"  /speaker [name]   speak as name (context is remembered per speaker)",
		"  /instance [name]  query an instanced ruleset (default when empty)",
		"  /responses        list every response in the ruleset",
		"  /reset            reset group and match-once state",
		"  /round            start a new round on every ruleset",
		"  /state            show contexts and RNG position",
		"  /trace            toggle scoring trace output",
		"  /save [name]      save state (default: quicksave)",
		"  /load [name]      load state (default: quicksave)",
		"  /help             show this help",
		"  /quit             exit",
	}
}

func system(text string) string {
	return "[" + text + "]"
}
