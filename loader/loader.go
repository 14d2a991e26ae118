package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/responsecore/engine/state"
)

// MainFile is executed before every other file of a ruleset directory.
const MainFile = "rules.lua"

// Options configures Load.
type Options struct {
	Logger zerolog.Logger
}

// collector accumulates Lua definitions during file execution.
type collector struct {
	dir      string
	enums    []rawDef
	criteria []rawDef
	groups   []rawDef
	rules    []rawDef
	order    int
	executed map[string]bool // cleaned paths relative to dir
	file     string          // file being executed
}

// rawDef holds a constructor call before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
	file  string
	order int
}

func (c *collector) add(list *[]rawDef, id string, tbl *lua.LTable) {
	c.order++
	*list = append(*list, rawDef{id: id, table: tbl, file: c.file, order: c.order})
}

// Load reads all .lua files from dir, compiles them into ruleset
// definitions, validates them, and returns the immutable Defs. The Lua VM
// is discarded after loading.
func Load(dir string, opts Options) (*state.Defs, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ruleset directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// Sort: rules.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// Open safe libs only.
	openSafeLibs(L)

	// Sandbox: remove dangerous globals.
	sandbox(L)

	// Register API.
	coll := &collector{dir: dir, executed: map[string]bool{}}
	registerAPI(L, coll)

	// Execute each file once; included files are skipped here.
	for _, f := range luaFiles {
		if err := coll.execute(L, f); err != nil {
			return nil, err
		}
	}

	// Compile.
	defs, ve := compile(coll)

	// Validate.
	validate(defs, ve)

	for _, w := range ve.Warnings {
		opts.Logger.Warn().Str("dir", dir).Msg(w)
	}
	if len(ve.Errors) > 0 {
		return nil, ve
	}

	opts.Logger.Debug().
		Str("dir", dir).
		Int("files", len(coll.executed)).
		Int("criteria", len(defs.Criteria)).
		Int("rules", len(defs.Rules)).
		Int("groups", len(defs.Groups)).
		Msg("ruleset compiled")
	return defs, nil
}

// execute runs one file relative to the ruleset directory unless it has
// already run.
func (c *collector) execute(L *lua.LState, name string) error {
	rel, err := c.resolve(name)
	if err != nil {
		return err
	}
	if c.executed[rel] {
		return nil
	}
	c.executed[rel] = true

	prev := c.file
	c.file = rel
	defer func() { c.file = prev }()

	if err := L.DoFile(filepath.Join(c.dir, rel)); err != nil {
		return fmt.Errorf("executing %s: %w", rel, err)
	}
	return nil
}

// resolve cleans an include path and keeps it inside the ruleset directory.
func (c *collector) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("include %q: absolute paths are not allowed", name)
	}
	rel := filepath.Clean(filepath.FromSlash(name))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("include %q: path leaves the ruleset directory", name)
	}
	return rel, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	// Table library (table.insert, table.sort, etc.)
	lua.OpenTable(L)
	// String library (string.format, string.sub, etc.)
	lua.OpenString(L)
	// Math library (math.floor, math.max, etc.)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	// File access goes through Include only.
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Selection randomness belongs to the engine.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("random", lua.LNil)
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}

// sortedLuaFiles returns .lua files with rules.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var main string
	var others []string
	for _, f := range files {
		if f == MainFile {
			main = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if main != "" {
		return append([]string{main}, others...)
	}
	return others
}
