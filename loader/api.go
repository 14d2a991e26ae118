package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/responsecore/types"
)

// responseKey marks a table built by a response helper.
const responseKey = "__response"

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerResponseHelpers(L)
	registerInclude(L, coll)
}

// curried returns a constructor used as Name "id" { ... }: the first call
// takes the id, the second the definition table.
func curried(L *lua.LState, add func(id string, tbl *lua.LTable)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(id, L.CheckTable(1))
			return 0
		}))
		return 1
	})
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Enumeration "Relationship" { Ally = 1, Enemy = 2 }
	L.SetGlobal("Enumeration", curried(L, func(id string, tbl *lua.LTable) {
		coll.add(&coll.enums, id, tbl)
	}))

	// Criterion "IsHello" { name = "concept", value = "hello", required = true }
	// Criterion "HelloOrHi" { children = { "IsHello", "IsHi" } }
	L.SetGlobal("Criterion", curried(L, func(id string, tbl *lua.LTable) {
		coll.add(&coll.criteria, id, tbl)
	}))

	// ResponseGroup "GreetResponses" { Speak "hello.wav", Print "Hello." }
	L.SetGlobal("ResponseGroup", curried(L, func(id string, tbl *lua.LTable) {
		coll.add(&coll.groups, id, tbl)
	}))

	// Rule "Greet" { criteria = { "IsHello" }, response = { "GreetResponses" } }
	L.SetGlobal("Rule", curried(L, func(id string, tbl *lua.LTable) {
		coll.add(&coll.rules, id, tbl)
	}))
}

// registerResponseHelpers registers Speak, Sentence, Scene, Response and
// Print. Each takes a value string, or a table whose first element is the
// value plus optional weight, first and last fields, and returns a
// response marker table for a ResponseGroup body.
func registerResponseHelpers(L *lua.LState) {
	helpers := map[string]types.ResponseType{
		"Speak":    types.ResponseSpeak,
		"Sentence": types.ResponseSentence,
		"Scene":    types.ResponseScene,
		"Response": types.ResponseGroupRef,
		"Print":    types.ResponsePrint,
	}
	for name, rt := range helpers {
		rt := rt
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			tbl := L.NewTable()
			tbl.RawSetString(responseKey, lua.LString(rt))
			switch arg := L.Get(1).(type) {
			case lua.LString:
				tbl.RawSetString("value", arg)
			case *lua.LTable:
				tbl.RawSetString("value", arg.RawGetInt(1))
				arg.ForEach(func(k, v lua.LValue) {
					if ks, ok := k.(lua.LString); ok {
						tbl.RawSetString(string(ks), v)
					}
				})
			default:
				L.ArgError(1, "response value string or table expected")
			}
			L.Push(tbl)
			return 1
		}))
	}
}

func registerInclude(L *lua.LState, coll *collector) {
	// Include "shared.lua" runs a file from the ruleset directory once.
	L.SetGlobal("Include", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if err := coll.execute(L, name); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}))
}
