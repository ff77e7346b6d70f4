package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds one constructor call before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
	order int
}

// registerAPI registers the Lua constructors as globals. All constructors
// except Game are curried: Room("id") returns a function taking the body
// table, which makes `Room "village" { ... }` valid Lua.
func registerAPI(L *lua.LState, coll *collector) {
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	curried := func(sink *[]rawDef) lua.LGFunction {
		return func(L *lua.LState) int {
			id := L.CheckString(1)
			L.Push(L.NewFunction(func(L *lua.LState) int {
				tbl := L.CheckTable(1)
				*sink = append(*sink, rawDef{id: id, table: tbl, order: coll.nextSourceOrder()})
				return 0
			}))
			return 1
		}
	}

	L.SetGlobal("Room", L.NewFunction(curried(&coll.rooms)))
	L.SetGlobal("Item", L.NewFunction(curried(&coll.items)))
	L.SetGlobal("NPC", L.NewFunction(curried(&coll.npcs)))
	L.SetGlobal("Action", L.NewFunction(curried(&coll.actions)))
	L.SetGlobal("Ending", L.NewFunction(curried(&coll.endings)))
}
