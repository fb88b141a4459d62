package scripting

import lua "github.com/yuin/gopher-lua"

// GameEnv exposes read-only game state to scripts. Nil callbacks read as zero.
type GameEnv struct {
	Progress func() (floor, chapter, stage int, night bool)
	Level    func(key string) int
}

// RegisterGameModule installs the game.* table into L:
//
//	game.floor(), game.chapter(), game.stage() -> number
//	game.is_night() -> boolean
//	game.level(key) -> number
func RegisterGameModule(L *lua.LState, env GameEnv) {
	progress := func() (int, int, int, bool) {
		if env.Progress == nil {
			return 0, 0, 0, false
		}
		return env.Progress()
	}

	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"floor": func(L *lua.LState) int {
			f, _, _, _ := progress()
			L.Push(lua.LNumber(f))
			return 1
		},
		"chapter": func(L *lua.LState) int {
			_, c, _, _ := progress()
			L.Push(lua.LNumber(c))
			return 1
		},
		"stage": func(L *lua.LState) int {
			_, _, s, _ := progress()
			L.Push(lua.LNumber(s))
			return 1
		},
		"is_night": func(L *lua.LState) int {
			_, _, _, n := progress()
			L.Push(lua.LBool(n))
			return 1
		},
		"level": func(L *lua.LState) int {
			key := L.CheckString(1)
			lv := 0
			if env.Level != nil {
				lv = env.Level(key)
			}
			L.Push(lua.LNumber(lv))
			return 1
		},
	})
	L.SetGlobal("game", mod)
}
