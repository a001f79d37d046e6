package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers the story DSL constructors as Lua globals.
// All content constructors are curried: Scene("id") returns a
// function that takes the definition table, giving the
// `Scene "id" { ... }` call syntax.
func registerAPI(L *lua.LState, coll *collector) {
	// Scene "id" { location = ..., entry = ..., timer = {...}, vocabulary = {...} }
	// Also opens a scope: following Dialogue/Puzzle/Object blocks
	// attach to this scene.
	L.SetGlobal("Scene", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.scenes = append(coll.scenes, rawScene{id: id, table: tbl})
			coll.currentScene = id
			return 0
		}))
		return 1
	}))

	// Dialogue "id" { speaker = ..., jp = ..., en = ..., next = ..., choices = {...} }
	L.SetGlobal("Dialogue", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.dialogues = append(coll.dialogues, rawDialogue{
				id: id, scene: coll.currentScene, table: tbl,
			})
			return 0
		}))
		return 1
	}))

	// Puzzle "id" { index = ..., answer = ..., intro = ..., solved = ..., hints = {...} }
	L.SetGlobal("Puzzle", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.puzzles = append(coll.puzzles, rawPuzzle{
				id: id, scene: coll.currentScene, table: tbl,
			})
			return 0
		}))
		return 1
	}))

	// Object "id" { name = ..., puzzle = ..., examine_jp = ..., too_early_jp = ... }
	L.SetGlobal("Object", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.objects = append(coll.objects, rawObject{
				id: id, scene: coll.currentScene, table: tbl,
			})
			return 0
		}))
		return 1
	}))

	// Choice { jp = ..., en = ..., next = ..., answer = ... } — pass-through.
	L.SetGlobal("Choice", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		L.Push(tbl)
		return 1
	}))

	// Word { word = ..., reading = ..., meaning = ... } — pass-through.
	L.SetGlobal("Word", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		L.Push(tbl)
		return 1
	}))
}
