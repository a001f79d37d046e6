// Package loader loads Lua story content into Go structs at load
// time. The Lua VM is discarded after loading; zero Lua at runtime.
package loader

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// rawScene holds a scene table before compilation.
type rawScene struct {
	id    string
	table *lua.LTable
}

// rawDialogue holds a dialogue table before compilation.
type rawDialogue struct {
	id    string
	scene string
	table *lua.LTable
}

// rawPuzzle holds a puzzle table before compilation.
type rawPuzzle struct {
	id    string
	scene string
	table *lua.LTable
}

// rawObject holds an object table before compilation.
type rawObject struct {
	id    string
	scene string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStringList returns an array field as a string slice.
func getStringList(tbl *lua.LTable, key string) []string {
	arr := getTable(tbl, key)
	if arr == nil {
		return nil
	}
	var result []string
	for i := 1; i <= arr.MaxN(); i++ {
		if s, ok := arr.RawGetInt(i).(lua.LString); ok {
			result = append(result, string(s))
		}
	}
	return result
}

// legacyEndingFields are the historical spellings of the ending flag
// that older story data used. They are migrated to the canonical
// `ending` field at load; the runtime never sees them.
var legacyEndingFields = []string{"ends", "is_ending", "final"}

// endingFlag reads the canonical ending flag and migrates legacy
// spellings, logging each legacy use.
func endingFlag(tbl *lua.LTable, dialogID string, log *zap.Logger) bool {
	ending := getBool(tbl, "ending", false)
	for _, legacy := range legacyEndingFields {
		if v := tbl.RawGetString(legacy); v != lua.LNil {
			if b, ok := v.(lua.LBool); ok && bool(b) {
				ending = true
			}
			log.Warn("legacy ending field migrated",
				zap.String("dialog", dialogID), zap.String("field", legacy))
		}
	}
	return ending
}

// compile converts all collected Lua data into the story library.
func compile(coll *collector, log *zap.Logger) (*story.Library, error) {
	if len(coll.scenes) == 0 {
		return nil, fmt.Errorf("no Scene definitions found")
	}

	scenes := map[string]types.SceneDef{}
	for _, raw := range coll.scenes {
		sc, err := compileScene(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling scene %s: %w", raw.id, err)
		}
		if _, dup := scenes[sc.ID]; dup {
			return nil, fmt.Errorf("duplicate scene id %q", sc.ID)
		}
		scenes[sc.ID] = sc
	}

	for _, raw := range coll.dialogues {
		sc, ok := scenes[raw.scene]
		if !ok {
			return nil, fmt.Errorf("dialogue %q declared outside any Scene block", raw.id)
		}
		node := compileDialogue(raw, log)
		if _, dup := sc.Nodes[node.ID]; dup {
			return nil, fmt.Errorf("scene %s: duplicate dialogue id %q", raw.scene, node.ID)
		}
		sc.Nodes[node.ID] = node
		scenes[raw.scene] = sc
	}

	for _, raw := range coll.puzzles {
		sc, ok := scenes[raw.scene]
		if !ok {
			return nil, fmt.Errorf("puzzle %q declared outside any Scene block", raw.id)
		}
		p := compilePuzzle(raw)
		if _, dup := sc.Puzzles[p.ID]; dup {
			return nil, fmt.Errorf("scene %s: duplicate puzzle id %q", raw.scene, p.ID)
		}
		sc.Puzzles[p.ID] = p
		scenes[raw.scene] = sc
	}

	for _, raw := range coll.objects {
		sc, ok := scenes[raw.scene]
		if !ok {
			return nil, fmt.Errorf("object %q declared outside any Scene block", raw.id)
		}
		o := compileObject(raw)
		if _, dup := sc.Objects[o.ID]; dup {
			return nil, fmt.Errorf("scene %s: duplicate object id %q", raw.scene, o.ID)
		}
		sc.Objects[o.ID] = o
		scenes[raw.scene] = sc
	}

	return story.NewLibrary(scenes), nil
}

func compileScene(raw rawScene) (types.SceneDef, error) {
	tbl := raw.table
	sc := types.SceneDef{
		ID:       raw.id,
		Location: getString(tbl, "location"),
		Entry:    getString(tbl, "entry"),
		Nodes:    map[string]types.DialogueNode{},
		Puzzles:  map[string]types.PuzzleDef{},
		Objects:  map[string]types.ObjectDef{},
	}
	if sc.Location == "" {
		sc.Location = raw.id
	}

	if timerTbl := getTable(tbl, "timer"); timerTbl != nil {
		sc.Timer = types.TimerConfig{
			Initial: getInt(timerTbl, "initial"),
			Warning: getInt(timerTbl, "warning"),
			Penalty: getInt(timerTbl, "penalty"),
		}
	}

	if vocabTbl := getTable(tbl, "vocabulary"); vocabTbl != nil {
		for i := 1; i <= vocabTbl.MaxN(); i++ {
			entry, ok := vocabTbl.RawGetInt(i).(*lua.LTable)
			if !ok {
				return sc, fmt.Errorf("vocabulary entry %d is not a table", i)
			}
			sc.Vocabulary = append(sc.Vocabulary, types.VocabEntry{
				Word:    getString(entry, "word"),
				Reading: getString(entry, "reading"),
				Meaning: getString(entry, "meaning"),
			})
		}
	}

	return sc, nil
}

func compileDialogue(raw rawDialogue, log *zap.Logger) types.DialogueNode {
	tbl := raw.table
	node := types.DialogueNode{
		ID:         raw.id,
		Speaker:    getString(tbl, "speaker"),
		TextJP:     getString(tbl, "jp"),
		TextEN:     getString(tbl, "en"),
		Next:       getString(tbl, "next"),
		Ending:     endingFlag(tbl, raw.id, log),
		Vocabulary: getStringList(tbl, "vocab"),
		Item:       getString(tbl, "item"),
	}

	if choicesTbl := getTable(tbl, "choices"); choicesTbl != nil {
		for i := 1; i <= choicesTbl.MaxN(); i++ {
			if c, ok := choicesTbl.RawGetInt(i).(*lua.LTable); ok {
				node.Choices = append(node.Choices, types.DialogueChoice{
					TextJP: getString(c, "jp"),
					TextEN: getString(c, "en"),
					Next:   getString(c, "next"),
					Answer: getString(c, "answer"),
				})
			}
		}
	}

	return node
}

func compilePuzzle(raw rawPuzzle) types.PuzzleDef {
	tbl := raw.table
	p := types.PuzzleDef{
		ID:           raw.id,
		Index:        getInt(tbl, "index"),
		Requires:     getStringList(tbl, "requires"),
		Answer:       getString(tbl, "answer"),
		IntroDialog:  getString(tbl, "intro"),
		SolvedDialog: getString(tbl, "solved"),
		EscapeDialog: getString(tbl, "escape"),
	}

	hints := getStringList(tbl, "hints")
	for i := 0; i < len(hints) && i < 3; i++ {
		p.Hints[i] = hints[i]
	}

	return p
}

func compileObject(raw rawObject) types.ObjectDef {
	tbl := raw.table
	return types.ObjectDef{
		ID:         raw.id,
		Name:       getString(tbl, "name"),
		PuzzleID:   getString(tbl, "puzzle"),
		ExamineJP:  getString(tbl, "examine_jp"),
		ExamineEN:  getString(tbl, "examine_en"),
		TooEarlyJP: getString(tbl, "too_early_jp"),
		TooEarlyEN: getString(tbl, "too_early_en"),
		Vocabulary: getStringList(tbl, "vocab"),
	}
}
