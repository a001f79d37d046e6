package story

import (
	"testing"

	"github.com/kotonoha/escapecore/types"
)

func testLibrary() *Library {
	return NewLibrary(map[string]types.SceneDef{
		"cell": {
			ID:    "cell",
			Entry: "x00",
			Nodes: map[string]types.DialogueNode{
				"x00": {ID: "x00", TextJP: "a"},
			},
			Puzzles: map[string]types.PuzzleDef{
				"p1": {ID: "p1", Index: 1},
				"p2": {ID: "p2", Index: 2},
				"p3": {ID: "p3", Index: 3, Requires: []string{"p1"}},
			},
			Objects: map[string]types.ObjectDef{
				"door": {ID: "door", Name: "Iron Door", PuzzleID: "p3"},
				"wall": {ID: "wall", Name: "壁"},
			},
		},
		"attic": {ID: "attic", Entry: "a00"},
	})
}

func TestSceneIDs_Sorted(t *testing.T) {
	lib := testLibrary()
	ids := lib.SceneIDs()
	if len(ids) != 2 || ids[0] != "attic" || ids[1] != "cell" {
		t.Errorf("expected sorted scene ids, got %v", ids)
	}
}

func TestLookups_UnknownScene(t *testing.T) {
	lib := testLibrary()
	if _, ok := lib.Node("ghost", "x00"); ok {
		t.Error("expected node miss for unknown scene")
	}
	if _, ok := lib.Puzzle("ghost", "p1"); ok {
		t.Error("expected puzzle miss for unknown scene")
	}
	if _, ok := lib.Object("ghost", "door"); ok {
		t.Error("expected object miss for unknown scene")
	}
	if _, ok := lib.FinalPuzzle("ghost"); ok {
		t.Error("expected final-puzzle miss for unknown scene")
	}
}

func TestFindObjectByName(t *testing.T) {
	lib := testLibrary()

	// Exact id match wins.
	if o, ok := lib.FindObjectByName("cell", "door"); !ok || o.ID != "door" {
		t.Errorf("expected id match, got %+v ok=%v", o, ok)
	}
	// Display name, case-insensitive, trimmed.
	if o, ok := lib.FindObjectByName("cell", "  iron door "); !ok || o.ID != "door" {
		t.Errorf("expected name match, got %+v ok=%v", o, ok)
	}
	if o, ok := lib.FindObjectByName("cell", "壁"); !ok || o.ID != "wall" {
		t.Errorf("expected Japanese name match, got %+v ok=%v", o, ok)
	}
	if _, ok := lib.FindObjectByName("cell", "window"); ok {
		t.Error("expected miss for unknown name")
	}
}

func TestFinalPuzzle(t *testing.T) {
	lib := testLibrary()
	final, ok := lib.FinalPuzzle("cell")
	if !ok || final.ID != "p3" {
		t.Errorf("expected p3 as final puzzle, got %+v ok=%v", final, ok)
	}
	if _, ok := lib.FinalPuzzle("attic"); ok {
		t.Error("expected no final puzzle for puzzle-less scene")
	}
}

func TestPuzzleByIndex(t *testing.T) {
	lib := testLibrary()
	p, ok := lib.PuzzleByIndex("cell", 2)
	if !ok || p.ID != "p2" {
		t.Errorf("expected p2 at index 2, got %+v ok=%v", p, ok)
	}
	if _, ok := lib.PuzzleByIndex("cell", 9); ok {
		t.Error("expected miss for out-of-range index")
	}
}

func TestRequires_DefaultsToChain(t *testing.T) {
	lib := testLibrary()
	p1, _ := lib.Puzzle("cell", "p1")
	p2, _ := lib.Puzzle("cell", "p2")
	p3, _ := lib.Puzzle("cell", "p3")

	if deps := lib.Requires("cell", p1); deps != nil {
		t.Errorf("expected first puzzle to have no deps, got %v", deps)
	}
	if deps := lib.Requires("cell", p2); len(deps) != 1 || deps[0] != "p1" {
		t.Errorf("expected implicit chain dep on p1, got %v", deps)
	}
	// Authored edges override the implicit chain.
	if deps := lib.Requires("cell", p3); len(deps) != 1 || deps[0] != "p1" {
		t.Errorf("expected authored dep on p1, got %v", deps)
	}
}

func TestNewLibrary_NilScenes(t *testing.T) {
	lib := NewLibrary(nil)
	if ids := lib.SceneIDs(); len(ids) != 0 {
		t.Errorf("expected empty library, got %v", ids)
	}
}
