package puzzle

import (
	"errors"
	"testing"

	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

func testLibrary() *story.Library {
	return story.NewLibrary(map[string]types.SceneDef{
		"prison-cell": {
			ID:       "prison-cell",
			Location: "prison-cell",
			Entry:    "x00",
			Nodes:    map[string]types.DialogueNode{"x00": {ID: "x00"}},
			Puzzles: map[string]types.PuzzleDef{
				"puzzle1": {ID: "puzzle1", Index: 1, Answer: "かぎ", IntroDialog: "puzzle1-intro", SolvedDialog: "puzzle1-solved"},
				"puzzle2": {ID: "puzzle2", Index: 2, Answer: "1", IntroDialog: "puzzle2-intro", SolvedDialog: "puzzle2-solved"},
				"puzzle3": {ID: "puzzle3", Index: 3, Answer: "とびら", IntroDialog: "puzzle3-intro", SolvedDialog: "puzzle3-solved"},
				"puzzle4": {ID: "puzzle4", Index: 4, Answer: "3141", IntroDialog: "puzzle4-intro", SolvedDialog: "puzzle4-solved", EscapeDialog: "escape"},
			},
			Objects: map[string]types.ObjectDef{
				"wall": {ID: "wall", Name: "wall", PuzzleID: "puzzle1"},
				"door": {ID: "door", Name: "door", PuzzleID: "puzzle4"},
				"sign": {ID: "sign", Name: "sign"}, // flavor only, no puzzle
			},
		},
	})
}

func testState(solved ...string) *types.GameState {
	st := &types.GameState{
		SceneID:       "prison-cell",
		DialogID:      "x00",
		SolvedPuzzles: map[string]bool{},
	}
	for _, id := range solved {
		st.SolvedPuzzles[id] = true
	}
	return st
}

func TestEvaluateInteraction_DoorScenario(t *testing.T) {
	g := NewGateKeeper(testLibrary())

	// Before anything is solved, the door is too early.
	outcome, err := g.EvaluateInteraction("door", testState())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	early, ok := outcome.(TooEarly)
	if !ok {
		t.Fatalf("expected TooEarly, got %T", outcome)
	}
	if early.MissingPuzzle != "puzzle3" {
		t.Errorf("expected missing puzzle3, got %q", early.MissingPuzzle)
	}

	// After puzzles 1-3 the door starts puzzle 4.
	outcome, err = g.EvaluateInteraction("door", testState("puzzle1", "puzzle2", "puzzle3"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	start, ok := outcome.(StartPuzzle)
	if !ok {
		t.Fatalf("expected StartPuzzle, got %T", outcome)
	}
	if start.DialogID != "puzzle4-intro" {
		t.Errorf("expected puzzle4-intro, got %q", start.DialogID)
	}

	// After puzzle 4 the door is an examine-again.
	outcome, err = g.EvaluateInteraction("door", testState("puzzle1", "puzzle2", "puzzle3", "puzzle4"))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if _, ok := outcome.(AlreadySolvedExamine); !ok {
		t.Fatalf("expected AlreadySolvedExamine, got %T", outcome)
	}
}

func TestEvaluateInteraction_FirstPuzzleIsOpen(t *testing.T) {
	g := NewGateKeeper(testLibrary())

	outcome, err := g.EvaluateInteraction("wall", testState())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	start, ok := outcome.(StartPuzzle)
	if !ok {
		t.Fatalf("expected StartPuzzle, got %T", outcome)
	}
	if start.PuzzleID != "puzzle1" {
		t.Errorf("expected puzzle1, got %q", start.PuzzleID)
	}
}

func TestEvaluateInteraction_UnknownObject(t *testing.T) {
	g := NewGateKeeper(testLibrary())

	if _, err := g.EvaluateInteraction("teapot", testState()); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("expected ErrUnknownObject, got %v", err)
	}
}

func TestEvaluateInteraction_FlavorObjectWithoutPuzzle(t *testing.T) {
	g := NewGateKeeper(testLibrary())

	outcome, err := g.EvaluateInteraction("sign", testState())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if _, ok := outcome.(AlreadySolvedExamine); !ok {
		t.Fatalf("expected AlreadySolvedExamine for flavor object, got %T", outcome)
	}
}

func TestSubmitAnswer_DataDriven(t *testing.T) {
	g := NewGateKeeper(testLibrary())
	st := testState()

	v, err := g.SubmitAnswer("puzzle1", "かぎ", st)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !v.Correct || v.NextDialog != "puzzle1-solved" {
		t.Errorf("expected correct with puzzle1-solved, got %+v", v)
	}

	v, err = g.SubmitAnswer("puzzle1", "まど", st)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if v.Correct {
		t.Error("expected incorrect verdict for wrong answer")
	}
}

func TestSubmitAnswer_NormalizesTextAnswers(t *testing.T) {
	g := NewGateKeeper(testLibrary())
	st := testState()

	cases := []string{"3141", " 3141 ", "３１４１"}
	for _, answer := range cases {
		v, err := g.SubmitAnswer("puzzle4", answer, st)
		if err != nil {
			t.Fatalf("submit %q failed: %v", answer, err)
		}
		if !v.Correct {
			t.Errorf("expected %q to be accepted", answer)
		}
	}
}

func TestSubmitAnswer_FinalPuzzleEscapes(t *testing.T) {
	g := NewGateKeeper(testLibrary())
	st := testState("puzzle1", "puzzle2", "puzzle3")

	v, err := g.SubmitAnswer("puzzle4", "3141", st)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !v.Final {
		t.Error("expected final verdict on the chain's last puzzle")
	}
	if v.NextDialog != "escape" {
		t.Errorf("expected distinguished escape transition, got %q", v.NextDialog)
	}
}

func TestSubmitAnswer_NonFinalIsNotEscape(t *testing.T) {
	g := NewGateKeeper(testLibrary())

	v, err := g.SubmitAnswer("puzzle2", "1", testState("puzzle1"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if v.Final {
		t.Error("expected non-final verdict for a mid-chain puzzle")
	}
}

func TestSubmitAnswer_UnknownPuzzle(t *testing.T) {
	g := NewGateKeeper(testLibrary())

	if _, err := g.SubmitAnswer("puzzle9", "x", testState()); !errors.Is(err, ErrUnknownPuzzle) {
		t.Errorf("expected ErrUnknownPuzzle, got %v", err)
	}
}
