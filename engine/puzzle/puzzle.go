// Package puzzle implements the gatekeeper that enforces the puzzle
// dependency order per location and judges submitted answers.
package puzzle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// Sentinel errors.
var (
	ErrUnknownObject = errors.New("object not defined for scene")
	ErrUnknownPuzzle = errors.New("puzzle not defined for scene")
)

// Outcome is the tagged union of interaction results.
type Outcome interface{ isOutcome() }

// StartPuzzle means the object's puzzle is reachable and unsolved.
type StartPuzzle struct {
	PuzzleID string
	DialogID string // the puzzle's intro dialogue
}

// AlreadySolvedExamine means the bound puzzle is solved; the object
// yields flavor text instead.
type AlreadySolvedExamine struct {
	ObjectID string
	DialogID string // synthetic flavor node id
}

// TooEarly means an unsolved dependency blocks this object.
type TooEarly struct {
	ObjectID      string
	DialogID      string // synthetic hint node id
	MissingPuzzle string // first unsolved dependency
}

func (StartPuzzle) isOutcome()          {}
func (AlreadySolvedExamine) isOutcome() {}
func (TooEarly) isOutcome()             {}

// Verdict is the result of an answer submission.
type Verdict struct {
	Correct    bool
	Final      bool   // correct answer to the location chain's last puzzle
	NextDialog string // solved dialogue, or escape dialogue when Final
}

// Synthetic dialogue id prefixes for gatekeeper-originated nodes.
const (
	ExaminePrefix  = "examine:"
	TooEarlyPrefix = "too-early:"
)

// GateKeeper evaluates object interactions and answers against the
// story definitions and the current state. It never mutates state;
// callers apply the resulting deltas through the store.
type GateKeeper struct {
	lib *story.Library
}

// NewGateKeeper creates a gatekeeper over the given library.
func NewGateKeeper(lib *story.Library) *GateKeeper {
	return &GateKeeper{lib: lib}
}

// EvaluateInteraction decides what an object click means right now.
// Let k be the puzzle bound to the object: solved(k) yields
// AlreadySolvedExamine; all dependencies of k solved yields
// StartPuzzle; otherwise TooEarly naming the first missing
// dependency. An unknown object is ErrUnknownObject — reported
// upstream as narrative, never a crash.
func (g *GateKeeper) EvaluateInteraction(objectID string, st *types.GameState) (Outcome, error) {
	obj, ok := g.lib.Object(st.SceneID, objectID)
	if !ok {
		return nil, fmt.Errorf("object %q: %w", objectID, ErrUnknownObject)
	}
	p, ok := g.lib.Puzzle(st.SceneID, obj.PuzzleID)
	if !ok {
		// Object with no puzzle binding is pure flavor.
		return AlreadySolvedExamine{ObjectID: obj.ID, DialogID: ExaminePrefix + obj.ID}, nil
	}

	if st.SolvedPuzzles[p.ID] {
		return AlreadySolvedExamine{ObjectID: obj.ID, DialogID: ExaminePrefix + obj.ID}, nil
	}
	for _, dep := range g.lib.Requires(st.SceneID, p) {
		if !st.SolvedPuzzles[dep] {
			return TooEarly{
				ObjectID:      obj.ID,
				DialogID:      TooEarlyPrefix + obj.ID,
				MissingPuzzle: dep,
			}, nil
		}
	}
	return StartPuzzle{PuzzleID: p.ID, DialogID: p.IntroDialog}, nil
}

// SubmitAnswer judges an answer against the puzzle's authored
// expected answer. Text comparison trims whitespace and folds case;
// the data decides correctness, never the code. The final puzzle of
// the chain resolves to the distinguished escape transition.
func (g *GateKeeper) SubmitAnswer(puzzleID, answer string, st *types.GameState) (Verdict, error) {
	p, ok := g.lib.Puzzle(st.SceneID, puzzleID)
	if !ok {
		return Verdict{}, fmt.Errorf("puzzle %q: %w", puzzleID, ErrUnknownPuzzle)
	}
	if !answersMatch(p.Answer, answer) {
		return Verdict{}, nil
	}

	v := Verdict{Correct: true, NextDialog: p.SolvedDialog}
	if final, ok := g.lib.FinalPuzzle(st.SceneID); ok && final.ID == p.ID {
		v.Final = true
		if p.EscapeDialog != "" {
			v.NextDialog = p.EscapeDialog
		}
	}
	return v, nil
}

// answersMatch compares answers case-insensitively after trimming,
// with ASCII fullwidth digits and letters folded to halfwidth so
// "４２" matches "42".
func answersMatch(expected, got string) bool {
	return normalize(expected) == normalize(got)
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		// Fullwidth ASCII block to halfwidth.
		if r >= '！' && r <= '～' {
			r = r - '！' + '!'
		}
		if r == '　' {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.TrimSpace(b.String()))
}
