// Package types defines the shared data structures for the EscapeCore engine.
// This package contains only type definitions, no logic.
package types

import "github.com/google/uuid"

// VocabEntry is a single vocabulary word taught by a scene.
type VocabEntry struct {
	Word    string // target-language spelling (kana/kanji)
	Reading string // kana reading
	Meaning string // translation
}

// DialogueChoice is one selectable option on a dialogue node.
type DialogueChoice struct {
	TextJP string
	TextEN string
	Next   string // dialogue id to jump to
	Answer string // optional puzzle answer payload; empty for plain branches
}

// DialogueNode is one unit of narrative text. Immutable once loaded.
type DialogueNode struct {
	ID         string
	Speaker    string
	TextJP     string
	TextEN     string
	Choices    []DialogueChoice
	Next       string   // default next id; empty on ending nodes
	Ending     bool     // canonical scene-ending flag
	Vocabulary []string // words introduced when this line is shown
	Item       string   // optional inventory grant when this line is shown
}

// PuzzleDef is one puzzle in a location's dependency chain.
type PuzzleDef struct {
	ID           string   // location-scoped ordinal id, "puzzle1".."puzzleN"
	Index        int      // ordinal position in the chain, 1-based
	Requires     []string // dependency edges; empty means "previous ordinal"
	Answer       string   // expected answer, data-driven
	IntroDialog  string   // dialogue id shown when the puzzle starts
	SolvedDialog string   // dialogue id shown on a correct answer
	EscapeDialog string   // final puzzle only: the distinguished escape transition
	Hints        [3]string
}

// ObjectDef is an interactive object bound to a puzzle.
type ObjectDef struct {
	ID         string
	Name       string
	PuzzleID   string
	ExamineJP  string // flavor text when the bound puzzle is already solved
	ExamineEN  string
	TooEarlyJP string // hint text when the puzzle chain hasn't reached this object
	TooEarlyEN string
	Vocabulary []string // words discovered by examining this object
}

// TimerConfig is a scene's countdown configuration, in seconds.
type TimerConfig struct {
	Initial int
	Warning int // threshold for the one-shot warning
	Penalty int // wrong-answer deduction
}

// SceneDef is the complete immutable definition of one location.
type SceneDef struct {
	ID         string
	Location   string
	Entry      string // entry dialogue id
	Timer      TimerConfig
	Nodes      map[string]DialogueNode
	Puzzles    map[string]PuzzleDef
	Objects    map[string]ObjectDef
	Vocabulary []VocabEntry
}

// HintUnlock is one entry in the append-only hint audit log.
type HintUnlock struct {
	DialogID string
	Level    int
}

// GameState is the complete mutable player state for one playthrough.
// Owned exclusively by the state store; mutated only through its methods.
type GameState struct {
	SessionID        uuid.UUID
	SceneID          string
	DialogID         string
	TimeRemaining    int // seconds; may go negative (overtime)
	Inventory        map[string]bool
	SolvedPuzzles    map[string]bool
	UnlockedHints    []HintUnlock
	VisitedLocations map[string]bool
	VocabularySeen   map[string]bool
	Flags            map[string]bool
	Score            int
	HintsUsed        int
	WrongAnswers     int
}
