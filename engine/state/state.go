// Package state implements the game-state store: the single mutable
// record of player progress. All mutation goes through Store methods;
// every mutator publishes StateChanged, which is the only path through
// which persistence and the presentation layer observe progress.
package state

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// Sentinel errors for state transitions.
var (
	ErrInvalidScene  = errors.New("scene not found in story library")
	ErrUnknownDialog = errors.New("dialogue id not found in scene")
	ErrPuzzleLocked  = errors.New("puzzle dependencies not yet solved")
	ErrNotStarted    = errors.New("no active playthrough")
)

// Vocabulary rewards differ by discovery path. Both observed values
// are kept and named per call site; see DESIGN.md.
const (
	RewardDialogue = 5  // word shown in a dialogue line
	RewardExamine  = 10 // word discovered by examining an object
)

// WrongAnswerScorePenalty is deducted from score on an incorrect
// answer; score is clamped at zero.
const WrongAnswerScorePenalty = 5

// VocabSource identifies which discovery path found a word.
type VocabSource int

const (
	VocabDialogue VocabSource = iota
	VocabExamine
)

// Store owns the mutable GameState for one playthrough.
type Store struct {
	lib *story.Library
	bus *events.Bus
	log *zap.Logger

	st *types.GameState

	warnThreshold int
}

// New creates a store with no active playthrough.
func New(lib *story.Library, bus *events.Bus, log *zap.Logger) *Store {
	return &Store{lib: lib, bus: bus, log: log}
}

// Initialize constructs fresh state for a playthrough at the given
// scene and dialogue position. Returns ErrInvalidScene if the library
// cannot resolve the scene. An unknown dialogue id falls back to the
// scene's entry node rather than failing.
func (s *Store) Initialize(sceneID, dialogID string, initialSeconds int) (*types.GameState, error) {
	sc, ok := s.lib.Scene(sceneID)
	if !ok {
		return nil, ErrInvalidScene
	}
	if _, ok := s.lib.Node(sceneID, dialogID); !ok {
		s.log.Warn("unknown dialogue id, falling back to scene entry",
			zap.String("scene", sceneID), zap.String("dialog", dialogID))
		dialogID = sc.Entry
	}

	s.warnThreshold = sc.Timer.Warning
	s.st = &types.GameState{
		SessionID:        uuid.New(),
		SceneID:          sceneID,
		DialogID:         dialogID,
		TimeRemaining:    initialSeconds,
		Inventory:        map[string]bool{},
		SolvedPuzzles:    map[string]bool{},
		UnlockedHints:    []types.HintUnlock{},
		VisitedLocations: map[string]bool{sc.Location: true},
		VocabularySeen:   map[string]bool{},
		Flags:            map[string]bool{},
	}
	s.publishChanged()
	return s.st, nil
}

// EnterScene moves the active playthrough into another scene:
// position and timer reset to the scene's configuration, while
// inventory, solved puzzles, vocabulary, score, and flags carry over.
func (s *Store) EnterScene(sceneID string) error {
	if s.st == nil {
		return ErrNotStarted
	}
	sc, ok := s.lib.Scene(sceneID)
	if !ok {
		return ErrInvalidScene
	}
	s.warnThreshold = sc.Timer.Warning
	s.st.SceneID = sceneID
	s.st.DialogID = sc.Entry
	s.st.TimeRemaining = sc.Timer.Initial
	s.st.VisitedLocations[sc.Location] = true
	s.publishChanged()
	return nil
}

// Reset discards the active playthrough (return to menu / new game).
func (s *Store) Reset() {
	s.st = nil
}

// State returns the live aggregate, or nil before Initialize.
func (s *Store) State() *types.GameState {
	return s.st
}

// Snapshot returns a deep copy of the current state for persistence.
func (s *Store) Snapshot() types.GameState {
	if s.st == nil {
		return types.GameState{}
	}
	cp := *s.st
	cp.Inventory = copySet(s.st.Inventory)
	cp.SolvedPuzzles = copySet(s.st.SolvedPuzzles)
	cp.VisitedLocations = copySet(s.st.VisitedLocations)
	cp.VocabularySeen = copySet(s.st.VocabularySeen)
	cp.Flags = copySet(s.st.Flags)
	cp.UnlockedHints = append([]types.HintUnlock(nil), s.st.UnlockedHints...)
	return cp
}

// ApplyPuzzleSolved marks a puzzle solved. Idempotent: an already
// present id is a no-op with zero delta. Returns ErrPuzzleLocked
// unless every dependency of the puzzle is already solved.
func (s *Store) ApplyPuzzleSolved(puzzleID string) (int, error) {
	if s.st == nil {
		return 0, ErrNotStarted
	}
	if s.st.SolvedPuzzles[puzzleID] {
		return 0, nil
	}
	p, ok := s.lib.Puzzle(s.st.SceneID, puzzleID)
	if ok {
		for _, dep := range s.lib.Requires(s.st.SceneID, p) {
			if !s.st.SolvedPuzzles[dep] {
				return 0, ErrPuzzleLocked
			}
		}
	}
	s.st.SolvedPuzzles[puzzleID] = true
	s.bus.Publish(events.PuzzleSolved{PuzzleID: puzzleID, Answer: p.Answer})
	s.publishChanged()
	return 0, nil
}

// ApplyVocabularyDiscovered records a first sighting of a word and
// grants the per-path reward. Re-discovery is a no-op.
func (s *Store) ApplyVocabularyDiscovered(word string, src VocabSource) int {
	if s.st == nil || word == "" || s.st.VocabularySeen[word] {
		return 0
	}
	reward := RewardDialogue
	if src == VocabExamine {
		reward = RewardExamine
	}
	s.st.VocabularySeen[word] = true
	s.st.Score += reward
	s.bus.Publish(events.VocabularyDiscovered{Word: word, Reward: reward})
	s.publishChanged()
	return reward
}

// ApplyTimeDelta adds delta (possibly negative) to the remaining
// time. No clamping: time runs into negative overtime. Threshold
// events are edge-triggered on the downward crossing only — once per
// crossing, never re-fired while the value sits below the threshold.
func (s *Store) ApplyTimeDelta(delta int) {
	if s.st == nil || delta == 0 {
		return
	}
	old := s.st.TimeRemaining
	s.st.TimeRemaining += delta
	now := s.st.TimeRemaining

	if old > s.warnThreshold && now <= s.warnThreshold && now > 0 {
		s.bus.Publish(events.TimeWarning{MinutesLeft: (now + 59) / 60})
	}
	if old > 0 && now <= 0 {
		s.bus.Publish(events.TimeUp{})
	}
	s.bus.Publish(events.TimerUpdated{Remaining: now})
	s.publishChanged()
}

// ApplyWrongAnswer bumps the wrong-answer counter and deducts the
// score penalty, clamped at zero. The time penalty is applied
// separately by the timer controller.
func (s *Store) ApplyWrongAnswer(puzzleID string) {
	if s.st == nil {
		return
	}
	s.st.WrongAnswers++
	s.st.Score -= WrongAnswerScorePenalty
	if s.st.Score < 0 {
		s.st.Score = 0
	}
	s.bus.Publish(events.PuzzleWrong{PuzzleID: puzzleID})
	s.publishChanged()
}

// AddItem puts an item in the inventory. Duplicate adds are no-ops.
func (s *Store) AddItem(itemID string) {
	if s.st == nil || itemID == "" || s.st.Inventory[itemID] {
		return
	}
	s.st.Inventory[itemID] = true
	s.bus.Publish(events.AddInventoryItem{ItemID: itemID})
	s.publishChanged()
}

// SetFlag sets a story-branch flag.
func (s *Store) SetFlag(name string, value bool) {
	if s.st == nil {
		return
	}
	s.st.Flags[name] = value
	s.publishChanged()
}

// SetDialog moves the current dialogue position.
func (s *Store) SetDialog(dialogID string) {
	if s.st == nil || dialogID == "" {
		return
	}
	s.st.DialogID = dialogID
	s.publishChanged()
}

// UnlockHint appends to the hint audit log and bumps the counter.
func (s *Store) UnlockHint(dialogID string, level int) {
	if s.st == nil {
		return
	}
	s.st.UnlockedHints = append(s.st.UnlockedHints, types.HintUnlock{DialogID: dialogID, Level: level})
	s.st.HintsUsed++
	s.publishChanged()
}

// VisitLocation records a location as visited. The set only grows.
func (s *Store) VisitLocation(locationID string) {
	if s.st == nil || locationID == "" || s.st.VisitedLocations[locationID] {
		return
	}
	s.st.VisitedLocations[locationID] = true
	s.publishChanged()
}

func (s *Store) publishChanged() {
	s.bus.Publish(events.StateChanged{Snapshot: s.Snapshot()})
}

func copySet(m map[string]bool) map[string]bool {
	cp := make(map[string]bool, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
