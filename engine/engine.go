// Package engine provides the Session orchestrator that wires the
// state store, dialogue walker, puzzle gatekeeper, timer, and
// persistence together. Each player intent runs synchronously:
// consult the gatekeeper and walker, apply state deltas through the
// store, and publish the resulting events for the presentation layer.
package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/assets"
	"github.com/kotonoha/escapecore/engine/dialogue"
	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/engine/puzzle"
	"github.com/kotonoha/escapecore/engine/state"
	"github.com/kotonoha/escapecore/engine/timer"
	"github.com/kotonoha/escapecore/save"
	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// ErrNoScene is returned by player intents before Start.
var ErrNoScene = errors.New("no active scene")

// timeNow is swapped in tests.
var timeNow = time.Now

// Synthetic node id for answers submitted with no puzzle active.
const noPuzzleNodeID = "no-active-puzzle"

// Session is one playthrough: the composition of all core components
// over a loaded story library. All methods run on the host's loop;
// the core is single-threaded by construction.
type Session struct {
	lib    *story.Library
	bus    *events.Bus
	store  *state.Store
	walker *dialogue.Walker
	gate   *puzzle.GateKeeper
	timer  *timer.Controller
	gw     save.Gateway
	saver  *save.Autosaver
	assets *assets.Manager
	log    *zap.Logger

	activePuzzle string
	sceneOver    bool
}

// New composes a session. The save gateway and asset manager are
// owned by the caller (the composition root); the session owns the
// store, walker, gatekeeper, timer, and autosaver.
func New(lib *story.Library, bus *events.Bus, gw save.Gateway, am *assets.Manager, log *zap.Logger) *Session {
	s := &Session{
		lib:    lib,
		bus:    bus,
		store:  state.New(lib, bus, log),
		walker: dialogue.NewWalker(lib, bus, log),
		gate:   puzzle.NewGateKeeper(lib),
		gw:     gw,
		assets: am,
		log:    log,
	}
	s.saver = save.NewAutosaver(gw, bus, log)
	return s
}

// Start begins a fresh playthrough at the scene's entry dialogue.
func (s *Session) Start(sceneID string) error {
	return s.startAt(sceneID, "", 0, false)
}

// ResumeSaved restores the persisted position. Returns false when no
// usable record exists; the caller should Start fresh.
func (s *Session) ResumeSaved() (bool, error) {
	rec, ok := s.gw.Load()
	if !ok {
		return false, nil
	}
	if err := s.startAt(rec.SceneID, rec.DialogID, rec.RemainingTime, true); err != nil {
		s.log.Warn("saved position no longer valid, ignoring record", zap.Error(err))
		return false, nil
	}
	return true, nil
}

// startAt positions the playthrough. hasRemaining distinguishes a
// restored countdown from a fresh one; a saved zero is a real value
// (the record written at the TimeUp crossing), not an absence.
func (s *Session) startAt(sceneID, dialogID string, remaining int, hasRemaining bool) error {
	sc, ok := s.lib.Scene(sceneID)
	if !ok {
		return fmt.Errorf("scene %q: %w", sceneID, state.ErrInvalidScene)
	}
	if dialogID == "" {
		dialogID = sc.Entry
	}
	initial := sc.Timer.Initial
	if hasRemaining {
		initial = remaining
	}

	s.assets.Invalidate()
	s.walker.SetScene(sceneID)
	if _, err := s.store.Initialize(sceneID, dialogID, initial); err != nil {
		return err
	}
	s.timer = timer.New(s.store, s.bus, sc.Timer.Penalty)
	s.activePuzzle = s.puzzleAtIntro(sc, dialogID)
	s.sceneOver = false

	s.bus.Publish(events.ChangeLocation{LocationID: sc.Location})
	s.showNode(s.store.State().DialogID)
	return nil
}

// puzzleAtIntro maps a dialogue position back to the puzzle it
// introduces, so a playthrough restored mid-riddle can take answers
// without re-examining the object. The save record carries only the
// position; the puzzle is recovered from the scene definition.
func (s *Session) puzzleAtIntro(sc types.SceneDef, dialogID string) string {
	for id, p := range sc.Puzzles {
		if p.IntroDialog != "" && p.IntroDialog == dialogID {
			return id
		}
	}
	return ""
}

// State returns the live game state, or nil before Start.
func (s *Session) State() *types.GameState {
	return s.store.State()
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() types.GameState {
	return s.store.Snapshot()
}

// Current returns the node at the current dialogue position.
func (s *Session) Current() (types.DialogueNode, bool) {
	st := s.store.State()
	if st == nil {
		return types.DialogueNode{}, false
	}
	return s.walker.Node(st.DialogID), true
}

// SceneOver reports whether the current scene has reached an ending.
func (s *Session) SceneOver() bool {
	return s.sceneOver
}

// Advance moves past the current node along its default transition.
// On nodes with choices the current node is returned unchanged — the
// host must Choose. Reaching an ending marks the scene over.
func (s *Session) Advance() (types.DialogueNode, error) {
	st := s.store.State()
	if st == nil {
		return types.DialogueNode{}, ErrNoScene
	}
	node := s.walker.Node(st.DialogID)
	if len(node.Choices) > 0 {
		return node, nil
	}
	next, err := s.walker.ResolveNext(st.DialogID, dialogue.TriggerAdvance{})
	if err != nil {
		// Malformed graph: recover in place rather than crash.
		s.log.Error("dialogue advance failed, holding position", zap.Error(err))
		return node, nil
	}
	if next == "" {
		s.endScene(node)
		return node, nil
	}
	s.bus.Publish(events.DialogueComplete{NextID: next})
	return s.showNode(next), nil
}

// Choose selects a branch on the current node. A choice carrying an
// answer payload is routed to the gatekeeper as a puzzle submission.
func (s *Session) Choose(index int) (types.DialogueNode, error) {
	st := s.store.State()
	if st == nil {
		return types.DialogueNode{}, ErrNoScene
	}
	node := s.walker.Node(st.DialogID)
	if index < 0 || index >= len(node.Choices) {
		return node, fmt.Errorf("node %s, index %d: %w", st.DialogID, index, dialogue.ErrNoSuchChoice)
	}
	choice := node.Choices[index]
	if choice.Answer != "" && s.activePuzzle != "" {
		return s.Answer(choice.Answer)
	}
	next, err := s.walker.ResolveNext(st.DialogID, dialogue.TriggerChoice{Index: index})
	if err != nil {
		s.log.Error("choice resolution failed, holding position", zap.Error(err))
		return node, nil
	}
	s.bus.Publish(events.DialogueComplete{NextID: next})
	return s.showNode(next), nil
}

// Interact handles an object click. Out-of-order interactions are
// narrative ("too early" hint), not faults; only a truly unknown
// object is reported as an error, and even that is degraded to a
// narrative response by hosts.
func (s *Session) Interact(objectID string) (types.DialogueNode, error) {
	st := s.store.State()
	if st == nil {
		return types.DialogueNode{}, ErrNoScene
	}
	outcome, err := s.gate.EvaluateInteraction(objectID, st)
	if err != nil {
		return types.DialogueNode{}, err
	}

	switch o := outcome.(type) {
	case puzzle.StartPuzzle:
		s.activePuzzle = o.PuzzleID
		s.bus.Publish(events.DialogueComplete{NextID: o.DialogID})
		return s.showNode(o.DialogID), nil

	case puzzle.AlreadySolvedExamine:
		obj, _ := s.lib.Object(st.SceneID, o.ObjectID)
		// Examination discoveries use the higher reward path.
		for _, w := range obj.Vocabulary {
			s.store.ApplyVocabularyDiscovered(w, state.VocabExamine)
		}
		s.walker.InjectSyntheticNode(o.DialogID, types.DialogueNode{
			Speaker: "narrator",
			TextJP:  obj.ExamineJP,
			TextEN:  obj.ExamineEN,
			Next:    st.DialogID,
		})
		return s.showNode(o.DialogID), nil

	case puzzle.TooEarly:
		obj, _ := s.lib.Object(st.SceneID, o.ObjectID)
		s.walker.InjectSyntheticNode(o.DialogID, types.DialogueNode{
			Speaker: "narrator",
			TextJP:  obj.TooEarlyJP,
			TextEN:  obj.TooEarlyEN,
			Next:    st.DialogID,
		})
		return s.showNode(o.DialogID), nil

	default:
		return types.DialogueNode{}, fmt.Errorf("unknown outcome %T", outcome)
	}
}

// Answer submits an answer to the active puzzle. Wrong answers cost
// the scene-configured time penalty plus the score penalty and
// re-enter the puzzle; correct answers advance to the solved
// dialogue, or to the distinguished escape transition on the chain's
// final puzzle.
func (s *Session) Answer(text string) (types.DialogueNode, error) {
	st := s.store.State()
	if st == nil {
		return types.DialogueNode{}, ErrNoScene
	}
	if s.activePuzzle == "" {
		s.walker.InjectSyntheticNode(noPuzzleNodeID, types.DialogueNode{
			Speaker: "narrator",
			TextJP:  "今は答える謎がない。",
			TextEN:  "There is no riddle to answer right now.",
			Next:    st.DialogID,
		})
		return s.showNode(noPuzzleNodeID), nil
	}

	verdict, err := s.gate.SubmitAnswer(s.activePuzzle, text, st)
	if err != nil {
		return types.DialogueNode{}, err
	}

	if !verdict.Correct {
		pid := s.activePuzzle
		s.timer.ApplyPenalty()
		s.store.ApplyWrongAnswer(pid)
		retryID := "wrong-answer:" + pid
		intro := st.DialogID
		if p, ok := s.lib.Puzzle(st.SceneID, pid); ok && p.IntroDialog != "" {
			intro = p.IntroDialog
		}
		s.walker.InjectSyntheticNode(retryID, types.DialogueNode{
			Speaker: "narrator",
			TextJP:  "違うようだ……もう一度。",
			TextEN:  "That doesn't seem right... Try again.",
			Next:    intro,
		})
		return s.showNode(retryID), nil
	}

	pid := s.activePuzzle
	s.activePuzzle = ""
	if _, err := s.store.ApplyPuzzleSolved(pid); err != nil {
		// The gatekeeper should have blocked this earlier; log and
		// hold position rather than crash.
		s.log.Error("solved puzzle rejected by store", zap.String("puzzle", pid), zap.Error(err))
		return s.walker.Node(st.DialogID), nil
	}
	if verdict.Final {
		sc, _ := s.lib.Scene(st.SceneID)
		s.bus.Publish(events.LocationEscaped{LocationID: sc.Location})
	}
	return s.showNode(verdict.NextDialog), nil
}

// RequestHint charges the level-scaled time cost, appends to the
// hint audit log, and reveals the active puzzle's hint text.
func (s *Session) RequestHint(level int) (string, error) {
	st := s.store.State()
	if st == nil {
		return "", ErrNoScene
	}
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	s.bus.Publish(events.RequestHint{Level: level})
	s.timer.ChargeHint(level)
	s.store.UnlockHint(st.DialogID, level)

	text := "目の前のものをよく見て。 (Look closely at what's in front of you.)"
	if s.activePuzzle != "" {
		if p, ok := s.lib.Puzzle(st.SceneID, s.activePuzzle); ok && p.Hints[level-1] != "" {
			text = p.Hints[level-1]
		}
	}
	s.bus.Publish(events.HintRevealed{Level: level, Text: text})
	return text, nil
}

// Tick advances the countdown by one wall-clock second.
func (s *Session) Tick() {
	if s.timer != nil {
		s.timer.Tick()
	}
}

// Pause places a hold on the timer (modal overlay opened).
func (s *Session) Pause() {
	if s.timer != nil {
		s.timer.Pause()
	}
}

// Unpause releases one timer hold (modal overlay closed).
func (s *Session) Unpause() {
	if s.timer != nil {
		s.timer.Resume()
	}
}

// Paused reports whether the timer currently holds.
func (s *Session) Paused() bool {
	return s.timer != nil && !s.timer.Running()
}

// ChangeLocation moves the playthrough to another scene, carrying
// progress over. In-flight asset requests for the old scene are
// invalidated.
func (s *Session) ChangeLocation(sceneID string) error {
	sc, ok := s.lib.Scene(sceneID)
	if !ok {
		return fmt.Errorf("scene %q: %w", sceneID, state.ErrInvalidScene)
	}
	s.assets.Invalidate()
	s.walker.SetScene(sceneID)
	if err := s.store.EnterScene(sceneID); err != nil {
		return err
	}
	s.timer = timer.New(s.store, s.bus, sc.Timer.Penalty)
	s.activePuzzle = ""
	s.sceneOver = false
	s.bus.Publish(events.ChangeLocation{LocationID: sc.Location})
	s.showNode(sc.Entry)
	return nil
}

// SaveNow writes the current position through the gateway
// immediately, outside the autosave path.
func (s *Session) SaveNow() error {
	st := s.store.State()
	if st == nil {
		return ErrNoScene
	}
	return s.gw.Save(save.Record{
		SceneID:       st.SceneID,
		DialogID:      st.DialogID,
		RemainingTime: st.TimeRemaining,
		Timestamp:     timeNow().Unix(),
	})
}

// ClearSave empties the save slot (new game).
func (s *Session) ClearSave() error {
	return s.gw.Clear()
}

// End tears the playthrough down (return to menu). The save record
// is kept for a later resume.
func (s *Session) End() {
	s.assets.Invalidate()
	s.saver.Stop()
	s.store.Reset()
	s.activePuzzle = ""
	s.sceneOver = true
}

// showNode makes id the current position: applies the node's
// vocabulary (dialogue reward path) and inventory grant, kicks off a
// fire-and-forget voice request, and publishes the presentation
// events.
func (s *Session) showNode(id string) types.DialogueNode {
	node := s.walker.Node(id)
	s.store.SetDialog(id)
	for _, w := range node.Vocabulary {
		s.store.ApplyVocabularyDiscovered(w, state.VocabDialogue)
	}
	if node.Item != "" {
		s.store.AddItem(node.Item)
	}

	// Voice audio is a collaborator concern: dialogue must advance
	// even if this never completes.
	s.assets.Request(assets.KindVoice, id, func(res assets.Result) {
		s.log.Debug("voice ready", zap.String("dialog", res.Name), zap.String("path", res.Path))
	})

	s.bus.Publish(events.DialogueShown{Node: node})
	if len(node.Choices) > 0 {
		s.bus.Publish(events.ChoicePresented{DialogID: id, Choices: node.Choices})
	}
	if s.walker.IsEnding(id) && len(node.Choices) == 0 && node.Next == "" {
		s.endScene(node)
	}
	return node
}

// endScene marks the scene finished and pauses the countdown.
func (s *Session) endScene(node types.DialogueNode) {
	if s.sceneOver {
		return
	}
	s.sceneOver = true
	s.timer.Pause()
	s.bus.Publish(events.DialogueComplete{NextID: ""})
}
