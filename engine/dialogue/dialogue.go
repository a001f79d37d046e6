// Package dialogue implements the dialogue graph walker: next-node
// resolution for the current scene, a synthetic-node overlay for
// runtime-constructed one-off nodes, and recovery from malformed
// story data.
package dialogue

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// Sentinel errors for graph resolution.
var (
	ErrDanglingDialogue = errors.New("dialogue node has no next id and is not an ending")
	ErrNoSuchChoice     = errors.New("choice index out of range")
	ErrNodeNotFound     = errors.New("dialogue node not found")
)

// RecoveryNodeID identifies the built-in node substituted for a
// missing referenced dialogue id.
const RecoveryNodeID = "error-recovery"

// Trigger describes what kind of transition is being resolved.
type Trigger interface{ isTrigger() }

// TriggerAdvance is a linear advance past a node with no choices.
type TriggerAdvance struct{}

// TriggerChoice is a branch selection by choice index.
type TriggerChoice struct{ Index int }

// TriggerAnswer is a puzzle-answer submission; the next node is
// decided by the gatekeeper, the walker only validates the position.
type TriggerAnswer struct{ Next string }

func (TriggerAdvance) isTrigger() {}
func (TriggerChoice) isTrigger()  {}
func (TriggerAnswer) isTrigger()  {}

// Walker resolves dialogue transitions against the story graph. It
// reads story data but never mutates it; one-off nodes live in a
// synthetic overlay that is cleared on scene switch and never
// persisted.
type Walker struct {
	lib *story.Library
	bus *events.Bus
	log *zap.Logger

	sceneID   string
	synthetic map[string]types.DialogueNode
	lastGood  string // last dialogue id that resolved cleanly
}

// NewWalker creates a walker over the given library.
func NewWalker(lib *story.Library, bus *events.Bus, log *zap.Logger) *Walker {
	return &Walker{
		lib:       lib,
		bus:       bus,
		log:       log,
		synthetic: map[string]types.DialogueNode{},
	}
}

// SetScene points the walker at a scene graph and clears the
// synthetic overlay.
func (w *Walker) SetScene(sceneID string) {
	w.sceneID = sceneID
	w.lastGood = ""
	w.ClearSynthetic()
}

// Node looks up a dialogue node: overlay first, then the story graph.
// A missing referenced id substitutes the built-in recovery node
// whose Next points back at the last known-good id; the fault is
// logged, never raised.
func (w *Walker) Node(dialogID string) types.DialogueNode {
	if node, ok := w.synthetic[dialogID]; ok {
		return node
	}
	if node, ok := w.lib.Node(w.sceneID, dialogID); ok {
		w.lastGood = dialogID
		return node
	}
	w.log.Error("missing dialogue id, substituting recovery node",
		zap.String("scene", w.sceneID), zap.String("dialog", dialogID))
	return w.recoveryNode()
}

// Has reports whether a dialogue id resolves without recovery.
func (w *Walker) Has(dialogID string) bool {
	if _, ok := w.synthetic[dialogID]; ok {
		return true
	}
	_, ok := w.lib.Node(w.sceneID, dialogID)
	return ok
}

// ResolveNext returns the dialogue id that follows currentID for the
// given trigger. Returns ErrDanglingDialogue when a non-ending node
// has nowhere to go.
func (w *Walker) ResolveNext(currentID string, trg Trigger) (string, error) {
	node := w.Node(currentID)

	switch t := trg.(type) {
	case TriggerAdvance:
		if node.Next != "" {
			return node.Next, nil
		}
		if node.Ending {
			return "", nil
		}
		return "", fmt.Errorf("node %s: %w", currentID, ErrDanglingDialogue)

	case TriggerChoice:
		if t.Index < 0 || t.Index >= len(node.Choices) {
			return "", fmt.Errorf("node %s, index %d: %w", currentID, t.Index, ErrNoSuchChoice)
		}
		next := node.Choices[t.Index].Next
		if next == "" {
			return "", fmt.Errorf("node %s choice %d: %w", currentID, t.Index, ErrDanglingDialogue)
		}
		return next, nil

	case TriggerAnswer:
		if t.Next == "" {
			return "", fmt.Errorf("node %s: %w", currentID, ErrDanglingDialogue)
		}
		return t.Next, nil

	default:
		return "", fmt.Errorf("node %s: unknown trigger %T", currentID, trg)
	}
}

// IsEnding reports whether a node ends the scene: the canonical
// Ending flag, or the absence of any onward transition.
func (w *Walker) IsEnding(dialogID string) bool {
	node := w.Node(dialogID)
	if node.Ending {
		return true
	}
	return node.Next == "" && len(node.Choices) == 0
}

// InjectSyntheticNode registers a runtime-constructed node (error
// text, too-early hints, examined-object flavor) so it can be walked
// like a graph-authored node. Synthetic nodes shadow authored ids.
func (w *Walker) InjectSyntheticNode(id string, node types.DialogueNode) {
	node.ID = id
	w.synthetic[id] = node
}

// ClearSynthetic drops all injected nodes.
func (w *Walker) ClearSynthetic() {
	w.synthetic = map[string]types.DialogueNode{}
}

// recoveryNode builds the substitute for a missing dialogue id. Its
// Next points back at the last known-good id so play can continue;
// with no known-good id it falls back to the scene entry.
func (w *Walker) recoveryNode() types.DialogueNode {
	next := w.lastGood
	if next == "" {
		if sc, ok := w.lib.Scene(w.sceneID); ok {
			next = sc.Entry
		}
	}
	return types.DialogueNode{
		ID:      RecoveryNodeID,
		Speaker: "narrator",
		TextJP:  "……",
		TextEN:  "(Something flickers, and the moment passes.)",
		Next:    next,
	}
}
