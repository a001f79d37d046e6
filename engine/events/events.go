// Package events implements the typed event bus the core components
// communicate over. Events are a closed tagged union; handlers are
// registered per concrete event type, which gives compile-time payload
// checking instead of stringly-typed event names.
package events

import (
	"reflect"

	"github.com/kotonoha/escapecore/types"
)

// Event is the marker interface for the closed set of event kinds.
type Event interface{ isEvent() }

// DialogueShown fires when a new dialogue node becomes current.
type DialogueShown struct{ Node types.DialogueNode }

// DialogueComplete fires when the player advances past a node.
type DialogueComplete struct{ NextID string }

// ChoicePresented fires when a node with choices becomes current.
type ChoicePresented struct {
	DialogID string
	Choices  []types.DialogueChoice
}

// PuzzleSolved fires after a puzzle is marked solved.
type PuzzleSolved struct {
	PuzzleID string
	Answer   string
}

// PuzzleWrong fires after an incorrect answer.
type PuzzleWrong struct{ PuzzleID string }

// TimerTick fires once per running wall-clock second.
type TimerTick struct{ Remaining int }

// TimerUpdated fires on any time change, including penalties.
type TimerUpdated struct{ Remaining int }

// TimeWarning fires exactly once per downward warning-threshold crossing.
type TimeWarning struct{ MinutesLeft int }

// TimeUp fires exactly once per downward zero crossing.
type TimeUp struct{}

// ChangeLocation fires when the playthrough moves to a new scene.
type ChangeLocation struct{ LocationID string }

// LocationEscaped fires when the final puzzle of a location is solved.
type LocationEscaped struct{ LocationID string }

// RequestHint fires when the player asks for a hint.
type RequestHint struct{ Level int }

// HintRevealed fires after a hint has been charged and unlocked.
type HintRevealed struct {
	Level int
	Text  string
}

// VocabularyDiscovered fires on each first sighting of a word.
type VocabularyDiscovered struct {
	Word   string
	Reward int
}

// AddInventoryItem fires when an item enters the inventory.
type AddInventoryItem struct{ ItemID string }

// StateChanged fires after every state mutation. It is the only
// channel through which persistence and the presentation layer
// observe progress.
type StateChanged struct{ Snapshot types.GameState }

// SaveFailed fires when a persistence write fails; gameplay continues.
type SaveFailed struct{ Err error }

func (DialogueShown) isEvent()        {}
func (DialogueComplete) isEvent()     {}
func (ChoicePresented) isEvent()      {}
func (PuzzleSolved) isEvent()         {}
func (PuzzleWrong) isEvent()          {}
func (TimerTick) isEvent()            {}
func (TimerUpdated) isEvent()         {}
func (TimeWarning) isEvent()          {}
func (TimeUp) isEvent()               {}
func (ChangeLocation) isEvent()       {}
func (LocationEscaped) isEvent()      {}
func (RequestHint) isEvent()          {}
func (HintRevealed) isEvent()         {}
func (VocabularyDiscovered) isEvent() {}
func (AddInventoryItem) isEvent()     {}
func (StateChanged) isEvent()         {}
func (SaveFailed) isEvent()           {}

// handler is one registered subscription.
type handler struct {
	id int
	fn func(Event)
}

// Bus dispatches events synchronously on the caller's goroutine, in
// subscription order. The core is single-threaded by construction, so
// no locking is needed; dispatch iterates a copy of the handler list
// so handlers may subscribe or unsubscribe during delivery. Nested
// publishes run inline.
type Bus struct {
	handlers map[reflect.Type][]handler
	nextID   int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: map[reflect.Type][]handler{}}
}

// Subscribe registers fn for events of concrete type T. The returned
// function removes the subscription.
func Subscribe[T Event](b *Bus, fn func(T)) func() {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], handler{
		id: id,
		fn: func(ev Event) { fn(ev.(T)) },
	})
	return func() {
		hs := b.handlers[t]
		for i, h := range hs {
			if h.id == id {
				b.handlers[t] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every handler registered for its type.
func (b *Bus) Publish(ev Event) {
	hs := b.handlers[reflect.TypeOf(ev)]
	// Copy: handlers may mutate the subscription list mid-dispatch.
	snapshot := make([]handler, len(hs))
	copy(snapshot, hs)
	for _, h := range snapshot {
		h.fn(ev)
	}
}
