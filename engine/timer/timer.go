// Package timer implements the authoritative countdown controller.
// The controller owns pause bookkeeping and penalty arithmetic; the
// actual time value lives in the state store, which is also the
// single point of threshold-crossing detection.
package timer

import (
	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/engine/state"
)

// HintCostPerLevel is the time cost multiplier for hints: a level-n
// hint costs n*60 seconds.
const HintCostPerLevel = 60

// Controller drives the countdown. The host calls Tick once per
// wall-clock second; modal overlays bracket Pause/Resume around
// themselves. Pause holds are counted so nested overlays cannot
// under-pause: the timer runs only when every hold has been released.
type Controller struct {
	store *state.Store
	bus   *events.Bus

	holds   int
	penalty int // scene-configured wrong-answer penalty, seconds
}

// New creates a running controller with the given wrong-answer
// penalty.
func New(store *state.Store, bus *events.Bus, penaltySeconds int) *Controller {
	return &Controller{store: store, bus: bus, penalty: penaltySeconds}
}

// Pause places a hold on the timer. Reentrant: each overlay takes
// its own hold.
func (c *Controller) Pause() {
	c.holds++
}

// Resume releases one hold. Releasing with no holds outstanding is a
// no-op, so a stray double-resume cannot under-pause.
func (c *Controller) Resume() {
	if c.holds > 0 {
		c.holds--
	}
}

// Running reports whether the countdown is live.
func (c *Controller) Running() bool {
	return c.holds == 0
}

// Tick advances the countdown by one second. No-op while paused.
// The delta routes through the store so warning and zero crossings
// stay edge-triggered in one place; the timer runs into negative
// overtime indefinitely.
func (c *Controller) Tick() {
	if c.holds > 0 {
		return
	}
	c.store.ApplyTimeDelta(-1)
	if st := c.store.State(); st != nil {
		c.bus.Publish(events.TimerTick{Remaining: st.TimeRemaining})
	}
}

// ApplyPenalty subtracts the scene's wrong-answer penalty.
func (c *Controller) ApplyPenalty() {
	c.store.ApplyTimeDelta(-c.penalty)
}

// ApplyCost subtracts an arbitrary time cost.
func (c *Controller) ApplyCost(seconds int) {
	if seconds > 0 {
		c.store.ApplyTimeDelta(-seconds)
	}
}

// HintCost returns the time cost of a hint at the given level.
func HintCost(level int) int {
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	return level * HintCostPerLevel
}

// ChargeHint deducts the level-scaled hint cost.
func (c *Controller) ChargeHint(level int) {
	c.ApplyCost(HintCost(level))
}
