package save

import (
	"time"

	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/engine/events"
)

// Autosaver snapshots every state change through the gateway. A
// failed write logs and publishes SaveFailed; gameplay never blocks
// on persistence.
type Autosaver struct {
	gw    Gateway
	bus   *events.Bus
	log   *zap.Logger
	now   func() time.Time
	unsub func()
}

// NewAutosaver subscribes to StateChanged and starts writing
// through gw.
func NewAutosaver(gw Gateway, bus *events.Bus, log *zap.Logger) *Autosaver {
	a := &Autosaver{gw: gw, bus: bus, log: log, now: time.Now}
	a.unsub = events.Subscribe(bus, func(ev events.StateChanged) {
		a.write(ev)
	})
	return a
}

func (a *Autosaver) write(ev events.StateChanged) {
	if ev.Snapshot.SceneID == "" {
		return
	}
	rec := Record{
		SceneID:       ev.Snapshot.SceneID,
		DialogID:      ev.Snapshot.DialogID,
		RemainingTime: ev.Snapshot.TimeRemaining,
		Timestamp:     a.now().Unix(),
	}
	if err := a.gw.Save(rec); err != nil {
		a.log.Warn("autosave failed", zap.Error(err))
		a.bus.Publish(events.SaveFailed{Err: err})
	}
}

// Stop detaches the autosaver from the bus.
func (a *Autosaver) Stop() {
	if a.unsub != nil {
		a.unsub()
		a.unsub = nil
	}
}
