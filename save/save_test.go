package save

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/types"
)

func testRecord(ts int64) Record {
	return Record{SceneID: "prison-cell", DialogID: "x02", RemainingTime: 1200, Timestamp: ts}
}

func TestDecode_RejectsIncompleteRecords(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{"sceneId": "prison-`},
		{"empty object", `{}`},
		{"missing scene", `{"dialogId":"x02","remainingTime":1200,"timestamp":1700000000}`},
		{"missing dialog", `{"sceneId":"prison-cell","remainingTime":1200,"timestamp":1700000000}`},
		{"zero timestamp", `{"sceneId":"prison-cell","dialogId":"x02","remainingTime":1200}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Decode([]byte(tc.data))
			assert.False(t, ok)
		})
	}
}

func TestEncodeDecode_FieldNames(t *testing.T) {
	data, err := Encode(testRecord(1700000000))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"sceneId":"prison-cell","dialogId":"x02","remainingTime":1200,"timestamp":1700000000}`,
		string(data))
}

func TestStale_Threshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	week := int64((7 * 24 * time.Hour) / time.Second)

	assert.False(t, Stale(testRecord(now.Unix()-week), now, DefaultStaleAfter), "exactly at threshold")
	assert.True(t, Stale(testRecord(now.Unix()-week-1), now, DefaultStaleAfter), "one second past")
	assert.False(t, Stale(testRecord(now.Unix()-3600), now, 0), "zero threshold falls back to default")
	assert.True(t, Stale(testRecord(now.Unix()-120), now, time.Minute), "custom threshold")
}

func TestFileGateway_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	g := NewFileGateway(path, 0, zap.NewNop())

	_, ok := g.Load()
	assert.False(t, ok, "empty slot")

	rec := testRecord(time.Now().Unix())
	require.NoError(t, g.Save(rec))

	got, ok := g.Load()
	require.True(t, ok)
	assert.Equal(t, rec, got)

	require.NoError(t, g.Clear())
	_, ok = g.Load()
	assert.False(t, ok, "cleared slot reads absent")
	assert.NoError(t, g.Clear(), "clearing an empty slot is not an error")
}

func TestFileGateway_CorruptionReadsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	g := NewFileGateway(path, 0, zap.NewNop())
	require.NoError(t, os.WriteFile(path, []byte(`{"sceneId": "prison-`), 0o644))

	_, ok := g.Load()
	assert.False(t, ok)
}

func TestFileGateway_StaleReadsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	g := NewFileGateway(path, 0, zap.NewNop())

	wrote := time.Unix(1_700_000_000, 0)
	require.NoError(t, g.Save(testRecord(wrote.Unix())))

	g.now = func() time.Time { return wrote.Add(6 * 24 * time.Hour) }
	_, ok := g.Load()
	assert.True(t, ok, "six days old is still fresh")

	g.now = func() time.Time { return wrote.Add(8 * 24 * time.Hour) }
	_, ok = g.Load()
	assert.False(t, ok, "eight days old reads absent")
}

func TestSQLiteGateway_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	g, err := OpenSQLite(path, "", 0, zap.NewNop())
	require.NoError(t, err)
	defer g.Close()

	_, ok := g.Load()
	assert.False(t, ok, "empty slot")

	rec := testRecord(time.Now().Unix())
	require.NoError(t, g.Save(rec))

	got, ok := g.Load()
	require.True(t, ok)
	assert.Equal(t, rec, got)

	// Overwrite, not append: the slot holds one record.
	rec2 := rec
	rec2.DialogID = "x03"
	require.NoError(t, g.Save(rec2))
	got, ok = g.Load()
	require.True(t, ok)
	assert.Equal(t, "x03", got.DialogID)

	require.NoError(t, g.Clear())
	_, ok = g.Load()
	assert.False(t, ok)
}

func TestSQLiteGateway_StaleReadsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	g, err := OpenSQLite(path, "slot-a", 0, zap.NewNop())
	require.NoError(t, err)
	defer g.Close()

	wrote := time.Unix(1_700_000_000, 0)
	require.NoError(t, g.Save(testRecord(wrote.Unix())))

	g.now = func() time.Time { return wrote.Add(8 * 24 * time.Hour) }
	_, ok := g.Load()
	assert.False(t, ok)
}

func TestSQLiteGateway_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ", "", 0, zap.NewNop())
	assert.Error(t, err)
}

// failGateway always fails writes, for the autosave failure path.
type failGateway struct{}

func (failGateway) Save(Record) error { return errors.New("disk full") }

func (failGateway) Load() (Record, bool) { return Record{}, false }

func (failGateway) Clear() error { return nil }

func (failGateway) Close() error { return nil }

func TestAutosaver_WritesSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	g := NewFileGateway(path, 0, zap.NewNop())
	bus := events.NewBus()
	a := NewAutosaver(g, bus, zap.NewNop())
	defer a.Stop()

	bus.Publish(events.StateChanged{Snapshot: types.GameState{
		SceneID: "prison-cell", DialogID: "x05", TimeRemaining: 900,
	}})

	rec, ok := g.Load()
	require.True(t, ok)
	assert.Equal(t, "prison-cell", rec.SceneID)
	assert.Equal(t, "x05", rec.DialogID)
	assert.Equal(t, 900, rec.RemainingTime)
	assert.NotZero(t, rec.Timestamp)
}

func TestAutosaver_SkipsPreSceneSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	g := NewFileGateway(path, 0, zap.NewNop())
	bus := events.NewBus()
	a := NewAutosaver(g, bus, zap.NewNop())
	defer a.Stop()

	bus.Publish(events.StateChanged{Snapshot: types.GameState{}})

	_, ok := g.Load()
	assert.False(t, ok)
}

func TestAutosaver_FailurePublishesEvent(t *testing.T) {
	bus := events.NewBus()
	a := NewAutosaver(failGateway{}, bus, zap.NewNop())
	defer a.Stop()

	var failures []events.SaveFailed
	events.Subscribe(bus, func(ev events.SaveFailed) { failures = append(failures, ev) })

	bus.Publish(events.StateChanged{Snapshot: types.GameState{
		SceneID: "prison-cell", DialogID: "x00", TimeRemaining: 3600,
	}})

	require.Len(t, failures, 1)
	assert.EqualError(t, failures[0].Err, "disk full")
}

func TestAutosaver_StopDetaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	g := NewFileGateway(path, 0, zap.NewNop())
	bus := events.NewBus()
	a := NewAutosaver(g, bus, zap.NewNop())

	a.Stop()
	bus.Publish(events.StateChanged{Snapshot: types.GameState{
		SceneID: "prison-cell", DialogID: "x00", TimeRemaining: 3600,
	}})

	_, ok := g.Load()
	assert.False(t, ok)
}
