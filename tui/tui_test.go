package tui

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kotonoha/escapecore/assets"
	"github.com/kotonoha/escapecore/engine"
	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/save"
	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

func TestHistory_PushAndNavigate(t *testing.T) {
	h := NewHistory(10)
	h.Push("next")
	h.Push("examine door")
	h.Push("answer 3141")

	if got, ok := h.Prev(); !ok || got != "answer 3141" {
		t.Errorf("expected most recent first, got %q ok=%v", got, ok)
	}
	if got, _ := h.Prev(); got != "examine door" {
		t.Errorf("expected second entry, got %q", got)
	}
	if got, _ := h.Next(); got != "answer 3141" {
		t.Errorf("expected to walk forward, got %q", got)
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false past the newest entry")
	}
}

func TestHistory_SkipsConsecutiveDuplicates(t *testing.T) {
	h := NewHistory(10)
	h.Push("next")
	h.Push("next")
	h.Push("hint")

	if got, _ := h.Prev(); got != "hint" {
		t.Errorf("expected hint, got %q", got)
	}
	if got, _ := h.Prev(); got != "next" {
		t.Errorf("expected next, got %q", got)
	}
	if got, _ := h.Prev(); got != "next" {
		t.Errorf("expected to stop at oldest, got %q", got)
	}
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c")

	h.Prev()
	if got, _ := h.Prev(); got != "b" {
		t.Errorf("expected oldest to be b after eviction, got %q", got)
	}
}

func TestHistory_EmptyPrev(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("expected false on empty history")
	}
}

func TestWordWrap(t *testing.T) {
	cases := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 20, "short"},
		{"one two three four", 9, "one two\nthree\nfour"},
		{"exact fit here", 14, "exact fit here"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := wordWrap(tc.text, tc.width); got != tc.want {
			t.Errorf("wordWrap(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{
		3600: "60:00",
		301:  "5:01",
		0:    "0:00",
		-61:  "-1:01",
	}
	for seconds, want := range cases {
		if got := formatClock(seconds); got != want {
			t.Errorf("formatClock(%d) = %q, want %q", seconds, got, want)
		}
	}
}

func TestLocationDisplayName(t *testing.T) {
	cases := map[string]string{
		"prison-cell": "Prison Cell",
		"guard_room":  "Guard Room",
		"attic":       "Attic",
	}
	for id, want := range cases {
		if got := locationDisplayName(id); got != want {
			t.Errorf("locationDisplayName(%q) = %q, want %q", id, got, want)
		}
	}
}

func testModel(t *testing.T) Model {
	t.Helper()
	log := zap.NewNop()
	lib := story.NewLibrary(map[string]types.SceneDef{
		"cell": {
			ID:       "cell",
			Location: "prison-cell",
			Entry:    "x00",
			Timer:    types.TimerConfig{Initial: 1800, Warning: 300, Penalty: 300},
			Nodes: map[string]types.DialogueNode{
				"x00":    {ID: "x00", Speaker: "narrator", TextJP: "暗い部屋だ。", TextEN: "A dark room.", Next: "x01"},
				"x01":    {ID: "x01", TextJP: "……", Next: "x00"},
				"escape": {ID: "escape", TextJP: "終わり。", Ending: true},
			},
			Puzzles: map[string]types.PuzzleDef{
				"p1": {ID: "p1", Index: 1, Answer: "a", EscapeDialog: "escape"},
			},
		},
	})
	bus := events.NewBus()
	gw := save.NewFileGateway(filepath.Join(t.TempDir(), "save.json"), 0, log)
	am := assets.NewManager(assets.NewResolver(t.TempDir(), log), nil, log)
	sess := engine.New(lib, bus, gw, am, log)
	if err := sess.Start("cell"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return New(sess, lib, bus)
}

func TestHandleCommand_AdvanceAppendsNode(t *testing.T) {
	m := testModel(t)

	m = m.handleCommand("next")

	joined := rawText(m)
	if !strings.Contains(joined, "……") {
		t.Errorf("expected next node text in viewport lines, got %q", joined)
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	m := testModel(t)

	m = m.handleCommand("dance")

	if !strings.Contains(rawText(m), "Unknown command: dance.") {
		t.Errorf("expected unknown command notice, got %q", rawText(m))
	}
}

func TestHandleMeta_StateAndQuit(t *testing.T) {
	m := testModel(t)

	lines, quit := m.handleMeta("/state")
	if quit {
		t.Error("/state must not quit")
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "Scene: cell") || !strings.Contains(joined, "Time: 30:00") {
		t.Errorf("unexpected /state output: %q", joined)
	}

	if _, quit := m.handleMeta("/quit"); !quit {
		t.Error("/quit must quit")
	}
}

func TestNew_PicksUpWarningThreshold(t *testing.T) {
	m := testModel(t)
	if m.warnThreshold != 300 {
		t.Errorf("expected warn threshold from scene timer, got %d", m.warnThreshold)
	}
}

func rawText(m Model) string {
	var parts []string
	for _, rl := range m.rawLines {
		parts = append(parts, rl.text)
	}
	return strings.Join(parts, "\n")
}
