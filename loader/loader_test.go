package loader

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

// writeStory materializes Lua fixture files into a temp story dir.
func writeStory(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}
	return dir
}

const fullScene = `
Scene "cell" {
	location = "prison-cell",
	entry = "x00",
	timer = { initial = 3600, warning = 300, penalty = 300 },
	vocabulary = {
		Word { word = "かぎ", reading = "kagi", meaning = "key" },
	},
}

Dialogue "x00" {
	speaker = "rat",
	jp = "ちゅう。",
	en = "Squeak.",
	next = "x01",
	vocab = { "わし" },
}

Dialogue "x01" {
	speaker = "narrator",
	jp = "どうする？",
	choices = {
		Choice { jp = "壁を見る", en = "Look at the wall", next = "p1-intro" },
		Choice { jp = "答える", answer = "かぎ" },
	},
}

Dialogue "p1-intro" {
	jp = "壁に文字がある。",
	next = "x01",
}

Dialogue "escape" {
	jp = "扉が開いた！",
	item = "freedom",
	ending = true,
}

Puzzle "p1" {
	index = 1,
	answer = "かぎ",
	intro = "p1-intro",
	solved = "x01",
	escape = "escape",
	hints = { "壁を見て。", "ひらがな。", "「かぎ」。" },
}

Object "wall" {
	name = "壁",
	puzzle = "p1",
	examine_jp = "傷だらけだ。",
	too_early_jp = "ただの壁。",
	vocab = { "かべ" },
}
`

func TestLoad_FullScene(t *testing.T) {
	dir := writeStory(t, map[string]string{"cell.lua": fullScene})

	lib, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sc, ok := lib.Scene("cell")
	if !ok {
		t.Fatal("scene cell not loaded")
	}
	if sc.Location != "prison-cell" || sc.Entry != "x00" {
		t.Errorf("unexpected scene header: %+v", sc)
	}
	if sc.Timer.Initial != 3600 || sc.Timer.Warning != 300 || sc.Timer.Penalty != 300 {
		t.Errorf("unexpected timer config: %+v", sc.Timer)
	}
	if len(sc.Vocabulary) != 1 || sc.Vocabulary[0].Word != "かぎ" || sc.Vocabulary[0].Meaning != "key" {
		t.Errorf("unexpected vocabulary: %+v", sc.Vocabulary)
	}

	x00 := sc.Nodes["x00"]
	if x00.Speaker != "rat" || x00.Next != "x01" || len(x00.Vocabulary) != 1 {
		t.Errorf("unexpected x00: %+v", x00)
	}
	x01 := sc.Nodes["x01"]
	if len(x01.Choices) != 2 {
		t.Fatalf("expected 2 choices on x01, got %d", len(x01.Choices))
	}
	if x01.Choices[0].Next != "p1-intro" || x01.Choices[1].Answer != "かぎ" {
		t.Errorf("unexpected choices: %+v", x01.Choices)
	}
	if esc := sc.Nodes["escape"]; !esc.Ending || esc.Item != "freedom" {
		t.Errorf("unexpected ending node: %+v", esc)
	}

	p1 := sc.Puzzles["p1"]
	if p1.Index != 1 || p1.Answer != "かぎ" || p1.EscapeDialog != "escape" {
		t.Errorf("unexpected puzzle: %+v", p1)
	}
	if p1.Hints != [3]string{"壁を見て。", "ひらがな。", "「かぎ」。"} {
		t.Errorf("unexpected hints: %v", p1.Hints)
	}

	wall := sc.Objects["wall"]
	if wall.Name != "壁" || wall.PuzzleID != "p1" || wall.TooEarlyJP != "ただの壁。" {
		t.Errorf("unexpected object: %+v", wall)
	}
}

func TestLoad_SceneScopeSpansFiles(t *testing.T) {
	// Files load in name order; Dialogue blocks in a later file attach
	// to the Scene opened in an earlier one.
	dir := writeStory(t, map[string]string{
		"00_scene.lua": `
Scene "cell" {
	entry = "x00",
	timer = { initial = 100 },
}
Puzzle "p1" { index = 1, answer = "a", escape = "x00" }
`,
		"10_dialogue.lua": `
Dialogue "x00" { jp = "……", ending = true }
`,
	})

	lib, err := Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sc, _ := lib.Scene("cell")
	if _, ok := sc.Nodes["x00"]; !ok {
		t.Error("dialogue from later file not attached to scene")
	}
	if sc.Location != "cell" {
		t.Errorf("expected location to default to scene id, got %q", sc.Location)
	}
}

func TestLoad_LegacyEndingFieldsMigrated(t *testing.T) {
	for _, field := range []string{"ends", "is_ending", "final"} {
		dir := writeStory(t, map[string]string{"cell.lua": `
Scene "cell" {
	entry = "x00",
	timer = { initial = 100 },
}
Puzzle "p1" { index = 1, answer = "a", escape = "x00" }
Dialogue "x00" { jp = "……", ` + field + ` = true }
`})
		lib, err := Load(dir, zap.NewNop())
		if err != nil {
			t.Fatalf("Load failed for legacy field %s: %v", field, err)
		}
		sc, _ := lib.Scene("cell")
		if !sc.Nodes["x00"].Ending {
			t.Errorf("legacy field %s not migrated to ending", field)
		}
	}
}

func TestLoad_NoLuaFiles(t *testing.T) {
	if _, err := Load(t.TempDir(), zap.NewNop()); err == nil {
		t.Error("expected error for empty story directory")
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope"), zap.NewNop()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoad_SyntaxError(t *testing.T) {
	dir := writeStory(t, map[string]string{"bad.lua": `Scene "cell" {`})
	if _, err := Load(dir, zap.NewNop()); err == nil {
		t.Error("expected error for Lua syntax error")
	}
}

func TestLoad_SandboxBlocksUnsafeGlobals(t *testing.T) {
	cases := map[string]string{
		"dofile":   `dofile("other.lua")`,
		"loadfile": `loadfile("other.lua")`,
		"os":       `os.getenv("HOME")`,
		"io":       `io.open("/etc/passwd")`,
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			dir := writeStory(t, map[string]string{"evil.lua": code})
			if _, err := Load(dir, zap.NewNop()); err == nil {
				t.Errorf("expected sandbox to reject %s", name)
			}
		})
	}
}
