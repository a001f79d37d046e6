// Package story holds the compiled, immutable story definitions and
// the lookups the engine runs against them. The engine only reads
// from this package; nothing here mutates after load.
package story

import (
	"sort"
	"strings"

	"github.com/kotonoha/escapecore/types"
)

// Library is the full set of loaded scenes, keyed by scene id.
type Library struct {
	scenes map[string]types.SceneDef
}

// NewLibrary wraps compiled scene definitions. The map is captured,
// not copied; callers must not mutate it afterwards.
func NewLibrary(scenes map[string]types.SceneDef) *Library {
	if scenes == nil {
		scenes = map[string]types.SceneDef{}
	}
	return &Library{scenes: scenes}
}

// Scene returns the scene definition for the given id.
func (l *Library) Scene(sceneID string) (types.SceneDef, bool) {
	sc, ok := l.scenes[sceneID]
	return sc, ok
}

// SceneIDs returns all scene ids in sorted order.
func (l *Library) SceneIDs() []string {
	ids := make([]string, 0, len(l.scenes))
	for id := range l.scenes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Node returns a dialogue node from a scene's graph.
func (l *Library) Node(sceneID, dialogID string) (types.DialogueNode, bool) {
	sc, ok := l.scenes[sceneID]
	if !ok {
		return types.DialogueNode{}, false
	}
	node, ok := sc.Nodes[dialogID]
	return node, ok
}

// Puzzle returns a puzzle definition from a scene.
func (l *Library) Puzzle(sceneID, puzzleID string) (types.PuzzleDef, bool) {
	sc, ok := l.scenes[sceneID]
	if !ok {
		return types.PuzzleDef{}, false
	}
	p, ok := sc.Puzzles[puzzleID]
	return p, ok
}

// Object returns an interactive object definition from a scene.
func (l *Library) Object(sceneID, objectID string) (types.ObjectDef, bool) {
	sc, ok := l.scenes[sceneID]
	if !ok {
		return types.ObjectDef{}, false
	}
	o, ok := sc.Objects[objectID]
	return o, ok
}

// FindObjectByName resolves a display name (case-insensitive) to an
// object id within a scene. Exact id matches win over name matches.
func (l *Library) FindObjectByName(sceneID, name string) (types.ObjectDef, bool) {
	sc, ok := l.scenes[sceneID]
	if !ok {
		return types.ObjectDef{}, false
	}
	if o, ok := sc.Objects[name]; ok {
		return o, true
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, o := range sc.Objects {
		if strings.ToLower(o.Name) == lower {
			return o, true
		}
	}
	return types.ObjectDef{}, false
}

// FinalPuzzle returns the highest-index puzzle of a scene's chain.
func (l *Library) FinalPuzzle(sceneID string) (types.PuzzleDef, bool) {
	sc, ok := l.scenes[sceneID]
	if !ok || len(sc.Puzzles) == 0 {
		return types.PuzzleDef{}, false
	}
	var final types.PuzzleDef
	found := false
	for _, p := range sc.Puzzles {
		if !found || p.Index > final.Index {
			final = p
			found = true
		}
	}
	return final, found
}

// PuzzleByIndex returns the puzzle at the given ordinal position.
func (l *Library) PuzzleByIndex(sceneID string, index int) (types.PuzzleDef, bool) {
	sc, ok := l.scenes[sceneID]
	if !ok {
		return types.PuzzleDef{}, false
	}
	for _, p := range sc.Puzzles {
		if p.Index == index {
			return p, true
		}
	}
	return types.PuzzleDef{}, false
}

// Requires returns the effective dependency list of a puzzle: the
// authored Requires edges, or the previous ordinal when none are
// authored. The first puzzle in a chain has no dependencies.
func (l *Library) Requires(sceneID string, p types.PuzzleDef) []string {
	if len(p.Requires) > 0 {
		return p.Requires
	}
	if p.Index <= 1 {
		return nil
	}
	prev, ok := l.PuzzleByIndex(sceneID, p.Index-1)
	if !ok {
		return nil
	}
	return []string{prev.ID}
}
