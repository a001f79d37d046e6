package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled library for referential integrity and
// consistency: entry nodes exist, every transition target exists, the
// puzzle dependency graph is acyclic, objects point at real puzzles,
// and the final puzzle of each chain carries an escape dialogue.
func validate(lib *story.Library) error {
	ve := &ValidationError{}

	for _, sceneID := range lib.SceneIDs() {
		sc, _ := lib.Scene(sceneID)
		validateScene(lib, sc, ve)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateScene(lib *story.Library, sc types.SceneDef, ve *ValidationError) {
	// Entry node exists.
	if sc.Entry == "" {
		ve.Errors = append(ve.Errors, fmt.Sprintf("scene %q: entry is required", sc.ID))
	} else if _, ok := sc.Nodes[sc.Entry]; !ok {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"scene %q: entry %q not found in dialogue nodes", sc.ID, sc.Entry))
	}

	// Timer must count down from somewhere.
	if sc.Timer.Initial <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"scene %q: timer.initial must be positive", sc.ID))
	}
	if sc.Timer.Warning >= sc.Timer.Initial {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf(
			"scene %q: timer.warning %d is not below timer.initial %d",
			sc.ID, sc.Timer.Warning, sc.Timer.Initial))
	}

	// Dialogue transition targets exist.
	dialogIDs := sortedNodeIDs(sc)
	for _, id := range dialogIDs {
		node := sc.Nodes[id]
		if node.Next != "" {
			if _, ok := sc.Nodes[node.Next]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"scene %q: dialogue %q next %q not found", sc.ID, id, node.Next))
			}
		}
		for i, c := range node.Choices {
			if c.Next == "" && c.Answer == "" {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"scene %q: dialogue %q choice %d has neither next nor answer", sc.ID, id, i))
				continue
			}
			if c.Next != "" {
				if _, ok := sc.Nodes[c.Next]; !ok {
					ve.Errors = append(ve.Errors, fmt.Sprintf(
						"scene %q: dialogue %q choice %d next %q not found", sc.ID, id, i, c.Next))
				}
			}
		}
		if node.Next == "" && len(node.Choices) == 0 && !node.Ending {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"scene %q: dialogue %q dead-ends without an ending flag", sc.ID, id))
		}
	}

	validatePuzzles(lib, sc, ve)

	// Objects reference real puzzles and carry narrative text.
	for _, o := range sc.Objects {
		if o.PuzzleID != "" {
			if _, ok := sc.Puzzles[o.PuzzleID]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"scene %q: object %q references undefined puzzle %q", sc.ID, o.ID, o.PuzzleID))
			}
		}
		if o.ExamineEN == "" && o.ExamineJP == "" {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"scene %q: object %q has no examine text", sc.ID, o.ID))
		}
	}
}

func validatePuzzles(lib *story.Library, sc types.SceneDef, ve *ValidationError) {
	// Ordinal indices are well-formed: 1..N without gaps.
	seen := map[int]string{}
	for _, p := range sc.Puzzles {
		if p.Index < 1 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"scene %q: puzzle %q index must be >= 1", sc.ID, p.ID))
			continue
		}
		if other, dup := seen[p.Index]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"scene %q: puzzles %q and %q share index %d", sc.ID, other, p.ID, p.Index))
		}
		seen[p.Index] = p.ID
	}
	for i := 1; i <= len(sc.Puzzles); i++ {
		if _, ok := seen[i]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"scene %q: puzzle chain has no index %d", sc.ID, i))
		}
	}

	// Dependencies reference real puzzles and form a DAG.
	for _, p := range sc.Puzzles {
		for _, dep := range p.Requires {
			if _, ok := sc.Puzzles[dep]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"scene %q: puzzle %q requires undefined puzzle %q", sc.ID, p.ID, dep))
			}
		}
		if p.IntroDialog != "" {
			if _, ok := sc.Nodes[p.IntroDialog]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"scene %q: puzzle %q intro dialogue %q not found", sc.ID, p.ID, p.IntroDialog))
			}
		}
		if p.SolvedDialog != "" {
			if _, ok := sc.Nodes[p.SolvedDialog]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"scene %q: puzzle %q solved dialogue %q not found", sc.ID, p.ID, p.SolvedDialog))
			}
		}
		if p.EscapeDialog != "" {
			if _, ok := sc.Nodes[p.EscapeDialog]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"scene %q: puzzle %q escape dialogue %q not found", sc.ID, p.ID, p.EscapeDialog))
			}
		}
	}

	if cycle := findDependencyCycle(lib, sc); cycle != "" {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"scene %q: puzzle dependency cycle involving %q", sc.ID, cycle))
	}

	// The chain's final puzzle must unlock the escape transition.
	final, hasFinal := lib.FinalPuzzle(sc.ID)
	if hasFinal && final.EscapeDialog == "" {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"scene %q: final puzzle %q has no escape dialogue", sc.ID, final.ID))
	}

	// A correct answer must land somewhere. Only the final puzzle may
	// skip a solved dialogue, and only when its escape dialogue stands in.
	for _, p := range sc.Puzzles {
		if p.SolvedDialog != "" {
			continue
		}
		if hasFinal && p.ID == final.ID && p.EscapeDialog != "" {
			continue
		}
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"scene %q: puzzle %q has no solved dialogue", sc.ID, p.ID))
	}
}

// findDependencyCycle runs a three-color DFS over the effective
// dependency edges. Returns an id on a cycle, or "".
func findDependencyCycle(lib *story.Library, sc types.SceneDef) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}

	var visit func(id string) string
	visit = func(id string) string {
		switch color[id] {
		case gray:
			return id
		case black:
			return ""
		}
		color[id] = gray
		p, ok := sc.Puzzles[id]
		if ok {
			for _, dep := range lib.Requires(sc.ID, p) {
				if found := visit(dep); found != "" {
					return found
				}
			}
		}
		color[id] = black
		return ""
	}

	for id := range sc.Puzzles {
		if found := visit(id); found != "" {
			return found
		}
	}
	return ""
}

func sortedNodeIDs(sc types.SceneDef) []string {
	ids := make([]string, 0, len(sc.Nodes))
	for id := range sc.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
