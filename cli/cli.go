// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the EscapeCore engine. It is the plain dev host that
// stands in for the browser presentation layer.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kotonoha/escapecore/engine"
	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Session   *engine.Session
	Lib       *story.Library
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)

	completions chan func()
}

// New creates a CLI wired to the given session. Bus subscriptions
// render the events the browser UI would: timer warnings, hint
// reveals, vocabulary rewards, save failures.
func New(sess *engine.Session, lib *story.Library, bus *events.Bus) *CLI {
	c := &CLI{
		Session:     sess,
		Lib:         lib,
		In:          os.Stdin,
		Out:         os.Stdout,
		completions: make(chan func(), 64),
	}
	events.Subscribe(bus, func(ev events.TimeWarning) {
		c.printSystem(fmt.Sprintf("Only %d minute(s) left!", ev.MinutesLeft))
	})
	events.Subscribe(bus, func(ev events.TimeUp) {
		c.printSystem("Time is up — you are now in overtime.")
	})
	events.Subscribe(bus, func(ev events.VocabularyDiscovered) {
		c.printSystem(fmt.Sprintf("New word: %s (+%d)", ev.Word, ev.Reward))
	})
	events.Subscribe(bus, func(ev events.HintRevealed) {
		c.printSystem(fmt.Sprintf("Hint %d: %s", ev.Level, ev.Text))
	})
	events.Subscribe(bus, func(ev events.LocationEscaped) {
		c.printSystem(fmt.Sprintf("You escaped the %s!", ev.LocationID))
	})
	events.Subscribe(bus, func(ev events.SaveFailed) {
		c.printSystem(fmt.Sprintf("Autosave failed: %v", ev.Err))
	})
	return c
}

// Run starts the interaction loop: render the current node, then
// prompt → input → dispatch → render.
func (c *CLI) Run() {
	if node, ok := c.Session.Current(); ok {
		c.printNode(node)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		c.runCompletions()
		input := strings.TrimSpace(scanner.Text())
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput && input != "" {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		c.handleCommand(input)

		if c.Session.SceneOver() {
			c.printSystem("The scene has ended.")
			return
		}
	}
}

// Dispatch queues fn to run on the Run loop between commands. Hand it
// to assets.NewManager (or SetDispatch) so asset completions never
// race the command loop.
func (c *CLI) Dispatch(fn func()) {
	c.completions <- fn
}

// runCompletions drains queued asset completions on the loop goroutine.
func (c *CLI) runCompletions() {
	for {
		select {
		case fn := <-c.completions:
			fn()
		default:
			return
		}
	}
}

// handleCommand dispatches a single gameplay command.
func (c *CLI) handleCommand(input string) {
	fields := strings.Fields(input)

	// Bare enter and "next" advance the dialogue.
	if input == "" || fields[0] == "next" || fields[0] == "n" {
		node, err := c.Session.Advance()
		if err != nil {
			c.printSystem(err.Error())
			return
		}
		c.printNode(node)
		return
	}

	// A bare number selects a choice.
	if n, err := strconv.Atoi(fields[0]); err == nil {
		node, err := c.Session.Choose(n - 1)
		if err != nil {
			c.printSystem("No such choice.")
			return
		}
		c.printNode(node)
		return
	}

	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "answer", "a":
		if arg == "" {
			c.printSystem("Answer what? Usage: answer <text>")
			return
		}
		node, err := c.Session.Answer(arg)
		if err != nil {
			c.printSystem(err.Error())
			return
		}
		c.printNode(node)

	case "examine", "x":
		if arg == "" {
			c.printSystem("Examine what? Usage: examine <object>")
			return
		}
		st := c.Session.State()
		obj, ok := c.Lib.FindObjectByName(st.SceneID, arg)
		if !ok {
			// Unknown object is narrative, not a fault.
			c.printLine("You don't see anything like that here.")
			return
		}
		node, err := c.Session.Interact(obj.ID)
		if err != nil {
			c.printLine("You don't see anything like that here.")
			return
		}
		c.printNode(node)

	case "hint", "h":
		level := 1
		if arg != "" {
			if n, err := strconv.Atoi(arg); err == nil {
				level = n
			}
		}
		if _, err := c.Session.RequestHint(level); err != nil {
			c.printSystem(err.Error())
		}

	case "pause":
		c.Session.Pause()
		c.printSystem("Timer paused.")

	case "resume":
		c.Session.Unpause()
		c.printSystem("Timer resumed.")

	case "tick":
		// Scripted playback drives the clock by hand.
		n := 1
		if arg != "" {
			if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 {
				n = parsed
			}
		}
		for i := 0; i < n; i++ {
			c.Session.Tick()
		}
		c.printSystem(fmt.Sprintf("Time remaining: %s", formatTime(c.Session.State().TimeRemaining)))

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		if err := c.Session.SaveNow(); err != nil {
			c.printSystem(fmt.Sprintf("Save failed: %v", err))
		} else {
			c.printSystem("Game saved.")
		}

	case "/load":
		ok, err := c.Session.ResumeSaved()
		if err != nil {
			c.printSystem(fmt.Sprintf("Load failed: %v", err))
			break
		}
		if !ok {
			c.printSystem("No usable save found.")
			break
		}
		c.printSystem("Game loaded.")
		if node, ok := c.Session.Current(); ok {
			c.printNode(node)
		}

	case "/state":
		c.cmdState()

	case "/help":
		c.cmdHelp()

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdState() {
	st := c.Session.State()
	if st == nil {
		c.printSystem("No active playthrough.")
		return
	}
	c.printSystem(fmt.Sprintf("Scene: %s  Dialog: %s", st.SceneID, st.DialogID))
	c.printSystem(fmt.Sprintf("Time: %s  Score: %d  Hints: %d  Wrong: %d",
		formatTime(st.TimeRemaining), st.Score, st.HintsUsed, st.WrongAnswers))
	c.printSystem(fmt.Sprintf("Solved: %v", sortedKeys(st.SolvedPuzzles)))
	c.printSystem(fmt.Sprintf("Inventory: %v", sortedKeys(st.Inventory)))
	c.printSystem(fmt.Sprintf("Words seen: %d", len(st.VocabularySeen)))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save         — Save game (single slot)",
		"  /load         — Load the saved game",
		"  /state        — Debug: dump current state",
		"  /quit         — Exit game",
		"  /help         — Show this help",
		"",
		"Game commands:",
		"  <enter> / next (n)   — Advance the dialogue",
		"  1, 2, 3...           — Pick a numbered choice",
		"  answer <text> (a)    — Answer the current puzzle",
		"  examine <object> (x) — Interact with an object",
		"  hint [1-3] (h)       — Buy a hint (costs time)",
		"  pause / resume       — Hold or release the timer",
		"  tick [n]             — Advance the clock (script mode)",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

// printNode renders one dialogue node: speaker, target-language line,
// translation, and any numbered choices.
func (c *CLI) printNode(node types.DialogueNode) {
	if node.Speaker != "" {
		c.printLine(fmt.Sprintf("%s:", speakerDisplayName(node.Speaker)))
	}
	if node.TextJP != "" {
		c.printLine("  " + node.TextJP)
	}
	if node.TextEN != "" {
		c.printLine("  (" + node.TextEN + ")")
	}
	for i, choice := range node.Choices {
		c.printLine(fmt.Sprintf("  %d) %s (%s)", i+1, choice.TextJP, choice.TextEN))
	}
}

// speakerDisplayName derives a display name from a speaker id.
// "old_guard" -> "Old Guard".
func speakerDisplayName(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatTime renders seconds as m:ss, with a minus sign in overtime.
func formatTime(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%d:%02d", sign, seconds/60, seconds%60)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic output for scripts
	return keys
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
