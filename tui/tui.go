package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kotonoha/escapecore/assets"
	"github.com/kotonoha/escapecore/engine"
	"github.com/kotonoha/escapecore/engine/events"
	"github.com/kotonoha/escapecore/story"
	"github.com/kotonoha/escapecore/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text string
	kind lineKind
}

// eventLines collects narrative output produced by bus events during
// a session call, so the model can append it after the call returns.
type eventLines struct {
	lines []rawLine
}

func (e *eventLines) add(kind lineKind, text string) {
	e.lines = append(e.lines, rawLine{text: text, kind: kind})
}

func (e *eventLines) drain() []rawLine {
	out := e.lines
	e.lines = nil
	return out
}

// Model is the Bubble Tea model for the EscapeCore dev player.
type Model struct {
	session *engine.Session
	lib     *story.Library
	pending *eventLines

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width         int
	height        int
	ready         bool
	quitting      bool
	warnThreshold int
}

// tickMsg drives the 1-second wall-clock countdown.
type tickMsg time.Time

// assetMsg carries an asset completion onto the program loop, keeping
// the core single-threaded.
type assetMsg struct {
	fn func()
}

// New creates a TUI model wired to the given session. Bus events
// that the browser UI would render become viewport lines.
func New(sess *engine.Session, lib *story.Library, bus *events.Bus) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	pending := &eventLines{}
	events.Subscribe(bus, func(ev events.TimeWarning) {
		pending.add(kindWarning, fmt.Sprintf("Only %d minute(s) left!", ev.MinutesLeft))
	})
	events.Subscribe(bus, func(ev events.TimeUp) {
		pending.add(kindWarning, "Time is up — you are now in overtime.")
	})
	events.Subscribe(bus, func(ev events.VocabularyDiscovered) {
		pending.add(kindSystem, fmt.Sprintf("New word: %s (+%d)", ev.Word, ev.Reward))
	})
	events.Subscribe(bus, func(ev events.HintRevealed) {
		pending.add(kindSystem, fmt.Sprintf("Hint %d: %s", ev.Level, ev.Text))
	})
	events.Subscribe(bus, func(ev events.LocationEscaped) {
		pending.add(kindWarning, fmt.Sprintf("You escaped the %s!", locationDisplayName(ev.LocationID)))
	})
	events.Subscribe(bus, func(ev events.SaveFailed) {
		pending.add(kindSystem, fmt.Sprintf("Autosave failed: %v", ev.Err))
	})

	m := Model{
		session: sess,
		lib:     lib,
		pending: pending,
		input:   ti,
		history: NewHistory(100),
	}
	if st := sess.State(); st != nil {
		if sc, ok := lib.Scene(st.SceneID); ok {
			m.warnThreshold = sc.Timer.Warning
		}
	}
	return m
}

// Run starts the Bubble Tea program. Asset completions are routed
// through p.Send so they run on the program loop.
func Run(sess *engine.Session, lib *story.Library, bus *events.Bus, am *assets.Manager) error {
	m := New(sess, lib, bus)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if am != nil {
		am.SetDispatch(func(fn func()) {
			p.Send(assetMsg{fn: fn})
		})
	}
	_, err := p.Run()
	return err
}

// Init renders the opening node and starts the countdown ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		return initialMsg{}
	}
}

// initialMsg triggers rendering of the current node on startup.
type initialMsg struct{}

// Update handles messages (key presses, window resize, ticks).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case initialMsg:
		if node, ok := m.session.Current(); ok {
			m = m.appendNode(node)
		}

	case tickMsg:
		m.session.Tick()
		m = m.appendPending()
		return m, tickCmd()

	case assetMsg:
		msg.fn()
		m = m.appendPending()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input != "" {
		m.history.Push(input)
		m.history.ResetCursor()
		m.rawLines = append(m.rawLines, rawLine{text: input, kind: kindInput})
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		for _, line := range output {
			m.rawLines = append(m.rawLines, rawLine{text: line, kind: kindSystem})
		}
		m.rawLines = append(m.rawLines, rawLine{})
		m.refreshViewport()
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	m = m.handleCommand(input)
	return m, nil
}

// handleCommand dispatches one gameplay command against the session.
func (m Model) handleCommand(input string) Model {
	fields := strings.Fields(input)

	if input == "" || fields[0] == "next" || fields[0] == "n" {
		node, err := m.session.Advance()
		if err != nil {
			return m.appendSystem(err.Error())
		}
		return m.appendNode(node)
	}

	if n, err := strconv.Atoi(fields[0]); err == nil {
		node, err := m.session.Choose(n - 1)
		if err != nil {
			return m.appendSystem("No such choice.")
		}
		return m.appendNode(node)
	}

	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "answer", "a":
		if arg == "" {
			return m.appendSystem("Answer what? Usage: answer <text>")
		}
		node, err := m.session.Answer(arg)
		if err != nil {
			return m.appendSystem(err.Error())
		}
		return m.appendNode(node)

	case "examine", "x":
		if arg == "" {
			return m.appendSystem("Examine what? Usage: examine <object>")
		}
		st := m.session.State()
		obj, ok := m.lib.FindObjectByName(st.SceneID, arg)
		if !ok {
			return m.appendNarrative("You don't see anything like that here.")
		}
		node, err := m.session.Interact(obj.ID)
		if err != nil {
			return m.appendNarrative("You don't see anything like that here.")
		}
		return m.appendNode(node)

	case "hint", "h":
		level := 1
		if arg != "" {
			if n, err := strconv.Atoi(arg); err == nil {
				level = n
			}
		}
		if _, err := m.session.RequestHint(level); err != nil {
			return m.appendSystem(err.Error())
		}
		return m.appendPending()

	case "pause":
		m.session.Pause()
		return m.appendSystem("Timer paused.")

	case "resume":
		m.session.Unpause()
		return m.appendSystem("Timer resumed.")

	default:
		return m.appendSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
}

// appendNode renders a dialogue node into the viewport.
func (m Model) appendNode(node types.DialogueNode) Model {
	m = m.appendPending()
	if node.Speaker != "" {
		m.rawLines = append(m.rawLines, rawLine{text: speakerDisplayName(node.Speaker) + ":", kind: kindSpeaker})
	}
	if node.TextJP != "" {
		m.rawLines = append(m.rawLines, rawLine{text: node.TextJP, kind: kindTextJP})
	}
	if node.TextEN != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "(" + node.TextEN + ")", kind: kindTextEN})
	}
	for i, choice := range node.Choices {
		m.rawLines = append(m.rawLines, rawLine{
			text: fmt.Sprintf("%d) %s (%s)", i+1, choice.TextJP, choice.TextEN),
			kind: kindChoice,
		})
	}
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

// appendPending flushes event-driven lines into the viewport.
func (m Model) appendPending() Model {
	lines := m.pending.drain()
	if len(lines) == 0 {
		return m
	}
	m.rawLines = append(m.rawLines, lines...)
	m.refreshViewport()
	return m
}

func (m Model) appendSystem(text string) Model {
	m = m.appendPending()
	m.rawLines = append(m.rawLines, rawLine{text: text, kind: kindSystem}, rawLine{})
	m.refreshViewport()
	return m
}

func (m Model) appendNarrative(text string) Model {
	m.rawLines = append(m.rawLines, rawLine{text: text, kind: kindTextEN}, rawLine{})
	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current
// width and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		styled = append(styled, renderLineKind(wordWrap(rl.text, width), rl.kind))
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		if err := m.session.SaveNow(); err != nil {
			return []string{fmt.Sprintf("Save failed: %v", err)}, false
		}
		return []string{"Game saved."}, false

	case "/load":
		ok, err := m.session.ResumeSaved()
		if err != nil {
			return []string{fmt.Sprintf("Load failed: %v", err)}, false
		}
		if !ok {
			return []string{"No usable save found."}, false
		}
		return []string{"Game loaded."}, false

	case "/state":
		return m.cmdState(), false

	case "/help":
		return m.cmdHelp(), false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdState() []string {
	st := m.session.State()
	if st == nil {
		return []string{"No active playthrough."}
	}
	return []string{
		fmt.Sprintf("Scene: %s  Dialog: %s", st.SceneID, st.DialogID),
		fmt.Sprintf("Time: %s  Score: %d  Hints: %d  Wrong: %d",
			formatClock(st.TimeRemaining), st.Score, st.HintsUsed, st.WrongAnswers),
		fmt.Sprintf("Solved: %v", sortedSet(st.SolvedPuzzles)),
		fmt.Sprintf("Inventory: %v", sortedSet(st.Inventory)),
		fmt.Sprintf("Words seen: %d", len(st.VocabularySeen)),
	}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /save   — Save game (single slot)",
		"  /load   — Load the saved game",
		"  /state  — Debug: dump current state",
		"  /quit   — Exit game",
		"  /help   — Show this help",
		"",
		"Game commands:",
		"  <enter> / next (n)   — Advance the dialogue",
		"  1, 2, 3...           — Pick a numbered choice",
		"  answer <text> (a)    — Answer the current puzzle",
		"  examine <object> (x) — Interact with an object",
		"  hint [1-3] (h)       — Buy a hint (costs time)",
		"  pause / resume       — Hold or release the timer",
	}
}

// speakerDisplayName derives a display name from a speaker id.
func speakerDisplayName(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func sortedSet(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
	}
}
