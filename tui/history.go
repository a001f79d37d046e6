// Package tui provides a Bubble Tea terminal UI for the EscapeCore
// dev player.
package tui

// History keeps the commands the player has typed, oldest first, for
// arrow-key recall in the input field. Repeats of the most recent
// command are collapsed, and the buffer never grows past its limit.
type History struct {
	lines []string
	limit int

	// pos is -1 while the player is typing fresh input; while browsing
	// it indexes into lines.
	pos int
}

// NewHistory creates an empty history holding at most limit commands.
func NewHistory(limit int) *History {
	return &History{
		lines: make([]string, 0, limit),
		limit: limit,
		pos:   -1,
	}
}

// Push records a submitted command. A repeat of the last command is
// dropped so "next next next" stays one arrow-press away.
func (h *History) Push(cmd string) {
	if n := len(h.lines); n > 0 && h.lines[n-1] == cmd {
		return
	}
	h.lines = append(h.lines, cmd)
	if len(h.lines) > h.limit {
		h.lines = h.lines[1:]
	}
}

// Prev steps toward older commands. It reports false only when the
// history is empty; at the oldest command it keeps returning it.
func (h *History) Prev() (string, bool) {
	if len(h.lines) == 0 {
		return "", false
	}
	switch {
	case h.pos == -1:
		h.pos = len(h.lines) - 1
	case h.pos > 0:
		h.pos--
	}
	return h.lines[h.pos], true
}

// Next steps back toward newer commands. Stepping past the newest one
// reports false and leaves the player on fresh input.
func (h *History) Next() (string, bool) {
	if h.pos == -1 {
		return "", false
	}
	h.pos++
	if h.pos >= len(h.lines) {
		h.pos = -1
		return "", false
	}
	return h.lines[h.pos], true
}

// ResetCursor drops out of browsing, back to fresh input.
func (h *History) ResetCursor() {
	h.pos = -1
}
