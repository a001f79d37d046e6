package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// locationDisplayName derives a human-readable name from a location id.
// "prison-cell" -> "Prison Cell", "guard_room" -> "Guard Room".
func locationDisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatClock renders seconds as m:ss, negative in overtime.
func formatClock(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%d:%02d", sign, seconds/60, seconds%60)
}

// renderStatusBar produces a full-width inverted status line showing
// location, remaining time, score, and hint count. The bar changes
// style below the warning threshold and again in overtime.
func (m Model) renderStatusBar() string {
	st := m.session.State()
	if st == nil {
		return styleStatusBar.Width(m.width).Render(" EscapeCore")
	}

	left := " " + locationDisplayName(st.SceneID)
	clock := formatClock(st.TimeRemaining)
	if m.session.Paused() {
		clock += " ⏸"
	}
	right := fmt.Sprintf("Score: %d | Hints: %d | %s ", st.Score, st.HintsUsed, clock)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	bar := left + strings.Repeat(" ", gap) + right

	style := styleStatusBar
	switch {
	case st.TimeRemaining <= 0:
		style = styleStatusOvertime
	case st.TimeRemaining <= m.warnThreshold:
		style = styleStatusWarning
	}
	return style.Width(m.width).Render(bar)
}
