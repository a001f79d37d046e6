package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleStatusWarning = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("214")).
				Bold(true)

	styleStatusOvertime = lipgloss.NewStyle().
				Background(lipgloss.Color("52")).
				Foreground(lipgloss.Color("231")).
				Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleSpeaker = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	styleTextJP = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleTextEN = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleChoice = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleWarning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindSpeaker lineKind = iota
	kindTextJP
	kindTextEN
	kindChoice
	kindSystem
	kindWarning
	kindInput
)

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindSpeaker:
		return styleSpeaker.Render(line)
	case kindTextEN:
		return styleTextEN.Render(line)
	case kindChoice:
		return styleChoice.Render(line)
	case kindSystem:
		return styleSystem.Render("[" + line + "]")
	case kindWarning:
		return styleWarning.Render(line)
	case kindInput:
		return stylePlayerInput.Render("> " + line)
	default:
		return styleTextJP.Render(line)
	}
}
