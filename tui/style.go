package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarrative = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleListing = lipgloss.NewStyle().
			Bold(true)

	styleExits = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleEnding = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindListing
	kindExits
	kindEnding
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is. Listing and exit
// lines are recognized by their locale message prefixes, so classification
// follows the active language.
func (m Model) classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case m.hasMessagePrefix(line, "room_items", "You see:"),
		m.hasMessagePrefix(line, "room_npcs", "Here:"),
		m.hasMessagePrefix(line, "inventory_list", "You are carrying:"):
		return kindListing
	case m.hasMessagePrefix(line, "room_exits", "Exits:"):
		return kindExits
	case m.isEndingText(line):
		return kindEnding
	case m.hasMessagePrefix(line, "unknown_object", "You don't see"),
		m.hasMessagePrefix(line, "cant_go", "You can't go"),
		m.hasMessagePrefix(line, "cant_take", "You can't take"),
		m.hasMessagePrefix(line, "dont_have", "You don't have"):
		return kindError
	default:
		return kindNarrative
	}
}

// hasMessagePrefix checks the line against a locale message template,
// truncated at its first placeholder, with an English fallback.
func (m Model) hasMessagePrefix(line, key, fallback string) bool {
	tmpl := fallback
	if m.engine.Locale != nil {
		if t, ok := m.engine.Locale.Messages[key]; ok {
			tmpl = t
		}
	}
	if i := strings.Index(tmpl, "$"); i > 0 {
		tmpl = tmpl[:i]
	}
	tmpl = strings.TrimSpace(tmpl)
	return tmpl != "" && strings.HasPrefix(line, tmpl)
}

func (m Model) isEndingText(line string) bool {
	if m.engine.Locale == nil {
		return false
	}
	for _, text := range m.engine.Locale.Endings {
		if text != "" && line == text {
			return true
		}
	}
	return false
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
