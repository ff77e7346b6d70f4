package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/talespin/engine/state"
)

// entityName returns the primary locale name for an entity, or its id.
func (m Model) entityName(id string) string {
	if m.engine.Locale != nil {
		if names := m.engine.Locale.Names[id]; len(names) > 0 {
			return names[0]
		}
	}
	return id
}

// roomDisplayName prefers the locale name; otherwise it derives one from the
// id: "great_hall" -> "Great Hall".
func (m Model) roomDisplayName(id string) string {
	if m.engine.Locale != nil {
		if names := m.engine.Locale.Names[id]; len(names) > 0 {
			return names[0]
		}
	}
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width inverted status line showing
// current room, open exits, inventory, turn count, and language.
func (m Model) renderStatusBar() string {
	s := m.engine.State

	exits := state.RoomExits(s, m.defs, s.Location)
	dirs := make([]string, 0, len(exits))
	for dir, exit := range exits {
		if state.Holds(s, m.defs, exit.Condition) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)

	left := fmt.Sprintf(" %s | Exits: %s", m.roomDisplayName(s.Location), strings.Join(dirs, ","))
	right := fmt.Sprintf("%s | T:%d ", m.language, s.TurnCount)

	// Show inventory items if they fit, otherwise just count.
	if len(s.Inventory) > 0 {
		names := make([]string, len(s.Inventory))
		for i, id := range s.Inventory {
			names[i] = m.entityName(id)
		}
		candidate := fmt.Sprintf("Inv: %s | %s | T:%d ", strings.Join(names, ", "), m.language, s.TurnCount)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | %s | T:%d ", len(s.Inventory), m.language, s.TurnCount)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
