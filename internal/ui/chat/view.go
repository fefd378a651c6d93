// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/repochat-tui/internal/ui/components"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full interface.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	if m.pickerKind != pickerNone {
		return m.pickerView()
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) statusLine() string {
	if m.status != "" {
		return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).
			Render(util.TruncateRunes(m.status, 200))
	}

	bar := components.StatusBar{
		Theme:   m.theme,
		Width:   m.width,
		Repo:    m.repoLabel(),
		Model:   m.registry.SelectedID(),
		Session: m.controller.SessionID(),
		State:   m.stateLabel(),
	}
	return bar.Render()
}

func (m Model) pickerView() string {
	box := m.picker.Render(m.theme, m.width)
	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		box,
	)
}
