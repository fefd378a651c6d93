// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/repochat-tui/internal/ui/styles"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar is the single-line footer showing the active repository,
// selected model, session and connection state.
type StatusBar struct {
	Theme   styles.Theme
	Width   int
	Repo    string
	Model   string
	Session string
	State   string
}

// Render returns the bar padded to Width.
func (s StatusBar) Render() string {
	var fields []string
	fields = append(fields, s.field("repo", orDash(s.Repo)))
	fields = append(fields, s.field("model", orDash(s.Model)))
	if s.Session != "" {
		fields = append(fields, s.field("session", util.TruncateRunes(s.Session, 8)))
	}
	if s.State != "" {
		fields = append(fields, s.Theme.StatusValue.Render(s.State))
	}

	line := strings.Join(fields, s.Theme.StatusField.Render(" | "))
	return s.Theme.StatusBar.Width(s.Width).MaxWidth(s.Width).Render(line)
}

func (s StatusBar) field(name, value string) string {
	return s.Theme.StatusField.Render(name+":") + " " + s.Theme.StatusValue.Render(value)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// Help renders a dim key hint line, e.g. "tab pick repo".
func Help(theme styles.Theme, width int, hints ...string) string {
	line := strings.Join(hints, "  ")
	return lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(width).
		MaxWidth(width).
		PaddingLeft(1).
		Render(line)
}
