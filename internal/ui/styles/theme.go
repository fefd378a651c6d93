// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme bundles the lipgloss styles used across the transcript, status
// bar, and pickers.
type Theme struct {
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorLabel     lipgloss.Style

	MessageText lipgloss.Style
	ErrorText   lipgloss.Style
	Timestamp   lipgloss.Style
	TraceLink   lipgloss.Style
	Streaming   lipgloss.Style

	StatusBar   lipgloss.Style
	StatusField lipgloss.Style
	StatusValue lipgloss.Style

	InputPrompt lipgloss.Style

	PickerTitle  lipgloss.Style
	PickerItem   lipgloss.Style
	PickerActive lipgloss.Style
	PickerBox    lipgloss.Style
}

// NewTheme builds the theme for the configured mode ("dark", "light",
// or "auto"). Auto queries the terminal background through termenv.
func NewTheme(mode string) Theme {
	switch mode {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}

	return Theme{
		UserLabel:      lipgloss.NewStyle().Foreground(Cyan).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(Purple).Bold(true),
		ErrorLabel:     lipgloss.NewStyle().Foreground(Rose).Bold(true),

		MessageText: lipgloss.NewStyle().Foreground(TextPrimary),
		ErrorText:   lipgloss.NewStyle().Foreground(Rose),
		Timestamp:   lipgloss.NewStyle().Foreground(TextMuted),
		TraceLink:   lipgloss.NewStyle().Foreground(TextMuted).Underline(true),
		Streaming:   lipgloss.NewStyle().Foreground(Amber),

		StatusBar:   lipgloss.NewStyle().Background(SurfaceDim).Foreground(TextSecondary).Padding(0, 1),
		StatusField: lipgloss.NewStyle().Foreground(TextMuted),
		StatusValue: lipgloss.NewStyle().Foreground(TextSecondary).Bold(true),

		InputPrompt: lipgloss.NewStyle().Foreground(Cyan).Bold(true),

		PickerTitle:  lipgloss.NewStyle().Foreground(TextSecondary).Bold(true),
		PickerItem:   lipgloss.NewStyle().Foreground(TextSecondary),
		PickerActive: lipgloss.NewStyle().Foreground(Purple).Bold(true),
		PickerBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(0, 1),
	}
}
