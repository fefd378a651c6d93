// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/repochat-tui/internal/chat"
	"github.com/jeranaias/repochat-tui/internal/model"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// =============================================================================
// MESSAGE CARD
// =============================================================================

// MessageCard renders a single transcript entry: author badge, body,
// trailing trace link and timestamp.
type MessageCard struct {
	View           chat.MessageView
	Theme          styles.Theme
	Width          int
	ShowTimestamps bool
	// SpinnerFrame is the current spinner view, shown while the
	// assistant reply is still streaming.
	SpinnerFrame string
}

// Render returns the styled card.
func (c MessageCard) Render() string {
	width := c.Width
	if width < 24 {
		width = 24
	}

	var b strings.Builder
	b.WriteString(c.header())
	b.WriteString("\n")
	b.WriteString(c.body(width))

	if c.View.TraceURL != "" {
		b.WriteString("\n")
		b.WriteString(c.Theme.TraceLink.Render("trace: " + c.View.TraceURL))
	}

	return lipgloss.NewStyle().
		Width(width).
		PaddingLeft(1).
		MarginBottom(1).
		Render(b.String())
}

func (c MessageCard) header() string {
	var label string
	switch {
	case c.View.IsError:
		label = c.Theme.ErrorLabel.Render(model.AuthorSystemError.DisplayName())
	case c.View.Author == model.AuthorUser:
		label = c.Theme.UserLabel.Render(c.View.Author.DisplayName())
	default:
		label = c.Theme.AssistantLabel.Render(model.AuthorAssistant.DisplayName())
	}

	if c.ShowTimestamps && !c.View.Timestamp.IsZero() {
		label += " " + c.Theme.Timestamp.Render(util.FormatClock(c.View.Timestamp))
	}
	return label
}

func (c MessageCard) body(width int) string {
	if c.View.IsLoading && c.View.Text == "" {
		return c.Theme.Streaming.Render(c.SpinnerFrame + " thinking")
	}

	text := c.View.Text
	if c.View.Author == model.AuthorAssistant && !c.View.IsError {
		text = ParseCodeBlocks(text, width)
		text = ParseInlineCode(text)
	}

	style := c.Theme.MessageText
	if c.View.IsError {
		style = c.Theme.ErrorText
	}
	rendered := style.Width(width - 2).Render(text)

	if c.View.IsLoading {
		rendered += c.Theme.Streaming.Render(" " + c.SpinnerFrame)
	}
	return rendered
}
