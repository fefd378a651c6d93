// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat-tui/internal/chat"
	"github.com/jeranaias/repochat-tui/internal/ui/components"
)

// =============================================================================
// STREAM RENDERING
// =============================================================================

// streamTickInterval is the transcript refresh rate while a response
// streams. PERFORMANCE: 30fps reads smoothly and keeps render cost flat
// no matter how fast tokens arrive.
const streamTickInterval = 33 * time.Millisecond

func streamTickCmd() tea.Cmd {
	return tea.Tick(streamTickInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{At: t}
	})
}

// renderTranscript rebuilds the viewport content from a controller
// snapshot, with a cheap change check so idle ticks skip the work.
func (m *Model) renderTranscript() {
	views := m.controller.Snapshot()

	// A loading entry animates the spinner, so it always re-renders.
	key := transcriptKey(m.width, views)
	if key == m.cacheKey && m.renderCache != "" && !hasLoading(views) {
		return
	}

	atBottom := m.viewport.AtBottom()

	var b strings.Builder
	for _, v := range views {
		card := components.MessageCard{
			View:           v,
			Theme:          m.theme,
			Width:          m.width,
			ShowTimestamps: m.cfg.UI.ShowTimestamps,
			SpinnerFrame:   m.spinner.View(),
		}
		b.WriteString(card.Render())
		b.WriteString("\n")
	}

	m.renderCache = b.String()
	m.cacheKey = key
	m.viewport.SetContent(m.renderCache)

	// Follow the stream unless the user scrolled back.
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// transcriptKey fingerprints the snapshot. Streaming text only grows,
// so message count plus each entry's length and flags is enough.
func transcriptKey(width int, views []chat.MessageView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d", width, len(views))
	for _, v := range views {
		fmt.Fprintf(&b, ":%d%t%t", len(v.Text), v.IsLoading, v.IsError)
	}
	return b.String()
}

func hasLoading(views []chat.MessageView) bool {
	for _, v := range views {
		if v.IsLoading {
			return true
		}
	}
	return false
}
