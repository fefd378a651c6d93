// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/repochat-tui/internal/ui/styles"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// =============================================================================
// SELECTOR
// =============================================================================

// SelectorItem is one row in a picker overlay.
type SelectorItem struct {
	ID    string
	Label string
	// Detail is a dim annotation after the label, e.g. a provider
	// name or indexing status.
	Detail string
}

// Selector is a keyboard-driven picker for models and repositories.
// It owns only cursor state; the caller supplies items on open.
type Selector struct {
	Title  string
	Items  []SelectorItem
	Cursor int
}

// NewSelector creates a picker positioned on the item matching
// currentID, or the first item.
func NewSelector(title string, items []SelectorItem, currentID string) Selector {
	s := Selector{Title: title, Items: items}
	for i, it := range items {
		if it.ID == currentID {
			s.Cursor = i
			break
		}
	}
	return s
}

// MoveUp moves the cursor up, wrapping at the top.
func (s *Selector) MoveUp() {
	if len(s.Items) == 0 {
		return
	}
	s.Cursor = (s.Cursor - 1 + len(s.Items)) % len(s.Items)
}

// MoveDown moves the cursor down, wrapping at the bottom.
func (s *Selector) MoveDown() {
	if len(s.Items) == 0 {
		return
	}
	s.Cursor = (s.Cursor + 1) % len(s.Items)
}

// Selected returns the item under the cursor.
func (s *Selector) Selected() (SelectorItem, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Items) {
		return SelectorItem{}, false
	}
	return s.Items[s.Cursor], true
}

// Render returns the picker box.
func (s *Selector) Render(theme styles.Theme, width int) string {
	inner := width - 6
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	b.WriteString(theme.PickerTitle.Render(s.Title))
	b.WriteString("\n\n")

	if len(s.Items) == 0 {
		b.WriteString(theme.PickerItem.Render("nothing available"))
	}

	for i, it := range s.Items {
		label := it.Label
		if it.Detail != "" {
			label = fmt.Sprintf("%s (%s)", label, it.Detail)
		}
		label = util.TruncateWidth(label, inner-2)

		if i == s.Cursor {
			b.WriteString(theme.PickerActive.Render("> " + label))
		} else {
			b.WriteString(theme.PickerItem.Render("  " + label))
		}
		if i < len(s.Items)-1 {
			b.WriteString("\n")
		}
	}

	return theme.PickerBox.Width(inner).Render(b.String())
}
