// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the TUI.
// Colors use lipgloss AdaptiveColor so light and dark terminals both
// render legibly; Theme bundles the styles each view needs.
package styles
