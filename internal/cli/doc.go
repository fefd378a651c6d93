// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface: argument
// parsing, the one-shot ask command, and the line-based chat REPL used
// when stdout is not a terminal or the user prefers plain output.
package cli
