// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive terminal interface: a
// Bubble Tea program with a scrolling transcript, an input line, and
// picker overlays for choosing the repository and model.
//
// The program never mutates conversation state directly. All chat
// operations go through the controller, and the view re-renders from
// controller snapshots on a timer while a response streams.
package chat
