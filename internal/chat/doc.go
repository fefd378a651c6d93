// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the UI-independent conversation engine: the model
// Registry, which tracks available models and the active selection,
// and the Controller, which runs the submission state machine from
// precondition checks through streaming to a settled transcript.
//
// Both the TUI and the plain CLI drive the same Controller; views
// render from Snapshot copies and never touch live messages.
package chat
