// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable rendering pieces for the chat
// interface: message cards, syntax-highlighted code blocks, the status
// bar and the model/repository picker.
package components
