// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model holds the chat transcript data structures: messages,
// authors, and the Transcript store that owns them.
//
// The package is pure data. It performs no I/O and knows nothing about
// the network or the UI. Assistant messages stream in incrementally;
// chunks are applied by message ID so a superseded response can never
// write into the wrong message.
package model
