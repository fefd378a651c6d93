// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the application:
// width-aware string truncation and padding for terminal display,
// timestamp formatting for the transcript, and crash-safe atomic file
// writes used by the config layer.
package util
