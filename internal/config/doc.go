// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management.
//
// Configuration lives in ~/.repochat/config.toml, decoded with
// sensible defaults, REPOCHAT_* environment overrides, and validation.
// The file holds the backend auth token, so it is kept at 0600 and
// written atomically.
//
// A Watcher built on fsnotify reloads the file when it changes so a
// token or base URL edit takes effect without restarting.
package config
