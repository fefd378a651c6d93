// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists client-side state. Currently that is the
// repository-to-session mapping, kept in a small SQLite database so the
// same conversation resumes when a repository is selected again.
package storage
