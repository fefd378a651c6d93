// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session resolves repositories to stable conversation IDs.
// Each repository gets a UUID on first use, persisted through a Store
// so switching back to a repository resumes its conversation. Mappings
// survive until logout or explicit invalidation.
package session
