// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the repository-chat
// backend: model listing, data source listing, session history, and
// streaming chat submissions.
//
// Every request carries bearer-token authentication. Chat responses
// arrive as a server-sent-event stream of JSON frames (chunk, error,
// done); the SSEReader parses framing at the boundary and hands typed
// StreamEvents to the caller, skipping malformed frames.
package api
