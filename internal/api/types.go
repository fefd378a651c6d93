// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// =============================================================================
// WIRE TYPES
// =============================================================================

// Model describes one chat model the backend can serve.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider,omitempty"`
}

// DisplayName returns the human-readable label, falling back to the ID.
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// DataSource describes one indexed repository on the backend.
type DataSource struct {
	ID         string `json:"id"`
	SourceType string `json:"source_type"`
	RepoOwner  string `json:"repo_owner"`
	RepoName   string `json:"repo_name"`
	Status     string `json:"status,omitempty"`
}

// FullName returns "owner/name" for display.
func (d DataSource) FullName() string {
	if d.RepoOwner == "" {
		return d.RepoName
	}
	return d.RepoOwner + "/" + d.RepoName
}

// HistoryMessage is one persisted message from a prior session.
type HistoryMessage struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	TraceURL  string    `json:"trace_url,omitempty"`
}

// ChatRequest is the body of a chat submission.
type ChatRequest struct {
	Query        string `json:"query"`
	Model        string `json:"model"`
	DataSourceID string `json:"data_source_id"`
	SessionID    string `json:"session_id"`
}

// errorResponse is the backend's error body shape. Some endpoints use
// "error", others "message"; accept both.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e errorResponse) text() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	default:
		return e.Detail
	}
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// StreamEvent is one parsed event from a chat response stream. Exactly
// one payload interpretation applies per event.
type StreamEvent struct {
	// Chunk is a fragment of answer text. Valid when Kind is EventChunk.
	Chunk string

	// Err is the backend-reported failure. Valid when Kind is EventError.
	Err string

	// TraceURL optionally accompanies the terminal done event.
	TraceURL string

	// Kind discriminates the payload.
	Kind EventKind
}

// EventKind discriminates stream event payloads.
type EventKind int

const (
	// EventChunk carries a text fragment to append.
	EventChunk EventKind = iota

	// EventError carries a backend failure; the stream ends after it.
	EventError

	// EventDone marks normal completion, optionally with a trace URL.
	EventDone
)

// streamFrame is the raw JSON shape of one stream payload.
type streamFrame struct {
	Chunk    *string `json:"chunk"`
	Error    *string `json:"error"`
	Status   string  `json:"status"`
	TraceURL string  `json:"traceUrl"`
}
