// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// AUTHOR TYPE
// =============================================================================

// Author identifies who produced a message.
type Author string

const (
	// AuthorUser is a message typed by the user.
	AuthorUser Author = "user"

	// AuthorAssistant is a model response, possibly still streaming.
	AuthorAssistant Author = "assistant"

	// AuthorSystemError is a locally generated error notice. It renders
	// inside the transcript but never leaves the client.
	AuthorSystemError Author = "system_error"
)

// DisplayName returns the label shown next to a message in the transcript.
func (a Author) DisplayName() string {
	switch a {
	case AuthorUser:
		return "You"
	case AuthorAssistant:
		return "Assistant"
	case AuthorSystemError:
		return "Error"
	default:
		return string(a)
	}
}

// Valid reports whether the author is one of the known values.
func (a Author) Valid() bool {
	switch a {
	case AuthorUser, AuthorAssistant, AuthorSystemError:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single transcript entry. Assistant messages accumulate
// text incrementally while a response streams in.
//
// PERFORMANCE: Streaming text goes through a strings.Builder so per-chunk
// appends do not reallocate the whole message body.
type Message struct {
	// ID is a UUID assigned at creation. Stream chunks are applied by ID,
	// so late or stale chunks for other messages cannot corrupt this one.
	ID string `json:"id"`

	// Author is who produced the message.
	Author Author `json:"author"`

	// Text is the settled message body. While streaming, the authoritative
	// body lives in the builder and Text lags behind until finalize.
	Text string `json:"text"`

	// IsLoading marks an assistant message whose response has not settled.
	IsLoading bool `json:"is_loading,omitempty"`

	// IsError marks a message that ended in failure. Partial streamed
	// output is kept alongside the error text.
	IsError bool `json:"is_error,omitempty"`

	// TraceURL links to the backend trace for a completed response.
	TraceURL string `json:"trace_url,omitempty"`

	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`

	stream strings.Builder
}

// NewMessage creates a settled message with the given author and text.
func NewMessage(author Author, text string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewPendingAssistant creates an empty assistant message in the loading
// state, ready to receive streamed chunks.
func NewPendingAssistant() *Message {
	return &Message{
		ID:        uuid.NewString(),
		Author:    AuthorAssistant,
		IsLoading: true,
		Timestamp: time.Now(),
	}
}

// AppendChunk adds streamed text to the message body.
func (m *Message) AppendChunk(text string) {
	m.stream.WriteString(text)
}

// Finalize settles a streaming message: accumulated text becomes the
// body, the loading flag clears, and the trace URL is recorded if the
// backend sent one.
func (m *Message) Finalize(traceURL string) {
	if m.stream.Len() > 0 {
		m.Text += m.stream.String()
		m.stream.Reset()
	}
	m.IsLoading = false
	if traceURL != "" {
		m.TraceURL = traceURL
	}
}

// Fail settles a streaming message in the error state. Any partial
// output already streamed is preserved ahead of the error text.
func (m *Message) Fail(errText string) {
	if m.stream.Len() > 0 {
		m.Text += m.stream.String()
		m.stream.Reset()
	}
	if errText != "" {
		if m.Text != "" {
			m.Text += "\n\n"
		}
		m.Text += errText
	}
	m.IsLoading = false
	m.IsError = true
}

// Body returns the current message text including any unflushed
// streamed chunks. Safe to call at any point in the lifecycle.
func (m *Message) Body() string {
	if m.stream.Len() == 0 {
		return m.Text
	}
	return m.Text + m.stream.String()
}
