// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered message store for one chat session. It is the
// single owner of message state: views render from it and never mutate
// messages directly. Order is append-only; existing entries change only
// in place, addressed by message ID.
//
// Transcript does no I/O and is not safe for concurrent use. All mutation
// happens on the event loop; goroutines deliver stream events as loop
// messages instead of touching the transcript themselves.
type Transcript struct {
	messages []*Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Messages returns the entries in display order. The slice is shared;
// callers must treat it as read-only.
func (t *Transcript) Messages() []*Message {
	return t.messages
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// AppendUser adds a user message and returns it. When no real exchange
// exists yet (transcript empty, or holding only error notices from
// earlier failed attempts) the stale notices are dropped first, so a
// fresh conversation starts clean.
func (t *Transcript) AppendUser(text string) *Message {
	if !t.hasConversation() {
		t.messages = t.messages[:0]
	}
	msg := NewMessage(AuthorUser, text)
	t.messages = append(t.messages, msg)
	return msg
}

// AppendPending adds a loading assistant placeholder and returns it.
// Stream chunks are applied against its ID.
func (t *Transcript) AppendPending() *Message {
	msg := NewPendingAssistant()
	t.messages = append(t.messages, msg)
	return msg
}

// AppendError adds a standalone error notice.
func (t *Transcript) AppendError(text string) *Message {
	msg := NewMessage(AuthorSystemError, text)
	msg.IsError = true
	t.messages = append(t.messages, msg)
	return msg
}

// ApplyChunk appends streamed text to the message with the given ID.
// Unknown IDs are ignored: chunks from a superseded response land
// nowhere instead of corrupting the current one.
func (t *Transcript) ApplyChunk(id, text string) {
	if msg := t.ByID(id); msg != nil {
		msg.AppendChunk(text)
	}
}

// Finalize settles the message with the given ID as a completed
// response. Unknown IDs are ignored.
func (t *Transcript) Finalize(id, traceURL string) {
	if msg := t.ByID(id); msg != nil {
		msg.Finalize(traceURL)
	}
}

// Fail settles the message with the given ID in the error state,
// keeping any partial output. Unknown IDs are ignored.
func (t *Transcript) Fail(id, errText string) {
	if msg := t.ByID(id); msg != nil {
		msg.Fail(errText)
	}
}

// ByID returns the message with the given ID, or nil.
func (t *Transcript) ByID(id string) *Message {
	// Recent messages are the common targets, search from the tail.
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID == id {
			return t.messages[i]
		}
	}
	return nil
}

// Last returns the most recent message, or nil when empty.
func (t *Transcript) Last() *Message {
	if len(t.messages) == 0 {
		return nil
	}
	return t.messages[len(t.messages)-1]
}

// HasPending reports whether an assistant response is still loading.
// At most one message can be pending at a time.
func (t *Transcript) HasPending() bool {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].IsLoading {
			return true
		}
	}
	return false
}

// Replace swaps the transcript contents for messages loaded from
// history. Used when restoring a session.
func (t *Transcript) Replace(messages []*Message) {
	t.messages = messages
}

// Clear removes all messages.
func (t *Transcript) Clear() {
	t.messages = nil
}

// hasConversation reports whether any user or assistant message exists.
// Error notices alone do not count as a conversation.
func (t *Transcript) hasConversation() bool {
	for _, m := range t.messages {
		if m.Author == AuthorUser || m.Author == AuthorAssistant {
			return true
		}
	}
	return false
}
