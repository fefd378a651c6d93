// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/model"
	"github.com/jeranaias/repochat-tui/internal/session"
)

// Backend is the full API surface the controller drives. *api.Client
// satisfies it; tests substitute fakes.
type Backend interface {
	ModelLister
	ListDataSources(ctx context.Context) ([]api.DataSource, error)
	History(ctx context.Context, sessionID, repoID string) ([]api.HistoryMessage, error)
	ChatStream(ctx context.Context, req api.ChatRequest, callback api.StreamCallback) error
}

// Precondition failure notices shown in the transcript. Submission
// checks run in this order and the first failure wins.
const (
	noticeEmptyQuery  = "Please enter a message."
	noticeNoAuth      = "You must be logged in to chat."
	noticeNoRepo      = "Please select a repository first."
	noticeNoModel     = "No model is available. Please try again later."
	noticeNoSession   = "Could not establish a chat session. Please re-select the repository."
	noticeBusy        = "A response is already in progress. Please wait for it to finish."
	noticeStreamEmpty = "The model returned an empty response."
)

// ErrPrecondition marks a submission that was rejected before any
// network activity. The transcript already holds the user-facing notice.
var ErrPrecondition = errors.New("submission precondition failed")

// MessageView is a render-safe copy of one transcript entry. Views work
// from these copies; live messages keep mutating while a response
// streams.
type MessageView struct {
	ID        string
	Author    model.Author
	Text      string
	IsLoading bool
	IsError   bool
	TraceURL  string
	Timestamp time.Time
}

// Controller is the submission state machine: it validates
// preconditions, appends the user message and assistant placeholder,
// drives the response stream into the transcript, and guarantees the
// placeholder always settles. At most one submission is in flight.
//
// All state is mutex-guarded; methods may be called from any goroutine.
// The optional notify hook fires after every transcript change so a UI
// can re-render.
type Controller struct {
	mu sync.Mutex

	backend  Backend
	registry *Registry
	sessions *session.Manager

	transcript *model.Transcript
	repo       *api.DataSource
	handle     *session.Handle

	busy   bool
	cancel context.CancelFunc

	notify func()
}

// NewController wires the submission engine. backend may be nil until
// the user authenticates.
func NewController(backend Backend, registry *Registry, sessions *session.Manager) *Controller {
	return &Controller{
		backend:    backend,
		registry:   registry,
		sessions:   sessions,
		transcript: model.NewTranscript(),
	}
}

// SetNotify installs a hook fired after every transcript change. The
// hook runs outside the controller lock.
func (c *Controller) SetNotify(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// SetBackend swaps the API client when credentials change.
func (c *Controller) SetBackend(backend Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backend = backend
	c.registry.SetClient(backend)
}

// Authenticated reports whether a backend client is configured.
func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend != nil
}

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// CancelSubmission aborts the in-flight submission, if any. The
// placeholder settles through the normal failure path with a
// cancellation notice.
func (c *Controller) CancelSubmission() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Repositories fetches the data sources available for chat.
func (c *Controller) Repositories(ctx context.Context) ([]api.DataSource, error) {
	c.mu.Lock()
	backend := c.backend
	c.mu.Unlock()
	if backend == nil {
		return nil, api.ErrUnauthorized
	}
	return backend.ListDataSources(ctx)
}

// Repository returns the selected repository, ok=false when none.
func (c *Controller) Repository() (api.DataSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.repo == nil {
		return api.DataSource{}, false
	}
	return *c.repo, true
}

// SessionID returns the active session ID, empty when none.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return ""
	}
	return c.handle.SessionID
}

// Snapshot returns render-safe copies of the transcript entries.
func (c *Controller) Snapshot() []MessageView {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.transcript.Messages()
	out := make([]MessageView, len(msgs))
	for i, m := range msgs {
		out[i] = MessageView{
			ID:        m.ID,
			Author:    m.Author,
			Text:      m.Body(),
			IsLoading: m.IsLoading,
			IsError:   m.IsError,
			TraceURL:  m.TraceURL,
			Timestamp: m.Timestamp,
		}
	}
	return out
}

// =============================================================================
// REPOSITORY SELECTION
// =============================================================================

// SelectRepository switches the conversation to a repository: the
// session resolves (creating one on first use), a fresh transcript
// replaces the old, and persisted history loads into it. An in-flight
// submission for the previous repository is cancelled; its late events
// target the discarded transcript and are inert.
//
// A history load failure leaves a single error notice and an otherwise
// usable conversation, never a stuck loading state.
func (c *Controller) SelectRepository(ctx context.Context, repo api.DataSource) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}

	backend := c.backend
	handle, err := c.sessions.Resolve(repo.ID, backend != nil)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	repoCopy := repo
	c.repo = &repoCopy
	c.handle = handle
	c.transcript = model.NewTranscript()
	tr := c.transcript
	c.mu.Unlock()
	c.fireNotify()

	if handle == nil || handle.IsNew || backend == nil {
		return nil
	}

	history, err := backend.History(ctx, handle.SessionID, repo.ID)
	if err != nil {
		c.withTranscript(tr, func() {
			tr.AppendError("Could not load chat history for this repository.")
		})
		return err
	}

	msgs := make([]*model.Message, 0, len(history))
	for _, h := range history {
		msgs = append(msgs, historyToMessage(h))
	}
	c.withTranscript(tr, func() {
		tr.Replace(msgs)
	})
	return nil
}

// ClearRepository deselects the repository. The session mapping stays
// persisted; reselecting resumes the same conversation.
func (c *Controller) ClearRepository() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.repo = nil
	c.handle = nil
	c.transcript = model.NewTranscript()
	c.mu.Unlock()
	c.fireNotify()
}

// ResetSession invalidates the current repository's session and starts
// a fresh conversation with a new session ID.
func (c *Controller) ResetSession(ctx context.Context) error {
	c.mu.Lock()
	repo := c.repo
	c.mu.Unlock()
	if repo == nil {
		return nil
	}
	if err := c.sessions.Invalidate(repo.ID); err != nil {
		return err
	}
	return c.SelectRepository(ctx, *repo)
}

// historyToMessage converts a persisted message to a transcript entry.
// Server-assigned IDs are kept when present so the entry stays
// addressable; messages without one get a fresh ID.
func historyToMessage(h api.HistoryMessage) *model.Message {
	author := model.Author(h.Author)
	if !author.Valid() {
		author = model.AuthorAssistant
	}
	msg := model.NewMessage(author, h.Text)
	if h.ID != "" {
		msg.ID = h.ID
	}
	if !h.Timestamp.IsZero() {
		msg.Timestamp = h.Timestamp
	}
	msg.TraceURL = h.TraceURL
	msg.IsError = author == model.AuthorSystemError
	return msg
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit runs one chat exchange: precondition checks, user message,
// assistant placeholder, request, stream, finalize. It blocks until the
// exchange settles and always leaves the transcript in an interactive
// state, whatever fails in between.
func (c *Controller) Submit(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)

	c.mu.Lock()

	if notice := c.checkPreconditions(query); notice != "" {
		tr := c.transcript
		tr.AppendError(notice)
		c.mu.Unlock()
		c.fireNotify()
		return fmt.Errorf("%w: %s", ErrPrecondition, notice)
	}

	// Capture everything the exchange needs. A repository switch mid-
	// stream replaces c.transcript; this submission keeps writing to
	// the captured one, which is no longer rendered.
	backend := c.backend
	tr := c.transcript
	modelID := c.registry.SelectedID()
	req := api.ChatRequest{
		Query:        query,
		Model:        modelID,
		DataSourceID: c.repo.ID,
		SessionID:    c.handle.SessionID,
	}

	streamCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.cancel = cancel

	tr.AppendUser(query)
	pending := tr.AppendPending()
	c.mu.Unlock()
	c.fireNotify()

	defer func() {
		cancel()
		c.mu.Lock()
		c.busy = false
		c.cancel = nil
		// The placeholder must never be left loading.
		if p := tr.ByID(pending.ID); p != nil && p.IsLoading {
			tr.Fail(pending.ID, "The response ended unexpectedly.")
		}
		c.mu.Unlock()
		c.fireNotify()
	}()

	err := backend.ChatStream(streamCtx, req, func(ev api.StreamEvent) error {
		c.withTranscript(tr, func() {
			switch ev.Kind {
			case api.EventChunk:
				tr.ApplyChunk(pending.ID, ev.Chunk)
			case api.EventError:
				tr.Fail(pending.ID, "[Stream Error: "+ev.Err+"]")
			case api.EventDone:
				tr.Finalize(pending.ID, ev.TraceURL)
			}
		})
		return nil
	})
	if err != nil {
		c.withTranscript(tr, func() {
			if p := tr.ByID(pending.ID); p != nil && p.IsLoading {
				tr.Fail(pending.ID, submitFailureText(err))
			}
		})
		return err
	}
	return nil
}

// checkPreconditions returns the notice for the first failed check, or
// empty when submission may proceed. Caller holds the lock.
func (c *Controller) checkPreconditions(query string) string {
	switch {
	case c.busy || c.transcript.HasPending():
		return noticeBusy
	case query == "":
		return noticeEmptyQuery
	case c.backend == nil:
		return noticeNoAuth
	case c.repo == nil:
		return noticeNoRepo
	case c.registry.SelectedID() == "":
		return noticeNoModel
	case c.handle == nil:
		return noticeNoSession
	}
	return ""
}

// submitFailureText turns a transport or protocol error into the text
// shown in the failed placeholder.
func submitFailureText(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	if errors.Is(err, api.ErrEmptyBody) {
		return noticeStreamEmpty
	}
	return "Something went wrong while contacting the backend."
}

// withTranscript runs a mutation under the lock and fires the notify
// hook afterwards.
func (c *Controller) withTranscript(tr *model.Transcript, fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
	c.fireNotify()
}

func (c *Controller) fireNotify() {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
