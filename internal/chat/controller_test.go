// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/model"
	"github.com/jeranaias/repochat-tui/internal/session"
	"github.com/jeranaias/repochat-tui/internal/storage"
)

// fakeBackend scripts backend behavior for controller tests.
type fakeBackend struct {
	mu      sync.Mutex
	models  []api.Model
	repos   []api.DataSource
	history []api.HistoryMessage

	historyErr error
	streamErr  error
	events     []api.StreamEvent

	// block holds ChatStream open until closed, for concurrency tests.
	block chan struct{}

	lastRequest api.ChatRequest
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]api.Model, error) {
	return f.models, nil
}

func (f *fakeBackend) ListDataSources(ctx context.Context) ([]api.DataSource, error) {
	return f.repos, nil
}

func (f *fakeBackend) History(ctx context.Context, sessionID, repoID string) ([]api.HistoryMessage, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeBackend) ChatStream(ctx context.Context, req api.ChatRequest, callback api.StreamCallback) error {
	f.mu.Lock()
	f.lastRequest = req
	f.mu.Unlock()

	if f.streamErr != nil {
		return f.streamErr
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return &api.StreamError{Err: ctx.Err()}
		}
	}
	for _, ev := range f.events {
		if err := callback(ev); err != nil {
			return err
		}
		if ev.Kind == api.EventError || ev.Kind == api.EventDone {
			return nil
		}
	}
	// Natural EOF settles the stream.
	return callback(api.StreamEvent{Kind: api.EventDone})
}

func (f *fakeBackend) request() api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRequest
}

func chunk(s string) api.StreamEvent { return api.StreamEvent{Kind: api.EventChunk, Chunk: s} }

func newTestController(t *testing.T, backend Backend) *Controller {
	t.Helper()
	store, err := storage.OpenSessionStore(t.TempDir() + "/s.db")
	if err != nil {
		t.Fatalf("OpenSessionStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := NewRegistry(backend, "gemini-1.5-flash")
	return NewController(backend, registry, session.NewManager(store))
}

// readyController returns a controller with auth, repository, model,
// and session all in place.
func readyController(t *testing.T, backend *fakeBackend) *Controller {
	t.Helper()
	if backend.models == nil {
		backend.models = someModels()
	}
	c := newTestController(t, backend)
	if err := c.registry.Load(context.Background()); err != nil {
		t.Fatalf("registry load: %v", err)
	}
	if err := c.SelectRepository(context.Background(), api.DataSource{ID: "repo-1", RepoName: "demo"}); err != nil {
		t.Fatalf("SelectRepository: %v", err)
	}
	return c
}

func lastView(t *testing.T, c *Controller) MessageView {
	t.Helper()
	snap := c.Snapshot()
	if len(snap) == 0 {
		t.Fatal("empty transcript")
	}
	return snap[len(snap)-1]
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestSubmitEmptyQuery(t *testing.T) {
	c := readyController(t, &fakeBackend{})
	err := c.Submit(context.Background(), "   ")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v", err)
	}
	last := lastView(t, c)
	if last.Author != model.AuthorSystemError || last.Text != noticeEmptyQuery {
		t.Errorf("notice = %+v", last)
	}
}

func TestSubmitWithoutAuth(t *testing.T) {
	c := newTestController(t, nil)
	err := c.Submit(context.Background(), "hi")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v", err)
	}
	if lastView(t, c).Text != noticeNoAuth {
		t.Errorf("notice = %q", lastView(t, c).Text)
	}
}

func TestSubmitWithoutRepository(t *testing.T) {
	backend := &fakeBackend{models: someModels()}
	c := newTestController(t, backend)
	c.registry.Load(context.Background())

	err := c.Submit(context.Background(), "hi")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v", err)
	}
	if lastView(t, c).Text != noticeNoRepo {
		t.Errorf("notice = %q", lastView(t, c).Text)
	}
}

func TestSubmitWithoutModel(t *testing.T) {
	backend := &fakeBackend{models: []api.Model{}}
	c := newTestController(t, backend)
	c.registry.Load(context.Background())
	c.SelectRepository(context.Background(), api.DataSource{ID: "repo-1"})

	err := c.Submit(context.Background(), "hi")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v", err)
	}
	if lastView(t, c).Text != noticeNoModel {
		t.Errorf("notice = %q", lastView(t, c).Text)
	}
}

func TestPreconditionOrderQueryBeforeAuth(t *testing.T) {
	// Empty query is reported even when later checks would also fail.
	c := newTestController(t, nil)
	c.Submit(context.Background(), "")
	if lastView(t, c).Text != noticeEmptyQuery {
		t.Errorf("notice = %q, want empty-query first", lastView(t, c).Text)
	}
}

func TestPreconditionNoNetworkCall(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	c.Submit(context.Background(), "")
	if backend.request().Query != "" {
		t.Error("precondition failure still sent a request")
	}
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestSubmitStreamsIntoPlaceholder(t *testing.T) {
	backend := &fakeBackend{
		events: []api.StreamEvent{
			chunk("Auth "), chunk("works."),
			{Kind: api.EventDone, TraceURL: "https://trace/1"},
		},
	}
	c := readyController(t, backend)

	if err := c.Submit(context.Background(), "explain auth"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len = %d, want user + assistant", len(snap))
	}
	if snap[0].Author != model.AuthorUser || snap[0].Text != "explain auth" {
		t.Errorf("user message = %+v", snap[0])
	}
	assistant := snap[1]
	if assistant.Text != "Auth works." {
		t.Errorf("assistant text = %q", assistant.Text)
	}
	if assistant.IsLoading || assistant.IsError {
		t.Errorf("assistant not settled: %+v", assistant)
	}
	if assistant.TraceURL != "https://trace/1" {
		t.Errorf("trace = %q", assistant.TraceURL)
	}

	req := backend.request()
	if req.Query != "explain auth" || req.DataSourceID != "repo-1" {
		t.Errorf("request = %+v", req)
	}
	if req.Model != "gemini-1.5-flash" {
		t.Errorf("request model = %q", req.Model)
	}
	if req.SessionID != c.SessionID() {
		t.Error("request session does not match controller session")
	}
}

func TestSubmitEOFWithoutDoneStillSettles(t *testing.T) {
	backend := &fakeBackend{events: []api.StreamEvent{chunk("partial")}}
	c := readyController(t, backend)

	if err := c.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	assistant := lastView(t, c)
	if assistant.IsLoading {
		t.Error("placeholder never settled")
	}
	if assistant.Text != "partial" {
		t.Errorf("text = %q", assistant.Text)
	}
}

func TestSubmitDoneWithoutChunksFinalizes(t *testing.T) {
	backend := &fakeBackend{events: []api.StreamEvent{
		{Kind: api.EventDone, TraceURL: "https://trace/empty"},
	}}
	c := readyController(t, backend)

	if err := c.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	assistant := lastView(t, c)
	if assistant.IsError {
		t.Errorf("explicit done marked as error: %+v", assistant)
	}
	if assistant.IsLoading {
		t.Error("placeholder never settled")
	}
	if assistant.TraceURL != "https://trace/empty" {
		t.Errorf("trace = %q", assistant.TraceURL)
	}
}

func TestSubmitEmptyBody(t *testing.T) {
	backend := &fakeBackend{
		streamErr: &api.StreamError{Err: api.ErrEmptyBody},
	}
	c := readyController(t, backend)

	if err := c.Submit(context.Background(), "q"); err == nil {
		t.Fatal("expected error for empty body")
	}
	assistant := lastView(t, c)
	if !assistant.IsError || assistant.Text != noticeStreamEmpty {
		t.Errorf("assistant = %+v", assistant)
	}
}

// =============================================================================
// FAILURES
// =============================================================================

func TestSubmitBackendErrorEvent(t *testing.T) {
	backend := &fakeBackend{
		events: []api.StreamEvent{
			chunk("partial "),
			{Kind: api.EventError, Err: "vector index missing"},
		},
	}
	c := readyController(t, backend)

	if err := c.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	assistant := lastView(t, c)
	if !assistant.IsError || assistant.IsLoading {
		t.Errorf("assistant = %+v", assistant)
	}
	if !strings.Contains(assistant.Text, "partial") {
		t.Error("partial output discarded")
	}
	if !strings.Contains(assistant.Text, "[Stream Error: vector index missing]") {
		t.Errorf("error marker missing, text = %q", assistant.Text)
	}
}

func TestSubmitHTTPFailure(t *testing.T) {
	backend := &fakeBackend{
		streamErr: &api.APIError{Type: api.ErrorTypeServer, StatusCode: 500, Message: "index missing"},
	}
	c := readyController(t, backend)

	err := c.Submit(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error")
	}
	assistant := lastView(t, c)
	if !assistant.IsError || assistant.Text != "index missing" {
		t.Errorf("assistant = %+v", assistant)
	}
}

func TestSubmitAlwaysSettles(t *testing.T) {
	backend := &fakeBackend{streamErr: errors.New("socket torn down")}
	c := readyController(t, backend)

	c.Submit(context.Background(), "q")
	for _, v := range c.Snapshot() {
		if v.IsLoading {
			t.Errorf("message left loading: %+v", v)
		}
	}
	if c.Busy() {
		t.Error("controller stuck busy")
	}
}

// =============================================================================
// CONCURRENCY AND ISOLATION
// =============================================================================

func TestSubmitRejectsConcurrent(t *testing.T) {
	backend := &fakeBackend{
		block:  make(chan struct{}),
		events: []api.StreamEvent{{Kind: api.EventDone}},
	}
	c := readyController(t, backend)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "first") }()

	// Wait for the first submission to take the busy slot.
	deadline := time.After(2 * time.Second)
	for !c.Busy() {
		select {
		case <-deadline:
			t.Fatal("first submission never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	err := c.Submit(context.Background(), "second")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("concurrent submit err = %v", err)
	}

	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if c.Busy() {
		t.Error("controller stuck busy")
	}
}

func TestSubmitRefusedWhilePlaceholderPending(t *testing.T) {
	c := readyController(t, &fakeBackend{events: []api.StreamEvent{{Kind: api.EventDone}}})

	// A loading placeholder in the transcript blocks submission even
	// when the busy flag is not set.
	c.mu.Lock()
	c.transcript.AppendPending()
	c.mu.Unlock()

	err := c.Submit(context.Background(), "q")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("err = %v, want ErrPrecondition", err)
	}
	assistant := lastView(t, c)
	if !assistant.IsError || assistant.Text != noticeBusy {
		t.Errorf("assistant = %+v", assistant)
	}
}

func TestRepositorySwitchIsolatesOldStream(t *testing.T) {
	backend := &fakeBackend{
		block:  make(chan struct{}),
		events: []api.StreamEvent{chunk("stale"), {Kind: api.EventDone}},
	}
	c := readyController(t, backend)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "old question") }()

	deadline := time.After(2 * time.Second)
	for !c.Busy() {
		select {
		case <-deadline:
			t.Fatal("submission never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Switching repositories discards the old transcript and cancels
	// the in-flight stream.
	if err := c.SelectRepository(context.Background(), api.DataSource{ID: "repo-2"}); err != nil {
		t.Fatalf("SelectRepository: %v", err)
	}
	close(backend.block)
	<-done

	for _, v := range c.Snapshot() {
		if strings.Contains(v.Text, "stale") || strings.Contains(v.Text, "old question") {
			t.Errorf("old conversation leaked into new transcript: %+v", v)
		}
	}
}

// =============================================================================
// REPOSITORY SELECTION
// =============================================================================

func TestSelectRepositoryLoadsHistory(t *testing.T) {
	backend := &fakeBackend{
		models: someModels(),
		history: []api.HistoryMessage{
			{ID: "h1", Author: "user", Text: "earlier question", Timestamp: time.Now().Add(-time.Hour)},
			{ID: "h2", Author: "assistant", Text: "earlier answer", Timestamp: time.Now()},
		},
	}
	c := newTestController(t, backend)
	c.registry.Load(context.Background())
	repo := api.DataSource{ID: "repo-1"}

	// First selection creates the session; history is only fetched for
	// known sessions.
	if err := c.SelectRepository(context.Background(), repo); err != nil {
		t.Fatalf("first select: %v", err)
	}
	if len(c.Snapshot()) != 0 {
		t.Error("new session should start empty")
	}

	// Reselecting resumes the session and loads history.
	if err := c.SelectRepository(context.Background(), repo); err != nil {
		t.Fatalf("second select: %v", err)
	}
	snap := c.Snapshot()
	if len(snap) != 2 || snap[0].Text != "earlier question" || snap[1].Text != "earlier answer" {
		t.Errorf("history = %+v", snap)
	}
}

func TestSelectRepositoryHistoryFailure(t *testing.T) {
	backend := &fakeBackend{models: someModels()}
	c := newTestController(t, backend)
	c.registry.Load(context.Background())
	repo := api.DataSource{ID: "repo-1"}
	c.SelectRepository(context.Background(), repo)

	backend.historyErr = errors.New("history endpoint down")
	if err := c.SelectRepository(context.Background(), repo); err == nil {
		t.Fatal("expected history error")
	}

	snap := c.Snapshot()
	if len(snap) != 1 || snap[0].Author != model.AuthorSystemError {
		t.Fatalf("snapshot = %+v, want single error notice", snap)
	}

	// The conversation stays usable: a submission works afterwards.
	backend.events = []api.StreamEvent{chunk("ok"), {Kind: api.EventDone}}
	if err := c.Submit(context.Background(), "still works?"); err != nil {
		t.Fatalf("Submit after history failure: %v", err)
	}
}

func TestSessionStableAcrossReselect(t *testing.T) {
	backend := &fakeBackend{models: someModels()}
	c := newTestController(t, backend)
	c.registry.Load(context.Background())
	repo := api.DataSource{ID: "repo-1"}

	c.SelectRepository(context.Background(), repo)
	first := c.SessionID()
	c.ClearRepository()
	if c.SessionID() != "" {
		t.Error("session id survives deselection")
	}
	c.SelectRepository(context.Background(), repo)
	if c.SessionID() != first {
		t.Error("session id changed across reselect")
	}
}

func TestResetSession(t *testing.T) {
	backend := &fakeBackend{models: someModels()}
	c := newTestController(t, backend)
	c.registry.Load(context.Background())
	repo := api.DataSource{ID: "repo-1"}

	c.SelectRepository(context.Background(), repo)
	first := c.SessionID()
	if err := c.ResetSession(context.Background()); err != nil {
		t.Fatalf("ResetSession: %v", err)
	}
	if c.SessionID() == first || c.SessionID() == "" {
		t.Errorf("session after reset = %q", c.SessionID())
	}
}

func TestNotifyFiresOnChanges(t *testing.T) {
	backend := &fakeBackend{events: []api.StreamEvent{chunk("x"), {Kind: api.EventDone}}}
	c := readyController(t, backend)

	var mu sync.Mutex
	count := 0
	c.SetNotify(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	c.Submit(context.Background(), "q")
	mu.Lock()
	defer mu.Unlock()
	if count == 0 {
		t.Error("notify never fired")
	}
}

func TestCancelSubmission(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	c := readyController(t, backend)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "long question") }()

	deadline := time.After(2 * time.Second)
	for !c.Busy() {
		select {
		case <-deadline:
			t.Fatal("submission never started")
		case <-time.After(time.Millisecond):
		}
	}

	c.CancelSubmission()
	if err := <-done; err == nil {
		t.Fatal("cancelled submission should report an error")
	}

	view := lastView(t, c)
	if !view.IsError || view.IsLoading {
		t.Errorf("placeholder should settle as an error, got %+v", view)
	}
	if view.Text != "The request was cancelled." {
		t.Errorf("Text = %q", view.Text)
	}
	if c.Busy() {
		t.Error("controller should be idle after cancellation")
	}
}

func TestCancelSubmissionWhenIdle(t *testing.T) {
	c := readyController(t, &fakeBackend{})
	c.CancelSubmission()
	if c.Busy() {
		t.Error("idle cancel should be a no-op")
	}
}

func TestRepositories(t *testing.T) {
	backend := &fakeBackend{repos: []api.DataSource{{ID: "r1", RepoOwner: "octo", RepoName: "widgets"}}}
	c := readyController(t, backend)

	repos, err := c.Repositories(context.Background())
	if err != nil {
		t.Fatalf("Repositories: %v", err)
	}
	if len(repos) != 1 || repos[0].ID != "r1" {
		t.Errorf("repos = %+v", repos)
	}
}

func TestRepositoriesWithoutBackend(t *testing.T) {
	registry := NewRegistry(nil, "")
	store, err := storage.OpenSessionStore(t.TempDir() + "/s.db")
	if err != nil {
		t.Fatalf("OpenSessionStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := NewController(nil, registry, session.NewManager(store))
	if _, err := c.Repositories(context.Background()); !errors.Is(err, api.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
