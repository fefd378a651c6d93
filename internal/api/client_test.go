// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-token")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("http://localhost:8000", ""); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := NewClient("not a url", "tok"); err == nil {
		t.Error("expected error for invalid URL")
	}
	if _, err := NewClient("/relative", "tok"); err == nil {
		t.Error("expected error for relative URL")
	}
}

func TestBearerTokenOnEveryRequest(t *testing.T) {
	var got []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		fmt.Fprint(w, "[]")
	}))

	ctx := context.Background()
	if _, err := client.ListModels(ctx); err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if _, err := client.ListDataSources(ctx); err != nil {
		t.Fatalf("ListDataSources: %v", err)
	}
	if _, err := client.History(ctx, "sess-1", "repo-1"); err != nil {
		t.Fatalf("History: %v", err)
	}

	for i, h := range got {
		if h != "Bearer test-token" {
			t.Errorf("request %d: Authorization = %q", i, h)
		}
	}
}

func TestListModels(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/available-models/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `[{"id":"gemini-1.5-flash","name":"Gemini 1.5 Flash","provider":"google"},{"id":"gpt-4o","name":"GPT-4o"}]`)
	}))

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models", len(models))
	}
	if models[0].ID != "gemini-1.5-flash" || models[0].DisplayName() != "Gemini 1.5 Flash" {
		t.Errorf("first model = %+v", models[0])
	}
}

func TestListModelsEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("empty list must not error: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("got %d models", len(models))
	}
}

func TestHistorySortsByTimestamp(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/history/sess-9/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("repo_id") != "repo-3" {
			t.Errorf("repo_id = %q", r.URL.Query().Get("repo_id"))
		}
		// Deliberately out of order.
		fmt.Fprint(w, `[
			{"id":"b","author":"assistant","text":"second","timestamp":"2025-06-01T10:01:00Z"},
			{"id":"a","author":"user","text":"first","timestamp":"2025-06-01T10:00:00Z"}
		]`)
	}))

	msgs, err := client.History(context.Background(), "sess-9", "repo-3")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "a" || msgs[1].ID != "b" {
		t.Errorf("order = %+v", msgs)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		sentinel error
		wantMsg  string
	}{
		{401, `{"error":"token expired"}`, ErrUnauthorized, "token expired"},
		{403, ``, ErrUnauthorized, "authentication failed"},
		{404, `{"message":"no such session"}`, ErrNotFound, "no such session"},
		{500, `{"error":"index missing"}`, nil, "index missing"},
		{500, `not json at all`, nil, "backend error (HTTP 500)"},
		{422, ``, nil, "request rejected (HTTP 422)"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			_, err := client.ListModels(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v) = false", tt.sentinel)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("not an APIError: %v", err)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestConnectionError(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", "tok")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.ListModels(context.Background())
	if !errors.Is(err, ErrConnection) {
		t.Errorf("err = %v, want connection error", err)
	}
}

func TestChatStreamEndToEnd(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat/" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"chunk\":\"Auth \"}\n\n")
		fmt.Fprint(w, "data: {\"chunk\":\"works.\"}\n\n")
		fmt.Fprint(w, "data: {\"status\":\"done\",\"traceUrl\":\"https://t/1\"}\n\n")
	}))

	var text strings.Builder
	var done StreamEvent
	err := client.ChatStream(context.Background(), ChatRequest{
		Query:        "explain auth",
		Model:        "gemini-1.5-flash",
		DataSourceID: "repo-1",
		SessionID:    "sess-1",
	}, func(ev StreamEvent) error {
		switch ev.Kind {
		case EventChunk:
			text.WriteString(ev.Chunk)
		case EventDone:
			done = ev
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if text.String() != "Auth works." {
		t.Errorf("text = %q", text.String())
	}
	if done.TraceURL != "https://t/1" {
		t.Errorf("trace = %q", done.TraceURL)
	}
}

func TestChatStreamNonOKStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"vector index missing"}`)
	}))

	called := false
	err := client.ChatStream(context.Background(), ChatRequest{Query: "q"}, func(StreamEvent) error {
		called = true
		return nil
	})
	if called {
		t.Error("callback invoked despite error status")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "vector index missing" {
		t.Errorf("err = %v", err)
	}
}

func TestChatStreamContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"chunk\":\"begin\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := client.ChatStream(ctx, ChatRequest{Query: "q"}, func(StreamEvent) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
