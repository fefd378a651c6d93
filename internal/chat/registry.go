// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	"github.com/jeranaias/repochat-tui/internal/api"
)

// ModelLister is the backend surface the registry needs.
type ModelLister interface {
	ListModels(ctx context.Context) ([]api.Model, error)
}

// Registry tracks which models the backend can serve and which one is
// active. Selection rules on refresh: a still-listed current selection
// is kept, otherwise the configured default if listed, otherwise the
// first model, otherwise none. An empty list or a failed fetch leaves
// no active model; submitting without one yields an error notice
// instead of a request.
type Registry struct {
	mu sync.Mutex

	client       ModelLister
	defaultModel string

	models   []api.Model
	selected string

	// generation guards against stale loads: a refresh that started
	// before a newer one completes is discarded.
	generation uint64
}

// NewRegistry creates a registry. client may be nil until the user
// authenticates; Load fails cleanly in that state.
func NewRegistry(client ModelLister, defaultModel string) *Registry {
	return &Registry{client: client, defaultModel: defaultModel}
}

// SetClient swaps the backend client, used when credentials change.
func (r *Registry) SetClient(client ModelLister) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = client
}

// Load fetches the model list and applies the selection rules. On
// failure the previous list is cleared so a dead backend cannot leave
// a phantom selection behind.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	client := r.client
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	if client == nil {
		r.complete(gen, nil)
		return api.ErrUnauthorized
	}

	models, err := client.ListModels(ctx)
	if err != nil {
		r.complete(gen, nil)
		return err
	}
	r.complete(gen, models)
	return nil
}

// complete installs a fetched list unless a newer load superseded it.
func (r *Registry) complete(gen uint64, models []api.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		// A newer load already finished, this result is stale.
		return
	}

	r.models = models
	r.selected = pickModel(models, r.selected, r.defaultModel)
}

// pickModel applies the selection rules against a fresh list.
func pickModel(models []api.Model, current, preferred string) string {
	if len(models) == 0 {
		return ""
	}
	for _, m := range models {
		if m.ID == current && current != "" {
			return current
		}
	}
	for _, m := range models {
		if m.ID == preferred && preferred != "" {
			return preferred
		}
	}
	return models[0].ID
}

// Models returns the last fetched list.
func (r *Registry) Models() []api.Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.Model, len(r.models))
	copy(out, r.models)
	return out
}

// Selected returns the active model, ok=false when none is available.
func (r *Registry) Selected() (api.Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.models {
		if m.ID == r.selected {
			return m, true
		}
	}
	return api.Model{}, false
}

// SelectedID returns the active model ID, empty when none.
func (r *Registry) SelectedID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Select makes a listed model active. Unknown IDs are rejected.
func (r *Registry) Select(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.models {
		if m.ID == id {
			r.selected = id
			return true
		}
	}
	return false
}
