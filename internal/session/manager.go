// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/repochat-tui/internal/storage"
)

// Store is the durable repository-to-session mapping the manager sits
// on top of. *storage.SessionStore satisfies it.
type Store interface {
	Get(repoID string) (string, error)
	Put(repoID, sessionID string) error
	Delete(repoID string) error
	Clear() error
}

// Handle identifies the conversation for one repository.
type Handle struct {
	// SessionID is the stable UUID the backend keys history on.
	SessionID string

	// RepoID is the repository this session belongs to.
	RepoID string

	// IsNew is true when the ID was just generated, meaning there is no
	// history to load.
	IsNew bool
}

// Manager resolves repositories to session IDs. Each repository gets a
// stable UUID on first use; the mapping persists until logout or an
// explicit invalidation, so deselecting and reselecting a repository
// resumes the same conversation.
type Manager struct {
	mu    sync.Mutex
	store Store
}

// NewManager creates a manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Resolve returns the session handle for a repository, creating and
// persisting a new ID when none exists. Returns nil without error when
// there is nothing to resolve: no authentication or no repository.
func (m *Manager) Resolve(repoID string, authenticated bool) (*Handle, error) {
	if !authenticated || repoID == "" {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.Get(repoID)
	if err == nil {
		return &Handle{SessionID: existing, RepoID: repoID}, nil
	}
	if !errors.Is(err, storage.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	id := uuid.NewString()
	if err := m.store.Put(repoID, id); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return &Handle{SessionID: id, RepoID: repoID, IsNew: true}, nil
}

// Invalidate drops the mapping for one repository. The next Resolve
// starts a fresh conversation.
func (m *Manager) Invalidate(repoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(repoID)
}

// Reset drops all mappings. Called on logout.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Clear()
}
