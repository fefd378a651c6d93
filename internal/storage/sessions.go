// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound means no session is stored for the repository.
	ErrSessionNotFound = errors.New("no session for repository")

	// ErrDatabase wraps unexpected database failures.
	ErrDatabase = errors.New("session database error")
)

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore persists the repository-to-session mapping in SQLite so
// conversations resume across restarts. Writes are last-write-wins; two
// instances racing on the same repository simply leave one winner, which
// is acceptable for a per-user store.
type SessionStore struct {
	db *sql.DB
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	repo_id    TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// OpenSessionStore opens (creating if needed) the session database at
// path. The parent directory is created with owner-only permissions.
func OpenSessionStore(path string) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	// Single connection avoids SQLITE_BUSY with the pure Go driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &SessionStore{db: db}, nil
}

// Close releases the database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Get returns the session ID stored for a repository, or
// ErrSessionNotFound.
func (s *SessionStore) Get(repoID string) (string, error) {
	var sessionID string
	err := s.db.QueryRow(
		`SELECT session_id FROM sessions WHERE repo_id = ?`, repoID,
	).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return sessionID, nil
}

// Put stores or replaces the session ID for a repository.
func (s *SessionStore) Put(repoID, sessionID string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (repo_id, session_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(repo_id) DO UPDATE SET session_id = excluded.session_id, updated_at = excluded.updated_at`,
		repoID, sessionID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return nil
}

// Delete removes the mapping for one repository. Deleting a missing
// mapping is not an error.
func (s *SessionStore) Delete(repoID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE repo_id = ?`, repoID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return nil
}

// Clear removes all mappings. Used on logout.
func (s *SessionStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return nil
}

// SessionRecord is one stored repository-to-session mapping.
type SessionRecord struct {
	RepoID    string
	SessionID string
	UpdatedAt time.Time
}

// List returns all stored mappings, most recently updated first.
func (s *SessionStore) List() ([]SessionRecord, error) {
	rows, err := s.db.Query(`SELECT repo_id, session_id, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var updated int64
		if err := rows.Scan(&rec.RepoID, &rec.SessionID, &updated); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		rec.UpdatedAt = time.Unix(updated, 0)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return out, nil
}
