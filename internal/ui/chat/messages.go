// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/config"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// ModelsLoadedMsg reports the result of refreshing the model registry.
type ModelsLoadedMsg struct {
	Err error
}

// ReposLoadedMsg carries the available data sources for the repo picker.
type ReposLoadedMsg struct {
	Repos []api.DataSource
	Err   error
}

// RepoSelectedMsg reports that a repository switch (and its history
// load) finished.
type RepoSelectedMsg struct {
	Err error
}

// SubmitFinishedMsg reports that an in-flight submission settled, for
// any reason. The transcript already holds the outcome.
type SubmitFinishedMsg struct {
	Err error
}

// ConfigReloadedMsg carries a freshly reloaded configuration from the
// file watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// StreamTickMsg drives transcript re-renders while a response streams.
type StreamTickMsg struct {
	At time.Time
}
