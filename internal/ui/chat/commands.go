// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/chat"
	"github.com/jeranaias/repochat-tui/internal/config"
)

// =============================================================================
// COMMANDS
// =============================================================================
// Controller calls block on the network, so every one runs inside a
// tea.Cmd goroutine and reports back with a message.

func loadModelsCmd(registry *chat.Registry) tea.Cmd {
	return func() tea.Msg {
		return ModelsLoadedMsg{Err: registry.Load(context.Background())}
	}
}

func loadReposCmd(controller *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		repos, err := controller.Repositories(context.Background())
		return ReposLoadedMsg{Repos: repos, Err: err}
	}
}

func selectRepoCmd(controller *chat.Controller, repo api.DataSource) tea.Cmd {
	return func() tea.Msg {
		return RepoSelectedMsg{Err: controller.SelectRepository(context.Background(), repo)}
	}
}

func resetSessionCmd(controller *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		return RepoSelectedMsg{Err: controller.ResetSession(context.Background())}
	}
}

func submitCmd(controller *chat.Controller, query string) tea.Cmd {
	return func() tea.Msg {
		return SubmitFinishedMsg{Err: controller.Submit(context.Background(), query)}
	}
}

// reconnectCmd rebuilds the backend client after the auth token or base
// URL changed, swaps it into the controller and registry, and refreshes
// the model list against the new backend.
func reconnectCmd(controller *chat.Controller, registry *chat.Registry, apiCfg config.APIConfig) tea.Cmd {
	return func() tea.Msg {
		if apiCfg.AuthToken == "" {
			controller.SetBackend(nil)
			registry.SetClient(nil)
			return ModelsLoadedMsg{Err: api.ErrUnauthorized}
		}
		client, err := api.NewClient(apiCfg.BaseURL, apiCfg.AuthToken)
		if err != nil {
			return ModelsLoadedMsg{Err: err}
		}
		controller.SetBackend(client)
		registry.SetClient(client)
		return ModelsLoadedMsg{Err: registry.Load(context.Background())}
	}
}

// watchConfigCmd blocks on the watcher until the next reload. The
// update loop re-issues it after each ConfigReloadedMsg.
func watchConfigCmd(w *config.Watcher) tea.Cmd {
	return func() tea.Msg {
		cfg, ok := <-w.Changes()
		if !ok {
			return nil
		}
		return ConfigReloadedMsg{Config: cfg}
	}
}
