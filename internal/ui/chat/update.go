// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat-tui/internal/config"
	"github.com/jeranaias/repochat-tui/internal/ui/components"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.renderTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamTickMsg:
		if !m.controller.Busy() {
			m.renderTranscript()
			return m, nil
		}
		m.renderTranscript()
		return m, streamTickCmd()

	case ModelsLoadedMsg:
		if msg.Err != nil {
			m.status = "model list unavailable: " + util.FirstLine(msg.Err.Error())
		} else if sel, ok := m.registry.Selected(); ok {
			m.status = "model: " + sel.DisplayName()
		}
		return m, nil

	case ReposLoadedMsg:
		if msg.Err != nil {
			m.status = "repository list unavailable: " + util.FirstLine(msg.Err.Error())
			return m, nil
		}
		m.repos = msg.Repos
		return m, nil

	case RepoSelectedMsg:
		// Failures already landed in the transcript as error notices.
		m.renderTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case SubmitFinishedMsg:
		m.renderTranscript()
		return m, nil

	case ConfigReloadedMsg:
		var cmds []tea.Cmd
		if msg.Config != nil {
			if msg.Config.API != m.cfg.API {
				cmds = append(cmds, reconnectCmd(m.controller, m.registry, msg.Config.API))
			}
			m.applyConfig(msg.Config)
		}
		if m.watcher != nil {
			cmds = append(cmds, watchConfigCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)
	}

	return m.updateChildren(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	if m.pickerKind != pickerNone {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.controller.CancelSubmission()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.controller.Busy() {
			m.controller.CancelSubmission()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		query := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		m.renderTranscript()
		return m, tea.Batch(submitCmd(m.controller, query), streamTickCmd())

	case key.Matches(msg, m.keys.PickRepo):
		return m.openRepoPicker()

	case key.Matches(msg, m.keys.PickModel):
		return m.openModelPicker()

	case key.Matches(msg, m.keys.ResetSession):
		if _, ok := m.controller.Repository(); ok && !m.controller.Busy() {
			return m, resetSessionCmd(m.controller)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	return m.updateChildren(msg)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "esc":
		m.pickerKind = pickerNone
	case "enter":
		item, ok := m.picker.Selected()
		kind := m.pickerKind
		m.pickerKind = pickerNone
		if !ok {
			return m, nil
		}
		switch kind {
		case pickerModel:
			if m.registry.Select(item.ID) {
				m.status = "model: " + item.Label
			}
		case pickerRepo:
			for _, repo := range m.repos {
				if repo.ID == item.ID {
					return m, selectRepoCmd(m.controller, repo)
				}
			}
		}
	}
	return m, nil
}

func (m Model) openRepoPicker() (tea.Model, tea.Cmd) {
	if m.controller.Busy() {
		m.status = "finish the current response first"
		return m, nil
	}

	items := make([]components.SelectorItem, 0, len(m.repos))
	for _, repo := range m.repos {
		items = append(items, components.SelectorItem{
			ID:     repo.ID,
			Label:  repo.FullName(),
			Detail: repo.Status,
		})
	}

	var currentID string
	if repo, ok := m.controller.Repository(); ok {
		currentID = repo.ID
	}
	m.picker = components.NewSelector("Select repository", items, currentID)
	m.pickerKind = pickerRepo

	// Refresh the list in the background while the stale one shows.
	return m, loadReposCmd(m.controller)
}

func (m Model) openModelPicker() (tea.Model, tea.Cmd) {
	models := m.registry.Models()
	items := make([]components.SelectorItem, 0, len(models))
	for _, mdl := range models {
		items = append(items, components.SelectorItem{
			ID:     mdl.ID,
			Label:  mdl.DisplayName(),
			Detail: mdl.Provider,
		})
	}

	m.picker = components.NewSelector("Select model", items, m.registry.SelectedID())
	m.pickerKind = pickerModel
	return m, loadModelsCmd(m.registry)
}

// applyConfig picks up a hot-reloaded configuration. Theme and display
// toggles take effect immediately; backend changes are handled by the
// reconnect command issued from the update loop.
func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.theme = styles.NewTheme(cfg.UI.Theme)
	m.input.PromptStyle = m.theme.InputPrompt
	m.spinner.Style = m.theme.Streaming
	m.cacheKey = ""
	m.renderTranscript()
	m.status = "configuration reloaded"
}

func (m Model) updateChildren(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}
