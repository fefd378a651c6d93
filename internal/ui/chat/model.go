// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/chat"
	"github.com/jeranaias/repochat-tui/internal/config"
	"github.com/jeranaias/repochat-tui/internal/ui/components"
	"github.com/jeranaias/repochat-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// pickerKind identifies which overlay is open.
type pickerKind int

const (
	pickerNone pickerKind = iota
	pickerRepo
	pickerModel
)

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	controller *chat.Controller
	registry   *chat.Registry
	watcher    *config.Watcher

	cfg   *config.Config
	theme styles.Theme
	keys  KeyMap

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	picker     components.Selector
	pickerKind pickerKind
	repos      []api.DataSource

	// status holds a transient footer notice, cleared on the next
	// keypress.
	status string

	// Transcript rendering is cached between frames. The cache key
	// changes whenever width or snapshot content changes, so idle
	// frames cost a string compare instead of a full re-render.
	renderCache string
	cacheKey    string
}

// New creates the chat interface. watcher may be nil when config
// watching is disabled.
func New(controller *chat.Controller, registry *chat.Registry, cfg *config.Config, watcher *config.Watcher) Model {
	theme := styles.NewTheme(cfg.UI.Theme)

	input := textinput.New()
	input.Placeholder = "Ask about the repository..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = theme.Streaming

	return Model{
		controller: controller,
		registry:   registry,
		watcher:    watcher,
		cfg:        cfg,
		theme:      theme,
		keys:       DefaultKeyMap(),
		input:      input,
		spinner:    sp,
	}
}

// Init starts the model registry load, the repository list fetch, and
// the config watcher pump.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spinner.Tick,
		loadModelsCmd(m.registry),
		loadReposCmd(m.controller),
	}
	if m.watcher != nil {
		cmds = append(cmds, watchConfigCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

// resize recomputes the layout after a terminal size change.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	// transcript gets everything above the input, help, and status rows
	chromeHeight := 4
	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 4
	m.cacheKey = ""
}

// repoLabel returns the status-bar label for the active repository.
func (m Model) repoLabel() string {
	repo, ok := m.controller.Repository()
	if !ok {
		return ""
	}
	return repo.FullName()
}

// stateLabel returns the status-bar state field.
func (m Model) stateLabel() string {
	switch {
	case m.controller.Busy():
		return "streaming"
	case !m.controller.Authenticated():
		return "offline"
	default:
		return "ready"
	}
}

func (m Model) helpLine() string {
	hints := []string{
		renderHint(m.keys.Submit),
		renderHint(m.keys.PickRepo),
		renderHint(m.keys.PickModel),
		renderHint(m.keys.ResetSession),
		renderHint(m.keys.Quit),
	}
	if m.controller.Busy() {
		hints = append([]string{renderHint(m.keys.Cancel)}, hints...)
	}
	return components.Help(m.theme, m.width, hints...)
}

func renderHint(b key.Binding) string {
	h := b.Help()
	return lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(h.Key) +
		" " + h.Desc
}
