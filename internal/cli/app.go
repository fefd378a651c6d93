// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - shared command environment and the one-shot commands.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/chat"
	"github.com/jeranaias/repochat-tui/internal/config"
	"github.com/jeranaias/repochat-tui/internal/model"
	"github.com/jeranaias/repochat-tui/internal/storage"
	"github.com/jeranaias/repochat-tui/internal/util"
)

// App bundles the wired engine for the CLI commands. main constructs
// one and dispatches to the Run* handlers.
type App struct {
	Cfg        *config.Config
	Controller *chat.Controller
	Registry   *chat.Registry
	Store      *storage.SessionStore
}

// =============================================================================
// REPOSITORY RESOLUTION
// =============================================================================

// resolveRepo picks the repository to chat against. An explicit
// owner/name or ID wins; otherwise a single available repository is
// used implicitly.
func (a *App) resolveRepo(ctx context.Context, want string) (api.DataSource, error) {
	repos, err := a.Controller.Repositories(ctx)
	if err != nil {
		return api.DataSource{}, fmt.Errorf("listing repositories: %w", err)
	}
	if len(repos) == 0 {
		return api.DataSource{}, fmt.Errorf("no repositories are indexed for chat")
	}

	if want == "" {
		if len(repos) == 1 {
			return repos[0], nil
		}
		return api.DataSource{}, fmt.Errorf("multiple repositories available, pick one with --repo")
	}

	for _, r := range repos {
		if r.ID == want || strings.EqualFold(r.FullName(), want) {
			return r, nil
		}
	}
	return api.DataSource{}, fmt.Errorf("repository %q not found", want)
}

// prepare loads models, applies the --model override, and selects the
// repository. Shared by ask and the REPL.
func (a *App) prepare(ctx context.Context, args Args) error {
	if err := a.Registry.Load(ctx); err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	if args.Model != "" && !a.Registry.Select(args.Model) {
		return fmt.Errorf("model %q is not available", args.Model)
	}

	repo, err := a.resolveRepo(ctx, args.Repo)
	if err != nil {
		return err
	}
	return a.Controller.SelectRepository(ctx, repo)
}

// =============================================================================
// ASK
// =============================================================================

// RunAsk sends one question and prints the reply.
func (a *App) RunAsk(ctx context.Context, args Args) error {
	if err := a.prepare(ctx, args); err != nil {
		return err
	}

	// Piped output streams chunks as they arrive. On a TTY the full
	// reply renders as markdown once it settles.
	live := args.Plain || !IsTerminal()
	var printed int
	if live {
		a.Controller.SetNotify(func() {
			if text, ok := pendingText(a.Controller); ok && len(text) > printed {
				fmt.Print(text[printed:])
				printed = len(text)
			}
		})
	}

	err := a.Controller.Submit(ctx, args.Query)
	a.Controller.SetNotify(nil)

	view, ok := lastReply(a.Controller)
	if !ok {
		if err != nil {
			return err
		}
		return fmt.Errorf("no response received")
	}

	if live {
		// Flush whatever the notify hook did not catch.
		if len(view.Text) > printed {
			fmt.Print(view.Text[printed:])
		}
		fmt.Println()
	} else if view.IsError {
		printError(view.Text)
	} else {
		displayResponse(view.Text, args.Plain)
	}

	if view.TraceURL != "" && !args.Quiet {
		fmt.Println(traceStyle.Render("trace: " + view.TraceURL))
	}
	if view.IsError {
		return fmt.Errorf("request failed")
	}
	return err
}

// pendingText returns the text of the still-streaming reply.
func pendingText(c *chat.Controller) (string, bool) {
	for _, v := range c.Snapshot() {
		if v.IsLoading {
			return v.Text, true
		}
	}
	return "", false
}

// lastReply returns the final non-user entry of the transcript.
func lastReply(c *chat.Controller) (chat.MessageView, bool) {
	views := c.Snapshot()
	for i := len(views) - 1; i >= 0; i-- {
		if views[i].Author != model.AuthorUser {
			return views[i], true
		}
	}
	return chat.MessageView{}, false
}

// =============================================================================
// LISTING COMMANDS
// =============================================================================

// RunModels prints the available models.
func (a *App) RunModels(ctx context.Context, args Args) error {
	if err := a.Registry.Load(ctx); err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	models := a.Registry.Models()
	if len(models) == 0 {
		printInfo("no models available")
		return nil
	}
	selected := a.Registry.SelectedID()
	for _, m := range models {
		marker := "  "
		if m.ID == selected {
			marker = "* "
		}
		fmt.Printf("%s%-30s %s\n", marker, m.ID, m.Provider)
	}
	return nil
}

// RunRepos prints the repositories available for chat.
func (a *App) RunRepos(ctx context.Context, args Args) error {
	repos, err := a.Controller.Repositories(ctx)
	if err != nil {
		return fmt.Errorf("listing repositories: %w", err)
	}
	if len(repos) == 0 {
		printInfo("no repositories available")
		return nil
	}
	for _, r := range repos {
		fmt.Printf("%-40s %s\n", r.FullName(), r.Status)
	}
	return nil
}

// RunSessions prints the stored repository-to-session mappings, most
// recently used first.
func (a *App) RunSessions() error {
	recs, err := a.Store.List()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(recs) == 0 {
		printInfo("no stored sessions")
		return nil
	}
	now := time.Now()
	for _, rec := range recs {
		fmt.Printf("%s %s  %s\n",
			util.PadWidth(rec.RepoID, 40),
			util.TruncateRunes(rec.SessionID, 8),
			util.FormatRelative(rec.UpdatedAt, now))
	}
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// RunConfig handles config get and config set.
func (a *App) RunConfig(args Args) error {
	switch args.Subcommand {
	case "get":
		val, err := configGet(a.Cfg, args.ConfigKey)
		if err != nil {
			return err
		}
		fmt.Println(val)
		return nil
	case "set":
		if err := configSet(a.Cfg, args.ConfigKey, args.ConfigVal); err != nil {
			return err
		}
		if err := a.Cfg.Validate(); err != nil {
			return err
		}
		return config.Save(a.Cfg)
	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
	}
}

func configGet(cfg *config.Config, key string) (string, error) {
	switch key {
	case "api.base_url":
		return cfg.API.BaseURL, nil
	case "api.auth_token":
		if cfg.API.AuthToken == "" {
			return "", nil
		}
		// SECURITY: Never echo the token back.
		return "(set)", nil
	case "api.default_model":
		return cfg.API.DefaultModel, nil
	case "api.timeout_secs":
		return strconv.Itoa(cfg.API.TimeoutSecs), nil
	case "ui.theme":
		return cfg.UI.Theme, nil
	case "ui.show_timestamps":
		return strconv.FormatBool(cfg.UI.ShowTimestamps), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func configSet(cfg *config.Config, key, val string) error {
	switch key {
	case "api.base_url":
		cfg.API.BaseURL = val
	case "api.auth_token":
		cfg.API.AuthToken = val
	case "api.default_model":
		cfg.API.DefaultModel = val
	case "api.timeout_secs":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("timeout_secs must be a number")
		}
		cfg.API.TimeoutSecs = n
	case "ui.theme":
		cfg.UI.Theme = val
	case "ui.show_timestamps":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("show_timestamps must be true or false")
		}
		cfg.UI.ShowTimestamps = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
