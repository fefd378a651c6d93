// repochat - chat with an indexed repository from your terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/chat"
	"github.com/jeranaias/repochat-tui/internal/cli"
	"github.com/jeranaias/repochat-tui/internal/config"
	"github.com/jeranaias/repochat-tui/internal/session"
	"github.com/jeranaias/repochat-tui/internal/storage"
	uichat "github.com/jeranaias/repochat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, cli.Usage())
		os.Exit(2)
	}

	switch cmd {
	case cli.CmdHelp:
		fmt.Print(cli.Usage())
		return
	case cli.CmdVersion:
		fmt.Println(cli.VersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	app, store, err := buildApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	ctx := context.Background()

	switch cmd {
	case cli.CmdTUI:
		runTUI(app, cfg)
	case cli.CmdAsk:
		exitOnError(app.RunAsk(ctx, args))
	case cli.CmdChat:
		exitOnError(app.RunChat(ctx, args))
	case cli.CmdModels:
		exitOnError(app.RunModels(ctx, args))
	case cli.CmdRepos:
		exitOnError(app.RunRepos(ctx, args))
	case cli.CmdSessions:
		exitOnError(app.RunSessions())
	case cli.CmdConfig:
		exitOnError(app.RunConfig(args))
	default:
		runTUI(app, cfg)
	}
}

// buildApp wires the engine: API client, session store, registry, and
// controller. The client stays nil until a token is configured so the
// TUI can start and show what is missing.
func buildApp(cfg *config.Config) (*cli.App, *storage.SessionStore, error) {
	dbPath, err := config.SessionDBPath()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving session store path: %w", err)
	}
	store, err := storage.OpenSessionStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session store: %w", err)
	}

	var backend chat.Backend
	if cfg.Authenticated() {
		client, err := api.NewClient(cfg.API.BaseURL, cfg.API.AuthToken)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("configuring API client: %w", err)
		}
		backend = client
	}

	registry := chat.NewRegistry(backend, cfg.API.DefaultModel)
	controller := chat.NewController(backend, registry, session.NewManager(store))

	return &cli.App{
		Cfg:        cfg,
		Controller: controller,
		Registry:   registry,
		Store:      store,
	}, store, nil
}

// runTUI starts the full-screen interface.
func runTUI(app *cli.App, cfg *config.Config) {
	// Config edits take effect live. A failed watcher is not fatal,
	// the TUI just will not hot-reload.
	var watcher *config.Watcher
	if w, err := config.NewWatcher(); err == nil {
		watcher = w
		defer watcher.Close()
	}

	m := uichat.New(app.Controller, app.Registry, cfg, watcher)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Snapshot-driven rendering: transcript mutations only need to wake
	// the program, the next frame reads the current state.
	app.Controller.SetNotify(func() {
		p.Send(uichat.StreamTickMsg{At: time.Now()})
	})

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running repochat: %v\n", err)
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
