// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - line-based interactive chat.
//
// Interactive commands:
//   /help, /h        Show available commands
//   /model [id]      Show or switch model
//   /repo [name]     Show or switch repository
//   /history         Re-print the conversation so far
//   /new             Start a fresh session for this repository
//   /quit, /q        Exit
//   Ctrl+C           Cancel the current response
//   Ctrl+D           Exit
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/repochat-tui/internal/config"
	"github.com/jeranaias/repochat-tui/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with persistent input history.
// USABILITY: arrow keys navigate history across sessions.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *lineReader) close() {
	if f, err := os.Create(r.historyFile); err == nil {
		r.line.WriteHistory(f)
		f.Close()
		os.Chmod(r.historyFile, 0600)
	}
	r.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// RunChat starts the interactive line-based chat loop.
func (a *App) RunChat(ctx context.Context, args Args) error {
	if err := a.prepare(ctx, args); err != nil {
		return err
	}

	reader := newLineReader()
	defer reader.close()

	if !args.Quiet {
		a.printWelcome()
	}

	// Ctrl+C during a response cancels it instead of killing the
	// process. liner handles Ctrl+C at the prompt itself.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			a.Controller.CancelSubmission()
		}
	}()

	for {
		input, err := reader.read(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			// io.EOF from Ctrl+D
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := a.handleSlashCommand(ctx, input, args); quit {
				return nil
			}
			continue
		}

		a.streamReply(ctx, input, args)
	}
}

// streamReply submits a query and prints the reply as it arrives.
func (a *App) streamReply(ctx context.Context, query string, args Args) {
	var printed int
	a.Controller.SetNotify(func() {
		if text, ok := pendingText(a.Controller); ok && len(text) > printed {
			fmt.Print(text[printed:])
			printed = len(text)
		}
	})

	err := a.Controller.Submit(ctx, query)
	a.Controller.SetNotify(nil)

	view, ok := lastReply(a.Controller)
	if !ok {
		if err != nil {
			printError(err.Error())
		}
		return
	}

	if view.IsError {
		if printed > 0 {
			fmt.Println()
		}
		printError(view.Text)
	} else {
		if len(view.Text) > printed {
			fmt.Print(view.Text[printed:])
		}
		fmt.Println()
		if view.TraceURL != "" && args.Verbose {
			fmt.Println(traceStyle.Render("trace: " + view.TraceURL))
		}
	}
	fmt.Println()
}

// handleSlashCommand runs one /command, returning true on /quit.
func (a *App) handleSlashCommand(ctx context.Context, input string, args Args) bool {
	fields := strings.Fields(input)
	cmd := fields[0]
	var arg string
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		printInfo("/model [id]   show or switch model")
		printInfo("/repo [name]  show or switch repository")
		printInfo("/history      re-print the conversation")
		printInfo("/new          start a fresh session")
		printInfo("/quit         exit")

	case "/model":
		if arg == "" {
			for _, m := range a.Registry.Models() {
				marker := "  "
				if m.ID == a.Registry.SelectedID() {
					marker = "* "
				}
				printInfo(marker + m.ID)
			}
			break
		}
		if a.Registry.Select(arg) {
			printInfo("model: " + arg)
		} else {
			printError(fmt.Sprintf("model %q is not available", arg))
		}

	case "/repo":
		if arg == "" {
			if repo, ok := a.Controller.Repository(); ok {
				printInfo("repository: " + repo.FullName())
			} else {
				printInfo("no repository selected")
			}
			break
		}
		repo, err := a.resolveRepo(ctx, arg)
		if err != nil {
			printError(err.Error())
			break
		}
		if err := a.Controller.SelectRepository(ctx, repo); err != nil {
			printError(err.Error())
			break
		}
		printInfo("repository: " + repo.FullName())
		a.printTranscript(args)

	case "/history":
		a.printTranscript(args)

	case "/new":
		if err := a.Controller.ResetSession(ctx); err != nil {
			printError(err.Error())
		} else {
			printInfo("started a fresh session")
		}

	default:
		printError("unknown command: " + cmd + " (try /help)")
	}
	return false
}

// printTranscript re-prints the loaded conversation.
func (a *App) printTranscript(args Args) {
	views := a.Controller.Snapshot()
	if len(views) == 0 {
		printInfo("no messages yet")
		return
	}
	for _, v := range views {
		switch {
		case v.IsError:
			printError(v.Text)
		case v.Author == model.AuthorUser:
			fmt.Println(promptStyle.Render("you> ") + v.Text)
		default:
			displayResponse(v.Text, args.Plain)
		}
		fmt.Println()
	}
}

func (a *App) printWelcome() {
	fmt.Println(welcomeStyle.Render("repochat"))
	if repo, ok := a.Controller.Repository(); ok {
		printInfo("repository: " + repo.FullName())
	}
	if sel, ok := a.Registry.Selected(); ok {
		printInfo("model: " + sel.DisplayName())
	}
	printInfo("type /help for commands, Ctrl+D to exit")
	fmt.Println()
}
