// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - argument parsing and command dispatch for repochat.
package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdModels
	CmdRepos
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string
	Repo    string
	Plain   bool // disable markdown rendering

	// Command-specific
	Query      string
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `repochat - chat with an indexed repository from your terminal

Usage:
  repochat                        Launch the interactive TUI
  repochat ask [question]         Ask a single question and exit
  repochat chat                   Start a line-based chat REPL
  repochat models                 List available models
  repochat repos                  List available repositories
  repochat sessions               List stored chat sessions
  repochat config get KEY         Show a configuration value
  repochat config set KEY VALUE   Change a configuration value
  repochat version                Show version information

Flags:
  -m, --model NAME    Use a specific model
  -r, --repo OWNER/NAME  Chat against a specific repository
  --plain             Disable markdown rendering
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output
  -h, --help          Show this help

Configuration lives at ~/.repochat/config.toml. Set REPOCHAT_TOKEN or
api.auth_token before first use.
`

// Usage returns the top-level help text.
func Usage() string { return usageText }

// ParseArgs parses os.Args[1:] into a command and its arguments.
func ParseArgs(argv []string) (Command, Args, error) {
	args := Args{}
	var positional []string

	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "-h" || a == "--help":
			return CmdHelp, args, nil
		case a == "-q" || a == "--quiet":
			args.Quiet = true
		case a == "-v" || a == "--verbose":
			args.Verbose = true
		case a == "--plain":
			args.Plain = true
		case a == "-m" || a == "--model":
			if i+1 >= len(argv) {
				return CmdHelp, args, fmt.Errorf("%s requires a value", a)
			}
			i++
			args.Model = argv[i]
		case strings.HasPrefix(a, "--model="):
			args.Model = strings.TrimPrefix(a, "--model=")
		case a == "-r" || a == "--repo":
			if i+1 >= len(argv) {
				return CmdHelp, args, fmt.Errorf("%s requires a value", a)
			}
			i++
			args.Repo = argv[i]
		case strings.HasPrefix(a, "--repo="):
			args.Repo = strings.TrimPrefix(a, "--repo=")
		case strings.HasPrefix(a, "-"):
			return CmdHelp, args, fmt.Errorf("unknown flag: %s", a)
		default:
			positional = append(positional, a)
		}
	}

	if len(positional) == 0 {
		return CmdTUI, args, nil
	}

	cmd := positional[0]
	rest := positional[1:]
	args.Raw = rest

	switch cmd {
	case "ask":
		if len(rest) == 0 {
			return CmdHelp, args, fmt.Errorf("ask requires a question")
		}
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args, nil
	case "chat":
		return CmdChat, args, nil
	case "models":
		return CmdModels, args, nil
	case "repos":
		return CmdRepos, args, nil
	case "sessions":
		return CmdSessions, args, nil
	case "config":
		if len(rest) == 0 {
			return CmdHelp, args, fmt.Errorf("config requires get or set")
		}
		args.Subcommand = rest[0]
		switch args.Subcommand {
		case "get":
			if len(rest) < 2 {
				return CmdHelp, args, fmt.Errorf("config get requires a key")
			}
			args.ConfigKey = rest[1]
		case "set":
			if len(rest) < 3 {
				return CmdHelp, args, fmt.Errorf("config set requires a key and value")
			}
			args.ConfigKey = rest[1]
			args.ConfigVal = rest[2]
		default:
			return CmdHelp, args, fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
		}
		return CmdConfig, args, nil
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, fmt.Errorf("unknown command: %s", cmd)
	}
}

// VersionString formats the build information.
func VersionString() string {
	return fmt.Sprintf("repochat %s (%s, %s)", Version, GitCommit, BuildDate)
}
