// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for continuum.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
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
	CmdHelp Command = iota
	CmdList
	CmdNew
	CmdSay
	CmdShow
	CmdTree
	CmdApply
	CmdUndo
	CmdRegenerate
	CmdContinue
	CmdEdit
	CmdSwipe
	CmdWatch
	CmdBrowse
	CmdJournal
	CmdDiff
	CmdExport
	CmdServe
	CmdChat
	CmdConfig
	CmdVersion
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdHelp:       "help",
	CmdList:       "list",
	CmdNew:        "new",
	CmdSay:        "say",
	CmdShow:       "show",
	CmdTree:       "tree",
	CmdApply:      "apply",
	CmdUndo:       "undo",
	CmdRegenerate: "regenerate",
	CmdContinue:   "continue",
	CmdEdit:       "edit",
	CmdSwipe:      "swipe",
	CmdWatch:      "watch",
	CmdBrowse:     "browse",
	CmdJournal:    "journal",
	CmdDiff:       "diff",
	CmdExport:     "export",
	CmdServe:      "serve",
	CmdChat:       "chat",
	CmdConfig:     "config",
	CmdVersion:    "version",
}

// String returns the canonical command name.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose    bool
	JSON       bool
	Offline    bool
	NoColor    bool
	Model      string
	ConfigPath string

	// Name is the command as typed, kept for "did you mean" hints.
	Name string

	// Params holds the command's own flags and positionals. Positional 0 is
	// usually the chat reference.
	Params *ArgParser

	// Raw args (remaining after global flag parsing)
	Raw []string
}

// commandBools are flags that never take a value.
var commandBools = []string{"force", "no-reply", "all", "once", "words", "stdout", "open", "no-trees", "gzip"}

const usageText = `continuum - revision trees for chat messages

continuum keeps every continue, regenerate and edit of a chat message in a
tree, so any earlier revision can be brought back.

Usage:
  continuum list                         List saved chats (alias: ls)
  continuum new [--character NAME] [--greeting TEXT]
                                         Create a chat
  continuum say <chat> <text...>         Send a user message and generate a reply
    --no-reply                           Only add the user message
  continuum chat <chat>                  Interactive session with /continue, /undo, /tree...
  continuum show <chat>                  Print the chat with active revisions
  continuum tree <chat> [-m N]           Print the revision tree of a message
  continuum apply <chat> <path> [-m N]   Show the revision at path (e.g. 0/1/0)
  continuum undo <chat> [-m N]           Step back to the parent revision
  continuum regenerate <chat>            Reroll the newest revision (alias: regen)
  continuum continue <chat>              Extend the last message (alias: cont)
  continuum edit <chat> [-m N] <text...> Replace a message's text ("-" reads stdin)
  continuum swipe <chat> <N|new> [-m N]  Select or generate a top-level alternate
  continuum watch <chat>                 Reconcile external edits to the chat file
  continuum browse <chat> [-m N]         Interactive tree browser
  continuum journal [chat] [-m N] [--op OP] [--limit N]
                                         Show recorded tree changes (alias: log)
  continuum journal prune --days N       Delete journal entries older than N days
  continuum diff <chat> <path> [path] [-m N] [--words] [--context N]
                                         Compare two revisions (default: against active)
  continuum export <chat> [--format md|json|html] [--out DIR] [--stdout]
                 [--open] [--no-trees] [--gzip] [--theme dark|light]
                                         Write the chat and its trees to a file
  continuum serve [--addr HOST:PORT] [--token TOKEN]
                                         Serve chats and trees over a JSON HTTP API
  continuum config [show|path|init|get|set|keys]
                                         Configuration
  continuum version                      Show version information

Chats are referenced by list position (1 = newest), full ID or ID prefix.
-m/--message selects the message index; the default is the last message.

Global Flags:
  --json          Output in JSON format
  -v, --verbose   Log events to stderr
  --offline       Use the scripted generator instead of Ollama
  --model NAME    Override the generation model
  --config PATH   Load configuration from PATH
  --no-color      Disable colored output

Examples:
  continuum new --character Aria --greeting "Hello there."
  continuum continue 1
  continuum tree 1
  continuum apply 1 0/0
  continuum undo 1
  continuum journal 1 --limit 20
  continuum diff 1 0/0 0/1 --words
  continuum export 1 --format html --open
  continuum serve --addr 127.0.0.1:8787

Version: %s
`

// PrintUsage writes the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// VersionData is the result of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer, jsonMode bool) error {
	if jsonMode {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	fmt.Fprintf(w, "continuum version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	return nil
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
// Global flags may appear anywhere.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		parsed.Params = NewArgParser(nil)
		return CmdHelp, parsed
	}

	parsed.Name = remaining[0]
	parsed.Raw = remaining[1:]
	parsed.Params = NewArgParser(parsed.Raw, commandBools...)

	switch strings.ToLower(parsed.Name) {
	case "help", "-h", "--help":
		return CmdHelp, parsed
	case "list", "ls":
		return CmdList, parsed
	case "new":
		return CmdNew, parsed
	case "say":
		return CmdSay, parsed
	case "show":
		return CmdShow, parsed
	case "tree":
		return CmdTree, parsed
	case "apply":
		return CmdApply, parsed
	case "undo":
		return CmdUndo, parsed
	case "regenerate", "regen":
		return CmdRegenerate, parsed
	case "continue", "cont":
		return CmdContinue, parsed
	case "edit":
		return CmdEdit, parsed
	case "swipe":
		return CmdSwipe, parsed
	case "watch":
		return CmdWatch, parsed
	case "browse":
		return CmdBrowse, parsed
	case "journal", "log":
		return CmdJournal, parsed
	case "diff":
		return CmdDiff, parsed
	case "export":
		return CmdExport, parsed
	case "serve":
		return CmdServe, parsed
	case "chat", "repl":
		return CmdChat, parsed
	case "config":
		return CmdConfig, parsed
	case "version", "--version":
		return CmdVersion, parsed
	}
	return CmdUnknown, parsed
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Everything after a bare "--" is left alone.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			remaining = append(remaining, args[i:]...)
			return remaining, parsed
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--json":
			parsed.JSON = true
		case arg == "--offline":
			parsed.Offline = true
		case arg == "--no-color":
			parsed.NoColor = true
		case arg == "--model" || arg == "--config":
			if i+1 < len(args) {
				i++
				if arg == "--model" {
					parsed.Model = args[i]
				} else {
					parsed.ConfigPath = args[i]
				}
			}
		case strings.HasPrefix(arg, "--model="):
			parsed.Model = strings.TrimPrefix(arg, "--model=")
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

// messageIndex reads -m/--message, defaulting to fallback.
func (a Args) messageIndex(fallback int) (int, error) {
	raw := a.Params.Flag("message")
	if raw == "" {
		raw = a.Params.Flag("m")
	}
	if raw == "" {
		return fallback, nil
	}
	idx, err := ParseIntWithValidation(raw, "message index")
	if err != nil {
		return 0, &ValidationError{Field: "message", Value: raw, Reason: err.Error()}
	}
	return idx, nil
}
