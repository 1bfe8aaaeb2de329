// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat_cmd.go - The interactive "chat" command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/continuum/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlash)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file, readable by the owner only.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashCommands maps REPL commands to the CLI commands they run against
// the open chat.
var slashCommands = map[string]string{
	"continue":   "continue",
	"cont":       "continue",
	"regenerate": "regenerate",
	"regen":      "regenerate",
	"undo":       "undo",
	"apply":      "apply",
	"tree":       "tree",
	"show":       "show",
	"diff":       "diff",
	"swipe":      "swipe",
	"edit":       "edit",
	"journal":    "journal",
	"export":     "export",
}

const chatHelp = `Type a message to send it and generate a reply.

  /continue            Extend the last message (alias /cont)
  /regen               Reroll the newest revision
  /undo [-m N]         Step back to the parent revision
  /apply PATH [-m N]   Show the revision at PATH
  /tree [-m N]         Print the revision tree
  /diff A [B] [--words]
  /swipe N|new         Select or generate an alternate
  /edit [-m N] TEXT    Replace a message's text
  /show, /journal, /export
  /quit                Leave (also Ctrl+D)`

// suggestSlash returns the slash command closest to a mistyped name.
func suggestSlash(name string) string {
	names := []string{"help", "quit"}
	for n := range slashCommands {
		names = append(names, n)
	}
	return closest(strings.ToLower(name), names)
}

func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, name := range []string{"help", "quit"} {
		if strings.HasPrefix("/"+name, line) {
			out = append(out, "/"+name)
		}
	}
	for name := range slashCommands {
		if strings.HasPrefix("/"+name, line) {
			out = append(out, "/"+name)
		}
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// REPL
// =============================================================================

// HandleChat opens an interactive session on one chat. Lines are sent as
// user messages; slash commands run tree operations on the same chat.
func HandleChat(ctx context.Context, a *App, args Args) error {
	chat, err := a.LoadChat(args.Params.Positional(0))
	if err != nil {
		return err
	}
	if !IsTTY() {
		return &ValidationError{Field: "stdin", Reason: "chat needs an interactive terminal", Example: `continuum say 1 "Hello"`}
	}

	in := NewChatCLI()
	defer in.Close()

	fmt.Fprintf(a.Out, "%s chatting with %s %s\n\n", InfoStyle.Render("●"), chat.Character, DimStyle.Render("(/help for commands, Ctrl+D to leave)"))
	prompt := chat.UserName
	if prompt == "" {
		prompt = "you"
	}

	for ctx.Err() == nil {
		input, err := in.ReadInput(prompt + "> ")
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal.
			fmt.Fprintln(a.Out)
			return nil
		}
		quit, err := a.chatLine(ctx, chat.ID, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if quit {
			return nil
		}
	}
	return nil
}

// chatLine runs one line of REPL input against the chat with id.
func (a *App) chatLine(ctx context.Context, id, input string) (quit bool, err error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return false, nil
	case input == "/quit", input == "/exit", strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return true, nil
	case input == "/help":
		fmt.Fprintln(a.Out, chatHelp)
		return false, nil
	case strings.HasPrefix(input, "/"):
		fields := strings.Fields(input[1:])
		if len(fields) == 0 {
			return false, nil
		}
		name, ok := slashCommands[strings.ToLower(fields[0])]
		if !ok {
			example := "/help"
			if s := suggestSlash(fields[0]); s != "" {
				example = "/" + s
			}
			return false, &ValidationError{Field: "command", Value: "/" + fields[0], Reason: "unknown chat command", Example: example}
		}
		return false, a.runChatCommand(ctx, append([]string{name, id}, fields[1:]...))
	default:
		return false, a.runChatCommand(ctx, []string{"say", id, input})
	}
}

// runChatCommand runs argv against the open app. No-ops are reported but
// are not errors inside a session.
func (a *App) runChatCommand(ctx context.Context, argv []string) error {
	cmd, args := ParseArgs(argv)
	err := RunWithApp(ctx, a, cmd, args)
	var noChange *NoChangeError
	if errors.As(err, &noChange) {
		fmt.Fprintf(a.Out, "%s %s\n", RenderStatus("unchanged"), noChange.Error())
		return nil
	}
	return err
}
