// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jeranaias/continuum/internal/config"
	"github.com/jeranaias/continuum/internal/ollama"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/storage"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "flag with value",
			args:    []string{"1", "--message", "3"},
			wantSub: "1",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("message") != "3" {
					t.Errorf("Flag(message) = %q, want %q", p.Flag("message"), "3")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"1", "--op=fork"},
			wantSub: "1",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("op") != "fork" {
					t.Errorf("Flag(op) = %q, want %q", p.Flag("op"), "fork")
				}
			},
		},
		{
			name:    "known boolean does not swallow positional",
			args:    []string{"--force", "abc"},
			bools:   []string{"force"},
			wantSub: "abc",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("force") {
					t.Error("BoolFlag(force) should be true")
				}
				if p.Positional(0) != "abc" {
					t.Errorf("Positional(0) = %q, want abc", p.Positional(0))
				}
			},
		},
		{
			name:    "negative number is a value",
			args:    []string{"1", "-m", "-1"},
			wantSub: "1",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("m") != "-1" {
					t.Errorf("Flag(m) = %q, want -1", p.Flag("m"))
				}
			},
		},
		{
			name:    "dash is a positional",
			args:    []string{"1", "-"},
			wantSub: "1",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "-" {
					t.Errorf("Positional(1) = %q, want -", p.Positional(1))
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"1", "--", "--not-a-flag", "text"},
			wantSub: "1",
			validate: func(t *testing.T, p *ArgParser) {
				if p.HasFlag("not-a-flag") {
					t.Error("--not-a-flag after -- should be positional")
				}
				joined := strings.Join(p.PositionalFrom(1), " ")
				if joined != "--not-a-flag text" {
					t.Errorf("PositionalFrom(1) = %q", joined)
				}
			},
		},
		{
			name:    "explicit false",
			args:    []string{"--all=false"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("all") {
					t.Error("BoolFlag(all) should be false")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	p := NewArgParser([]string{"--limit", "10", "--days", "x"})
	if got := p.FlagIntOrDefault("limit", 50); got != 10 {
		t.Errorf("FlagIntOrDefault(limit) = %d, want 10", got)
	}
	if got := p.FlagIntOrDefault("days", 30); got != 30 {
		t.Errorf("FlagIntOrDefault(days) = %d, want default 30", got)
	}
	if got := p.FlagIntOrDefault("missing", 7); got != 7 {
		t.Errorf("FlagIntOrDefault(missing) = %d, want 7", got)
	}
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"12", 12, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.input, "index")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntWithValidation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{nil, CmdHelp},
		{[]string{"--help"}, CmdHelp},
		{[]string{"ls"}, CmdList},
		{[]string{"new", "--character", "Aria"}, CmdNew},
		{[]string{"tree", "1"}, CmdTree},
		{[]string{"apply", "1", "0/1"}, CmdApply},
		{[]string{"undo", "1"}, CmdUndo},
		{[]string{"regen", "1"}, CmdRegenerate},
		{[]string{"cont", "1"}, CmdContinue},
		{[]string{"edit", "1", "text"}, CmdEdit},
		{[]string{"swipe", "1", "new"}, CmdSwipe},
		{[]string{"watch", "1"}, CmdWatch},
		{[]string{"browse", "1"}, CmdBrowse},
		{[]string{"log"}, CmdJournal},
		{[]string{"diff", "1", "0/0"}, CmdDiff},
		{[]string{"export", "1", "--stdout"}, CmdExport},
		{[]string{"serve", "--addr", ":9000"}, CmdServe},
		{[]string{"repl", "1"}, CmdChat},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"contnue"}, CmdUnknown},
	}
	for _, tt := range tests {
		got, _ := ParseArgs(tt.argv)
		if got != tt.want {
			t.Errorf("ParseArgs(%v) = %s, want %s", tt.argv, got, tt.want)
		}
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"--json", "tree", "--offline", "1", "--model=llama3.2", "-m", "4", "--config", "/tmp/c.toml", "-v"})
	if cmd != CmdTree {
		t.Fatalf("command = %s, want tree", cmd)
	}
	if !args.JSON || !args.Offline || !args.Verbose {
		t.Errorf("global bools = json:%v offline:%v verbose:%v", args.JSON, args.Offline, args.Verbose)
	}
	if args.Model != "llama3.2" {
		t.Errorf("Model = %q", args.Model)
	}
	if args.ConfigPath != "/tmp/c.toml" {
		t.Errorf("ConfigPath = %q", args.ConfigPath)
	}
	if args.Params.Positional(0) != "1" {
		t.Errorf("chat ref = %q, want 1", args.Params.Positional(0))
	}
	idx, err := args.messageIndex(9)
	if err != nil || idx != 4 {
		t.Errorf("messageIndex = %d, %v; want 4", idx, err)
	}
}

func TestMessageIndexFallback(t *testing.T) {
	_, args := ParseArgs([]string{"tree", "1"})
	idx, err := args.messageIndex(6)
	if err != nil || idx != 6 {
		t.Errorf("messageIndex = %d, %v; want fallback 6", idx, err)
	}

	_, args = ParseArgs([]string{"tree", "1", "--message", "x"})
	if _, err := args.messageIndex(0); err == nil {
		t.Error("expected error for non-numeric message index")
	}
}

// =============================================================================
// SUGGESTION TESTS (suggest.go)
// =============================================================================

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"contnue", "continue"},
		{"tre", "tree"},
		{"brwse", "browse"},
		{"journl", "journal"},
		{"exprot", "export"},
		{"regn", "regenerate"},
		{"rpl", "chat"},
		{"tree", ""},
		{"regen", ""},
		{"x", ""},
		{"zzzzzzzz", ""},
	}
	for _, tt := range tests {
		if got := SuggestCommand(tt.input); got != tt.want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuggestUsage(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"contnue", "continue <chat>"},
		{"aply", "apply <chat> <path>"},
		{"lst", "list"},
		{"zzzzzzzz", ""},
	}
	for _, tt := range tests {
		want := tt.want
		if want != "" {
			want = "continuum " + want
		}
		if got := SuggestUsage(tt.input); got != want {
			t.Errorf("SuggestUsage(%q) = %q, want %q", tt.input, got, want)
		}
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"tree", "tree", 0},
		{"tre", "tree", 1},
		{"exprot", "export", 2},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", ErrMissingArgument("chat", "continuum tree 1"), ExitUsageError},
		{"no change", &NoChangeError{Operation: "undo", Index: 2}, ExitNoChange},
		{"wrapped no change", fmt.Errorf("run: %w", &NoChangeError{Operation: "apply"}), ExitNoChange},
		{"config", config.ValidateErrors{{Field: "ui.color", Message: "bad"}}, ExitConfigError},
		{"not found", fmt.Errorf("resolve: %w", storage.ErrChatNotFound), ExitNotFoundError},
		{"ambiguous", storage.ErrAmbiguousRef, ExitNotFoundError},
		{"ollama down", ollama.ErrNotRunning, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.err); got != tt.want {
			t.Errorf("%s: GetExitCode() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ErrInvalidFormat("path", "a/b", "slash separated indices")
	msg := err.Error()
	for _, want := range []string{"invalid path", "got: a/b", "Example: slash separated indices"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

// =============================================================================
// TREE RENDERING TESTS (tree.go)
// =============================================================================

func TestRenderTree(t *testing.T) {
	ApplyColorMode("never")

	if RenderTree(nil, 10) != "" {
		t.Error("RenderTree(nil) should be empty")
	}

	st := revision.Hydrate(&carrier{text: "Hello"})
	child := st.AppendChild(revision.Path{0}, " world", revision.KindContinue, "Hello world")
	st.AppendChild(revision.Path{0}, " there", revision.KindContinue, "Hello there")
	st.SetActive(child)

	out := RenderTree(st, 20)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("RenderTree lines = %d, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "○ 0  orig") || !strings.Contains(lines[0], "[2 branches]") {
		t.Errorf("root line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "├─ ● 0/0  cont") || !strings.Contains(lines[1], "␣world") {
		t.Errorf("current line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "└─   0/1  cont") {
		t.Errorf("branch line = %q", lines[2])
	}
}

// carrier is a minimal host message for tree tests.
type carrier struct {
	text string
	st   *revision.State
}

func (c *carrier) Text() string                           { return c.text }
func (c *carrier) SwipeIndex() int                        { return 0 }
func (c *carrier) Alternates() []string                   { return nil }
func (c *carrier) RevisionState() *revision.State         { return c.st }
func (c *carrier) AttachRevisionState(st *revision.State) { c.st = st }
