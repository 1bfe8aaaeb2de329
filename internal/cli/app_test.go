// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/continuum/internal/config"
	"github.com/jeranaias/continuum/internal/export"
	"github.com/jeranaias/continuum/internal/storage"
	"github.com/jeranaias/continuum/internal/watch"
)

// =============================================================================
// HELPERS
// =============================================================================

type testApp struct {
	*App
	out *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ApplyColorMode("never")

	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Generation.Offline = true
	cfg.UI.Markdown = false
	cfg.UI.Color = "never"

	a, err := OpenApp(cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	out := &bytes.Buffer{}
	a.Out = out
	t.Cleanup(func() { a.Close() })
	return &testApp{App: a, out: out}
}

// run parses argv and runs it against the open app, returning its output.
func (ta *testApp) run(t *testing.T, argv ...string) (string, error) {
	t.Helper()
	ta.out.Reset()
	cmd, args := ParseArgs(argv)
	err := RunWithApp(context.Background(), ta.App, cmd, args)
	return ta.out.String(), err
}

// runJSON runs argv with --json and decodes the data field into v.
func (ta *testApp) runJSON(t *testing.T, v interface{}, argv ...string) {
	t.Helper()
	out, err := ta.run(t, append(argv, "--json")...)
	require.NoError(t, err)

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func (ta *testApp) newChat(t *testing.T, greeting string) string {
	t.Helper()
	var created map[string]string
	ta.runJSON(t, &created, "new", "--character", "Aria", "--greeting", greeting)
	require.NotEmpty(t, created["chat_id"])
	return created["chat_id"]
}

// =============================================================================
// TESTS
// =============================================================================

func TestContinueUndoApplyFlow(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")

	out, err := ta.run(t, "continue", id)
	require.NoError(t, err)
	require.Contains(t, out, "continue on message 0, active 0/0")
	require.Contains(t, out, "Hello"+offlineReplies[0])

	var tree TreeData
	ta.runJSON(t, &tree, "tree", id)
	require.Equal(t, "0/0", tree.ActivePath)
	require.Len(t, tree.Nodes, 2)
	require.Equal(t, "continue", tree.Nodes[1].Kind)
	require.True(t, tree.Nodes[1].Current)

	out, err = ta.run(t, "undo", id)
	require.NoError(t, err)
	require.Contains(t, out, "undo on message 0, active 0")

	_, err = ta.run(t, "undo", id)
	var noChange *NoChangeError
	require.ErrorAs(t, err, &noChange)
	require.Equal(t, ExitNoChange, GetExitCode(err))

	var op OperationData
	ta.runJSON(t, &op, "apply", id, "0/0")
	require.True(t, op.Changed)
	require.Equal(t, "0/0", op.ActivePath)
	require.Equal(t, "Hello"+offlineReplies[0], op.Text)
	require.Len(t, op.Mutations, 1)
	require.Equal(t, "apply", op.Mutations[0].Op)

	// The change reached disk.
	saved, err := ta.Store.Resolve(id)
	require.NoError(t, err)
	require.Equal(t, "Hello"+offlineReplies[0], saved.Messages[0].Mes)
}

func TestApplyRejectsBadPath(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")

	_, err := ta.run(t, "apply", id, "zero")
	require.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = ta.run(t, "apply", id, "0/5")
	require.Equal(t, ExitNoChange, GetExitCode(err))

	_, err = ta.run(t, "apply", id)
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestUnknownChat(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.run(t, "tree", "no-such-chat")
	require.True(t, errors.Is(err, storage.ErrChatNotFound))
	require.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestSayAppendsReply(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")

	var op OperationData
	ta.runJSON(t, &op, "say", id, "How", "are", "you?")
	require.Equal(t, 2, op.MessageIndex)
	require.Equal(t, offlineReplies[0], op.Text)

	var show ShowData
	ta.runJSON(t, &show, "show", id)
	require.Len(t, show.Messages, 3)
	require.Equal(t, "user", show.Messages[1].Role)
	require.Equal(t, "How are you?", show.Messages[1].Text)
}

func TestSayNoReply(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")

	out, err := ta.run(t, "say", id, "Wait", "--no-reply")
	require.NoError(t, err)
	require.Contains(t, out, "say on message 1")
}

func TestEditForksTree(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")
	_, err := ta.run(t, "continue", id)
	require.NoError(t, err)

	var op OperationData
	ta.runJSON(t, &op, "edit", id, "Hello there, friend")
	require.True(t, op.Changed)
	require.Equal(t, "Hello there, friend", op.Text)

	var tree TreeData
	ta.runJSON(t, &tree, "tree", id)
	require.Greater(t, len(tree.Nodes), 2)
}

func TestJournalRecordsMutations(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")
	_, err := ta.run(t, "continue", id)
	require.NoError(t, err)
	_, err = ta.run(t, "undo", id)
	require.NoError(t, err)

	var entries []JournalEntryData
	ta.runJSON(t, &entries, "journal", id)
	require.GreaterOrEqual(t, len(entries), 2)

	ops := make([]string, 0, len(entries))
	for _, e := range entries {
		require.Equal(t, id, e.ChatID)
		ops = append(ops, e.Op)
	}
	require.Contains(t, ops, "fork")
	require.Contains(t, ops, "apply")

	var applies []JournalEntryData
	ta.runJSON(t, &applies, "journal", id, "--op", "apply")
	require.Len(t, applies, 1)

	out, err := ta.run(t, "journal", "prune", "--days", "1")
	require.NoError(t, err)
	require.Contains(t, out, "removed 0 entries")
}

func TestListAndShowText(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")

	out, err := ta.run(t, "list")
	require.NoError(t, err)
	require.Contains(t, out, "Aria")

	out, err = ta.run(t, "show", id)
	require.NoError(t, err)
	require.Contains(t, out, "#0 Aria")
	require.Contains(t, out, "Hello")
}

func TestReconcileChangeAppliesExternalEdit(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")
	chat, err := ta.LoadChat(id)
	require.NoError(t, err)

	// Another process appends a continuation to the saved file.
	external, err := ta.Store.Resolve(id)
	require.NoError(t, err)
	external.Messages[0].Mes = "Hello, traveller."
	require.NoError(t, ta.Store.Save(external))

	_, args := ParseArgs([]string{"watch", id})
	require.NoError(t, ta.reconcileChange(args, watch.Change{Path: ta.Store.Path(chat.ID)}))
	require.Equal(t, "Hello, traveller.", ta.Host.ChatModel().Messages[0].Mes)
	require.Contains(t, ta.out.String(), "1 extended")
}

func TestDiffCommand(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")
	_, err := ta.run(t, "continue", id)
	require.NoError(t, err)

	var data DiffData
	ta.runJSON(t, &data, "diff", id, "0", "--words")
	require.Equal(t, "0", data.From)
	require.Equal(t, "0/0", data.To, "second path defaults to the active one")
	require.False(t, data.Identical)
	require.Equal(t, len("Hello"), data.SharedPrefix)
	require.Zero(t, data.Stats.Deletions)
	require.Equal(t, 10, data.Stats.Additions)
	require.True(t, strings.HasPrefix(data.Inline, "Hello{+ The lamps"), data.Inline)
	require.Empty(t, data.Unified)

	out, err := ta.run(t, "diff", id, "0", "0/0")
	require.NoError(t, err)
	require.Contains(t, out, "0 -> 0/0")
	require.Contains(t, out, "-Hello\n")
	require.Contains(t, out, "+Hello"+offlineReplies[0])

	_, err = ta.run(t, "diff", id)
	require.Equal(t, ExitUsageError, GetExitCode(err))
	_, err = ta.run(t, "diff", id, "0/9")
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestExportCommand(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")
	_, err := ta.run(t, "continue", id)
	require.NoError(t, err)

	dir := t.TempDir()
	var data ExportData
	ta.runJSON(t, &data, "export", id, "--out", dir)
	require.Equal(t, "md", data.Format)
	require.Equal(t, dir, filepath.Dir(data.Path))
	content, err := os.ReadFile(data.Path)
	require.NoError(t, err)
	require.Contains(t, string(content), "# Chat with Aria")
	require.Contains(t, string(content), "Revisions (2 nodes, active 0/0)")

	out, err := ta.run(t, "export", id, "--format", "json", "--stdout")
	require.NoError(t, err)
	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Equal(t, id, doc.Chat.ID)
	require.NotNil(t, doc.Chat.Messages[0].Revisions)

	out, err = ta.run(t, "export", id, "--format", "json", "--stdout", "--no-trees")
	require.NoError(t, err)
	require.NotContains(t, out, `"revisions"`)

	_, err = ta.run(t, "export", id, "--format", "pdf")
	require.Equal(t, ExitUsageError, GetExitCode(err))
	_, err = ta.run(t, "export", id, "--stdout", "--json")
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestChatLine(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")
	ctx := context.Background()

	quit, err := ta.chatLine(ctx, id, "/cont")
	require.NoError(t, err)
	require.False(t, quit)
	require.Contains(t, ta.out.String(), "continue on message 0, active 0/0")

	ta.out.Reset()
	_, err = ta.chatLine(ctx, id, "/undo")
	require.NoError(t, err)
	_, err = ta.chatLine(ctx, id, "/undo")
	require.NoError(t, err)
	require.Contains(t, ta.out.String(), "nothing changed on message 0")

	_, err = ta.chatLine(ctx, id, "Where are we going?")
	require.NoError(t, err)
	chat, err := ta.Store.Resolve(id)
	require.NoError(t, err)
	require.Equal(t, 3, chat.Len())
	require.Equal(t, "Where are we going?", chat.Messages[1].Mes)

	_, err = ta.chatLine(ctx, id, "/dance")
	require.Equal(t, ExitUsageError, GetExitCode(err))

	quit, err = ta.chatLine(ctx, id, "/quit")
	require.NoError(t, err)
	require.True(t, quit)
}

func TestChatLineSuggestsSlashCommand(t *testing.T) {
	ta := newTestApp(t)
	id := ta.newChat(t, "Hello")

	quit, err := ta.chatLine(context.Background(), id, "/contnue")
	require.False(t, quit)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "/continue", verr.Example)

	_, err = ta.chatLine(context.Background(), id, "/zzzzzzzz")
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "/help", verr.Example)
}

func TestCompleteSlash(t *testing.T) {
	require.Equal(t, []string{"/regen", "/regenerate"}, completeSlash("/reg"))
	require.Nil(t, completeSlash("hello"))
	require.Nil(t, completeSlash("/apply 0"))
}

func TestServeCommand(t *testing.T) {
	ta := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, args := ParseArgs([]string{"serve", "--addr", "127.0.0.1:0", "--token", "s3cret"})
	require.NoError(t, HandleServe(ctx, ta.App, args))
	require.Contains(t, ta.out.String(), "bearer token required")

	_, err := ta.run(t, "serve", "--addr", "8787")
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	var out bytes.Buffer

	_, args := ParseArgs([]string{"--config", path, "config", "init"})
	require.NoError(t, HandleConfig(&out, args))
	_, err := os.Stat(path)
	require.NoError(t, err)

	_, args = ParseArgs([]string{"--config", path, "config", "init"})
	require.Error(t, HandleConfig(&out, args), "init refuses to overwrite")

	out.Reset()
	_, args = ParseArgs([]string{"--config", path, "config", "set", "generation.model", "mistral"})
	require.NoError(t, HandleConfig(&out, args))

	out.Reset()
	_, args = ParseArgs([]string{"--config", path, "config", "get", "generation.model"})
	require.NoError(t, HandleConfig(&out, args))
	require.Equal(t, "mistral", strings.TrimSpace(out.String()))

	_, args = ParseArgs([]string{"--config", path, "config", "bogus"})
	require.Equal(t, ExitUsageError, GetExitCode(HandleConfig(&out, args)))
}
