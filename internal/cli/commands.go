// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Command handlers.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/journal"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/reconcile"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/storage"
	"github.com/jeranaias/continuum/internal/util"
)

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd. Commands that need no chat store run without opening
// one.
func Run(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(os.Stdout)
		return nil
	case CmdVersion:
		return PrintVersion(os.Stdout, args.JSON)
	case CmdConfig:
		return HandleConfig(os.Stdout, args)
	case CmdUnknown:
		err := &ValidationError{Field: "command", Value: args.Name, Reason: "unknown command"}
		err.Example = SuggestUsage(args.Name)
		return err
	}

	a, err := NewApp(args)
	if err != nil {
		return err
	}
	runErr := RunWithApp(ctx, a, cmd, args)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// RunWithApp executes a chat command against an open app.
func RunWithApp(ctx context.Context, a *App, cmd Command, args Args) error {
	switch cmd {
	case CmdList:
		return handleList(a, args)
	case CmdNew:
		return handleNew(a, args)
	case CmdSay:
		return handleSay(ctx, a, args)
	case CmdShow:
		return handleShow(a, args)
	case CmdTree:
		return handleTree(a, args)
	case CmdApply:
		return handleApply(a, args)
	case CmdUndo:
		return handleUndo(a, args)
	case CmdRegenerate:
		return handleRegenerate(ctx, a, args)
	case CmdContinue:
		return handleContinue(ctx, a, args)
	case CmdEdit:
		return handleEdit(a, args)
	case CmdSwipe:
		return handleSwipe(ctx, a, args)
	case CmdWatch:
		return HandleWatch(ctx, a, args)
	case CmdBrowse:
		return HandleBrowse(ctx, a, args)
	case CmdJournal:
		return handleJournal(ctx, a, args)
	case CmdDiff:
		return HandleDiff(a, args)
	case CmdExport:
		return HandleExport(a, args)
	case CmdServe:
		return HandleServe(ctx, a, args)
	case CmdChat:
		return HandleChat(ctx, a, args)
	}
	return fmt.Errorf("command %s needs no chat", cmd)
}

// =============================================================================
// READ-ONLY COMMANDS
// =============================================================================

func handleList(a *App, args Args) error {
	metas, err := a.Store.List()
	if err != nil {
		return err
	}
	if args.JSON {
		if metas == nil {
			metas = []storage.ChatMeta{}
		}
		return NewJSONResponse("list", metas).Write(a.Out)
	}
	fmt.Fprintln(a.Out, storage.FormatChatList(metas))
	return nil
}

func handleShow(a *App, args Args) error {
	chat, err := a.LoadChat(args.Params.Positional(0))
	if err != nil {
		return err
	}

	data := ShowData{ChatID: chat.ID, Character: chat.Character, Messages: []MessageData{}}
	for i, msg := range chat.Messages {
		data.Messages = append(data.Messages, messageData(i, msg))
	}
	if args.JSON {
		return NewJSONResponse("show", data).Write(a.Out)
	}

	fmt.Fprintln(a.Out, TitleStyle.Render(fmt.Sprintf("%s  %s", chat.Character, DimStyle.Render(chat.ID))))
	for i, msg := range chat.Messages {
		d := data.Messages[i]
		header := fmt.Sprintf("#%d %s", i, msg.Name)
		var meta []string
		if d.Swipes > 1 {
			meta = append(meta, fmt.Sprintf("swipe %d/%d", d.SwipeID+1, d.Swipes))
		}
		if d.Revisions > 1 {
			meta = append(meta, fmt.Sprintf("revision %s of %d", d.ActivePath, d.Revisions))
		}
		if len(meta) > 0 {
			header += "  " + DimStyle.Render("["+strings.Join(meta, ", ")+"]")
		}
		fmt.Fprintln(a.Out, SectionStyle.Render(header))
		fmt.Fprintln(a.Out, a.Host.FormatMessage(msg.Mes, msg.Name, msg.IsSystem, msg.IsUser, i))
		fmt.Fprintln(a.Out)
	}
	return nil
}

func handleTree(a *App, args Args) error {
	chat, idx, msg, err := a.target(args)
	if err != nil {
		return err
	}
	st := revision.Hydrate(msg)
	if args.JSON {
		return NewJSONResponse("tree", treeData(chat, idx, st)).Write(a.Out)
	}
	fmt.Fprintln(a.Out, SectionStyle.Render(fmt.Sprintf("#%d %s", idx, msg.Name))+
		DimStyle.Render(fmt.Sprintf("  active %s", st.ActivePath())))
	fmt.Fprintln(a.Out, RenderTree(st, a.Config.UI.PreviewWidth))
	return nil
}

// target loads the chat named by positional 0 and picks the message from
// -m/--message, defaulting to the last one.
func (a *App) target(args Args) (*model.Chat, int, *model.Message, error) {
	chat, err := a.LoadChat(args.Params.Positional(0))
	if err != nil {
		return nil, 0, nil, err
	}
	idx, err := args.messageIndex(chat.LastIndex())
	if err != nil {
		return nil, 0, nil, err
	}
	msg := chat.Message(idx)
	if msg == nil {
		return nil, 0, nil, &ValidationError{
			Field:  "message",
			Value:  strconv.Itoa(idx),
			Reason: fmt.Sprintf("chat has %d messages", chat.Len()),
		}
	}
	return chat, idx, msg, nil
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

func handleNew(a *App, args Args) error {
	character := args.Params.FlagOrDefault("character", "Assistant")
	chat := model.NewChat(character)
	if name := args.Params.Flag("user"); name != "" {
		chat.UserName = name
	}
	chat.Model = a.Config.Generation.Model
	if greeting := args.Params.Flag("greeting"); greeting != "" {
		chat.AddCharacterMessage(greeting)
	}
	if err := a.Store.Save(chat); err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("new", map[string]string{"chat_id": chat.ID, "character": character}).Write(a.Out)
	}
	fmt.Fprintf(a.Out, "%s created chat %s with %s\n", RenderStatus("ok"), chat.ID, character)
	return nil
}

func handleSay(ctx context.Context, a *App, args Args) error {
	if _, err := a.LoadChat(args.Params.Positional(0)); err != nil {
		return err
	}
	text := JoinPositionalArgs(args.Params, 1)
	if text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return ErrMissingArgument("text", `continuum say 1 "Hello"`)
	}

	idx := a.Host.SendUserMessage(text)
	if !args.Params.BoolFlag("no-reply") {
		if err := a.Preflight(ctx); err != nil {
			return err
		}
		gctx, cancel := a.GenerationContext(ctx)
		defer cancel()
		if err := a.Host.Generate(gctx, events.GenNormal); err != nil {
			return err
		}
		idx = a.Host.ChatModel().LastIndex()
	}
	return a.report(args, "say", idx, true)
}

// =============================================================================
// TREE OPERATIONS
// =============================================================================

func handleApply(a *App, args Args) error {
	_, idx, _, err := a.target(args)
	if err != nil {
		return err
	}
	raw := args.Params.Positional(1)
	if raw == "" {
		return ErrMissingArgument("path", "continuum apply 1 0/1")
	}
	path, err := revision.ParsePath(raw)
	if err != nil {
		return ErrInvalidFormat("path", raw, "slash separated indices such as 0/1/0")
	}
	changed := a.Reconciler.ApplyPathToMessage(idx, path)
	return a.report(args, "apply", idx, changed)
}

func handleUndo(a *App, args Args) error {
	_, idx, _, err := a.target(args)
	if err != nil {
		return err
	}
	changed := a.Reconciler.UndoLastContinue(idx)
	return a.report(args, "undo", idx, changed)
}

func handleRegenerate(ctx context.Context, a *App, args Args) error {
	return a.generation(ctx, args, "regenerate", a.Reconciler.RegenerateLastContinue)
}

func handleContinue(ctx context.Context, a *App, args Args) error {
	return a.generation(ctx, args, "continue", a.Reconciler.ContinueLastMessage)
}

// generation runs a reconciler operation that generates, surfacing the
// backend error the reconciler only logs.
func (a *App) generation(ctx context.Context, args Args, name string, op func(context.Context, int) bool) error {
	_, idx, _, err := a.target(args)
	if err != nil {
		return err
	}
	if err := a.Preflight(ctx); err != nil {
		return err
	}
	gctx, cancel := a.GenerationContext(ctx)
	defer cancel()

	changed := op(gctx, idx)
	if err := a.Host.TakeError(); err != nil {
		// Partial text may already be committed; save it before reporting.
		a.Host.Flush()
		return err
	}
	return a.report(args, name, idx, changed)
}

func handleEdit(a *App, args Args) error {
	_, idx, msg, err := a.target(args)
	if err != nil {
		return err
	}
	text := JoinPositionalArgs(args.Params, 1)
	if text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if text == "" {
		return ErrMissingArgument("text", `continuum edit 1 "New text"`)
	}
	before := msg.Mes
	if err := a.Host.EditMessage(idx, text); err != nil {
		return err
	}
	return a.report(args, "edit", idx, before != text)
}

func handleSwipe(ctx context.Context, a *App, args Args) error {
	chat, idx, _, err := a.target(args)
	if err != nil {
		return err
	}
	raw := args.Params.Positional(1)
	if raw == "" {
		return ErrMissingArgument("swipe", "continuum swipe 1 new")
	}

	if raw == "new" {
		if idx != chat.LastIndex() {
			return &NoChangeError{Operation: "swipe", Index: idx}
		}
		if err := a.Preflight(ctx); err != nil {
			return err
		}
		gctx, cancel := a.GenerationContext(ctx)
		defer cancel()
		if err := a.Host.Generate(gctx, events.GenSwipe); err != nil {
			return err
		}
		return a.report(args, "swipe", idx, true)
	}

	n, err := ParseIntWithValidation(raw, "swipe")
	if err != nil {
		return ErrInvalidFormat("swipe", raw, "an alternate number or 'new'")
	}
	before := a.Host.ChatModel().Message(idx).SwipeID
	if err := a.Host.Swipe(idx, n); err != nil {
		return err
	}
	return a.report(args, "swipe", idx, before != n)
}

// report prints the outcome of a tree-changing command. A no-op becomes a
// NoChangeError so scripts can tell.
func (a *App) report(args Args, name string, idx int, changed bool) error {
	muts := a.Mutations()
	if len(muts) > 0 {
		changed = true
	}
	if changed {
		if err := a.Host.Flush(); err != nil {
			return err
		}
	}

	msg := a.Host.ChatModel().Message(idx)
	data := OperationData{
		ChatID:       a.Host.ChatModel().ID,
		MessageIndex: idx,
		Changed:      changed,
		Mutations:    mutationData(muts),
	}
	if msg != nil {
		data.Text = msg.Mes
		if msg.Revisions != nil || !msg.IsUser {
			data.ActivePath = revision.Hydrate(msg).ActivePath().String()
		}
	}

	if args.JSON {
		return NewJSONResponse(name, data).Write(a.Out)
	}

	if !changed {
		return &NoChangeError{Operation: name, Index: idx}
	}
	fmt.Fprintf(a.Out, "%s %s on message %d, active %s\n", RenderStatus("ok"), name, idx, data.ActivePath)
	for _, m := range data.Mutations {
		fmt.Fprintf(a.Out, "  %s %s %s\n", DimStyle.Render(m.Op), KindStyle(revision.Kind(m.Kind)).Render(m.Kind), m.Path)
	}
	fmt.Fprintln(a.Out)
	if msg != nil {
		fmt.Fprintln(a.Out, a.Host.FormatMessage(msg.Mes, msg.Name, msg.IsSystem, msg.IsUser, idx))
	}
	return nil
}

func mutationData(muts []reconcile.Mutation) []MutationData {
	out := make([]MutationData, 0, len(muts))
	for _, m := range muts {
		out = append(out, MutationData{
			MessageIndex: m.MessageIndex,
			Op:           string(m.Op),
			Kind:         m.Kind.String(),
			Path:         m.Path.String(),
		})
	}
	return out
}

// =============================================================================
// JOURNAL
// =============================================================================

func handleJournal(ctx context.Context, a *App, args Args) error {
	if a.Journal == nil {
		return fmt.Errorf("journal is disabled (set journal.enabled = true)")
	}

	if args.Params.Subcommand() == "prune" {
		days := args.Params.FlagIntOrDefault("days", a.Config.Journal.RetentionDays)
		if days <= 0 {
			return ErrMissingArgument("days", "continuum journal prune --days 30")
		}
		n, err := a.Journal.Prune(ctx, time.Now().AddDate(0, 0, -days))
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("journal prune", map[string]int64{"removed": n}).Write(a.Out)
		}
		fmt.Fprintf(a.Out, "%s removed %d entries older than %d days\n", RenderStatus("ok"), n, days)
		return nil
	}

	f := journal.Filter{
		MessageIndex: journal.AllMessages,
		Op:           reconcile.Op(args.Params.Flag("op")),
		Limit:        args.Params.FlagIntOrDefault("limit", 50),
	}
	if ref := args.Params.Positional(0); ref != "" {
		chat, err := a.Store.Resolve(ref)
		if err != nil {
			return err
		}
		f.ChatID = chat.ID
	}
	if args.Params.HasFlag("message") || args.Params.HasFlag("m") {
		idx, err := args.messageIndex(journal.AllMessages)
		if err != nil {
			return err
		}
		f.MessageIndex = idx
	}
	if args.Params.BoolFlag("all") {
		f.Limit = 0
	}

	entries, err := a.Journal.List(ctx, f)
	if err != nil {
		return err
	}

	if args.JSON {
		out := make([]JournalEntryData, 0, len(entries))
		for _, e := range entries {
			out = append(out, JournalEntryData{
				ID:           e.ID,
				ChatID:       e.ChatID,
				MessageIndex: e.MessageIndex,
				Op:           string(e.Op),
				Kind:         e.Kind.String(),
				Path:         e.Path.String(),
				Text:         e.Text,
				CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return NewJSONResponse("journal", out).Write(a.Out)
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.Out, "No journal entries.")
		return nil
	}
	width := a.Config.UI.PreviewWidth
	for _, e := range entries {
		fmt.Fprintf(a.Out, "%s  %s  #%-3d %-12s %s  %-8s %s\n",
			DimStyle.Render(e.CreatedAt.Local().Format("2006-01-02 15:04:05")),
			DimStyle.Render(shortID(e.ChatID)),
			e.MessageIndex,
			string(e.Op),
			KindStyle(e.Kind).Render(fmt.Sprintf("%-5s", e.Kind.Label())),
			e.Path.String(),
			util.Preview(e.Text, width),
		)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
