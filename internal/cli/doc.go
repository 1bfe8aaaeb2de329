// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for
// continuum.
//
// Every command that touches a chat goes through an App, which owns the chat
// store, the mutation journal, the reference host and the attached
// reconciler. Commands mutate the chat only through host events or the
// reconciler's public operations, so the tree rules are the same whether a
// change comes from the CLI, the browser or an external file rewrite.
//
// # Key Types
//
//   - Command: enumeration of the CLI commands
//   - Args: global flags plus an ArgParser over the command's own arguments
//   - App: store, journal, host and reconciler wired from the config
//   - JSONResponse: the envelope written by --json
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if err := cli.Run(ctx, cmd, args); err != nil {
//	    cli.HandleErrorAndExit(cmd.String(), err, args.JSON)
//	}
//
// # Commands Overview
//
// Chats:
//   - list, new, say, show
//   - chat: interactive session with slash commands (liner line editing)
//
// Revisions:
//   - tree: print the revision tree of a message
//   - apply: show the text of a tree path
//   - undo, regenerate, continue: continue-branch operations
//   - edit, swipe: host edits that the reconciler folds into the tree
//   - browse: interactive tree browser
//   - watch: reconcile external rewrites of a chat file
//   - journal: query or prune the mutation journal
//   - diff: compare the text of two revisions
//   - export: write a chat and its trees to Markdown, JSON or HTML
//   - serve: JSON HTTP API over chats, trees, diffs and exports
//
// Other:
//   - config, version, help
//
// Operations that change nothing exit with ExitNoChange so scripts can tell
// a no-op from a failure.
package cli
