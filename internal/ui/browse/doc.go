// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package browse provides an interactive revision-tree browser for one chat.
//
// The browser lists every node of a message's revision tree as an outline,
// previews the full text the selected path would produce, and drives the
// reconciler's public operations from the keyboard.
//
// # Key Types
//
//   - Model: the bubbletea model (Init, Update, View)
//   - KeyMap: key bindings with ShortHelp/FullHelp for the help footer
//   - Controller: the reconciler operations the browser calls
//   - Host: the chat owner the browser reads from and saves through
//
// # Usage
//
//	m := browse.New(browse.Options{
//	    Controller: reconciler,
//	    Host:       h,
//	    Index:      chat.LastIndex(),
//	})
//	err := browse.Run(ctx, m)
//
// Generation runs off the UI goroutine. While it runs the outline is frozen
// and only the streamed display text and the spinner change; the tree is
// re-read once the generation returns.
package browse
