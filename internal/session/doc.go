// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the editing session behind the host's saveChat.
//
// The host calls MarkDirty after every change it wants persisted. The
// Manager decides when the dirty chat is actually written: immediately when
// the autosave interval is zero, otherwise at most once per interval, and
// always on Flush.
//
// # Key Types
//
//   - Manager: dirty tracking and autosave scheduling
//   - Config: autosave settings
//   - TickMsg / AutoSaveMsg: Bubble Tea messages for interactive use
//
// # Usage
//
//	mgr := session.NewManager(session.Config{AutoSaveEnabled: true})
//	mgr.SetSaveCallback(func() error { return store.Save(chat) })
//	mgr.MarkDirty()
//	mgr.Check()        // saves when due
//	defer mgr.Flush()  // saves whatever is left
package session
