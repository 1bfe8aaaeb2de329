// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats as JSON files.
//
// It is the target of the host's saveChat. Each chat is one file named by
// its ID; revision history rides along inside each message's JSON, so a
// saved chat restores its revision trees with no separate schema.
//
// # Key Types
//
//   - ChatStore: file-backed chat persistence
//   - ChatMeta: lightweight metadata for listing
//
// # Usage
//
//	store, err := storage.NewChatStore(dir)
//	err = store.Save(chat)
//	chat, err = store.Resolve("1")   // most recent
//	metas, err := store.List()
//
// # Storage Location
//
// Chats are stored in ~/.continuum/chats/ unless configured otherwise.
package storage
