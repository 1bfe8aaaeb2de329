// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the host-owned chat and message types.
//
// A Message mirrors the host's chat entry: its display text (Mes), the
// selected top-level alternate (SwipeID) and the flat list of alternates
// (Swipes). Revision history is attached through an explicit revision.State
// that rides along in the message JSON.
//
// # Key Types
//
//   - Chat: ordered list of messages with identity and timestamps
//   - Message: one chat entry; implements revision.Carrier
//   - Role: user, assistant or system, derived from the host flags
//
// # Usage
//
//	chat := model.NewChat("Seraphina")
//	chat.AddUserMessage("You", "Hello!")
//	msg := chat.AddCharacterMessage("Hi there")
//	st := revision.Hydrate(msg)
package model
