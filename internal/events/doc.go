// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the host's lifecycle event bus.
//
// The host emits named events while it generates, renders, edits and swipes
// messages; the reconciler subscribes to them. Emission is synchronous: a
// handler runs to completion before Emit returns, and a handler may itself
// emit.
//
// # Key Types
//
//   - Bus: named-event registry with On/Emit
//   - Event: one emitted event (name, message index, generation type)
//   - GenerationType: the mode a generation was started in
//
// # Usage
//
//	bus := events.NewBus()
//	off := bus.On(events.MessageEdited, func(e events.Event) {
//	    fmt.Println("edited", e.Index)
//	})
//	defer off()
//	bus.Emit(events.Event{Name: events.MessageEdited, Index: 3})
package events
