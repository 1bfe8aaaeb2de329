// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile keeps each message's revision tree in step with the
// host's mutable chat text.
//
// The Reconciler subscribes to the host's lifecycle events. While a
// generation runs it remembers the text the message had when the generation
// started; when the rendered text changes it stores the new part as a branch
// of the revision tree. User edits fork the tree at the point where the
// edited text stops matching, and swipes re-select the matching root.
//
// # Key Types
//
//   - Reconciler: event handlers plus the public UI operations
//   - HostBridge: everything the reconciler needs from the host
//   - Session: the per-generation listening state
//   - Mutation: one tree change, delivered to observers
//
// # Usage
//
//	r := reconcile.New(host, bus, reconcile.WithLogger(logger))
//	r.Attach()
//	defer r.Detach()
//
//	r.RegisterOverlayRefresh(func(idx int) { redraw(idx) })
//	r.UndoLastContinue(idx)
//
// # Concurrency
//
// Handlers and operations run synchronously on the caller's goroutine and
// hold no locks. Drive a Reconciler from one goroutine, the way the host
// drives its event bus.
package reconcile
