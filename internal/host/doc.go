// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package host is the reference chat host the reconciler runs against.
//
// It owns one chat, runs generations through a pluggable Generator, formats
// and "renders" message bodies, and emits the lifecycle events on an
// events.Bus in the order a chat frontend would. Persistence goes through a
// session.Manager so saves are debounced by the autosave settings.
//
// # Key Types
//
//   - Host: implements reconcile.HostBridge
//   - Generator: OllamaGenerator (live) or ScriptedGenerator (offline, tests)
//   - Formatter: MarkdownFormatter (glamour) or PlainFormatter
//   - Saver: where SaveChat writes to, usually storage.ChatStore
//
// # Usage
//
//	bus := events.NewBus()
//	h := host.New(chat, bus, host.NewScriptedGenerator(" and then"),
//	    host.WithSaver(store))
//	rec := reconcile.New(h, bus)
//	rec.Attach()
//	err := h.Generate(ctx, events.GenContinue)
package host
