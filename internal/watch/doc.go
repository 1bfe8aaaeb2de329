// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch follows chat files on disk and folds outside changes back
// into a live host.
//
// Watcher turns raw fsnotify events into debounced, rate-limited Change
// values. Apply diffs a freshly loaded chat against the live one and
// replays the difference as host events, so the reconciler's safety net
// and edit handling run on text another process wrote.
//
// # Key Types
//
//   - Watcher: debounced fsnotify front end
//   - Change: one settled file change
//   - Target: the host surface Apply writes to
//   - Result: what Apply changed
//
// # Usage
//
//	w, err := watch.New(watch.Config{Debounce: 250 * time.Millisecond})
//	err = w.Add(store.Path(chat.ID))
//	w.Start(ctx)
//	for change := range w.Changes() {
//	    loaded, _ := store.LoadFile(change.Path)
//	    res := watch.Apply(h, loaded)
//	}
package watch
