// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package journal records revision tree mutations in SQLite.
//
// Every fork, edit, root rewrite and apply the reconciler performs is
// appended as one row, giving an audit trail that survives chat rewrites.
// The journal is append-only; entries are never updated.
//
// # Key Types
//
//   - Journal: handle on the SQLite database
//   - Entry: one recorded mutation
//   - Filter: query constraints for List
//
// # Usage
//
//	j, err := journal.Open(path)
//	defer j.Close()
//	rec.OnMutation(j.Recorder(chat.ID))
//	entries, err := j.List(ctx, journal.Filter{ChatID: chat.ID, Limit: 20})
package journal
