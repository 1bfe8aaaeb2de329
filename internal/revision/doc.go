// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package revision holds the per-message revision tree.
//
// Every chat message that continuum touches carries a State: an ordered list
// of root nodes (one per host swipe), each the top of a tree of text
// fragments. A node's own Mes is only its fragment; the full text of a node is
// the concatenation of every Mes from its root down to it. Each root keeps an
// Active path, the single cursor selecting which revision is shown.
//
// # Key Types
//
//   - Node: one fragment of generated or edited text
//   - Path: child indices from a root (path[0] is the root index)
//   - State: the history attached to one message
//   - Carrier: the host message as the tree sees it
//
// # Usage
//
//	st := revision.Hydrate(msg)
//	text := st.TextForPath(st.ActivePath())
//	child := st.AppendChild(st.ActivePath(), " world", revision.KindContinue, "Hello world")
//	st.SetActive(child)
//
// All operations are synchronous and never panic on out-of-range paths; they
// return nil, "" or false instead.
package revision
