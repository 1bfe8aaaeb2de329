// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"strings"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
)

// =============================================================================
// GENERATION LIFECYCLE
// =============================================================================

func (r *Reconciler) onGenerationStarted(e events.Event) {
	if e.DryRun {
		return
	}
	switch e.Type {
	case events.GenContinue, events.GenNormal, events.GenSwipe:
	default:
		return
	}

	r.session.Listening = true
	r.session.PendingStopListen = false
	r.session.StartSnapshot = ""

	if e.Type != events.GenContinue {
		return
	}
	idx := r.lastIndex()
	msg := r.message(idx)
	if msg == nil {
		return
	}
	st := revision.Hydrate(msg)
	r.session.StartSnapshot = effectiveText(msg, st)
}

func (r *Reconciler) onGenerationStopped(events.Event) {
	if r.session.Listening {
		// The final render may still follow; resetListening finishes up.
		r.session.PendingStopListen = true
		return
	}
	r.session.RegeneratingIndex = -1
}

func (r *Reconciler) onCharacterRendered(e events.Event) {
	r.onRendered(e.Index, true)
}

func (r *Reconciler) onUserRendered(e events.Event) {
	r.onRendered(e.Index, false)
}

// onRendered runs the listening state machine for character renders and the
// surplus check for every render.
func (r *Reconciler) onRendered(idx int, character bool) {
	msg := r.message(idx)
	if msg == nil {
		return
	}
	st := revision.Hydrate(msg)

	if character && r.session.Listening {
		text := msg.Mes
		if revision.IsValidText(text) && text != r.session.StartSnapshot {
			r.commitGeneration(idx, msg, st, text)
			r.resetListening()
		} else if r.session.PendingStopListen {
			r.resetListening()
		}
	}

	r.catchUp(idx, msg, st)
}

// commitGeneration stores newly generated text in the tree. An empty start
// snapshot replaces the root's text; otherwise the part after the snapshot
// becomes a new child of the active node.
func (r *Reconciler) commitGeneration(idx int, msg *model.Message, st *revision.State, text string) {
	regen := r.session.RegeneratingIndex == idx

	if r.session.StartSnapshot == "" {
		if regen {
			st.RegenerateRoot(text)
		} else {
			st.RewriteRoot(text, revision.KindContinue)
		}
		kind := st.ActiveRoot().Kind
		st.CachedText = text
		r.host.SaveChat()
		r.notify(Mutation{MessageIndex: idx, Op: OpRootRewrite, Kind: kind, Path: st.ActivePath(), Text: text})
		r.refreshOverlay(idx)
		return
	}

	delta := revision.ComputeContinueDelta(text, r.session.StartSnapshot)
	if delta == "" {
		return
	}
	kind := revision.KindContinue
	if regen {
		kind = revision.KindRegenerate
	}
	child := st.AppendChild(st.ActivePath(), delta, kind, text)
	if child == nil {
		return
	}
	st.SetActive(child)
	st.CachedText = text
	r.host.SaveChat()
	r.notify(Mutation{MessageIndex: idx, Op: OpFork, Kind: kind, Path: child, Text: delta})
	r.refreshOverlay(idx)
}

// catchUp appends text the host shows beyond the active path's text. It is
// a no-op when the tree already matches.
func (r *Reconciler) catchUp(idx int, msg *model.Message, st *revision.State) {
	text := msg.Mes
	if !revision.IsValidText(text) {
		return
	}
	active := st.ActivePath()
	treeText := st.TextForPath(active)
	if len(text) <= len(treeText) || !strings.HasPrefix(text, treeText) {
		return
	}

	root := st.ActiveRoot()
	if len(active) == 1 && root.Mes == "" {
		st.RewriteRoot(text, root.Kind)
		st.CachedText = text
		r.host.SaveChat()
		r.notify(Mutation{MessageIndex: idx, Op: OpRootRewrite, Kind: root.Kind, Path: active, Text: text})
		r.refreshOverlay(idx)
		return
	}

	surplus := text[len(treeText):]
	child := st.AppendChild(active, surplus, revision.KindContinue, text)
	if child == nil {
		return
	}
	st.SetActive(child)
	st.CachedText = text
	r.host.SaveChat()
	r.notify(Mutation{MessageIndex: idx, Op: OpSafetyFork, Kind: revision.KindContinue, Path: child, Text: surplus})
	r.refreshOverlay(idx)
}

// =============================================================================
// EDIT
// =============================================================================

func (r *Reconciler) onMessageEdited(e events.Event) {
	if r.session.SkipNextEdit {
		r.session.SkipNextEdit = false
		return
	}
	msg := r.message(e.Index)
	if msg == nil {
		return
	}
	st := revision.Hydrate(msg)
	text := msg.Mes
	if !revision.IsValidText(text) {
		return
	}

	st.CachedText = text
	m, ok := divergeEdit(st, text)
	if !ok {
		return
	}
	m.MessageIndex = e.Index
	r.host.SaveChat()
	r.notify(m)
	r.refreshOverlay(e.Index)
}

// divergeEdit walks the active path accumulating text and branches where
// the edited text stops matching. It reports false when the tree already
// holds exactly the edited text, and when the edit diverges at a root that
// already has children: nothing sits above a root to branch from, and
// existing nodes keep their text.
func divergeEdit(st *revision.State, text string) (Mutation, bool) {
	active := st.ActivePath()
	nodes := st.NodesAlong(active)
	if len(nodes) == 0 {
		return Mutation{}, false
	}

	acc := ""
	for i, n := range nodes {
		next := acc + n.Mes
		if strings.HasPrefix(text, next) {
			acc = next
			continue
		}

		if i == 0 {
			if n.ChildCount() > 0 {
				return Mutation{}, false
			}
			// An untouched root takes the edited text.
			root := active[:1].Clone()
			st.RewriteRoot(text, revision.KindEdit)
			return Mutation{Op: OpRootRewrite, Kind: n.Kind, Path: root, Text: text}, true
		}

		parent := active[:i].Clone()
		tail := text[len(acc):]
		if tail == "" {
			// Shortened back to an existing prefix.
			st.SetActive(parent)
			return Mutation{Op: OpApply, Kind: nodes[i-1].Kind, Path: parent, Text: text}, true
		}
		child := st.AppendChild(parent, tail, revision.KindEdit, text)
		st.SetActive(child)
		return Mutation{Op: OpEditFork, Kind: revision.KindEdit, Path: child, Text: tail}, true
	}

	if len(text) <= len(acc) {
		return Mutation{}, false
	}
	if len(active) == 1 && nodes[0].Mes == "" {
		st.RewriteRoot(text, revision.KindEdit)
		return Mutation{Op: OpRootRewrite, Kind: nodes[0].Kind, Path: active, Text: text}, true
	}
	tail := text[len(acc):]
	child := st.AppendChild(active, tail, revision.KindEdit, text)
	st.SetActive(child)
	return Mutation{Op: OpEditFork, Kind: revision.KindEdit, Path: child, Text: tail}, true
}

// =============================================================================
// SWIPE AND CHAT CHANGE
// =============================================================================

func (r *Reconciler) onMessageSwiped(e events.Event) {
	msg := r.message(e.Index)
	if msg == nil {
		return
	}
	st := revision.Hydrate(msg)
	root := st.ActiveRoot()
	if root == nil || revision.IsValidText(root.Mes) || !revision.IsValidText(msg.Mes) {
		r.refreshOverlay(e.Index)
		return
	}

	st.RewriteRoot(msg.Mes, root.Kind)
	revision.Hydrate(msg)
	r.host.SaveChat()
	r.notify(Mutation{MessageIndex: e.Index, Op: OpSwipeSeed, Kind: root.Kind, Path: revision.Path{st.RootIndex()}, Text: msg.Mes})
	r.refreshOverlay(e.Index)
}

func (r *Reconciler) onChatChanged(events.Event) {
	r.session = newSession()
}
