// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/revision"
)

// PendingSuffix is appended to the displayed text while a regeneration is
// waiting for its first tokens.
const PendingSuffix = " ..."

// =============================================================================
// PUBLIC OPERATIONS
// =============================================================================

// ApplyPathToMessage shows the revision at path on the message at idx. It
// writes the text to the message and the display, saves, and emits a
// MESSAGE_EDITED that the reconciler itself ignores. It reports whether
// anything changed; bad input and a busy host leave everything untouched.
func (r *Reconciler) ApplyPathToMessage(idx int, path revision.Path) bool {
	if r.busy() || len(path) == 0 {
		return false
	}
	msg := r.message(idx)
	if msg == nil {
		return false
	}
	st := revision.Hydrate(msg)
	if path[0] != st.RootIndex() {
		return false
	}
	node := st.FindByPath(path)
	if node == nil {
		return false
	}
	text := st.TextForPathPreferCache(path)
	if !revision.IsValidText(text) {
		return false
	}

	msg.Mes = text
	msg.SyncSwipe()
	st.SetActive(path)
	revision.MarkMetadata(node, revision.KindContinue)
	if node.FullText == "" {
		node.FullText = text
	}
	st.CachedText = text

	r.render(idx, msg, text)
	r.host.SaveChat()
	r.notify(Mutation{MessageIndex: idx, Op: OpApply, Kind: node.Kind, Path: path.Clone(), Text: text})

	if r.Attached() {
		r.session.SkipNextEdit = true
	}
	if r.bus != nil {
		r.bus.Emit(events.Event{Name: events.MessageEdited, Index: idx})
	}
	r.refreshOverlay(idx)
	return true
}

// UndoLastContinue moves the message at idx back to the parent of its
// active revision. Roots have nothing to undo.
func (r *Reconciler) UndoLastContinue(idx int) bool {
	if r.busy() {
		return false
	}
	msg := r.message(idx)
	if msg == nil {
		return false
	}
	st := revision.Hydrate(msg)
	cur := st.Current()
	if cur == nil || cur.IsRoot() {
		return false
	}
	return r.ApplyPathToMessage(idx, cur.Parent)
}

// RegenerateLastContinue rerolls the newest revision of the last message.
// At a root the root text is re-issued as a swipe generation; below a root
// the cursor steps up one level and a continue generation runs from there.
func (r *Reconciler) RegenerateLastContinue(ctx context.Context, idx int) bool {
	if r.busy() || idx != r.lastIndex() {
		return false
	}
	msg := r.message(idx)
	if msg == nil {
		return false
	}
	st := revision.Hydrate(msg)
	active := st.ActivePath()

	if len(active) == 1 {
		text := effectiveText(msg, st)
		if revision.IsValidText(text) {
			st.RegenerateRoot(text)
			st.CachedText = text
			r.notify(Mutation{MessageIndex: idx, Op: OpRootRewrite, Kind: revision.KindRegenerate, Path: active, Text: text})
		}
		r.session.RegeneratingIndex = idx
		r.host.SaveChat()
		r.generate(ctx, idx, events.GenSwipe)
		return true
	}

	parent := active.Parent()
	text := st.TextForPathPreferCache(parent)
	if !revision.IsValidText(text) {
		return false
	}
	st.SetActive(parent)
	msg.Mes = text
	msg.SyncSwipe()
	st.CachedText = text

	r.render(idx, msg, text+PendingSuffix)
	r.session.RegeneratingIndex = idx
	r.host.SaveChat()
	r.refreshOverlay(idx)
	r.generate(ctx, idx, events.GenContinue)
	return true
}

// ContinueLastMessage asks the host to extend the last message.
func (r *Reconciler) ContinueLastMessage(ctx context.Context, idx int) bool {
	if r.busy() || idx != r.lastIndex() || r.message(idx) == nil {
		return false
	}
	r.generate(ctx, idx, events.GenContinue)
	return true
}

// generate runs a host generation and logs failure. The tree keeps whatever
// was written before the call; later events reconcile it.
func (r *Reconciler) generate(ctx context.Context, idx int, mode events.GenerationType) {
	if err := r.host.Generate(ctx, mode); err != nil {
		r.logger.Printf("GENERATION_FAILED | idx=%d mode=%s error=%v", idx, mode, err)
	}
}
