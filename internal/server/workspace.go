// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"github.com/jeranaias/continuum/internal/host"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/reconcile"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/storage"
)

// HostWorkspace serves chats from a store through a host and its
// reconciler, so API navigation goes through the same path as the CLI.
type HostWorkspace struct {
	store *storage.ChatStore
	host  *host.Host
	rec   *reconcile.Reconciler
}

// NewHostWorkspace creates a workspace over store. h should save to store.
func NewHostWorkspace(store *storage.ChatStore, h *host.Host, rec *reconcile.Reconciler) *HostWorkspace {
	return &HostWorkspace{store: store, host: h, rec: rec}
}

// List returns the saved chats, newest first.
func (w *HostWorkspace) List() ([]storage.ChatMeta, error) {
	return w.store.List()
}

// Open loads ref and makes it the host's chat. Unsaved changes to the
// previous chat are flushed first.
func (w *HostWorkspace) Open(ref string) (*model.Chat, error) {
	if err := w.host.Flush(); err != nil {
		return nil, err
	}
	chat, err := w.store.Resolve(ref)
	if err != nil {
		return nil, err
	}
	w.host.SetChat(chat)
	return chat, nil
}

// Apply shows the revision at path on message idx of the open chat.
func (w *HostWorkspace) Apply(idx int, path revision.Path) bool {
	return w.rec.ApplyPathToMessage(idx, path)
}

// Undo steps message idx of the open chat back one revision.
func (w *HostWorkspace) Undo(idx int) bool {
	return w.rec.UndoLastContinue(idx)
}

// Save writes the open chat if it has unsaved changes.
func (w *HostWorkspace) Save() error {
	return w.host.Flush()
}
