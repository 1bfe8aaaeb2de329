// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"log"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
)

// =============================================================================
// HOST BRIDGE
// =============================================================================

// HostBridge is the host capability set the reconciler depends on.
type HostBridge interface {
	// Chat returns the live message list. Messages are mutated in place.
	Chat() []*model.Message

	// Generate runs a generation in the given mode. It blocks until the
	// host has finished emitting the generation's events.
	Generate(ctx context.Context, mode events.GenerationType) error

	// SaveChat persists the chat. Fire and forget.
	SaveChat()

	// FormatMessage converts raw text into the host's display form.
	FormatMessage(text, name string, isSystem, isUser bool, index int) string

	// RenderMessage replaces the displayed body of the message at index.
	RenderMessage(index int, formatted string)

	// IsBusy reports whether a generation is in progress.
	IsBusy() bool
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the listening state for the in-flight generation.
type Session struct {
	// Listening is set between GENERATION_STARTED and the first render
	// that shows new valid text.
	Listening bool

	// StartSnapshot is the message text at generation start. Empty means
	// there is no prefix to diff against (swipe or fresh generation).
	StartSnapshot string

	// RegeneratingIndex is the chat index being regenerated, or -1.
	RegeneratingIndex int

	// PendingStopListen lets one more render through after the host
	// reports the generation stopped.
	PendingStopListen bool

	// SkipNextEdit swallows the MESSAGE_EDITED the reconciler emits itself.
	SkipNextEdit bool
}

func newSession() Session {
	return Session{RegeneratingIndex: -1}
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler mutates revision trees in response to host events.
type Reconciler struct {
	host   HostBridge
	bus    *events.Bus
	logger *log.Logger

	session Session

	refresh   func(index int)
	observers []func(Mutation)
	offs      []func()
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for generation failures.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOverlayRefresh sets the initial UI refresh callback.
func WithOverlayRefresh(fn func(index int)) Option {
	return func(r *Reconciler) {
		r.refresh = fn
	}
}

// New creates a reconciler for host. Call Attach to start listening on bus.
func New(host HostBridge, bus *events.Bus, opts ...Option) *Reconciler {
	r := &Reconciler{
		host:    host,
		bus:     bus,
		logger:  log.Default(),
		session: newSession(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach subscribes the reconciler to the host's lifecycle events. Calling
// it twice is a no-op.
func (r *Reconciler) Attach() {
	if r.bus == nil || r.offs != nil {
		return
	}
	r.offs = []func(){
		r.bus.On(events.GenerationStarted, r.onGenerationStarted),
		r.bus.On(events.GenerationStopped, r.onGenerationStopped),
		r.bus.On(events.CharacterMessageRendered, r.onCharacterRendered),
		r.bus.On(events.UserMessageRendered, r.onUserRendered),
		r.bus.On(events.MessageEdited, r.onMessageEdited),
		r.bus.On(events.MessageSwiped, r.onMessageSwiped),
		r.bus.On(events.ChatChanged, r.onChatChanged),
	}
}

// Detach removes every subscription made by Attach.
func (r *Reconciler) Detach() {
	for _, off := range r.offs {
		off()
	}
	r.offs = nil
}

// Attached reports whether the reconciler is subscribed.
func (r *Reconciler) Attached() bool {
	return r.offs != nil
}

// Session returns a copy of the current listening state.
func (r *Reconciler) Session() Session {
	return r.session
}

// RegisterOverlayRefresh replaces the single UI refresh callback.
func (r *Reconciler) RegisterOverlayRefresh(fn func(index int)) {
	r.refresh = fn
}

// =============================================================================
// HELPERS
// =============================================================================

// message returns the chat entry at idx, or nil.
func (r *Reconciler) message(idx int) *model.Message {
	if r.host == nil {
		return nil
	}
	chat := r.host.Chat()
	if idx < 0 || idx >= len(chat) {
		return nil
	}
	return chat[idx]
}

func (r *Reconciler) lastIndex() int {
	if r.host == nil {
		return -1
	}
	return len(r.host.Chat()) - 1
}

func (r *Reconciler) busy() bool {
	return r.host == nil || r.host.IsBusy()
}

func (r *Reconciler) refreshOverlay(idx int) {
	if r.refresh != nil {
		r.refresh(idx)
	}
}

func (r *Reconciler) resetListening() {
	if r.session.PendingStopListen {
		// The stop came before this render and has already been seen.
		r.session.RegeneratingIndex = -1
	}
	r.session.Listening = false
	r.session.PendingStopListen = false
	r.session.StartSnapshot = ""
}

// effectiveText is the best current text for msg: its own valid text, else
// the cached snapshot, else the tree's text for the active path.
func effectiveText(msg *model.Message, st *revision.State) string {
	if revision.IsValidText(msg.Mes) {
		return msg.Mes
	}
	if revision.IsValidText(st.CachedText) {
		return st.CachedText
	}
	return st.TextForPathPreferCache(st.ActivePath())
}

// render formats text for the message at idx and writes it to the display.
func (r *Reconciler) render(idx int, msg *model.Message, text string) {
	r.host.RenderMessage(idx, r.host.FormatMessage(text, msg.Name, msg.IsSystem, msg.IsUser, idx))
}
