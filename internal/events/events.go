// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import "sync"

// =============================================================================
// EVENT NAMES
// =============================================================================

// Name identifies a host lifecycle event.
type Name string

const (
	GenerationStarted        Name = "GENERATION_STARTED"
	GenerationStopped        Name = "GENERATION_STOPPED"
	CharacterMessageRendered Name = "CHARACTER_MESSAGE_RENDERED"
	UserMessageRendered      Name = "USER_MESSAGE_RENDERED"
	MessageEdited            Name = "MESSAGE_EDITED"
	MessageSwiped            Name = "MESSAGE_SWIPED"
	ChatChanged              Name = "CHAT_CHANGED"
)

// String returns the wire name of the event.
func (n Name) String() string {
	return string(n)
}

// =============================================================================
// GENERATION TYPES
// =============================================================================

// GenerationType is the mode passed to the host's generate call and carried
// on GENERATION_STARTED.
type GenerationType string

const (
	GenContinue    GenerationType = "continue"
	GenNormal      GenerationType = "normal"
	GenSwipe       GenerationType = "swipe"
	GenRegenerate  GenerationType = "regenerate"
	GenQuiet       GenerationType = "quiet"
	GenImpersonate GenerationType = "impersonate"
)

// ParseGenerationType maps a string onto a known type.
func ParseGenerationType(s string) (GenerationType, bool) {
	switch t := GenerationType(s); t {
	case GenContinue, GenNormal, GenSwipe, GenRegenerate, GenQuiet, GenImpersonate:
		return t, true
	}
	return "", false
}

// =============================================================================
// EVENT
// =============================================================================

// Event is one emitted host event. Index is the chat index the event refers
// to, or -1 for chat-wide events.
type Event struct {
	Name   Name
	Index  int
	Type   GenerationType
	DryRun bool
	Args   map[string]any
}

// Handler receives emitted events.
type Handler func(Event)

// =============================================================================
// BUS
// =============================================================================

type subscription struct {
	id int
	fn Handler
}

// Bus is a synchronous, re-entrant named event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]subscription
	nextID   int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Name][]subscription)}
}

// On registers fn for name and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (b *Bus) On(name Name, fn Handler) (off func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name Name, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[name]
	for i, s := range subs {
		if s.id == id {
			// Copy so an in-flight Emit keeps its snapshot intact.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, name)
			} else {
				b.handlers[name] = next
			}
			return
		}
	}
}

// Emit delivers e to every handler registered for e.Name, in registration
// order. Handlers are snapshotted first and run without the lock held.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	subs := b.handlers[e.Name]
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Count returns the number of handlers registered for name.
func (b *Bus) Count(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
