// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned when a generation is already running.
	ErrBusy = errors.New("host is busy generating")

	// ErrNoTarget is returned when there is no character message to
	// continue, swipe or regenerate.
	ErrNoTarget = errors.New("no character message to generate onto")

	// ErrUnsupportedMode is returned for generation types the host does
	// not run.
	ErrUnsupportedMode = errors.New("unsupported generation mode")
)

// =============================================================================
// HOST
// =============================================================================

// Saver persists a chat.
type Saver interface {
	Save(chat *model.Chat) error
}

// Host owns one chat and plays the host side of the event protocol.
type Host struct {
	mu   sync.Mutex
	busy bool

	chat      *model.Chat
	bus       *events.Bus
	generator Generator
	formatter Formatter
	saver     Saver
	session   *session.Manager
	logger    *log.Logger

	display  map[int]string
	onRender func(index int, formatted string)
}

// Option configures a Host.
type Option func(*Host)

// WithFormatter sets the display formatter. Default is PlainFormatter.
func WithFormatter(f Formatter) Option {
	return func(h *Host) {
		if f != nil {
			h.formatter = f
		}
	}
}

// WithSaver sets where SaveChat writes.
func WithSaver(s Saver) Option {
	return func(h *Host) { h.saver = s }
}

// WithSession replaces the autosave manager.
func WithSession(m *session.Manager) Option {
	return func(h *Host) {
		if m != nil {
			h.session = m
		}
	}
}

// WithLogger sets the logger. Default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRenderHook is called on every display update, including per-token
// updates during a generation.
func WithRenderHook(fn func(index int, formatted string)) Option {
	return func(h *Host) { h.onRender = fn }
}

// New creates a host for chat publishing on bus.
func New(chat *model.Chat, bus *events.Bus, gen Generator, opts ...Option) *Host {
	if chat == nil {
		chat = model.NewChat("")
	}
	h := &Host{
		chat:      chat,
		bus:       bus,
		generator: gen,
		formatter: PlainFormatter{},
		session:   session.NewManager(session.DefaultConfig()),
		logger:    log.Default(),
		display:   make(map[int]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.session.SetSaveCallback(h.persist)
	h.session.SetErrorCallback(func(err error) {
		h.logger.Printf("SAVE_FAILED | chat=%s error=%v", h.chat.ID, err)
	})
	return h
}

// =============================================================================
// HOST BRIDGE
// =============================================================================

// Chat returns the live message list.
func (h *Host) Chat() []*model.Message {
	return h.chat.Messages
}

// SaveChat marks the chat dirty and saves when the autosave policy says so.
func (h *Host) SaveChat() {
	h.session.MarkDirty()
	h.session.Check()
}

// FormatMessage formats text with the configured formatter.
func (h *Host) FormatMessage(text, name string, isSystem, isUser bool, index int) string {
	return h.formatter.Format(text, name, isSystem, isUser, index)
}

// RenderMessage replaces the displayed body of the message at index.
func (h *Host) RenderMessage(index int, formatted string) {
	h.mu.Lock()
	h.display[index] = formatted
	hook := h.onRender
	h.mu.Unlock()
	if hook != nil {
		hook(index, formatted)
	}
}

// IsBusy reports whether a generation is running.
func (h *Host) IsBusy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.busy
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ChatModel returns the chat the host owns.
func (h *Host) ChatModel() *model.Chat {
	return h.chat
}

// Display returns the last rendered body of the message at index.
func (h *Host) Display(index int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.display[index]
}

// Bus returns the event bus the host publishes on.
func (h *Host) Bus() *events.Bus {
	return h.bus
}

// Session returns the autosave manager.
func (h *Host) Session() *session.Manager {
	return h.session
}

// Flush saves immediately if there are unsaved changes.
func (h *Host) Flush() error {
	return h.session.Flush()
}

func (h *Host) persist() error {
	if h.saver == nil {
		return nil
	}
	return h.saver.Save(h.chat)
}

// SetChat swaps the active chat and emits CHAT_CHANGED.
func (h *Host) SetChat(chat *model.Chat) {
	if chat == nil {
		return
	}
	h.mu.Lock()
	h.chat = chat
	h.display = make(map[int]string)
	h.mu.Unlock()
	h.emit(events.Event{Name: events.ChatChanged, Index: -1})
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// SendUserMessage appends a user message and renders it.
func (h *Host) SendUserMessage(text string) int {
	msg := h.chat.AddUserMessage("", text)
	idx := h.chat.LastIndex()
	h.render(idx, msg)
	h.emit(events.Event{Name: events.UserMessageRendered, Index: idx})
	h.SaveChat()
	return idx
}

// EditMessage replaces a message's text the way a user edit does.
func (h *Host) EditMessage(idx int, text string) error {
	msg := h.chat.Message(idx)
	if msg == nil {
		return fmt.Errorf("edit message %d: out of range", idx)
	}
	msg.Mes = text
	msg.SyncSwipe()
	h.emit(events.Event{Name: events.MessageEdited, Index: idx})
	h.render(idx, msg)
	h.SaveChat()
	return nil
}

// Swipe selects a stored alternate on a character message.
func (h *Host) Swipe(idx, swipeID int) error {
	msg := h.chat.Message(idx)
	if msg == nil || msg.IsUser {
		return fmt.Errorf("swipe message %d: %w", idx, ErrNoTarget)
	}
	if len(msg.Swipes) == 0 {
		msg.Swipes = []string{msg.Mes}
	}
	if swipeID < 0 || swipeID >= len(msg.Swipes) {
		return fmt.Errorf("swipe message %d: alternate %d out of range (have %d)", idx, swipeID, len(msg.Swipes))
	}
	msg.SwipeID = swipeID
	msg.Mes = msg.Swipes[swipeID]
	h.emit(events.Event{Name: events.MessageSwiped, Index: idx})
	h.render(idx, msg)
	h.SaveChat()
	return nil
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate runs a generation in mode and blocks until its events are out.
//
// Event order: GENERATION_STARTED, per-token display updates without
// events, CHARACTER_MESSAGE_RENDERED when any text arrived, then
// GENERATION_STOPPED. A swipe emits MESSAGE_SWIPED before it starts. A
// failed generation still emits GENERATION_STOPPED and restores the
// message when nothing was produced.
func (h *Host) Generate(ctx context.Context, mode events.GenerationType) error {
	if h.generator == nil {
		return fmt.Errorf("generate: no generator configured")
	}

	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return ErrBusy
	}
	h.busy = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.busy = false
		h.mu.Unlock()
	}()

	switch mode {
	case events.GenNormal:
		return h.generateNew(ctx)
	case events.GenContinue:
		return h.generateContinue(ctx)
	case events.GenSwipe:
		return h.generateSwipe(ctx)
	case events.GenRegenerate:
		return h.generateRegenerate(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
}

// target returns the last message when it is a character message.
func (h *Host) target() (int, *model.Message) {
	idx := h.chat.LastIndex()
	msg := h.chat.Message(idx)
	if msg == nil || msg.IsUser || msg.IsSystem {
		return -1, nil
	}
	return idx, msg
}

func (h *Host) request(mode events.GenerationType, upto int, prefix string) Request {
	history := h.chat.Messages
	if upto >= 0 && upto <= len(history) {
		history = history[:upto]
	}
	return Request{
		Mode:      mode,
		Character: h.chat.Character,
		UserName:  h.chat.UserName,
		History:   history,
		Prefix:    prefix,
	}
}

func (h *Host) generateNew(ctx context.Context) error {
	h.started(events.GenNormal)

	msg := h.chat.AddCharacterMessage(revision.PendingPlaceholder)
	idx := h.chat.LastIndex()
	h.render(idx, msg)

	text, err := h.stream(ctx, h.request(events.GenNormal, idx, ""), idx, msg, "")
	if text == "" {
		h.chat.Messages = h.chat.Messages[:idx]
		return h.finish(-1, events.GenNormal, err)
	}
	msg.Mes = text
	return h.finish(idx, events.GenNormal, err)
}

func (h *Host) generateContinue(ctx context.Context) error {
	idx, msg := h.target()
	if msg == nil {
		return ErrNoTarget
	}
	h.started(events.GenContinue)

	prefix := msg.Mes
	text, err := h.stream(ctx, h.request(events.GenContinue, idx, prefix), idx, msg, prefix)
	if text == "" {
		msg.Mes = prefix
		h.render(idx, msg)
		return h.finish(-1, events.GenContinue, err)
	}
	msg.Mes = prefix + text
	msg.SyncSwipe()
	return h.finish(idx, events.GenContinue, err)
}

func (h *Host) generateSwipe(ctx context.Context) error {
	idx, msg := h.target()
	if msg == nil {
		return ErrNoTarget
	}
	prevID, prevText := msg.SwipeID, msg.Mes
	if len(msg.Swipes) == 0 {
		msg.Swipes = []string{msg.Mes}
	}
	msg.SetSwipe(len(msg.Swipes), revision.PendingPlaceholder)
	h.emit(events.Event{Name: events.MessageSwiped, Index: idx})
	h.render(idx, msg)

	h.started(events.GenSwipe)
	text, err := h.stream(ctx, h.request(events.GenSwipe, idx, ""), idx, msg, "")
	if text == "" {
		msg.Swipes = msg.Swipes[:len(msg.Swipes)-1]
		msg.SwipeID = prevID
		msg.Mes = prevText
		h.emit(events.Event{Name: events.MessageSwiped, Index: idx})
		h.render(idx, msg)
		return h.finish(-1, events.GenSwipe, err)
	}
	msg.Mes = text
	msg.SyncSwipe()
	return h.finish(idx, events.GenSwipe, err)
}

func (h *Host) generateRegenerate(ctx context.Context) error {
	idx, msg := h.target()
	if msg == nil {
		return ErrNoTarget
	}
	prev := msg.Mes
	msg.Mes = revision.PendingPlaceholder
	h.render(idx, msg)

	h.started(events.GenRegenerate)
	text, err := h.stream(ctx, h.request(events.GenRegenerate, idx, ""), idx, msg, "")
	if text == "" {
		msg.Mes = prev
		h.render(idx, msg)
		return h.finish(-1, events.GenRegenerate, err)
	}
	msg.Mes = text
	msg.SyncSwipe()
	return h.finish(idx, events.GenRegenerate, err)
}

// stream runs the generator, updating the display after every token. It
// returns the generated text without the prefix.
func (h *Host) stream(ctx context.Context, req Request, idx int, msg *model.Message, prefix string) (string, error) {
	var sb strings.Builder
	err := h.generator.Generate(ctx, req, func(token string) {
		sb.WriteString(token)
		h.RenderMessage(idx, h.FormatMessage(prefix+sb.String(), msg.Name, msg.IsSystem, msg.IsUser, idx))
	})
	return sb.String(), err
}

func (h *Host) started(mode events.GenerationType) {
	h.emit(events.Event{Name: events.GenerationStarted, Index: -1, Type: mode})
}

// finish emits the closing events. idx < 0 skips the render event.
func (h *Host) finish(idx int, mode events.GenerationType, err error) error {
	if idx >= 0 {
		msg := h.chat.Message(idx)
		h.render(idx, msg)
		h.emit(events.Event{Name: events.CharacterMessageRendered, Index: idx})
	}
	h.emit(events.Event{Name: events.GenerationStopped, Index: -1})
	h.SaveChat()

	if err != nil {
		h.logger.Printf("GENERATION_ERROR | mode=%s idx=%d error=%v", mode, idx, err)
		return fmt.Errorf("generate %s: %w", mode, err)
	}
	return nil
}

func (h *Host) render(idx int, msg *model.Message) {
	if msg == nil {
		return
	}
	h.RenderMessage(idx, h.FormatMessage(msg.Mes, msg.Name, msg.IsSystem, msg.IsUser, idx))
}

func (h *Host) emit(e events.Event) {
	if h.bus != nil {
		h.bus.Emit(e)
	}
}
