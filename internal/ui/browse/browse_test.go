// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package browse

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/host"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/reconcile"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/session"
)

// =============================================================================
// HELPERS
// =============================================================================

type fixture struct {
	chat *model.Chat
	host *host.Host
	rec  *reconcile.Reconciler
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	chat := model.NewChat("Aria")
	chat.AddUserMessage("", "Hi")
	chat.AddCharacterMessage("Hello")

	bus := events.NewBus()
	h := host.New(chat, bus, host.NewScriptedGenerator(replies...))
	rec := reconcile.New(h, bus)
	rec.Attach()
	t.Cleanup(rec.Detach)
	return &fixture{chat: chat, host: h, rec: rec}
}

func (f *fixture) browser() Model {
	return New(Options{Controller: f.rec, Host: f.host, Index: -1})
}

func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(k)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// continueNow runs a continue generation synchronously and feeds its result
// back into the model.
func continueNow(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := m.startGeneration("continue", m.ctrl.ContinueLastMessage)
	require.True(t, m.Busy())
	next, _ := m.Update(cmd())
	return next.(Model)
}

func paths(m Model) []string {
	out := make([]string, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row.Path.String())
	}
	return out
}

type failingHost struct {
	*host.Host
	err error
}

func (h *failingHost) TakeError() error { return h.err }

// =============================================================================
// TESTS
// =============================================================================

func TestNewOpensLastMessage(t *testing.T) {
	f := newFixture(t)
	m := f.browser()

	require.Equal(t, 1, m.Index())
	require.Equal(t, []string{"0"}, paths(m))
	require.Equal(t, revision.Path{0}, m.Cursor())
	require.Equal(t, "Hello", m.text)
}

func TestContinueAddsChildAndFollowsCursor(t *testing.T) {
	f := newFixture(t, " world")
	m := continueNow(t, f.browser())

	require.False(t, m.Busy())
	require.Equal(t, "continue done", m.Status())
	require.Equal(t, []string{"0", "0/0"}, paths(m))
	require.Equal(t, revision.Path{0, 0}, m.Cursor())
	require.Equal(t, "Hello world", m.text)
}

func TestBranchNavigationAndApply(t *testing.T) {
	f := newFixture(t, " world", " there")
	m := continueNow(t, f.browser())

	m = press(t, m, runes("u"))
	require.Equal(t, "undid last continue", m.Status())
	require.Equal(t, "Hello", f.chat.Message(1).Mes)
	require.Equal(t, revision.Path{0}, m.Cursor())

	m = continueNow(t, m)
	require.Equal(t, []string{"0", "0/0", "0/1"}, paths(m))
	require.Equal(t, revision.Path{0, 1}, m.Cursor())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, revision.Path{0, 0}, m.Cursor())
	require.Equal(t, "Hello world", m.text)

	// No sibling beyond the first child.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, revision.Path{0, 0}, m.Cursor())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "applied 0/0", m.Status())
	require.Equal(t, "Hello world", f.chat.Message(1).Mes)
	require.Equal(t, revision.Path{0, 0}, m.Cursor())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, revision.Path{0}, m.Cursor())

	m = press(t, m, runes("j"))
	m = press(t, m, runes("j"))
	m = press(t, m, runes("j"))
	require.Equal(t, revision.Path{0, 1}, m.Cursor())

	m = press(t, m, runes("g"))
	require.Equal(t, revision.Path{0, 0}, m.Cursor())
}

func TestUndoAtRootReportsNothing(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.browser(), runes("u"))
	require.Equal(t, "nothing to undo", m.Status())
}

func TestContinueNeedsLastMessage(t *testing.T) {
	f := newFixture(t)
	f.chat.AddUserMessage("", "And then?")
	m := New(Options{Controller: f.rec, Host: f.host, Index: 1})

	next, cmd := m.Update(runes("c"))
	m = next.(Model)
	require.Nil(t, cmd)
	require.False(t, m.Busy())
	require.Contains(t, m.Status(), "last message only")
}

func TestMessageStepping(t *testing.T) {
	f := newFixture(t)
	f.chat.AddUserMessage("", "More")
	f.chat.AddCharacterMessage("Sure")
	m := f.browser()
	require.Equal(t, 3, m.Index())

	m = press(t, m, runes("p"))
	require.Equal(t, 1, m.Index(), "user messages are skipped")
	require.Equal(t, "Hello", m.text)

	m = press(t, m, runes("p"))
	require.Equal(t, 1, m.Index())

	m = press(t, m, runes("n"))
	require.Equal(t, 3, m.Index())
}

func TestBusyIgnoresTreeKeys(t *testing.T) {
	f := newFixture(t, " world")
	m, cmd := f.browser().startGeneration("continue", f.rec.ContinueLastMessage)

	m = press(t, m, runes("u"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Busy())

	next, quit := m.Update(runes("q"))
	m = next.(Model)
	require.Nil(t, quit, "quit waits for the generation")
	require.True(t, m.quitAfter)

	next, quit = m.Update(cmd())
	m = next.(Model)
	require.False(t, m.Busy())
	require.NotNil(t, quit)
	require.Equal(t, tea.QuitMsg{}, quit())
}

func TestGenerationErrorIsShown(t *testing.T) {
	f := newFixture(t, " world")
	h := &failingHost{Host: f.host, err: errors.New("backend down")}
	m := New(Options{Controller: f.rec, Host: h, Index: -1})

	m = continueNow(t, m)
	require.True(t, m.statusErr)
	require.Equal(t, "continue failed: backend down", m.Status())
}

func TestRefreshMessageRereadsTree(t *testing.T) {
	f := newFixture(t, " world")
	m := f.browser()

	require.True(t, f.rec.ContinueLastMessage(context.Background(), 1))
	require.Equal(t, []string{"0"}, paths(m))

	next, _ := m.Update(refreshMsg{Index: 1})
	m = next.(Model)
	require.Equal(t, []string{"0", "0/0"}, paths(m))
	require.Equal(t, revision.Path{0}, m.Cursor(), "cursor stays on its path")
}

func TestSessionTick(t *testing.T) {
	chat := model.NewChat("Aria")
	chat.AddCharacterMessage("Hello")
	bus := events.NewBus()
	sess := session.NewManager(session.DefaultConfig())
	h := host.New(chat, bus, host.NewScriptedGenerator(), host.WithSession(sess))
	rec := reconcile.New(h, bus)

	m := New(Options{Controller: rec, Host: h, Index: -1})
	require.NotNil(t, m.Init())

	_, cmd := m.Update(session.TickMsg{})
	require.NotNil(t, cmd)

	next, _ := m.Update(session.AutoSaveMsg{Err: errors.New("disk full")})
	m = next.(Model)
	require.True(t, m.statusErr)
	require.Contains(t, m.Status(), "disk full")
}

func TestView(t *testing.T) {
	f := newFixture(t, " world")
	m := continueNow(t, f.browser())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	out := m.View()
	require.Contains(t, out, "continuum · Aria")
	require.Contains(t, out, "message #1 of 2")
	require.Contains(t, out, "0/0")
	require.Contains(t, out, "cont")
	require.Contains(t, out, "Hello world")
	require.True(t, strings.Contains(out, "▸ "), "cursor marker")
}
