// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package browse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/session"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Controller is the set of reconciler operations the browser drives.
type Controller interface {
	ApplyPathToMessage(idx int, path revision.Path) bool
	UndoLastContinue(idx int) bool
	RegenerateLastContinue(ctx context.Context, idx int) bool
	ContinueLastMessage(ctx context.Context, idx int) bool
}

// Host owns the chat being browsed.
type Host interface {
	ChatModel() *model.Chat
	Display(index int) string
	Session() *session.Manager
}

// errorTaker is implemented by hosts that remember the last generation
// failure.
type errorTaker interface {
	TakeError() error
}

// overlay is implemented by controllers that announce tree changes.
type overlay interface {
	RegisterOverlayRefresh(fn func(index int))
}

// Options configures a browser.
type Options struct {
	Controller Controller
	Host       Host

	// Index is the message to open. Negative opens the last message.
	Index int

	// PreviewWidth bounds the one-line fragment previews. Zero means 48.
	PreviewWidth int

	// Timeout bounds one generation. Zero means two minutes.
	Timeout time.Duration

	Logger *log.Logger
}

// =============================================================================
// MESSAGES
// =============================================================================

// generatedMsg reports a finished continue or regenerate.
type generatedMsg struct {
	Op      string
	Index   int
	Started bool
	Err     error
}

// refreshMsg asks the browser to re-read the tree of one message.
type refreshMsg struct {
	Index int
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the browser state.
type Model struct {
	ctrl   Controller
	host   Host
	logger *log.Logger

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	ctx     context.Context
	timeout time.Duration

	idx    int
	state  *revision.State
	rows   []revision.Row
	lines  []string
	cursor int
	text   string

	previewWidth  int
	width, height int

	busy      bool
	busyOp    string
	cancel    context.CancelFunc
	quitAfter bool

	status    string
	statusErr bool
}

// New creates a browser on opts.Index.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	width := opts.PreviewWidth
	if width <= 0 {
		width = 48
	}

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = activeStyle

	m := Model{
		ctrl:         opts.Controller,
		host:         opts.Host,
		logger:       logger,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		ctx:          context.Background(),
		timeout:      timeout,
		idx:          opts.Index,
		previewWidth: width,
		width:        80,
		height:       24,
	}
	chat := m.chat()
	if m.idx < 0 || m.idx > chat.LastIndex() {
		m.idx = chat.LastIndex()
	}
	m.refresh(true)
	return m
}

// WithContext returns a copy whose generations derive from ctx.
func (m Model) WithContext(ctx context.Context) Model {
	if ctx != nil {
		m.ctx = ctx
	}
	return m
}

// Run starts the browser full screen and blocks until it quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	m := New(opts).WithContext(ctx)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if o, ok := opts.Controller.(overlay); ok {
		// Send blocks until the event loop reads it, and the callback can
		// fire from inside Update.
		o.RegisterOverlayRefresh(func(index int) {
			go p.Send(refreshMsg{Index: index})
		})
		defer o.RegisterOverlayRefresh(nil)
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Index returns the message being browsed.
func (m Model) Index() int { return m.idx }

// Cursor returns the path under the cursor, or nil when the tree is empty.
func (m Model) Cursor() revision.Path {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].Path
}

// Busy reports whether a generation is running.
func (m Model) Busy() bool { return m.busy }

// Status returns the status line text.
func (m Model) Status() string { return m.status }

func (m Model) chat() *model.Chat {
	if m.host == nil {
		return nil
	}
	return m.host.ChatModel()
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the autosave tick.
func (m Model) Init() tea.Cmd {
	return session.TickCmd()
}

// Update handles input and background results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case generatedMsg:
		return m.handleGenerated(msg)

	case refreshMsg:
		if !m.busy && msg.Index == m.idx {
			m.refresh(false)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case session.TickMsg:
		sess := m.host.Session()
		// The generation goroutine owns the chat until it returns.
		if sess == nil || m.busy {
			return m, session.TickCmd()
		}
		return m, sess.HandleTick()

	case session.AutoSaveMsg:
		if msg.Err != nil {
			m.setError("autosave failed: %v", msg.Err)
		} else {
			m.setStatus("autosaved")
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.busy {
			m.quitAfter = true
			m.cancel()
			m.setStatus("stopping generation...")
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.busy {
		if key.Matches(msg, m.keys.Cancel) {
			m.cancel()
			m.setStatus("stopping generation...")
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(m.cursor - 1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(m.cursor + 1)
	case key.Matches(msg, m.keys.PrevSibling):
		m.stepSibling(-1)
	case key.Matches(msg, m.keys.NextSibling):
		m.stepSibling(1)
	case key.Matches(msg, m.keys.Parent):
		if p := m.Cursor(); len(p) > 1 {
			m.moveTo(p.Parent())
		}
	case key.Matches(msg, m.keys.Current):
		m.moveCursor(m.currentRow())

	case key.Matches(msg, m.keys.Apply):
		p := m.Cursor()
		if p == nil {
			return m, nil
		}
		if m.ctrl.ApplyPathToMessage(m.idx, p) {
			m.setStatus("applied " + p.String())
		} else {
			m.setStatus("nothing to apply at " + p.String())
		}
		m.refresh(false)

	case key.Matches(msg, m.keys.Undo):
		if m.ctrl.UndoLastContinue(m.idx) {
			m.setStatus("undid last continue")
		} else {
			m.setStatus("nothing to undo")
		}
		m.refresh(true)

	case key.Matches(msg, m.keys.Continue):
		return m.generate("continue", m.ctrl.ContinueLastMessage)

	case key.Matches(msg, m.keys.Regenerate):
		return m.generate("regenerate", m.ctrl.RegenerateLastContinue)

	case key.Matches(msg, m.keys.PrevMessage):
		m.stepMessage(-1)
	case key.Matches(msg, m.keys.NextMessage):
		m.stepMessage(1)
	}
	return m, nil
}

// =============================================================================
// GENERATION
// =============================================================================

func (m Model) generate(op string, fn func(context.Context, int) bool) (tea.Model, tea.Cmd) {
	if m.idx != m.chat().LastIndex() {
		m.setStatus(op + " works on the last message only")
		return m, nil
	}
	m, cmd := m.startGeneration(op, fn)
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// startGeneration marks the browser busy and returns the command that runs
// fn off the UI goroutine.
func (m Model) startGeneration(op string, fn func(context.Context, int) bool) (Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	m.busy = true
	m.busyOp = op
	m.cancel = cancel
	m.setStatus("")
	m.logger.Printf("BROWSE_GENERATE | op=%s idx=%d", op, m.idx)

	idx, h := m.idx, m.host
	return m, func() tea.Msg {
		defer cancel()
		started := fn(ctx, idx)
		var err error
		if t, ok := h.(errorTaker); ok {
			err = t.TakeError()
		}
		return generatedMsg{Op: op, Index: idx, Started: started, Err: err}
	}
}

func (m Model) handleGenerated(msg generatedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.busyOp = ""
	m.cancel = nil

	switch {
	case msg.Err != nil:
		m.setError("%s failed: %v", msg.Op, msg.Err)
	case !msg.Started:
		m.setStatus("nothing to " + msg.Op)
	default:
		m.setStatus(msg.Op + " done")
	}
	m.refresh(true)

	if m.quitAfter {
		return m, tea.Quit
	}
	return m, nil
}

// =============================================================================
// NAVIGATION
// =============================================================================

func (m *Model) moveCursor(i int) {
	if len(m.rows) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(m.rows) {
		i = len(m.rows) - 1
	}
	m.cursor = i
	m.text = m.state.TextForPathPreferCache(m.rows[i].Path)
}

// moveTo puts the cursor on p. It reports false when p is not a row.
func (m *Model) moveTo(p revision.Path) bool {
	for i, row := range m.rows {
		if row.Path.Equal(p) {
			m.moveCursor(i)
			return true
		}
	}
	return false
}

func (m *Model) stepSibling(delta int) {
	p := m.Cursor()
	if p == nil {
		return
	}
	if next, ok := m.state.SiblingPath(p, delta); ok {
		m.moveTo(next)
	}
}

// stepMessage moves to the next character message in direction delta.
func (m *Model) stepMessage(delta int) {
	chat := m.chat()
	for i := m.idx + delta; i >= 0 && i <= chat.LastIndex(); i += delta {
		msg := chat.Message(i)
		if msg.IsUser || msg.IsSystem {
			continue
		}
		m.idx = i
		m.cursor = 0
		m.rows = nil
		m.refresh(true)
		m.setStatus("")
		return
	}
}

func (m Model) currentRow() int {
	for i, row := range m.rows {
		if row.Current {
			return i
		}
	}
	return 0
}

// refresh re-reads the tree of the current message. With follow the cursor
// jumps to the current node, otherwise it stays on its path when it still
// exists.
func (m *Model) refresh(follow bool) {
	msg := m.chat().Message(m.idx)
	if msg == nil {
		m.state, m.rows, m.lines, m.text, m.cursor = nil, nil, nil, "", 0
		return
	}

	keep := m.Cursor().Clone()
	m.state = revision.Hydrate(msg)
	m.rows = m.state.Outline()
	m.lines = make([]string, len(m.rows))
	for i, row := range m.rows {
		m.lines[i] = m.renderRow(row)
	}

	if follow || len(keep) == 0 || !m.moveTo(keep) {
		m.moveCursor(m.currentRow())
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(format string, args ...interface{}) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = true
	m.logger.Printf("BROWSE_ERROR | idx=%d error=%s", m.idx, m.status)
}
