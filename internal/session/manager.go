// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strconv"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks unsaved changes and runs the save callback when due.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	autoSaveEnabled  bool
	autoSaveInterval time.Duration
	lastSave         time.Time
	isDirty          bool
	saveCount        int
	lastErr          error

	onSave  func() error
	onError func(error)
}

// Config holds configuration for the session manager.
type Config struct {
	// AutoSaveEnabled enables saving from Check. Flush always saves.
	AutoSaveEnabled bool

	// AutoSaveInterval is the minimum time between autosaves. Zero saves
	// on every Check that finds the session dirty.
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		AutoSaveEnabled:  true,
		AutoSaveInterval: 0,
	}
}

// NewManager creates a new session manager.
func NewManager(cfg Config) *Manager {
	now := time.Now()
	return &Manager{
		sessionID:        uuid.NewString(),
		startTime:        now,
		lastActivity:     now,
		autoSaveEnabled:  cfg.AutoSaveEnabled,
		autoSaveInterval: cfg.AutoSaveInterval,
	}
}

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// =============================================================================
// DIRTY TRACKING
// =============================================================================

// MarkDirty records an unsaved change.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
	m.lastActivity = time.Now()
}

// MarkClean records a completed save.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = false
	m.lastSave = time.Now()
	m.saveCount++
	m.lastErr = nil
}

// IsDirty returns whether the session has unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}

// =============================================================================
// CALLBACKS
// =============================================================================

// SetSaveCallback sets the function that persists the session.
func (m *Manager) SetSaveCallback(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSave = fn
}

// SetErrorCallback sets the function told about failed saves.
func (m *Manager) SetErrorCallback(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// =============================================================================
// SAVING
// =============================================================================

// ShouldAutoSave returns true if an autosave is due.
func (m *Manager) ShouldAutoSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dueLocked()
}

func (m *Manager) dueLocked() bool {
	if !m.autoSaveEnabled || !m.isDirty {
		return false
	}
	return m.lastSave.IsZero() || time.Since(m.lastSave) >= m.autoSaveInterval
}

// Check saves when an autosave is due. It reports whether a save ran and
// succeeded.
func (m *Manager) Check() bool {
	m.mu.Lock()
	due := m.dueLocked()
	m.mu.Unlock()

	if !due {
		return false
	}
	return m.save() == nil
}

// Flush saves immediately if there are unsaved changes.
func (m *Manager) Flush() error {
	if !m.IsDirty() {
		return nil
	}
	return m.save()
}

// save runs the callback outside the lock.
func (m *Manager) save() error {
	m.mu.Lock()
	onSave := m.onSave
	onError := m.onError
	m.mu.Unlock()

	if onSave == nil {
		return nil
	}
	if err := onSave(); err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return err
	}
	m.MarkClean()
	return nil
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check for due autosaves.
type TickMsg struct {
	Time time.Time
}

// AutoSaveMsg reports an autosave that ran from a tick.
type AutoSaveMsg struct {
	Err error
}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick saves when due and schedules the next tick.
func (m *Manager) HandleTick() tea.Cmd {
	cmds := []tea.Cmd{TickCmd()}
	if m.ShouldAutoSave() {
		err := m.save()
		cmds = append(cmds, func() tea.Msg { return AutoSaveMsg{Err: err} })
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	SessionID string
	StartTime time.Time
	Duration  time.Duration
	IdleTime  time.Duration
	IsDirty   bool
	SaveCount int
	LastSave  time.Time
	LastError error
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	return Status{
		SessionID: m.sessionID,
		StartTime: m.startTime,
		Duration:  now.Sub(m.startTime),
		IdleTime:  now.Sub(m.lastActivity),
		IsDirty:   m.isDirty,
		SaveCount: m.saveCount,
		LastSave:  m.lastSave,
		LastError: m.lastErr,
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
