// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.AutoSaveEnabled {
		t.Error("Default AutoSaveEnabled should be true")
	}
	if cfg.AutoSaveInterval != 0 {
		t.Errorf("Default AutoSaveInterval = %v, want 0", cfg.AutoSaveInterval)
	}
}

func TestManager_SessionID(t *testing.T) {
	m := NewManager(DefaultConfig())
	if m.SessionID() == "" || m.SessionID() != m.SessionID() {
		t.Error("SessionID should be stable and non-empty")
	}
}

func TestManager_ImmediateSave(t *testing.T) {
	m := NewManager(DefaultConfig())
	saves := 0
	m.SetSaveCallback(func() error { saves++; return nil })

	if m.Check() {
		t.Error("clean session should not save")
	}
	m.MarkDirty()
	if !m.Check() {
		t.Error("dirty session should save")
	}
	if m.IsDirty() {
		t.Error("session should be clean after save")
	}
	m.MarkDirty()
	m.Check()
	if saves != 2 {
		t.Errorf("saves = %d, want 2", saves)
	}
}

func TestManager_IntervalThrottles(t *testing.T) {
	m := NewManager(Config{AutoSaveEnabled: true, AutoSaveInterval: time.Hour})
	saves := 0
	m.SetSaveCallback(func() error { saves++; return nil })

	m.MarkDirty()
	m.Check()
	m.MarkDirty()
	m.Check()

	if saves != 1 {
		t.Errorf("saves = %d, want 1 within the interval", saves)
	}
	if !m.IsDirty() {
		t.Error("second change should still be pending")
	}

	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if saves != 2 || m.IsDirty() {
		t.Errorf("Flush should save pending changes; saves = %d", saves)
	}
}

func TestManager_Disabled(t *testing.T) {
	m := NewManager(Config{AutoSaveEnabled: false})
	saves := 0
	m.SetSaveCallback(func() error { saves++; return nil })

	m.MarkDirty()
	if m.Check() || saves != 0 {
		t.Error("disabled autosave should not save from Check")
	}
	if err := m.Flush(); err != nil || saves != 1 {
		t.Errorf("Flush() = %v, saves = %d", err, saves)
	}
}

func TestManager_SaveError(t *testing.T) {
	m := NewManager(DefaultConfig())
	boom := errors.New("disk full")
	var reported error
	m.SetSaveCallback(func() error { return boom })
	m.SetErrorCallback(func(err error) { reported = err })

	m.MarkDirty()
	if m.Check() {
		t.Error("failed save should report false")
	}
	if !errors.Is(reported, boom) {
		t.Errorf("reported = %v, want %v", reported, boom)
	}
	st := m.GetStatus()
	if !st.IsDirty || !errors.Is(st.LastError, boom) || st.SaveCount != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestManager_FlushClean(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.SetSaveCallback(func() error { t.Error("clean flush should not save"); return nil })
	if err := m.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}

func TestManager_HandleTick(t *testing.T) {
	m := NewManager(DefaultConfig())
	saves := 0
	m.SetSaveCallback(func() error { saves++; return nil })
	m.MarkDirty()

	if cmd := m.HandleTick(); cmd == nil {
		t.Fatal("HandleTick should always return a command")
	}
	if saves != 1 {
		t.Errorf("saves = %d, want 1", saves)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{2 * time.Minute, "2m"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
