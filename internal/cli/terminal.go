// terminal.go - Terminal detection and color control for the continuum CLI.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTTY reports whether stdin is a terminal.
func IsTTY() bool { return isTerminal(os.Stdin) }

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool { return isTerminal(os.Stdout) }

// RequiresTTY returns a TTYRequiredError unless both stdin and stdout are
// terminals.
func RequiresTTY(operation string) error {
	if IsTTY() && IsStdoutTTY() {
		return nil
	}
	return &TTYRequiredError{Operation: operation}
}

// TTYRequiredError is returned by interactive commands run from a pipe.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	if e.Operation == "" {
		return "not a terminal; interactive mode not available"
	}
	return "not a terminal; cannot " + e.Operation + " interactively"
}

// =============================================================================
// WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is used when stdout is not a terminal.
	DefaultTerminalWidth = 80

	// MinTerminalWidth keeps tree rows and rendered markdown readable on
	// very narrow windows.
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the width of stdout, clamped to
// MinTerminalWidth.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || width <= 0:
		return DefaultTerminalWidth
	case width < MinTerminalWidth:
		return MinTerminalWidth
	default:
		return width
	}
}

// =============================================================================
// COLOR
// =============================================================================

var colorMode struct {
	sync.Mutex
	decided bool
	enabled bool
}

// ColorsEnabled reports whether output should be colored. NO_COLOR
// (https://no-color.org/) wins over FORCE_COLOR; otherwise color follows
// whether stdout is a terminal.
func ColorsEnabled() bool {
	colorMode.Lock()
	defer colorMode.Unlock()
	if !colorMode.decided {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorMode.enabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colorMode.enabled = true
		default:
			colorMode.enabled = IsStdoutTTY()
		}
		colorMode.decided = true
	}
	return colorMode.enabled
}

// ForceColorsEnabled overrides detection. Used for ui.color and in tests.
func ForceColorsEnabled(enabled bool) {
	colorMode.Lock()
	colorMode.enabled = enabled
	colorMode.decided = true
	colorMode.Unlock()
}

// ApplyColorMode applies a ui.color setting ("auto", "always", "never") and
// points lipgloss at the matching profile.
func ApplyColorMode(mode string) {
	switch strings.ToLower(mode) {
	case "always":
		ForceColorsEnabled(true)
	case "never":
		ForceColorsEnabled(false)
	}
	lipgloss.SetColorProfile(GetColorProfile())
}

// GetColorProfile returns Ascii when colors are off. Forced color into a
// pipe gets ANSI256, since termenv would detect Ascii there.
func GetColorProfile() termenv.Profile {
	switch {
	case !ColorsEnabled():
		return termenv.Ascii
	case !IsStdoutTTY():
		return termenv.ANSI256
	default:
		return termenv.ColorProfile()
	}
}
