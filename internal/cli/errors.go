// errors.go - Unified error handling for continuum commands.
//
// Handlers always return errors and never print them; main decides how to
// show them and which exit code to use.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/continuum/internal/config"
	"github.com/jeranaias/continuum/internal/ollama"
	"github.com/jeranaias/continuum/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	// ExitNoChange is returned by tree operations that were silent no-ops.
	ExitNoChange = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NoChangeError is returned when a tree operation did nothing: bad path,
// nothing to undo, busy host, or not the last message.
type NoChangeError struct {
	Operation string
	Index     int
}

func (e *NoChangeError) Error() string {
	return fmt.Sprintf("%s: nothing changed on message %d", e.Operation, e.Index)
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrInvalidFormat creates an error for invalid format.
func ErrInvalidFormat(field, value, expected string) error {
	return &ValidationError{Field: field, Value: value, Reason: "invalid format", Example: expected}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w in the CLI's error format. In JSON mode it
// writes a JSONResponse instead.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
}

// HandleErrorAndExit displays err on stderr and exits with its exit code.
func HandleErrorAndExit(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	out := os.Stderr
	if jsonMode {
		out = os.Stdout
	}
	DisplayError(out, command, err, jsonMode)
	os.Exit(GetExitCode(err))
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErr config.ValidateErrors
	var noChange *NoChangeError
	switch {
	case errors.As(err, &validationErr):
		return ExitUsageError
	case errors.As(err, &noChange):
		return ExitNoChange
	case errors.As(err, &configErr):
		return ExitConfigError
	case errors.Is(err, storage.ErrChatNotFound), errors.Is(err, storage.ErrAmbiguousRef):
		return ExitNotFoundError
	case errors.Is(err, ollama.ErrNotRunning), errors.Is(err, ollama.ErrTimeout):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
