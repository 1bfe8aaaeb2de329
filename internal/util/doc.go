// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across continuum.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - Preview: one-line, display-width-bounded rendering of message text
//   - TruncateWidth, PadRight: terminal-width aware string sizing
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	line := util.Preview(msg.Mes, 60)
package util
