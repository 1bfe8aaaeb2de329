// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "…"

// TruncateWidth shortens s to at most maxWidth terminal cells, ending with
// an ellipsis when anything was cut. Wide runes (CJK, emoji) count as two.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// PadRight pads s with spaces to exactly width cells, truncating first if
// it is too wide.
func PadRight(s string, width int) string {
	return runewidth.FillRight(TruncateWidth(s, width), width)
}

// StringWidth returns the display width of s in terminal cells.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// FlattenLine collapses all whitespace runs, including newlines, into single
// spaces.
func FlattenLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Preview renders message text as a single line of at most maxWidth cells.
// Leading whitespace is kept visible as a marker so continuation fragments
// like " world" are distinguishable from "world".
func Preview(s string, maxWidth int) string {
	lead := ""
	if s != "" && (s[0] == ' ' || s[0] == '\n' || s[0] == '\t') {
		lead = "␣"
	}
	return TruncateWidth(lead+FlattenLine(s), maxWidth)
}
