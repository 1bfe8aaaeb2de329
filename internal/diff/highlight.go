// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// DefaultStyle is the chroma style used when none is given.
const DefaultStyle = "monokai"

// Highlight colors unified diff output for a terminal. The input is returned
// unchanged if chroma cannot tokenise it.
func Highlight(unified, style string) string {
	lexer := lexers.Get("diff")
	if lexer == nil {
		return unified
	}
	lexer = chroma.Coalesce(lexer)

	if style == "" {
		style = DefaultStyle
	}
	s := chromaStyles.Get(style)
	if s == nil {
		s = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, unified)
	if err != nil {
		return unified
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, s, iterator); err != nil {
		return unified
	}
	return buf.String()
}
