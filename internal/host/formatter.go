// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Formatter turns raw message text into its display form.
type Formatter interface {
	Format(text, name string, isSystem, isUser bool, index int) string
}

// PlainFormatter returns text unchanged.
type PlainFormatter struct{}

// Format implements Formatter.
func (PlainFormatter) Format(text, _ string, _, _ bool, _ int) string {
	return text
}

// MarkdownFormatter renders character and system messages as terminal
// markdown. User messages are shown as typed.
type MarkdownFormatter struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownFormatter creates a glamour-backed formatter. Style "auto"
// follows the terminal background; any glamour standard style name works.
func NewMarkdownFormatter(style string, width int) (*MarkdownFormatter, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &MarkdownFormatter{renderer: r}, nil
}

// Format implements Formatter. Rendering failures fall back to the raw text.
func (f *MarkdownFormatter) Format(text, _ string, _, isUser bool, _ int) string {
	if isUser || f.renderer == nil || strings.TrimSpace(text) == "" {
		return text
	}
	out, err := f.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
