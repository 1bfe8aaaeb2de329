// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/continuum/internal/model"
)

// treePreviewWidth bounds node previews in exported trees.
const treePreviewWidth = 60

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a chat to Markdown format.
func (e *MarkdownExporter) Export(chat *model.Chat) ([]byte, error) {
	if err := validate(chat); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		front, err := yaml.Marshal(newFrontMatter(chat))
		if err != nil {
			return nil, fmt.Errorf("encode front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(front)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(title(chat))))

	for i, msg := range chat.Messages {
		label := e.formatRoleLabel(msg)
		if e.options.IncludeTimestamps && !msg.SendDate.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>#%d %s</sub>\n\n",
				label, i, formatShortTimestamp(msg.SendDate)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s <sub>#%d</sub>\n\n", label, i))
		}

		sb.WriteString(strings.TrimSpace(msg.Mes))
		sb.WriteString("\n\n")

		if e.options.IncludeTrees && hasTree(msg) {
			sb.WriteString(e.formatTree(msg))
			sb.WriteString("\n\n")
		}

		if i < len(chat.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from continuum on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func title(chat *model.Chat) string {
	if chat.Character == "" {
		return "Chat"
	}
	return "Chat with " + chat.Character
}

// formatRoleLabel returns the speaker name, falling back to the role.
func (e *MarkdownExporter) formatRoleLabel(msg *model.Message) string {
	return escapeMarkdown(roleLabel(msg))
}

// formatTree renders the revision tree in a collapsible block.
func (e *MarkdownExporter) formatTree(msg *model.Message) string {
	st := msg.Revisions
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<details><summary>Revisions (%d nodes, active %s)</summary>\n\n",
		st.NodeCount(), st.ActivePath()))
	sb.WriteString("```\n")
	for _, line := range treeLines(st, treePreviewWidth) {
		// A fence inside a preview would close the block early.
		sb.WriteString(strings.ReplaceAll(line, "```", "'''"))
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n</details>")
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// frontMatter is the YAML header of a Markdown export. yaml.v3 quotes or
// block-indents values that would otherwise break out of their key.
type frontMatter struct {
	Title     string `yaml:"title"`
	ChatID    string `yaml:"chat_id"`
	Character string `yaml:"character"`
	Model     string `yaml:"model,omitempty"`
	Date      string `yaml:"date"`
	Updated   string `yaml:"updated"`
	Messages  int    `yaml:"messages"`
	Revisions int    `yaml:"revisions"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

func newFrontMatter(chat *model.Chat) frontMatter {
	return frontMatter{
		Title:     title(chat),
		ChatID:    chat.ID,
		Character: chat.Character,
		Model:     chat.Model,
		Date:      chat.CreatedAt.Format(time.RFC3339),
		Updated:   chat.UpdatedAt.Format(time.RFC3339),
		Messages:  len(chat.Messages),
		Revisions: chat.RevisionCount(),
		Exported:  time.Now().Format(time.RFC3339),
		Generator: "continuum",
	}
}
