// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/continuum/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports chats to JSON. The chat is written in the same shape
// the store saves, wrapped with export metadata, so it can be loaded again.
type JSONExporter struct {
	options *Options
}

// Document is the top-level JSON export.
type Document struct {
	Generator  string      `json:"generator"`
	ExportedAt time.Time   `json:"exported_at"`
	Chat       *model.Chat `json:"chat"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a chat to JSON. Revision trees are dropped unless
// IncludeTrees is set; the chat itself is never modified.
func (e *JSONExporter) Export(chat *model.Chat) ([]byte, error) {
	if err := validate(chat); err != nil {
		return nil, err
	}

	out := chat
	if !e.options.IncludeTrees {
		copied := *chat
		copied.Messages = make([]*model.Message, len(chat.Messages))
		for i, msg := range chat.Messages {
			m := *msg
			m.Revisions = nil
			copied.Messages[i] = &m
		}
		out = &copied
	}

	return json.MarshalIndent(Document{
		Generator:  "continuum",
		ExportedAt: time.Now().UTC(),
		Chat:       out,
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
