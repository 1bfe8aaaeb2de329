// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chats, with their revision trees, to files.
//
// # Key Types
//
//   - Exporter: Format interface (Markdown, JSON, HTML)
//   - Options: Output directory, metadata and tree toggles
//   - Document: Top-level shape of a JSON export
//
// # Supported Formats
//
//   - Markdown: Readable transcript, trees in collapsible blocks
//   - JSON: The stored chat shape, loadable again
//   - HTML: Standalone page, message Markdown rendered and sanitized
//
// # Usage
//
//	exp, err := export.ForFormat("md", opts)
//	path, err := export.ExportToFile(chat, exp, opts)
package export
