// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for chat exporters.
type Exporter interface {
	// Export converts a chat to the target format and returns the content.
	Export(chat *model.Chat) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrEmptyChat is returned when a chat has nothing to export.
var ErrEmptyChat = errors.New("chat has no messages")

// OpenError reports that the export was written but could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("could not open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// Open opens the file in the default application.
	Open bool

	// IncludeMetadata includes the metadata header (character, model, dates).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// IncludeTrees adds each message's revision tree.
	IncludeTrees bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string

	// Compress gzips the written file and appends ".gz" to its name.
	Compress bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeTrees:      true,
		Theme:             "dark",
	}
}

// Formats lists the accepted format names.
var Formats = []string{"md", "json", "html"}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a chat to a new file in opts.OutputDir and returns
// its path. When opening the file fails the path is still returned together
// with an *OpenError.
func ExportToFile(chat *model.Chat, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(chat)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("chat_%s_%s_%s%s",
		sanitizeFilename(chat.Character),
		shortID(chat.ID),
		timestamp,
		exporter.FileExtension(),
	)
	if opts.Compress {
		if content, err = Gzip(content, filename); err != nil {
			return "", err
		}
		filename += ".gz"
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.Open {
		if err := openFile(outputPath); err != nil {
			return outputPath, &OpenError{Path: outputPath, Err: err}
		}
	}

	return outputPath, nil
}

// Gzip compresses content at the best compression level, recording name
// in the gzip header.
func Gzip(content []byte, name string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	zw.Name = name
	zw.ModTime = time.Now()
	if _, err := zw.Write(content); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func validate(chat *model.Chat) error {
	if chat == nil {
		return fmt.Errorf("chat is nil")
	}
	if len(chat.Messages) == 0 {
		return ErrEmptyChat
	}
	return nil
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	maxLen := 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "chat"
	}

	return string(result)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "noid"
	}
	return sanitizeFilename(id)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		// Empty quoted title so start treats path as the target
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// hasTree reports whether a message carries a tree worth showing.
func hasTree(msg *model.Message) bool {
	return msg.Revisions != nil && msg.Revisions.NodeCount() > 1
}

// treeLines renders a revision tree as plain text, one node per line.
// "●" marks the current node and "○" the rest of the active path.
func treeLines(st *revision.State, previewWidth int) []string {
	rows := st.Outline()
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		marker := " "
		switch {
		case row.Current:
			marker = "●"
		case row.OnActive:
			marker = "○"
		}
		lines = append(lines, fmt.Sprintf("%s%s %-*s %-5s %s",
			row.Prefix, marker,
			8, row.Path.String(),
			row.Node.Kind.Label(),
			util.Preview(row.Node.Mes, previewWidth),
		))
	}
	return lines
}
