// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
)

// branchedChat returns a chat whose reply has two continue branches.
func branchedChat() *model.Chat {
	chat := model.NewChat("Aria")
	chat.AddUserMessage("You", "Hi")
	msg := chat.AddCharacterMessage("Hello")

	st := revision.Hydrate(msg)
	first := st.AppendChild(revision.Path{0}, " there", revision.KindContinue, "Hello there")
	st.AppendChild(revision.Path{0}, " again", revision.KindContinue, "Hello again")
	st.SetActive(first)
	msg.Mes = "Hello there"
	return chat
}

func TestMarkdownIncludesTree(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(branchedChat())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)

	for _, want := range []string{
		"title: Chat with Aria",
		"revisions: 3",
		"# Chat with Aria",
		"### Aria <sub>#1",
		"Hello there",
		"<details><summary>Revisions (3 nodes, active 0/0)</summary>",
		"● 0/0",
		"0/1",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownWithoutTrees(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeTrees = false
	opts.IncludeMetadata = false

	out, err := NewMarkdownExporter(opts).Export(branchedChat())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)
	if strings.Contains(result, "<details>") {
		t.Error("tree rendered with IncludeTrees off")
	}
	if strings.HasPrefix(result, "---") {
		t.Error("frontmatter rendered with IncludeMetadata off")
	}
}

// TestYAMLNewlineInjection checks that newlines are escaped in YAML frontmatter.
func TestYAMLNewlineInjection(t *testing.T) {
	chat := model.NewChat("Aria\nInjection: malicious")
	chat.AddCharacterMessage("test")

	out, err := NewMarkdownExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	front := strings.SplitN(string(out), "\n---\n", 2)[0]
	for _, line := range strings.Split(front, "\n") {
		if strings.HasPrefix(line, "Injection:") {
			t.Error("YAML injection: newline not escaped in character")
		}
	}
}

// TestHTMLSanitizesMessages checks that message HTML is stripped while
// Markdown still renders.
func TestHTMLSanitizesMessages(t *testing.T) {
	chat := model.NewChat("Aria")
	chat.AddCharacterMessage("*waves* <script>alert('xss')</script>")

	out, err := NewHTMLExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)
	if strings.Contains(result, "<script>alert") {
		t.Error("script tag survived export")
	}
	if !strings.Contains(result, "<em>waves</em>") {
		t.Error("Markdown emphasis not rendered")
	}
	if !strings.Contains(result, "<body class=\"dark-theme\">") {
		t.Error("default theme should be dark")
	}
}

func TestHTMLTreeIsEscaped(t *testing.T) {
	chat := branchedChat()
	st := chat.Messages[1].Revisions
	st.AppendChild(revision.Path{0}, " <b>bold</b>", revision.KindContinue, "Hello <b>bold</b>")

	opts := DefaultOptions()
	opts.Theme = "light"
	out, err := NewHTMLExporter(opts).Export(chat)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	result := string(out)
	if !strings.Contains(result, "Revisions (4 nodes, active 0/0)") {
		t.Error("tree summary missing")
	}
	if !strings.Contains(result, "&lt;b&gt;bold&lt;/b&gt;") {
		t.Error("tree preview not escaped")
	}
	if !strings.Contains(result, "light-theme\">") {
		t.Error("light theme not applied")
	}
}

func TestJSONTreesToggle(t *testing.T) {
	chat := branchedChat()

	for _, include := range []bool{true, false} {
		opts := DefaultOptions()
		opts.IncludeTrees = include

		out, err := NewJSONExporter(opts).Export(chat)
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		var doc Document
		if err := json.Unmarshal(out, &doc); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if doc.Generator != "continuum" || doc.Chat.ID != chat.ID {
			t.Errorf("document header = %q %q", doc.Generator, doc.Chat.ID)
		}
		got := doc.Chat.Messages[1].Revisions != nil
		if got != include {
			t.Errorf("IncludeTrees=%v: revisions present = %v", include, got)
		}
	}

	if chat.Messages[1].Revisions == nil {
		t.Error("export without trees modified the chat")
	}
}

func TestEmptyChat(t *testing.T) {
	for _, format := range Formats {
		exp, err := ForFormat(format, nil)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", format, err)
		}
		if _, err := exp.Export(model.NewChat("Aria")); !errors.Is(err, ErrEmptyChat) {
			t.Errorf("%s: Export(empty) error = %v, want ErrEmptyChat", format, err)
		}
		if _, err := exp.Export(nil); err == nil {
			t.Errorf("%s: Export(nil) should fail", format)
		}
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"", ".md"},
		{"markdown", ".md"},
		{"JSON", ".json"},
		{"htm", ".html"},
	}
	for _, tt := range tests {
		exp, err := ForFormat(tt.format, nil)
		if err != nil {
			t.Errorf("ForFormat(%q) error: %v", tt.format, err)
			continue
		}
		if exp.FileExtension() != tt.ext {
			t.Errorf("ForFormat(%q) ext = %s, want %s", tt.format, exp.FileExtension(), tt.ext)
		}
	}
	if _, err := ForFormat("pdf", nil); err == nil {
		t.Error("ForFormat(pdf) should fail")
	}
}

func TestExportToFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "out")

	path, err := ExportToFile(branchedChat(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "chat_Aria_") || filepath.Ext(path) != ".md" {
		t.Errorf("unexpected file name %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "Hello there") {
		t.Error("export file missing message text")
	}
}

func TestExportToFileCompressed(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Compress = true

	path, err := ExportToFile(branchedChat(), NewJSONExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}
	if !strings.HasSuffix(path, ".json.gz") {
		t.Errorf("compressed export should end in .json.gz, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	if zr.Name != strings.TrimSuffix(filepath.Base(path), ".gz") {
		t.Errorf("gzip header name = %q", zr.Name)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !json.Valid(data) || !strings.Contains(string(data), "Hello there") {
		t.Error("decompressed export is not the chat JSON")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Aria", "Aria"},
		{"Sir Lancelot", "Sir_Lancelot"},
		{"a/b\\c:d", "a-b-c-d"},
		{"", "chat"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
