// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jeranaias/continuum/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports chats to a standalone HTML page with embedded CSS.
// Message text is rendered as Markdown and sanitized.
type HTMLExporter struct {
	options  *Options
	theme    string
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	theme := "dark"
	if opts.Theme == "light" {
		theme = "light"
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	return &HTMLExporter{
		options:  opts,
		theme:    theme,
		markdown: md,
		policy:   bluemonday.UGCPolicy(),
	}
}

// Export converts a chat to HTML format.
func (e *HTMLExporter) Export(chat *model.Chat) ([]byte, error) {
	if err := validate(chat); err != nil {
		return nil, err
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(title(chat))))
	sb.WriteString("    <meta name=\"generator\" content=\"continuum\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", chat.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(chat))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for i, msg := range chat.Messages {
		body, err := e.renderMessage(i, msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		sb.WriteString(body)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>continuum</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(chat *model.Chat) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(title(chat))))
	sb.WriteString("            <div class=\"metadata\">\n")
	if chat.Model != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", html.EscapeString(chat.Model)))
	}
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(chat.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(chat.Messages)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Revisions:</strong> %d</span>\n", chat.RevisionCount()))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders a single message with its optional tree.
func (e *HTMLExporter) renderMessage(idx int, msg *model.Message) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\" id=\"m%d\">\n", msg.Role(), idx))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg))))
	sb.WriteString(fmt.Sprintf("                    <span class=\"index\">#%d</span>\n", idx))
	if e.options.IncludeTimestamps && !msg.SendDate.IsZero() {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.SendDate)))
	}
	sb.WriteString("                </div>\n")

	content, err := e.formatContent(msg.Mes)
	if err != nil {
		return "", err
	}
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(content)
	sb.WriteString("                </div>\n")

	if e.options.IncludeTrees && hasTree(msg) {
		st := msg.Revisions
		sb.WriteString("                <details class=\"tree\">\n")
		sb.WriteString(fmt.Sprintf("                    <summary>Revisions (%d nodes, active %s)</summary>\n",
			st.NodeCount(), html.EscapeString(st.ActivePath().String())))
		sb.WriteString("                    <pre>")
		sb.WriteString(html.EscapeString(strings.Join(treeLines(st, treePreviewWidth), "\n")))
		sb.WriteString("</pre>\n")
		sb.WriteString("                </details>\n")
	}

	sb.WriteString("            </div>\n")
	return sb.String(), nil
}

// formatContent renders Markdown message text to sanitized HTML.
func (e *HTMLExporter) formatContent(content string) (string, error) {
	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(strings.TrimSpace(content)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return string(e.policy.SanitizeBytes(buf.Bytes())), nil
}

func roleLabel(msg *model.Message) string {
	if msg.IsSystem {
		return "System"
	}
	if name := strings.TrimSpace(msg.Name); name != "" {
		return name
	}
	role := msg.Role().String()
	return strings.ToUpper(role[:1]) + role[1:]
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const htmlCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --border-color: #414868;
            --user-bg: #1f2335;
            --assistant-bg: #24283b;
            --accent-blue: #7aa2f7;
            --accent-purple: #bb9af7;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-muted: #6a737d;
            --border-color: #e1e4e8;
            --user-bg: #f6f8fa;
            --assistant-bg: #ffffff;
            --accent-blue: #0366d6;
            --accent-purple: #6f42c1;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container { max-width: 900px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); border-bottom: 2px solid var(--border-color); }
        .header h1 { font-size: 28px; margin-bottom: 16px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--text-muted); }
        .conversation { padding: 24px; }
        .message { margin-bottom: 20px; padding: 16px 20px; border-radius: 8px; border: 1px solid var(--border-color); }
        .user-message { background: var(--user-bg); border-left: 4px solid var(--accent-blue); }
        .assistant-message { background: var(--assistant-bg); border-left: 4px solid var(--accent-purple); }
        .message-header { display: flex; gap: 12px; margin-bottom: 8px; font-size: 14px; }
        .role-label { font-weight: 600; }
        .index, .timestamp { color: var(--text-muted); }
        .message-content p { margin-bottom: 8px; }
        .tree { margin-top: 12px; font-size: 13px; color: var(--text-muted); }
        .tree pre { font-family: var(--font-mono); margin-top: 8px; overflow-x: auto; }
        .footer { padding: 16px; text-align: center; font-size: 13px; color: var(--text-muted); border-top: 1px solid var(--border-color); }
    </style>
`
