// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the header, the outline, the preview pane and the footer.
// It reads only cached rows so it is safe while a generation runs.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n\n")

	body := m.renderOutline()
	if body == "" {
		body = statusStyle.Render("no revisions for this message")
	}
	sb.WriteString(body)
	sb.WriteString("\n\n")

	sb.WriteString(m.renderPreview())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) renderHeader() string {
	chat := m.chat()
	if chat == nil {
		return titleStyle.Render("continuum")
	}
	title := titleStyle.Render("continuum · " + chat.Character)
	info := fmt.Sprintf("message #%d of %d", m.idx, chat.Len())
	if p := m.Cursor(); p != nil {
		info += "  path " + p.String()
	}
	return title + "  " + headerStyle.Render(info)
}

// outlineHeight is the number of rows the outline may use.
func (m Model) outlineHeight() int {
	// header, blank, blank, preview border and body, status, help
	h := m.height - 12
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) renderOutline() string {
	if len(m.lines) == 0 {
		return ""
	}

	height := m.outlineHeight()
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := start + height
	if end > len(m.lines) {
		end = len(m.lines)
	}

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		pointer := "  "
		line := m.lines[i]
		if i == m.cursor {
			pointer = "▸ "
			line = cursorStyle.Render(line)
		}
		out = append(out, pointer+line)
	}
	return strings.Join(out, "\n")
}

// renderRow draws one outline row like the tree command does.
func (m Model) renderRow(row revision.Row) string {
	marker := "  "
	style := branchStyle
	switch {
	case row.Current:
		marker = "● "
		style = currentStyle
	case row.OnActive:
		marker = "○ "
		style = activeStyle
	}

	preview := util.Preview(row.Node.Mes, m.previewWidth)
	if preview == "" {
		preview = statusStyle.Render("(empty)")
	} else {
		preview = style.Render(preview)
	}

	line := branchStyle.Render(row.Prefix) +
		style.Render(marker+row.Path.String()) + "  " +
		kindStyle(row.Node.Kind).Render(util.PadRight(row.Node.Kind.Label(), 5)) + "  " +
		preview
	if n := row.Node.ChildCount(); n > 1 {
		line += branchStyle.Render(fmt.Sprintf("  [%d]", n))
	}
	return line
}

func (m Model) renderPreview() string {
	width := m.width - 4
	if width < 20 {
		width = 20
	}

	text := m.text
	if m.busy {
		// Display is guarded by the host and streams during generation.
		text = m.host.Display(m.idx)
	}
	if text == "" {
		text = statusStyle.Render("(empty)")
	}

	lines := strings.Split(lipgloss.NewStyle().Width(width).Render(text), "\n")
	if maxLines := 6; len(lines) > maxLines {
		lines = append(lines[:maxLines-1], statusStyle.Render(fmt.Sprintf("... %d more lines", len(lines)-maxLines+1)))
	}
	return previewStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + statusStyle.Render(m.busyOp+"... (esc to stop)")
	case m.statusErr:
		return errorStyle.Render(m.status)
	default:
		return statusStyle.Render(m.status)
	}
}
