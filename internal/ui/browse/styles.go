// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package browse

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/continuum/internal/revision"
)

// =============================================================================
// COLORS
// =============================================================================

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#A78BFA"}
	colorActive  = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"}
	colorCurrent = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#86EFAC"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"}
	colorCursor  = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
)

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	branchStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	activeStyle  = lipgloss.NewStyle().Foreground(colorActive)
	currentStyle = lipgloss.NewStyle().Foreground(colorCurrent).Bold(true)
	cursorStyle  = lipgloss.NewStyle().Background(colorCursor)
	statusStyle  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	kindStyles = map[revision.Kind]lipgloss.Style{
		revision.KindOrigin:     lipgloss.NewStyle().Foreground(colorMuted),
		revision.KindContinue:   lipgloss.NewStyle().Foreground(colorActive),
		revision.KindRegenerate: lipgloss.NewStyle().Foreground(colorAccent),
		revision.KindEdit:       lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"}),
	}
)

func kindStyle(k revision.Kind) lipgloss.Style {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return branchStyle
}
