// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// DIFF TYPES
// =============================================================================

// TokenType represents the type of a diff token.
type TokenType int

const (
	// TokenContext is unchanged text
	TokenContext TokenType = iota
	// TokenAdded only exists in the new text
	TokenAdded
	// TokenRemoved only exists in the old text
	TokenRemoved
)

// String returns the string representation of a token type.
func (t TokenType) String() string {
	switch t {
	case TokenContext:
		return "context"
	case TokenAdded:
		return "added"
	case TokenRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Prefix returns the unified diff prefix character for this token type.
func (t TokenType) Prefix() string {
	switch t {
	case TokenAdded:
		return "+"
	case TokenRemoved:
		return "-"
	default:
		return " "
	}
}

// Unit selects how text is split before diffing.
type Unit int

const (
	// UnitLine compares whole lines.
	UnitLine Unit = iota
	// UnitWord compares words and the whitespace between them.
	UnitWord
)

// String returns the unit name.
func (u Unit) String() string {
	if u == UnitWord {
		return "word"
	}
	return "line"
}

// Token is one line or word of a diff.
type Token struct {
	Type TokenType `json:"type"`
	Text string    `json:"text"`

	// OldPos and NewPos are 1-based positions, 0 when the token is absent
	// from that side.
	OldPos int `json:"old_pos"`
	NewPos int `json:"new_pos"`
}

// Hunk is a contiguous run of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Tokens   []Token
}

// Stats holds counts of changed tokens. Word diffs do not count whitespace.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Unchanged int `json:"unchanged"`
}

// Diff compares the text of two revisions.
type Diff struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Unit   Unit    `json:"-"`
	Tokens []Token `json:"tokens"`
	Stats  Stats   `json:"stats"`
}

// =============================================================================
// DIFF COMPUTATION
// =============================================================================

// Compute diffs oldText against newText. from and to label the two sides.
// Both texts are compared in Unicode NFC form, so composed and decomposed
// accents are equal.
func Compute(from, to, oldText, newText string, unit Unit) *Diff {
	oldText, newText = norm.NFC.String(oldText), norm.NFC.String(newText)
	split := splitLines
	if unit == UnitWord {
		split = splitWords
	}
	d := &Diff{From: from, To: to, Unit: unit}
	d.Tokens = computeTokens(split(oldText), split(newText))

	for _, tok := range d.Tokens {
		if unit == UnitWord && strings.TrimSpace(tok.Text) == "" {
			continue
		}
		switch tok.Type {
		case TokenAdded:
			d.Stats.Additions++
		case TokenRemoved:
			d.Stats.Deletions++
		default:
			d.Stats.Unchanged++
		}
	}
	return d
}

// splitLines splits content into lines, preserving empty lines.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	// Drop the empty element a final newline leaves behind.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitWords splits content into alternating runs of whitespace and
// non-whitespace. Joining the result gives back the input.
func splitWords(content string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range content {
		space := unicode.IsSpace(r)
		if i > start && space != inSpace {
			out = append(out, content[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(content) {
		out = append(out, content[start:])
	}
	return out
}

// computeTokens runs an LCS over the two token lists. The shared prefix and
// suffix are matched up front so continuations only pay for their tails.
func computeTokens(a, b []string) []Token {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	result := make([]Token, 0, len(a)+len(b))
	for i := 0; i < prefix; i++ {
		result = append(result, Token{Type: TokenContext, Text: a[i], OldPos: i + 1, NewPos: i + 1})
	}

	midA := a[prefix : len(a)-suffix]
	midB := b[prefix : len(b)-suffix]
	for _, tok := range lcsTokens(midA, midB) {
		if tok.OldPos > 0 {
			tok.OldPos += prefix
		}
		if tok.NewPos > 0 {
			tok.NewPos += prefix
		}
		result = append(result, tok)
	}

	for k := suffix; k > 0; k-- {
		i, j := len(a)-k, len(b)-k
		result = append(result, Token{Type: TokenContext, Text: a[i], OldPos: i + 1, NewPos: j + 1})
	}
	return result
}

// lcsTokens diffs a against b with a suffix LCS table. Removals come before
// additions at each change.
func lcsTokens(a, b []string) []Token {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else {
				dp[i][j] = max(dp[i+1][j], dp[i][j+1])
			}
		}
	}

	var out []Token
	i, j := 0, 0
	for i < m || j < n {
		switch {
		case i < m && j < n && a[i] == b[j]:
			out = append(out, Token{Type: TokenContext, Text: a[i], OldPos: i + 1, NewPos: j + 1})
			i++
			j++
		case i < m && (j >= n || dp[i+1][j] >= dp[i][j+1]):
			out = append(out, Token{Type: TokenRemoved, Text: a[i], OldPos: i + 1})
			i++
		default:
			out = append(out, Token{Type: TokenAdded, Text: b[j], NewPos: j + 1})
			j++
		}
	}
	return out
}

// =============================================================================
// HUNKS
// =============================================================================

// Identical reports whether both sides are the same.
func (d *Diff) Identical() bool {
	return d.Stats.Additions == 0 && d.Stats.Deletions == 0 && !d.hasChange()
}

func (d *Diff) hasChange() bool {
	for _, tok := range d.Tokens {
		if tok.Type != TokenContext {
			return true
		}
	}
	return false
}

// Hunks groups changes with up to context unchanged tokens on each side.
func (d *Diff) Hunks(context int) []Hunk {
	if context < 0 {
		context = 0
	}

	// Merge the context windows of every change into ranges.
	type span struct{ start, end int }
	var spans []span
	for i, tok := range d.Tokens {
		if tok.Type == TokenContext {
			continue
		}
		start, end := max(0, i-context), min(len(d.Tokens), i+context+1)
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			spans[n-1].end = max(spans[n-1].end, end)
			continue
		}
		spans = append(spans, span{start, end})
	}

	hunks := make([]Hunk, 0, len(spans))
	oldSeen, newSeen, pos := 0, 0, 0
	for _, s := range spans {
		for ; pos < s.start; pos++ {
			oldSeen, newSeen = advance(d.Tokens[pos], oldSeen, newSeen)
		}
		h := Hunk{Tokens: d.Tokens[s.start:s.end]}
		for _, tok := range h.Tokens {
			if tok.OldPos > 0 {
				h.OldCount++
			}
			if tok.NewPos > 0 {
				h.NewCount++
			}
		}
		h.OldStart, h.NewStart = oldSeen, newSeen
		if h.OldCount > 0 {
			h.OldStart++
		}
		if h.NewCount > 0 {
			h.NewStart++
		}
		hunks = append(hunks, h)
	}
	return hunks
}

func advance(tok Token, oldSeen, newSeen int) (int, int) {
	if tok.OldPos > 0 {
		oldSeen++
	}
	if tok.NewPos > 0 {
		newSeen++
	}
	return oldSeen, newSeen
}

// =============================================================================
// FORMATTING
// =============================================================================

// Unified returns a line diff in unified format. Word diffs are shown as
// one hunk per change with the words as entries.
func (d *Diff) Unified(context int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- %s\n", d.From))
	sb.WriteString(fmt.Sprintf("+++ %s\n", d.To))
	for _, h := range d.Hunks(context) {
		sb.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount))
		for _, tok := range h.Tokens {
			sb.WriteString(tok.Type.Prefix())
			sb.WriteString(tok.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Marker decorates changed text for Inline.
type Marker func(t TokenType, text string) string

// BracketMarker writes removals as [-text-] and additions as {+text+}.
func BracketMarker(t TokenType, text string) string {
	switch t {
	case TokenAdded:
		return "{+" + text + "+}"
	case TokenRemoved:
		return "[-" + text + "-]"
	default:
		return text
	}
}

// Inline renders the new text with changes marked in place. Adjacent tokens
// of the same type are marked together. A nil mark uses BracketMarker.
func (d *Diff) Inline(mark Marker) string {
	if mark == nil {
		mark = BracketMarker
	}
	sep := ""
	if d.Unit == UnitLine {
		sep = "\n"
	}

	var sb strings.Builder
	var run []string
	runType := TokenContext
	flush := func() {
		if len(run) > 0 {
			sb.WriteString(mark(runType, strings.Join(run, sep)))
			if sep != "" {
				sb.WriteString(sep)
			}
		}
		run = run[:0]
	}
	for _, tok := range d.Tokens {
		if tok.Type != runType {
			flush()
			runType = tok.Type
		}
		run = append(run, tok.Text)
	}
	flush()
	return strings.TrimSuffix(sb.String(), sep)
}

// Summary returns a short description such as "+3 -1 words".
func (d *Diff) Summary() string {
	if d.Identical() {
		return "identical"
	}
	var parts []string
	if d.Stats.Additions > 0 {
		parts = append(parts, fmt.Sprintf("+%d", d.Stats.Additions))
	}
	if d.Stats.Deletions > 0 {
		parts = append(parts, fmt.Sprintf("-%d", d.Stats.Deletions))
	}
	if len(parts) == 0 {
		parts = append(parts, "whitespace only")
	}
	return strings.Join(parts, " ") + " " + d.Unit.String() + "s"
}

// SharedPrefix returns the length in bytes of the longest common prefix of
// a and b, backed off to a rune boundary.
func SharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	for n > 0 && n < len(a) && !isRuneStart(a[n]) {
		n--
	}
	return n
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
