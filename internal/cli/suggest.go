// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - "Did you mean" hints for mistyped commands.
package cli

import (
	"strings"
)

// commandSynopsis maps every command to the arguments it expects, so a hint
// can show a runnable line rather than a bare name.
var commandSynopsis = map[string]string{
	"list":       "",
	"new":        "--character NAME",
	"say":        "<chat> <text...>",
	"chat":       "<chat>",
	"show":       "<chat>",
	"tree":       "<chat>",
	"apply":      "<chat> <path>",
	"undo":       "<chat>",
	"regenerate": "<chat>",
	"continue":   "<chat>",
	"edit":       "<chat> <text...>",
	"swipe":      "<chat> <N|new>",
	"watch":      "<chat>",
	"browse":     "<chat>",
	"journal":    "[chat]",
	"diff":       "<chat> <path> [path]",
	"export":     "<chat>",
	"serve":      "",
	"config":     "show",
	"version":    "",
	"help":       "",
}

// commandAliases resolves short names to the command they run.
var commandAliases = map[string]string{
	"ls":    "list",
	"regen": "regenerate",
	"cont":  "continue",
	"log":   "journal",
	"repl":  "chat",
}

// SuggestCommand returns the command closest to a mistyped input, or ""
// when input is already valid or nothing is close. Near misses of an alias
// resolve to the aliased command.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)
	if _, ok := commandSynopsis[input]; ok {
		return ""
	}
	if _, ok := commandAliases[input]; ok {
		return ""
	}

	names := make([]string, 0, len(commandSynopsis)+len(commandAliases))
	for name := range commandSynopsis {
		names = append(names, name)
	}
	for alias := range commandAliases {
		names = append(names, alias)
	}
	best := closest(input, names)
	if target, ok := commandAliases[best]; ok {
		return target
	}
	return best
}

// SuggestUsage returns a runnable example for the command closest to input,
// such as "continuum continue <chat>", or "".
func SuggestUsage(input string) string {
	cmd := SuggestCommand(input)
	if cmd == "" {
		return ""
	}
	return strings.TrimSpace("continuum " + cmd + " " + commandSynopsis[cmd])
}

// closest picks the candidate with the smallest edit distance to input
// within a budget that grows with input length: one edit up to three
// runes, two up to eight, three beyond. Ties go to the alphabetically first
// candidate so hints are stable.
func closest(input string, candidates []string) string {
	n := len([]rune(input))
	if n < 2 {
		return ""
	}
	budget := 1
	switch {
	case n > 8:
		budget = 3
	case n >= 4:
		budget = 2
	}

	best, bestDist := "", budget+1
	for _, c := range candidates {
		d := editDistance(input, c)
		if d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	if bestDist > budget {
		return ""
	}
	return best
}

// editDistance is the Levenshtein distance between a and b, counted in
// runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			sub := prev[j-1]
			if ra[i-1] != rb[j-1] {
				sub++
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
