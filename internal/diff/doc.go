// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diff compares the text of two revisions.
//
// Revisions in a continue tree usually share a long prefix, so the shared
// head and tail are matched before the LCS runs over what is left. Text can
// be compared line by line or word by word.
//
// # Key Types
//
//   - TokenType: Type of diff token (context, added, removed)
//   - Token: Single line or word with its positions on both sides
//   - Hunk: Group of related tokens with start positions and counts
//   - Diff: Complete diff result with tokens and stats
//
// # Usage
//
// Compare two revisions word by word:
//
//	d := diff.Compute("0/0", "0/1", oldText, newText, diff.UnitWord)
//	fmt.Println(d.Inline(nil))
//
// Print a unified line diff:
//
//	fmt.Print(diff.Compute("0", "0/1", oldText, newText, diff.UnitLine).Unified(3))
package diff
