// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package revision

import "strings"

// PendingPlaceholder is the host's "still generating" marker.
const PendingPlaceholder = "..."

// IsValidText reports whether text can be stored or diffed: non-empty after
// trimming and not the bare pending placeholder.
func IsValidText(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && trimmed != PendingPlaceholder
}

// ComputeContinueDelta strips the snapshot from newText once and returns the
// rest, keeping any later repeats of the snapshot inside the result.
//
// It splits newText on snapshot and rejoins every piece after the first, so
// when newText starts with a non-empty snapshot,
// snapshot+ComputeContinueDelta(newText, snapshot) == newText. When snapshot
// does not occur at all the delta is empty.
func ComputeContinueDelta(newText, snapshot string) string {
	parts := strings.Split(newText, snapshot)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], snapshot)
}
