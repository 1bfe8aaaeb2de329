// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package revision

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// KIND
// =============================================================================

// Kind records how a node came to exist. It is set once.
type Kind string

const (
	KindOrigin     Kind = "origin"
	KindContinue   Kind = "continue"
	KindRegenerate Kind = "regenerate"
	KindEdit       Kind = "edit"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Label returns a short human-readable tag for tree listings.
func (k Kind) Label() string {
	switch k {
	case KindOrigin:
		return "orig"
	case KindContinue:
		return "cont"
	case KindRegenerate:
		return "regen"
	case KindEdit:
		return "edit"
	default:
		return "?"
	}
}

// =============================================================================
// PATH
// =============================================================================

// Path is a sequence of indices. Path[0] selects the root in the history,
// every following entry selects a child of the previous node.
type Path []int

// Clone returns an independent copy of the path. A nil path clones to an
// empty, non-nil path so JSON encodes it as [] rather than null.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Equal reports whether two paths select the same node.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Parent returns the path without its last segment. The parent of a root
// path (or an empty path) is empty.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return Path{}
	}
	return p[:len(p)-1].Clone()
}

// Last returns the final segment, or -1 for an empty path.
func (p Path) Last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// Child returns a new path extended by one segment.
func (p Path) Child(index int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, index)
}

// HasPrefix reports whether prefix is an ancestor-or-self of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// String renders the path as slash separated indices ("0/1/2").
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "/")
}

// ParsePath parses the String form. Commas and dots are accepted as
// separators as well so "0,1" and "0.1" work from the command line.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == ',' || r == '.'
	})
	p := make(Path, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q: %w", f, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid path segment %q: negative index", f)
		}
		p = append(p, v)
	}
	return p, nil
}

// =============================================================================
// NODE
// =============================================================================

// Node is one unit of generated or edited text.
type Node struct {
	// Mes is this node's own fragment, not the cumulative text.
	Mes string `json:"mes"`

	// FullText caches the text from the root through this node.
	// Empty means absent; rebuild it with State.TextForPath.
	FullText string `json:"fullText,omitempty"`

	// Swipes are the children in creation order; a child's index is its
	// branch number.
	Swipes []*Node `json:"swipes"`

	// Parent is the path to this node's parent. Empty for roots.
	Parent Path `json:"parent"`

	Kind      Kind  `json:"kind,omitempty"`
	CreatedAt int64 `json:"createdAt,omitempty"` // epoch milliseconds

	// Active is the path to the selected node of this root's tree.
	// Only roots carry it.
	Active Path `json:"active,omitempty"`
}

// nowFunc is the clock used for CreatedAt stamps.
var nowFunc = time.Now

// newNode creates a node stamped with the current time.
func newNode(mes string, parent Path, kind Kind) *Node {
	return &Node{
		Mes:       mes,
		Swipes:    []*Node{},
		Parent:    parent.Clone(),
		Kind:      kind,
		CreatedAt: nowFunc().UnixMilli(),
	}
}

// IsRoot reports whether the node sits at the top of its tree.
func (n *Node) IsRoot() bool {
	return n != nil && len(n.Parent) == 0
}

// ChildCount returns the number of branches below the node.
func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Swipes)
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Swipes) {
		return nil
	}
	return n.Swipes[i]
}

// Created returns CreatedAt as a time, or the zero time when unset.
func (n *Node) Created() time.Time {
	if n == nil || n.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(n.CreatedAt)
}

// MarkMetadata fills in Kind and CreatedAt when they are unset. Existing
// values are never replaced, so the first caller's kind wins.
func MarkMetadata(n *Node, kind Kind) {
	if n == nil {
		return
	}
	if n.Kind == "" {
		n.Kind = kind
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = nowFunc().UnixMilli()
	}
}
