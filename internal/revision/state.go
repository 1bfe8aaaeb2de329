// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package revision

import "strings"

// =============================================================================
// CARRIER
// =============================================================================

// Carrier is the host message as seen by the revision tree. The host owns
// the text and the swipe selection; the tree owns the attached State.
type Carrier interface {
	// Text returns the message's current display text (the host "mes").
	Text() string
	// SwipeIndex returns the host's selected top-level alternate.
	SwipeIndex() int
	// Alternates returns the host's flat swipe texts, possibly empty.
	Alternates() []string
	// RevisionState returns the attached state, or nil before hydration.
	RevisionState() *State
	// AttachRevisionState binds a freshly created state to the message.
	AttachRevisionState(st *State)
}

// =============================================================================
// STATE
// =============================================================================

// State is the revision history attached to one message.
type State struct {
	// History holds one root per host swipe.
	History []*Node `json:"continueHistory"`

	// SwipeID is the last segment of the active path.
	SwipeID int `json:"continueSwipeId"`

	// CachedText is the last valid text seen on the message. It is used to
	// recover when the host's text is temporarily a placeholder.
	CachedText string `json:"cachedText,omitempty"`

	// root is the active root index, current the node at the end of its
	// active path. Both are re-derived by Hydrate.
	root    int
	current *Node
}

// Hydrate makes sure the carrier has a usable State and re-derives the
// active root, active path and current node from it. It is idempotent and
// safe to call at the top of every event handler.
func Hydrate(c Carrier) *State {
	if c == nil {
		return nil
	}

	st := c.RevisionState()
	if st == nil {
		st = &State{}
		c.AttachRevisionState(st)
	}

	text := c.Text()
	alts := c.Alternates()
	idx := c.SwipeIndex()
	if idx < 0 {
		idx = 0
	}

	if len(st.History) == 0 {
		st.History = seedRoots(text, alts, idx)
	}
	st.ensureRoot(idx, text, alts)
	st.root = idx

	root := st.History[idx]
	if root.Parent == nil {
		root.Parent = Path{}
	}
	if len(root.Active) == 0 || root.Active[0] != idx {
		root.Active = Path{idx}
	}

	node, reached := st.walk(root.Active)
	if reached < len(root.Active) {
		root.Active = root.Active[:reached].Clone()
	}
	st.current = node
	st.SwipeID = root.Active.Last()

	MarkMetadata(root, KindOrigin)
	if root.FullText == "" && IsValidText(root.Mes) {
		root.FullText = root.Mes
	}
	if IsValidText(text) {
		st.CachedText = text
	}
	return st
}

// seedRoots builds the initial history: one origin root per host swipe, or a
// single root from the message text when the host has no swipes.
func seedRoots(text string, alts []string, selected int) []*Node {
	if len(alts) == 0 {
		return []*Node{newRoot(text, 0)}
	}
	roots := make([]*Node, 0, len(alts))
	for i, alt := range alts {
		if i == selected && !IsValidText(alt) {
			alt = text
		}
		roots = append(roots, newRoot(alt, i))
	}
	return roots
}

// ensureRoot grows the history until idx exists. New roots take their text
// from the host's swipes, or from the message text for the selected one.
func (s *State) ensureRoot(idx int, text string, alts []string) {
	for len(s.History) <= idx {
		i := len(s.History)
		seed := ""
		if i < len(alts) {
			seed = alts[i]
		}
		if i == idx && IsValidText(text) {
			seed = text
		}
		s.History = append(s.History, newRoot(seed, i))
	}
}

func newRoot(text string, index int) *Node {
	if !IsValidText(text) {
		text = ""
	}
	n := newNode(text, Path{}, KindOrigin)
	n.Active = Path{index}
	n.FullText = text
	return n
}

// walk follows p as far as it resolves. It returns the deepest node reached
// and how many segments resolved; (nil, 0) when the root itself is missing.
func (s *State) walk(p Path) (*Node, int) {
	if s == nil || len(p) == 0 || p[0] < 0 || p[0] >= len(s.History) {
		return nil, 0
	}
	node := s.History[p[0]]
	reached := 1
	for _, i := range p[1:] {
		child := node.Child(i)
		if child == nil {
			break
		}
		node = child
		reached++
	}
	return node, reached
}

// =============================================================================
// LOOKUP
// =============================================================================

// FindByPath returns the node at the end of p, or nil when any segment is
// out of range.
func (s *State) FindByPath(p Path) *Node {
	node, reached := s.walk(p)
	if node == nil || reached != len(p) {
		return nil
	}
	return node
}

// NodesAlong returns every node from the root to the end of p, or nil when
// the path does not resolve.
func (s *State) NodesAlong(p Path) []*Node {
	if s.FindByPath(p) == nil {
		return nil
	}
	nodes := make([]*Node, 0, len(p))
	node := s.History[p[0]]
	nodes = append(nodes, node)
	for _, i := range p[1:] {
		node = node.Swipes[i]
		nodes = append(nodes, node)
	}
	return nodes
}

// TextForPath rebuilds the cumulative text for p from the Mes fields. It
// never reads FullText. Returns "" when the path does not resolve.
func (s *State) TextForPath(p Path) string {
	nodes := s.NodesAlong(p)
	if len(nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.Mes)
	}
	return sb.String()
}

// TextForPathPreferCache returns the target node's FullText when present,
// else the rebuilt text.
func (s *State) TextForPathPreferCache(p Path) string {
	n := s.FindByPath(p)
	if n == nil {
		return ""
	}
	if n.FullText != "" {
		return n.FullText
	}
	return s.TextForPath(p)
}

// RootIndex returns the active root's index in History.
func (s *State) RootIndex() int {
	if s == nil {
		return 0
	}
	return s.root
}

// ActiveRoot returns the root selected by the host's swipe index.
func (s *State) ActiveRoot() *Node {
	if s == nil || s.root < 0 || s.root >= len(s.History) {
		return nil
	}
	return s.History[s.root]
}

// ActivePath returns a copy of the active root's cursor.
func (s *State) ActivePath() Path {
	root := s.ActiveRoot()
	if root == nil {
		return nil
	}
	if len(root.Active) == 0 {
		return Path{s.root}
	}
	return root.Active.Clone()
}

// Current returns the node at the end of the active path (the message's
// "continueSwipe").
func (s *State) Current() *Node {
	if s == nil {
		return nil
	}
	if s.current != nil {
		return s.current
	}
	return s.FindByPath(s.ActivePath())
}

// =============================================================================
// MUTATION
// =============================================================================

// AppendChild adds a new child below the node at parent and returns the
// child's path, or nil when parent does not resolve. Invalid fullText is not
// cached.
func (s *State) AppendChild(parent Path, mes string, kind Kind, fullText string) Path {
	p := s.FindByPath(parent)
	if p == nil {
		return nil
	}
	child := newNode(mes, parent, kind)
	if IsValidText(fullText) {
		child.FullText = fullText
	}
	p.Swipes = append(p.Swipes, child)
	return parent.Child(len(p.Swipes) - 1)
}

// SetActive moves the cursor of the root owning p to p and, when that root is
// the active one, re-derives the current node and SwipeID.
func (s *State) SetActive(p Path) bool {
	node := s.FindByPath(p)
	if node == nil {
		return false
	}
	s.History[p[0]].Active = p.Clone()
	if p[0] == s.root {
		s.current = node
		s.SwipeID = p.Last()
	}
	return true
}

// RewriteRoot replaces the active root's own text in place. kind is only
// recorded when the root has none yet. The cached FullText of every
// descendant is rebuilt on top of the new text. The cursor is left where it
// was.
func (s *State) RewriteRoot(text string, kind Kind) {
	root := s.ActiveRoot()
	if root == nil {
		return
	}
	setRootText(root, text)
	MarkMetadata(root, kind)
}

// RegenerateRoot replaces the active root's text with a from-scratch
// regeneration and re-tags it as KindRegenerate. It is the only operation
// that overwrites a node's kind.
func (s *State) RegenerateRoot(text string) {
	root := s.ActiveRoot()
	if root == nil {
		return
	}
	setRootText(root, text)
	root.Kind = KindRegenerate
	MarkMetadata(root, KindRegenerate)
}

func setRootText(root *Node, text string) {
	root.Mes = text
	root.FullText = ""
	if IsValidText(text) {
		root.FullText = text
	}
	refreshDescendants(root, text)
}

func refreshDescendants(n *Node, prefix string) {
	for _, child := range n.Swipes {
		full := prefix + child.Mes
		child.FullText = ""
		if IsValidText(full) {
			child.FullText = full
		}
		refreshDescendants(child, full)
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// SiblingPath returns the path of the sibling delta positions away from p
// under the same parent. Roots have no siblings here; switching roots is a
// host swipe.
func (s *State) SiblingPath(p Path, delta int) (Path, bool) {
	if len(p) < 2 {
		return nil, false
	}
	parentPath := p.Parent()
	parent := s.FindByPath(parentPath)
	if parent == nil {
		return nil, false
	}
	idx := p.Last() + delta
	if idx < 0 || idx >= len(parent.Swipes) {
		return nil, false
	}
	return parentPath.Child(idx), true
}

// Walk visits every node of every root depth first, parents before
// children, in creation order.
func (s *State) Walk(fn func(p Path, n *Node)) {
	if s == nil {
		return
	}
	var visit func(p Path, n *Node)
	visit = func(p Path, n *Node) {
		fn(p, n)
		for i, child := range n.Swipes {
			visit(p.Child(i), child)
		}
	}
	for i, root := range s.History {
		visit(Path{i}, root)
	}
}

// NodeCount returns the number of nodes across all roots.
func (s *State) NodeCount() int {
	count := 0
	s.Walk(func(Path, *Node) { count++ })
	return count
}
