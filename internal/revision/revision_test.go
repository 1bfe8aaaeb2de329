// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package revision

import (
	"encoding/json"
	"testing"
	"time"
)

// testMessage is a minimal Carrier.
type testMessage struct {
	mes     string
	swipeID int
	swipes  []string
	state   *State
}

func (m *testMessage) Text() string { return m.mes }
func (m *testMessage) SwipeIndex() int { return m.swipeID }
func (m *testMessage) Alternates() []string { return m.swipes }
func (m *testMessage) RevisionState() *State { return m.state }
func (m *testMessage) AttachRevisionState(s *State) { m.state = s }

func fixedClock(t *testing.T) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return time.UnixMilli(1700000000000) }
	t.Cleanup(func() { nowFunc = prev })
}

func encode(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

// =============================================================================
// VALIDITY AND DELTA
// =============================================================================

func TestIsValidText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"...", false},
		{"\n\t", false},
		{"ok", true},
		{" ok ", true},
		{"....", true},
	}
	for _, tc := range tests {
		if got := IsValidText(tc.in); got != tc.want {
			t.Errorf("IsValidText(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestComputeContinueDelta(t *testing.T) {
	tests := []struct {
		name     string
		newText  string
		snapshot string
		want     string
	}{
		{"plain suffix", "Hello world", "Hello", " world"},
		{"repeated prefix kept", "Hello, Hello again", "Hello", ", Hello again"},
		{"snapshot repeated at end", "abab", "ab", "ab"},
		{"snapshot absent", "Goodbye", "Hello", ""},
		{"identical", "Hello", "Hello", ""},
		{"snapshot mid text", "pre Hello post", "Hello", " post"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeContinueDelta(tc.newText, tc.snapshot); got != tc.want {
				t.Errorf("ComputeContinueDelta(%q, %q) = %q, want %q", tc.newText, tc.snapshot, got, tc.want)
			}
		})
	}
}

func TestComputeContinueDelta_PrefixProperty(t *testing.T) {
	cases := [][2]string{
		{"Hello world", "Hello"},
		{"aaaa", "a"},
		{"xyxyxy", "xy"},
		{"The cat. The cat sat.", "The cat."},
	}
	for _, c := range cases {
		newText, snapshot := c[0], c[1]
		if got := snapshot + ComputeContinueDelta(newText, snapshot); got != newText {
			t.Errorf("snapshot+delta = %q, want %q", got, newText)
		}
	}
}

// =============================================================================
// PATH
// =============================================================================

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    Path
		wantErr bool
	}{
		{"0", Path{0}, false},
		{"0/1/2", Path{0, 1, 2}, false},
		{"1,0", Path{1, 0}, false},
		{"2.3", Path{2, 3}, false},
		{"", nil, true},
		{"0/x", nil, true},
		{"0/-1", nil, true},
	}
	for _, tc := range tests {
		got, err := ParsePath(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParsePath(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && !got.Equal(tc.want) {
			t.Errorf("ParsePath(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPath_Helpers(t *testing.T) {
	p := Path{0, 2, 1}
	if got := p.Parent(); !got.Equal(Path{0, 2}) {
		t.Errorf("Parent() = %v", got)
	}
	if got := (Path{3}).Parent(); len(got) != 0 {
		t.Errorf("root Parent() = %v, want empty", got)
	}
	if p.Last() != 1 {
		t.Errorf("Last() = %d, want 1", p.Last())
	}
	if (Path{}).Last() != -1 {
		t.Error("Last() of empty path should be -1")
	}
	if p.String() != "0/2/1" {
		t.Errorf("String() = %q", p.String())
	}
	child := p.Child(4)
	if !child.Equal(Path{0, 2, 1, 4}) || !p.Equal(Path{0, 2, 1}) {
		t.Errorf("Child() mutated receiver or returned %v", child)
	}
	if !child.HasPrefix(p) || p.HasPrefix(child) {
		t.Error("HasPrefix mismatch")
	}
}

// =============================================================================
// HYDRATION
// =============================================================================

func TestHydrate_SingleMessage(t *testing.T) {
	fixedClock(t)
	m := &testMessage{mes: "Hello"}

	st := Hydrate(m)
	if st == nil || m.state != st {
		t.Fatal("Hydrate should attach a state")
	}
	if len(st.History) != 1 {
		t.Fatalf("History len = %d, want 1", len(st.History))
	}
	root := st.History[0]
	if root.Mes != "Hello" || root.FullText != "Hello" {
		t.Errorf("root = %q/%q, want Hello/Hello", root.Mes, root.FullText)
	}
	if !root.Active.Equal(Path{0}) {
		t.Errorf("Active = %v, want [0]", root.Active)
	}
	if root.Kind != KindOrigin || root.CreatedAt != 1700000000000 {
		t.Errorf("metadata = %s/%d", root.Kind, root.CreatedAt)
	}
	if st.Current() != root || st.SwipeID != 0 {
		t.Errorf("current/SwipeID not derived: %p %d", st.Current(), st.SwipeID)
	}
	if st.CachedText != "Hello" {
		t.Errorf("CachedText = %q", st.CachedText)
	}
}

func TestHydrate_FromSwipes(t *testing.T) {
	m := &testMessage{mes: "beta", swipeID: 1, swipes: []string{"alpha", "beta", "gamma"}}

	st := Hydrate(m)
	if len(st.History) != 3 {
		t.Fatalf("History len = %d, want 3", len(st.History))
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		root := st.History[i]
		if root.Mes != want {
			t.Errorf("root %d Mes = %q, want %q", i, root.Mes, want)
		}
		if !root.Active.Equal(Path{i}) {
			t.Errorf("root %d Active = %v", i, root.Active)
		}
		if len(root.Parent) != 0 {
			t.Errorf("root %d Parent = %v, want empty", i, root.Parent)
		}
	}
	if st.RootIndex() != 1 || st.Current() != st.History[1] || st.SwipeID != 1 {
		t.Errorf("active root not selected: root=%d swipe=%d", st.RootIndex(), st.SwipeID)
	}
}

func TestHydrate_Idempotent(t *testing.T) {
	m := &testMessage{mes: "Hello world"}
	st := Hydrate(m)
	child := st.AppendChild(Path{0}, " world", KindContinue, "Hello world")
	st.History[0].Mes = "Hello"
	st.History[0].FullText = "Hello"
	st.SetActive(child)

	Hydrate(m)
	first := encode(t, m.state)
	firstCurrent, firstID := m.state.Current(), m.state.SwipeID

	Hydrate(m)
	if second := encode(t, m.state); second != first {
		t.Errorf("second hydrate changed state:\n%s\n%s", first, second)
	}
	if m.state.Current() != firstCurrent || m.state.SwipeID != firstID {
		t.Error("second hydrate changed derived pointers")
	}
}

func TestHydrate_StaleActivePath(t *testing.T) {
	m := &testMessage{mes: "A", swipeID: 0}
	st := Hydrate(m)
	st.History[0].Active = Path{5, 0}

	Hydrate(m)
	if !st.ActivePath().Equal(Path{0}) {
		t.Errorf("ActivePath = %v, want [0]", st.ActivePath())
	}
	if st.Current() != st.History[0] {
		t.Error("Current should fall back to the root")
	}
}

func TestHydrate_TruncatesUnreachableTail(t *testing.T) {
	m := &testMessage{mes: "AB"}
	st := Hydrate(m)
	st.History[0].Mes = "A"
	child := st.AppendChild(Path{0}, "B", KindContinue, "AB")
	st.History[0].Active = child.Child(7)

	Hydrate(m)
	if !st.ActivePath().Equal(child) {
		t.Errorf("ActivePath = %v, want %v", st.ActivePath(), child)
	}
	if st.SwipeID != 0 || st.Current().Mes != "B" {
		t.Errorf("current = %q swipe=%d", st.Current().Mes, st.SwipeID)
	}
}

func TestHydrate_GrowsForNewSwipe(t *testing.T) {
	m := &testMessage{mes: "first"}
	Hydrate(m)

	m.swipes = []string{"first", "second"}
	m.swipeID = 1
	m.mes = "second"
	st := Hydrate(m)

	if len(st.History) != 2 {
		t.Fatalf("History len = %d, want 2", len(st.History))
	}
	if st.History[1].Mes != "second" || !st.ActivePath().Equal(Path{1}) {
		t.Errorf("new root = %q active=%v", st.History[1].Mes, st.ActivePath())
	}
}

func TestHydrate_PlaceholderNotCached(t *testing.T) {
	m := &testMessage{mes: "..."}
	st := Hydrate(m)
	if st.History[0].Mes != "" || st.History[0].FullText != "" {
		t.Errorf("placeholder leaked into root: %q/%q", st.History[0].Mes, st.History[0].FullText)
	}
	if st.CachedText != "" {
		t.Errorf("CachedText = %q, want empty", st.CachedText)
	}
}

func TestHydrate_NilCarrier(t *testing.T) {
	if Hydrate(nil) != nil {
		t.Error("Hydrate(nil) should return nil")
	}
}

// =============================================================================
// LOOKUP AND TEXT
// =============================================================================

func buildTree(t *testing.T) (*testMessage, *State) {
	t.Helper()
	m := &testMessage{mes: "A"}
	st := Hydrate(m)
	b := st.AppendChild(Path{0}, "B", KindContinue, "AB")
	st.AppendChild(b, "C", KindContinue, "ABC")
	st.AppendChild(Path{0}, "X", KindEdit, "AX")
	return m, st
}

func TestFindByPath(t *testing.T) {
	_, st := buildTree(t)

	tests := []struct {
		path Path
		want string
	}{
		{Path{0}, "A"},
		{Path{0, 0}, "B"},
		{Path{0, 0, 0}, "C"},
		{Path{0, 1}, "X"},
	}
	for _, tc := range tests {
		n := st.FindByPath(tc.path)
		if n == nil || n.Mes != tc.want {
			t.Errorf("FindByPath(%v) = %v, want %q", tc.path, n, tc.want)
		}
	}

	for _, bad := range []Path{nil, {}, {1}, {-1}, {0, 2}, {0, 0, 0, 0}} {
		if n := st.FindByPath(bad); n != nil {
			t.Errorf("FindByPath(%v) = %q, want nil", bad, n.Mes)
		}
	}

	var empty *State
	if empty.FindByPath(Path{0}) != nil {
		t.Error("nil state should find nothing")
	}
}

func TestTextForPath(t *testing.T) {
	_, st := buildTree(t)

	if got := st.TextForPath(Path{0, 0, 0}); got != "ABC" {
		t.Errorf("TextForPath = %q, want ABC", got)
	}
	if got := st.TextForPath(Path{0, 1}); got != "AX" {
		t.Errorf("TextForPath = %q, want AX", got)
	}
	if got := st.TextForPath(Path{0, 9}); got != "" {
		t.Errorf("TextForPath(invalid) = %q, want empty", got)
	}
	var empty *State
	if got := empty.TextForPath(Path{0}); got != "" {
		t.Errorf("nil state TextForPath = %q", got)
	}
}

func TestTextForPathPreferCache(t *testing.T) {
	_, st := buildTree(t)

	st.FindByPath(Path{0, 0}).FullText = "corrected"
	if got := st.TextForPathPreferCache(Path{0, 0}); got != "corrected" {
		t.Errorf("PreferCache = %q, want corrected", got)
	}
	if got := st.TextForPath(Path{0, 0}); got != "AB" {
		t.Errorf("TextForPath must ignore the cache, got %q", got)
	}

	st.FindByPath(Path{0, 1}).FullText = ""
	if got := st.TextForPathPreferCache(Path{0, 1}); got != "AX" {
		t.Errorf("PreferCache fallback = %q, want AX", got)
	}
}

func TestCacheMatchesReconstruction(t *testing.T) {
	_, st := buildTree(t)
	st.Walk(func(p Path, n *Node) {
		if n.FullText == "" {
			return
		}
		if fresh := st.TextForPath(p); fresh != n.FullText {
			t.Errorf("path %v: cache %q != fresh %q", p, n.FullText, fresh)
		}
	})
}

// =============================================================================
// METADATA AND MUTATION
// =============================================================================

func TestMarkMetadata_WriteOnce(t *testing.T) {
	fixedClock(t)
	n := &Node{}
	MarkMetadata(n, KindContinue)
	stamp := n.CreatedAt

	nowFunc = func() time.Time { return time.UnixMilli(1800000000000) }
	MarkMetadata(n, KindEdit)

	if n.Kind != KindContinue {
		t.Errorf("Kind = %s, want continue", n.Kind)
	}
	if n.CreatedAt != stamp {
		t.Errorf("CreatedAt changed from %d to %d", stamp, n.CreatedAt)
	}
	MarkMetadata(nil, KindEdit)
}

func TestAppendChild_NonDestructive(t *testing.T) {
	_, st := buildTree(t)
	before := map[string]string{}
	st.Walk(func(p Path, n *Node) { before[p.String()] = n.Mes })

	child := st.AppendChild(Path{0, 0}, "D", KindRegenerate, "ABD")
	if !child.Equal(Path{0, 0, 1}) {
		t.Fatalf("child path = %v, want [0 0 1]", child)
	}
	n := st.FindByPath(child)
	if !n.Parent.Equal(Path{0, 0}) || n.Kind != KindRegenerate || n.FullText != "ABD" {
		t.Errorf("child = %+v", n)
	}

	for key, mes := range before {
		p, _ := ParsePath(key)
		if got := st.FindByPath(p); got == nil || got.Mes != mes {
			t.Errorf("node %s changed after fork", key)
		}
	}

	if st.AppendChild(Path{3}, "x", KindContinue, "x") != nil {
		t.Error("AppendChild to a missing parent should return nil")
	}
	if c := st.AppendChild(Path{0}, "!", KindContinue, "..."); st.FindByPath(c).FullText != "" {
		t.Error("invalid fullText must not be cached")
	}
}

func TestSetActive(t *testing.T) {
	_, st := buildTree(t)
	if !st.SetActive(Path{0, 0, 0}) {
		t.Fatal("SetActive failed")
	}
	if st.Current().Mes != "C" || st.SwipeID != 0 {
		t.Errorf("current = %q swipe = %d", st.Current().Mes, st.SwipeID)
	}
	if !st.History[0].Active.Equal(Path{0, 0, 0}) {
		t.Errorf("Active = %v", st.History[0].Active)
	}
	if st.SetActive(Path{0, 5}) {
		t.Error("SetActive on a missing path should fail")
	}
	if !st.SetActive(Path{0, 1}) || st.SwipeID != 1 {
		t.Errorf("SwipeID = %d, want 1", st.SwipeID)
	}
}

func TestRewriteRoot(t *testing.T) {
	_, st := buildTree(t)
	st.SetActive(Path{0, 0, 0})

	st.RewriteRoot("Z", KindEdit)
	root := st.History[0]
	if root.Mes != "Z" || root.FullText != "Z" || root.Kind != KindOrigin {
		t.Errorf("root = %+v, want text Z with its origin kind kept", root)
	}
	if !st.ActivePath().Equal(Path{0, 0, 0}) {
		t.Errorf("ActivePath = %v, want unchanged [0 0 0]", st.ActivePath())
	}
	if got := st.TextForPath(st.ActivePath()); got != "ZBC" {
		t.Errorf("active text = %q, want ZBC", got)
	}
	if got := st.FindByPath(Path{0, 0, 0}).FullText; got != "ZBC" {
		t.Errorf("descendant cache = %q, want ZBC", got)
	}
}

func TestRegenerateRoot(t *testing.T) {
	_, st := buildTree(t)

	st.RegenerateRoot("Y")
	root := st.History[0]
	if root.Mes != "Y" || root.Kind != KindRegenerate {
		t.Errorf("root = %+v, want Y tagged regenerate", root)
	}
	if got := st.FindByPath(Path{0, 0}).FullText; got != st.TextForPath(Path{0, 0}) {
		t.Errorf("descendant cache %q diverged from reconstruction", got)
	}
}

func TestSiblingPath(t *testing.T) {
	_, st := buildTree(t)

	if p, ok := st.SiblingPath(Path{0, 0}, 1); !ok || !p.Equal(Path{0, 1}) {
		t.Errorf("next sibling = %v %v", p, ok)
	}
	if _, ok := st.SiblingPath(Path{0, 1}, 1); ok {
		t.Error("no sibling past the last branch")
	}
	if _, ok := st.SiblingPath(Path{0}, 1); ok {
		t.Error("roots have no siblings")
	}
}

func TestNodeCount(t *testing.T) {
	_, st := buildTree(t)
	if got := st.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4", got)
	}
}

func TestOutline(t *testing.T) {
	_, st := buildTree(t)
	st.SetActive(Path{0, 0, 0})

	rows := st.Outline()
	want := []struct {
		path    string
		prefix  string
		active  bool
		current bool
	}{
		{"0", "", true, false},
		{"0/0", "├─ ", true, false},
		{"0/0/0", "│  └─ ", true, true},
		{"0/1", "└─ ", false, false},
	}
	if len(rows) != len(want) {
		t.Fatalf("Outline returned %d rows, want %d", len(rows), len(want))
	}
	for i, w := range want {
		r := rows[i]
		if r.Path.String() != w.path || r.Prefix != w.prefix || r.OnActive != w.active || r.Current != w.current {
			t.Errorf("row %d = {%s %q %v %v}, want %+v", i, r.Path, r.Prefix, r.OnActive, r.Current, w)
		}
	}
	if rows[2].Depth != 2 {
		t.Errorf("depth = %d, want 2", rows[2].Depth)
	}

	var nilState *State
	if nilState.Outline() != nil {
		t.Error("nil state has no rows")
	}
}

func TestState_JSONShape(t *testing.T) {
	_, st := buildTree(t)
	data := encode(t, st)

	var back State
	if err := json.Unmarshal([]byte(data), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m := &testMessage{mes: "A", state: &back}
	Hydrate(m)
	if got := back.TextForPath(Path{0, 0, 0}); got != "ABC" {
		t.Errorf("reloaded TextForPath = %q", got)
	}
}
