// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/host"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/reconcile"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/storage"
)

// =============================================================================
// FIXTURE
// =============================================================================

var quiet = log.New(io.Discard, "", 0)

// branchedChat returns a chat whose reply has two continue branches, with
// the first one active.
func branchedChat() *model.Chat {
	chat := model.NewChat("Aria")
	chat.AddUserMessage("You", "Hi")
	msg := chat.AddCharacterMessage("Hello")

	st := revision.Hydrate(msg)
	first := st.AppendChild(revision.Path{0}, " there", revision.KindContinue, "Hello there")
	st.AppendChild(revision.Path{0}, " again", revision.KindContinue, "Hello again")
	st.SetActive(first)
	msg.Mes = "Hello there"
	return chat
}

func newTestServer(t *testing.T) (*Server, *storage.ChatStore, *model.Chat) {
	t.Helper()
	store, err := storage.NewChatStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewChatStore: %v", err)
	}
	chat := branchedChat()
	if err := store.Save(chat); err != nil {
		t.Fatalf("Save: %v", err)
	}

	bus := events.NewBus()
	h := host.New(nil, bus, host.NewScriptedGenerator(), host.WithSaver(store), host.WithLogger(quiet))
	rec := reconcile.New(h, bus, reconcile.WithLogger(quiet))
	rec.Attach()
	t.Cleanup(rec.Detach)

	srv := NewServer("", NewHostWorkspace(store, h, rec)).WithLogger(quiet)
	return srv, store, chat
}

func do(t *testing.T, h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// =============================================================================
// SERVER TESTS
// =============================================================================

func TestNewServer(t *testing.T) {
	s := NewServer("", nil)
	if s.Addr() != DefaultAddr {
		t.Errorf("Addr() = %q, want %q", s.Addr(), DefaultAddr)
	}
	if s.WithAuth(nil) != s || s.WithRateLimiter(nil) != s || s.WithLogger(nil) != s {
		t.Error("With* methods should return the same server")
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := do(t, srv.Handler(), "GET", "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["version"] != Version {
		t.Errorf("version = %q, want %q", resp["version"], Version)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestListChats(t *testing.T) {
	srv, _, chat := newTestServer(t)
	w := do(t, srv.Handler(), "GET", "/v1/chats", "")

	var resp struct {
		Chats []storage.ChatMeta `json:"chats"`
	}
	decode(t, w, &resp)
	if len(resp.Chats) != 1 || resp.Chats[0].ID != chat.ID {
		t.Fatalf("chats = %+v", resp.Chats)
	}
	if resp.Chats[0].RevisionCount == 0 {
		t.Error("RevisionCount should count the tree")
	}
}

func TestGetChatErrors(t *testing.T) {
	srv, _, chat := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		target string
		status int
	}{
		{"/v1/chats/" + chat.ID, http.StatusOK},
		{"/v1/chats/nope-nope", http.StatusNotFound},
		{"/v1/chats/" + chat.ID + "/messages/x/tree", http.StatusBadRequest},
		{"/v1/chats/" + chat.ID + "/messages/9/tree", http.StatusNotFound},
		{"/v1/chats/" + chat.ID + "/messages/last/tree", http.StatusOK},
	}
	for _, tt := range tests {
		if w := do(t, h, "GET", tt.target, ""); w.Code != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.target, w.Code, tt.status)
		}
	}
	if got := srv.Stats().Snapshot().Errors; got != 3 {
		t.Errorf("Errors = %d, want 3", got)
	}
}

// =============================================================================
// TREE TESTS
// =============================================================================

func TestHandleTree(t *testing.T) {
	srv, _, chat := newTestServer(t)
	w := do(t, srv.Handler(), "GET", "/v1/chats/"+chat.ID+"/messages/1/tree", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d: %s", w.Code, w.Body.String())
	}
	var resp TreeResponse
	decode(t, w, &resp)

	if resp.ActivePath != "0/0" || resp.Text != "Hello there" {
		t.Errorf("active = %s %q, want 0/0 \"Hello there\"", resp.ActivePath, resp.Text)
	}
	if len(resp.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(resp.Nodes))
	}
	if resp.Nodes[0].Path != "0" || resp.Nodes[0].Children != 2 {
		t.Errorf("root node = %+v", resp.Nodes[0])
	}
	if !resp.Nodes[1].Current || resp.Nodes[2].Active {
		t.Errorf("cursor flags wrong: %+v %+v", resp.Nodes[1], resp.Nodes[2])
	}
	if resp.Nodes[2].FullText != "Hello again" {
		t.Errorf("FullText = %q", resp.Nodes[2].FullText)
	}
}

func TestHandleDiff(t *testing.T) {
	srv, _, chat := newTestServer(t)
	base := "/v1/chats/" + chat.ID + "/messages/1/diff"

	w := do(t, srv.Handler(), "GET", base+"?from=0&to=0/1&unit=word", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d: %s", w.Code, w.Body.String())
	}
	var resp DiffResponse
	decode(t, w, &resp)
	if resp.Summary != "+1 words" || resp.Unit != "word" {
		t.Errorf("Summary = %q unit = %q", resp.Summary, resp.Unit)
	}
	if resp.Unified != "" {
		t.Error("word diff should not carry a unified body")
	}

	w = do(t, srv.Handler(), "GET", base+"?from=0/1", "")
	decode(t, w, &resp)
	if resp.To != "0/0" || !strings.Contains(resp.Unified, "@@") {
		t.Errorf("default to = %q, unified = %q", resp.To, resp.Unified)
	}

	for _, q := range []string{"", "?from=0/7", "?from=x", "?from=0&unit=char", "?from=0&context=-1"} {
		if w := do(t, srv.Handler(), "GET", base+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("GET diff%s = %d, want 400", q, w.Code)
		}
	}
}

// =============================================================================
// NAVIGATION TESTS
// =============================================================================

func TestApplyAndUndo(t *testing.T) {
	srv, store, chat := newTestServer(t)
	h := srv.Handler()
	base := "/v1/chats/" + chat.ID + "/messages/1"

	w := do(t, h, "POST", base+"/apply", `{"path":"0/1"}`)
	var nav NavigationResponse
	decode(t, w, &nav)
	if !nav.Changed || nav.ActivePath != "0/1" || nav.Text != "Hello again" {
		t.Fatalf("apply = %+v", nav)
	}

	saved, err := store.Load(chat.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Messages[1].Mes != "Hello again" {
		t.Errorf("saved text = %q, want \"Hello again\"", saved.Messages[1].Mes)
	}

	w = do(t, h, "POST", base+"/undo", "")
	decode(t, w, &nav)
	if !nav.Changed || nav.ActivePath != "0" || nav.Text != "Hello" {
		t.Fatalf("undo = %+v", nav)
	}

	w = do(t, h, "POST", base+"/undo", "")
	decode(t, w, &nav)
	if nav.Changed {
		t.Error("undo at a root should change nothing")
	}

	snap := srv.Stats().Snapshot()
	if snap.Navigations != 2 || snap.NoOps != 1 {
		t.Errorf("Navigations = %d NoOps = %d, want 2 and 1", snap.Navigations, snap.NoOps)
	}
}

func TestApplyRejectsBadInput(t *testing.T) {
	srv, _, chat := newTestServer(t)
	h := srv.Handler()
	target := "/v1/chats/" + chat.ID + "/messages/1/apply"

	for _, body := range []string{"", "{", `{"path":"a/b"}`} {
		if w := do(t, h, "POST", target, body); w.Code != http.StatusBadRequest {
			t.Errorf("apply %q = %d, want 400", body, w.Code)
		}
	}

	w := do(t, h, "POST", target, `{"path":"0/5"}`)
	var nav NavigationResponse
	decode(t, w, &nav)
	if nav.Changed || nav.ActivePath != "0/0" {
		t.Errorf("apply to a missing node = %+v", nav)
	}

	if w := do(t, h, "GET", target, ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET apply = %d, want 405", w.Code)
	}
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestHandleExport(t *testing.T) {
	srv, _, chat := newTestServer(t)
	h := srv.Handler()
	base := "/v1/chats/" + chat.ID + "/export"

	w := do(t, h, "GET", base+"?format=html&theme=light", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "light-theme") {
		t.Error("theme parameter ignored")
	}

	w = do(t, h, "GET", base+"?trees=false", "")
	if strings.Contains(w.Body.String(), "<details>") {
		t.Error("trees=false still rendered trees")
	}

	if w := do(t, h, "GET", base+"?format=pdf", ""); w.Code != http.StatusBadRequest {
		t.Errorf("format=pdf = %d, want 400", w.Code)
	}
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestAuthMiddleware(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.WithAuth(TokenAuth("s3cret")).Handler()

	tests := []struct {
		name   string
		target string
		header []string
		status int
	}{
		{"no header", "/v1/chats", nil, http.StatusUnauthorized},
		{"wrong scheme", "/v1/chats", []string{"Authorization", "Basic s3cret"}, http.StatusUnauthorized},
		{"wrong token", "/v1/chats", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"valid", "/v1/chats", []string{"Authorization", "Bearer s3cret"}, http.StatusOK},
		{"health is open", "/health", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, h, "GET", tt.target, "", tt.header...); w.Code != tt.status {
				t.Errorf("Status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestValidateBearerToken(t *testing.T) {
	tests := []struct {
		token, expected string
		want            bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		if got := ValidateBearerToken(tt.token, tt.expected); got != tt.want {
			t.Errorf("ValidateBearerToken(%q, %q) = %v, want %v", tt.token, tt.expected, got, tt.want)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.WithRateLimiter(NewRateLimiter(60, 2)).Handler()

	for i := 0; i < 2; i++ {
		if w := do(t, h, "GET", "/health", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, w.Code)
		}
	}
	w := do(t, h, "GET", "/health", "")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	if !rl.Allow("10.0.0.1") || rl.Allow("10.0.0.1") {
		t.Error("burst of 1 should allow exactly one request")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("limits should be per IP")
	}
	if rl.Clients() != 2 {
		t.Errorf("Clients() = %d, want 2", rl.Clients())
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(quiet)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	if w := do(t, h, "GET", "/", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", w.Code)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("a"), mark("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	do(t, h, "GET", "/", "")
	if strings.Join(order, ",") != "a,b,handler" {
		t.Errorf("order = %v", order)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:4000", "", "203.0.113.9"},
		{"untrusted forwarder", "203.0.113.9:4000", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy", "127.0.0.1:4000", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"trusted proxy bad header", "127.0.0.1:4000", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServerStats_Uptime(t *testing.T) {
	stats := NewServerStats()
	time.Sleep(10 * time.Millisecond)
	if uptime := stats.Uptime(); uptime < 10*time.Millisecond {
		t.Errorf("Uptime = %v, expected >= 10ms", uptime)
	}
}
