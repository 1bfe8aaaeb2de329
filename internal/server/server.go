// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/continuum/internal/diff"
	"github.com/jeranaias/continuum/internal/export"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/revision"
	"github.com/jeranaias/continuum/internal/storage"
	"github.com/jeranaias/continuum/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the loopback address the API listens on by default.
	DefaultAddr = "127.0.0.1:8787"

	// MaxRequestBodySize bounds POST bodies.
	MaxRequestBodySize = 64 * 1024

	// DefaultDiffContext is the unified diff context when none is asked for.
	DefaultDiffContext = 3

	// previewWidth is the rune width of node previews in tree responses.
	previewWidth = 80

	// Version is the API version reported by /health.
	Version = "1"
)

// ============================================================================
// WORKSPACE
// ============================================================================

// Workspace is the chat state the server reads and navigates. Open makes
// the chat the active one; Apply and Undo act on the active chat.
type Workspace interface {
	List() ([]storage.ChatMeta, error)
	Open(ref string) (*model.Chat, error)
	Apply(idx int, path revision.Path) bool
	Undo(idx int) bool
	Save() error
}

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks server usage statistics.
type ServerStats struct {
	TotalRequests int64     `json:"total_requests"`
	Reads         int64     `json:"reads"`
	Navigations   int64     `json:"navigations"`
	NoOps         int64     `json:"no_ops"`
	Errors        int64     `json:"errors"`
	StartTime     time.Time `json:"start_time"`
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

func (s *ServerStats) recordRead() {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.Reads, 1)
}

func (s *ServerStats) recordError() {
	atomic.AddInt64(&s.TotalRequests, 1)
	atomic.AddInt64(&s.Errors, 1)
}

func (s *ServerStats) recordNavigation(changed bool) {
	atomic.AddInt64(&s.TotalRequests, 1)
	if changed {
		atomic.AddInt64(&s.Navigations, 1)
	} else {
		atomic.AddInt64(&s.NoOps, 1)
	}
}

// Snapshot returns a copy of the current stats.
func (s *ServerStats) Snapshot() ServerStats {
	return ServerStats{
		TotalRequests: atomic.LoadInt64(&s.TotalRequests),
		Reads:         atomic.LoadInt64(&s.Reads),
		Navigations:   atomic.LoadInt64(&s.Navigations),
		NoOps:         atomic.LoadInt64(&s.NoOps),
		Errors:        atomic.LoadInt64(&s.Errors),
		StartTime:     s.StartTime,
	}
}

// Uptime returns the server uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server exposes saved chats and their revision trees over HTTP.
type Server struct {
	addr   string
	router *http.ServeMux
	server *http.Server

	ws         Workspace
	stats      *ServerStats
	auth       *AuthConfig
	limiter    *RateLimiter
	logger     *log.Logger
	exportOpts *export.Options
	exportFmt  string

	// mu serializes workspace access; Open swaps the active chat.
	mu sync.Mutex
}

// NewServer creates a Server for ws listening on addr. An empty addr uses
// DefaultAddr.
func NewServer(addr string, ws Workspace) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:       addr,
		router:     http.NewServeMux(),
		ws:         ws,
		stats:      NewServerStats(),
		auth:       TokenAuth(""),
		logger:     log.Default(),
		exportOpts: export.DefaultOptions(),
		exportFmt:  "md",
	}
	s.setupRoutes()
	return s
}

// WithAuth sets the authentication configuration.
func (s *Server) WithAuth(config *AuthConfig) *Server {
	s.auth = config
	return s
}

// WithRateLimiter limits requests per client IP. nil disables limiting.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.limiter = rl
	return s
}

// WithLogger sets the request and event logger.
func (s *Server) WithLogger(logger *log.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithExportOptions sets the options and the default format used by the
// export endpoint.
func (s *Server) WithExportOptions(opts *export.Options, format string) *Server {
	if opts != nil {
		s.exportOpts = opts
	}
	if format != "" {
		s.exportFmt = format
	}
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Stats returns the live stats.
func (s *Server) Stats() *ServerStats {
	return s.stats
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)

	s.router.HandleFunc("GET /v1/chats", s.handleListChats)
	s.router.HandleFunc("GET /v1/chats/{chat}", s.handleGetChat)
	s.router.HandleFunc("GET /v1/chats/{chat}/export", s.handleExport)
	s.router.HandleFunc("GET /v1/chats/{chat}/messages/{idx}/tree", s.handleTree)
	s.router.HandleFunc("GET /v1/chats/{chat}/messages/{idx}/diff", s.handleDiff)
	s.router.HandleFunc("POST /v1/chats/{chat}/messages/{idx}/apply", s.handleApply)
	s.router.HandleFunc("POST /v1/chats/{chat}/messages/{idx}/undo", s.handleUndo)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.logger),
		RateLimitMiddleware(s.limiter, s.logger),
		AuthMiddleware(s.auth, s.logger),
	)(s.router)
}

// ============================================================================
// RESPONSE TYPES
// ============================================================================

// NodeResponse is one revision in a tree response.
type NodeResponse struct {
	Path      string    `json:"path"`
	Depth     int       `json:"depth"`
	Kind      string    `json:"kind"`
	Mes       string    `json:"mes"`
	FullText  string    `json:"full_text"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
	Children  int       `json:"children"`
	Active    bool      `json:"active"`
	Current   bool      `json:"current"`
}

// TreeResponse is the revision tree of one message.
type TreeResponse struct {
	ChatID       string         `json:"chat_id"`
	MessageIndex int            `json:"message_index"`
	RootIndex    int            `json:"root_index"`
	ActivePath   string         `json:"active_path"`
	Text         string         `json:"text"`
	Nodes        []NodeResponse `json:"nodes"`
}

// NavigationResponse reports the outcome of apply or undo.
type NavigationResponse struct {
	ChatID       string `json:"chat_id"`
	MessageIndex int    `json:"message_index"`
	Changed      bool   `json:"changed"`
	ActivePath   string `json:"active_path"`
	Text         string `json:"text"`
}

// DiffResponse compares two revisions of one message.
type DiffResponse struct {
	ChatID       string `json:"chat_id"`
	MessageIndex int    `json:"message_index"`
	*diff.Diff
	Unit    string `json:"unit"`
	Summary string `json:"summary"`
	Unified string `json:"unified,omitempty"`
}

// ApplyRequest is the body of POST .../apply.
type ApplyRequest struct {
	Path string `json:"path"`
}

// ============================================================================
// HEALTH AND STATS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	ServerStats
	UptimeSeconds int64 `json:"uptime_seconds"`
	Clients       int   `json:"rate_limited_clients"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		ServerStats:   s.stats.Snapshot(),
		UptimeSeconds: int64(s.stats.Uptime().Seconds()),
	}
	if s.limiter != nil {
		resp.Clients = s.limiter.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// CHAT HANDLERS
// ============================================================================

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	metas, err := s.ws.List()
	s.mu.Unlock()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.stats.recordRead()
	writeJSON(w, http.StatusOK, map[string]any{"chats": metas})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.open(w, r)
	if !ok {
		return
	}
	s.stats.recordRead()
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.open(w, r)
	if !ok {
		return
	}
	opts := *s.exportOpts
	if theme := r.URL.Query().Get("theme"); theme != "" {
		opts.Theme = theme
	}
	if r.URL.Query().Get("trees") == "false" {
		opts.IncludeTrees = false
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = s.exportFmt
	}
	exp, err := export.ForFormat(format, &opts)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	for _, msg := range chat.Messages {
		if msg.Revisions != nil || len(msg.Swipes) > 1 {
			revision.Hydrate(msg)
		}
	}
	data, err := exp.Export(chat)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrEmptyChat) {
			status = http.StatusUnprocessableEntity
		}
		s.fail(w, status, err)
		return
	}

	s.stats.recordRead()
	w.Header().Set("Content-Type", exp.MimeType()+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ============================================================================
// TREE HANDLERS
// ============================================================================

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, idx, msg, ok := s.message(w, r)
	if !ok {
		return
	}
	st := revision.Hydrate(msg)
	s.stats.recordRead()
	writeJSON(w, http.StatusOK, treeResponse(chat, idx, msg, st))
}

func treeResponse(chat *model.Chat, idx int, msg *model.Message, st *revision.State) TreeResponse {
	resp := TreeResponse{
		ChatID:       chat.ID,
		MessageIndex: idx,
		RootIndex:    st.RootIndex(),
		ActivePath:   st.ActivePath().String(),
		Text:         msg.Mes,
		Nodes:        []NodeResponse{},
	}
	for _, row := range st.Outline() {
		resp.Nodes = append(resp.Nodes, NodeResponse{
			Path:      row.Path.String(),
			Depth:     row.Depth,
			Kind:      row.Node.Kind.String(),
			Mes:       row.Node.Mes,
			FullText:  st.TextForPathPreferCache(row.Path),
			Preview:   util.Preview(row.Node.Mes, previewWidth),
			CreatedAt: row.Node.Created(),
			Children:  row.Node.ChildCount(),
			Active:    row.OnActive,
			Current:   row.Current,
		})
	}
	return resp
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, idx, msg, ok := s.message(w, r)
	if !ok {
		return
	}
	st := revision.Hydrate(msg)
	q := r.URL.Query()

	from, err := s.pathParam(st, q.Get("from"), nil)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	to, err := s.pathParam(st, q.Get("to"), st.ActivePath())
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	unit := diff.UnitLine
	switch q.Get("unit") {
	case "", "line":
	case "word":
		unit = diff.UnitWord
	default:
		s.fail(w, http.StatusBadRequest, fmt.Errorf("unknown unit %q (want line or word)", q.Get("unit")))
		return
	}
	contextLines := DefaultDiffContext
	if raw := q.Get("context"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("context must be a non-negative integer"))
			return
		}
		contextLines = n
	}

	d := diff.Compute(from.String(), to.String(),
		st.TextForPathPreferCache(from), st.TextForPathPreferCache(to), unit)
	resp := DiffResponse{
		ChatID:       chat.ID,
		MessageIndex: idx,
		Diff:         d,
		Unit:         unit.String(),
		Summary:      d.Summary(),
	}
	if unit == diff.UnitLine {
		resp.Unified = d.Unified(contextLines)
	}
	s.stats.recordRead()
	writeJSON(w, http.StatusOK, resp)
}

// pathParam parses raw as a path of st. An empty raw yields fallback, or is
// an error when fallback is nil.
func (s *Server) pathParam(st *revision.State, raw string, fallback revision.Path) (revision.Path, error) {
	if raw == "" {
		if fallback == nil {
			return nil, fmt.Errorf("missing path parameter")
		}
		return fallback, nil
	}
	p, err := revision.ParsePath(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", raw, err)
	}
	if st.FindByPath(p) == nil {
		return nil, fmt.Errorf("no revision at %s", p)
	}
	return p, nil
}

// ============================================================================
// NAVIGATION HANDLERS
// ============================================================================

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	path, err := revision.ParsePath(req.Path)
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid path %q: %w", req.Path, err))
		return
	}

	s.navigate(w, r, "apply", func(idx int) bool {
		return s.ws.Apply(idx, path)
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, "undo", s.ws.Undo)
}

// navigate runs op on the addressed message and saves. A no-op answers
// 200 with changed=false; clients decide whether that matters.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, name string, op func(idx int) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, idx, msg, ok := s.message(w, r)
	if !ok {
		return
	}
	changed := op(idx)
	if changed {
		if err := s.ws.Save(); err != nil {
			s.fail(w, http.StatusInternalServerError, fmt.Errorf("save chat: %w", err))
			return
		}
	}
	s.stats.recordNavigation(changed)

	resp := NavigationResponse{
		ChatID:       chat.ID,
		MessageIndex: idx,
		Changed:      changed,
		Text:         msg.Mes,
	}
	if msg.Revisions != nil {
		resp.ActivePath = revision.Hydrate(msg).ActivePath().String()
	}
	s.logger.Printf("API_%s | chat=%s message=%d changed=%t path=%s", name, chat.ID, idx, changed, resp.ActivePath)
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// LOOKUP HELPERS
// ============================================================================

// open resolves the {chat} path value. The caller holds s.mu.
func (s *Server) open(w http.ResponseWriter, r *http.Request) (*model.Chat, bool) {
	chat, err := s.ws.Open(r.PathValue("chat"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, storage.ErrChatNotFound):
			status = http.StatusNotFound
		case errors.Is(err, storage.ErrAmbiguousRef):
			status = http.StatusConflict
		}
		s.fail(w, status, err)
		return nil, false
	}
	return chat, true
}

// message resolves {chat} and {idx}. The caller holds s.mu.
func (s *Server) message(w http.ResponseWriter, r *http.Request) (*model.Chat, int, *model.Message, bool) {
	chat, ok := s.open(w, r)
	if !ok {
		return nil, 0, nil, false
	}
	raw := r.PathValue("idx")
	idx, err := strconv.Atoi(raw)
	if raw == "last" {
		idx, err = chat.LastIndex(), nil
	}
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid message index %q", raw))
		return nil, 0, nil, false
	}
	msg := chat.Message(idx)
	if msg == nil {
		s.fail(w, http.StatusNotFound, fmt.Errorf("chat has %d messages", chat.Len()))
		return nil, 0, nil, false
	}
	return chat, idx, msg, true
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	s.logger.Printf("SERVER_START | addr=%s auth=%t", s.addr, s.auth != nil && s.auth.Enabled)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Printf("SERVER_SHUTDOWN | requests=%d", s.stats.Snapshot().TotalRequests)
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// fail logs err and writes it as a JSON error.
func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.stats.recordError()
	s.logger.Printf("API_ERROR | status=%d error=%v", status, err)
	writeError(w, status, err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
