// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring shared by every command that touches a chat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jeranaias/continuum/internal/config"
	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/host"
	"github.com/jeranaias/continuum/internal/journal"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/ollama"
	"github.com/jeranaias/continuum/internal/reconcile"
	"github.com/jeranaias/continuum/internal/session"
	"github.com/jeranaias/continuum/internal/storage"
)

// offlineReplies feed the scripted generator.
var offlineReplies = []string{
	" The lamps along the harbour flickered on, one after another.",
	" Somewhere below, a door closed and footsteps faded into the rain.",
	" She paused, weighing the words before she let them go.",
	" Nobody answered, but the silence said enough.",
}

// =============================================================================
// APP
// =============================================================================

// App holds the long-lived pieces a command works with.
type App struct {
	Config     *config.Config
	Store      *storage.ChatStore
	Journal    *journal.Journal
	Bus        *events.Bus
	Host       *Host
	Reconciler *reconcile.Reconciler
	Logger     *log.Logger

	// Out receives command output. Defaults to os.Stdout.
	Out io.Writer

	ollama *ollama.Client

	mu        sync.Mutex
	mutations []reconcile.Mutation
}

// Host wraps host.Host so the CLI can report the last generation failure;
// the reconciler only logs it.
type Host struct {
	*host.Host

	mu      sync.Mutex
	lastErr error
}

// Generate runs the generation and remembers its error.
func (h *Host) Generate(ctx context.Context, mode events.GenerationType) error {
	err := h.Host.Generate(ctx, mode)
	h.mu.Lock()
	h.lastErr = err
	h.mu.Unlock()
	return err
}

// TakeError returns and clears the last generation error.
func (h *Host) TakeError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.lastErr
	h.lastErr = nil
	return err
}

// NewApp loads configuration for args and opens the app.
func NewApp(args Args) (*App, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	out := io.Discard
	if args.Verbose {
		out = os.Stderr
	}
	logger := log.New(out, "", log.LstdFlags)
	return OpenApp(cfg, logger)
}

// loadConfig loads the config file and applies global flag overrides.
func loadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			StderrPrint("%s %v (using defaults)\n", WarningStyle.Render("Warning:"), err)
		}
	}

	if args.Model != "" {
		cfg.Generation.Model = args.Model
	}
	if args.Offline {
		cfg.Generation.Offline = true
	}
	if args.NoColor {
		cfg.UI.Color = "never"
	}
	ApplyColorMode(cfg.UI.Color)
	return cfg, nil
}

// OpenApp builds the store, journal, host and reconciler for cfg.
func OpenApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	store, err := storage.NewChatStore(cfg.ChatsDir())
	if err != nil {
		return nil, fmt.Errorf("open chat store: %w", err)
	}
	store.MaxChats = cfg.Storage.MaxChats

	a := &App{
		Config: cfg,
		Store:  store,
		Bus:    events.NewBus(),
		Logger: logger,
		Out:    os.Stdout,
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.JournalPath())
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		j.SetLogger(logger)
		if cfg.Journal.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.Journal.RetentionDays)
			if n, err := j.Prune(context.Background(), cutoff); err != nil {
				logger.Printf("JOURNAL_PRUNE_FAILED | error=%v", err)
			} else if n > 0 {
				logger.Printf("JOURNAL_PRUNED | removed=%d", n)
			}
		}
		a.Journal = j
	}

	gen, client := newGenerator(cfg)
	a.ollama = client

	sess := session.NewManager(session.Config{
		AutoSaveEnabled:  cfg.AutoSave.Enabled,
		AutoSaveInterval: cfg.AutoSaveInterval(),
	})
	h := host.New(nil, a.Bus, gen,
		host.WithFormatter(newFormatter(cfg)),
		host.WithSaver(store),
		host.WithSession(sess),
		host.WithLogger(logger),
	)
	a.Host = &Host{Host: h}

	a.Reconciler = reconcile.New(a.Host, a.Bus, reconcile.WithLogger(logger))
	a.Reconciler.OnMutation(a.record)
	a.Reconciler.Attach()
	return a, nil
}

// newGenerator picks the generation backend. The client is nil for the
// scripted backend.
func newGenerator(cfg *config.Config) (host.Generator, *ollama.Client) {
	if cfg.Backend() == "scripted" {
		return host.NewScriptedGenerator(offlineReplies...), nil
	}
	client := ollama.NewClient(&ollama.ClientConfig{
		BaseURL:      cfg.Generation.OllamaURL,
		Timeout:      30 * time.Second,
		DefaultModel: cfg.Generation.Model,
	})
	opts := &ollama.Options{
		Temperature: cfg.Generation.Temperature,
		NumPredict:  cfg.Generation.MaxTokens,
	}
	return host.NewOllamaGenerator(client, cfg.Generation.Model, opts), client
}

// newFormatter renders markdown through glamour on a terminal and leaves
// text untouched otherwise.
func newFormatter(cfg *config.Config) host.Formatter {
	if !cfg.UI.Markdown || !IsStdoutTTY() {
		return host.PlainFormatter{}
	}
	style := "auto"
	if !ColorsEnabled() {
		style = "notty"
	}
	f, err := host.NewMarkdownFormatter(style, GetTerminalWidth()-4)
	if err != nil {
		return host.PlainFormatter{}
	}
	return f
}

func (a *App) record(m reconcile.Mutation) {
	a.mu.Lock()
	a.mutations = append(a.mutations, m)
	a.mu.Unlock()

	if a.Journal != nil {
		a.Journal.Recorder(a.Host.ChatModel().ID)(m)
	}
}

// Mutations returns the tree changes recorded since the last call and
// clears the list.
func (a *App) Mutations() []reconcile.Mutation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.mutations
	a.mutations = nil
	return out
}

// LoadChat resolves ref and makes the chat the host's active chat.
func (a *App) LoadChat(ref string) (*model.Chat, error) {
	if ref == "" {
		return nil, ErrMissingArgument("chat", "continuum tree 1")
	}
	chat, err := a.Store.Resolve(ref)
	if err != nil {
		return nil, err
	}
	a.Host.SetChat(chat)
	return chat, nil
}

// Preflight checks that the generation backend is reachable.
func (a *App) Preflight(ctx context.Context) error {
	if a.ollama == nil {
		return nil
	}
	if err := a.ollama.CheckRunning(ctx); err != nil {
		if errors.Is(err, ollama.ErrNotRunning) {
			return fmt.Errorf("%w at %s (start it with 'ollama serve' or use --offline)", err, a.Config.Generation.OllamaURL)
		}
		return err
	}
	return nil
}

// GenerationContext bounds one generation by the configured timeout.
func (a *App) GenerationContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.Config.GenerationTimeout())
}

// Close flushes the chat and closes the journal.
func (a *App) Close() error {
	var errs []error
	if a.Reconciler != nil {
		a.Reconciler.Detach()
	}
	if a.Host != nil {
		if err := a.Host.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("save chat: %w", err))
		}
	}
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil && !errors.Is(err, journal.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
