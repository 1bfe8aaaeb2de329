// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/jeranaias/continuum/internal/util"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config tunes a Watcher.
type Config struct {
	// Debounce is how long a file must be quiet before it is reported.
	Debounce time.Duration

	// RatePerSecond limits reports per file. Zero disables limiting.
	RatePerSecond float64
	Burst         int

	// Tick is how often pending changes are checked.
	Tick time.Duration
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:      250 * time.Millisecond,
		RatePerSecond: 4,
		Burst:         2,
		Tick:          50 * time.Millisecond,
	}
}

// =============================================================================
// WATCHER
// =============================================================================

// Change is one settled change to a watched file.
type Change struct {
	Path    string
	Removed bool
	At      time.Time
}

type pendingChange struct {
	last    time.Time
	removed bool
}

// Watcher reports debounced changes to chat files.
type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	files    map[string]bool // explicit file targets
	dirs     map[string]bool // whole-directory targets
	pending  map[string]pendingChange
	limiters map[string]*rate.Limiter

	changes chan Change
	errors  chan error

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a watcher. Zero config fields take their defaults.
func New(cfg Config) (*Watcher, error) {
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		cfg:      cfg,
		watcher:  fw,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		pending:  make(map[string]pendingChange),
		limiters: make(map[string]*rate.Limiter),
		changes:  make(chan Change, 16),
		errors:   make(chan error, 4),
	}, nil
}

// Add watches a chat file or a directory of chat files. Files are watched
// through their directory so atomic renames are seen.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	dir := abs
	w.mu.Lock()
	if info.IsDir() {
		w.dirs[abs] = true
	} else {
		w.files[abs] = true
		dir = filepath.Dir(abs)
	}
	w.mu.Unlock()

	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// Changes delivers settled changes. It is closed by Close.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors delivers watcher errors. Full buffers drop errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins processing events until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.processPending(ctx)
}

// Close stops the watcher and closes the Changes channel.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		err = w.watcher.Close()
		w.wg.Wait()
		close(w.changes)
	})
	return err
}

// relevant reports whether path is a chat file this watcher follows.
func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if util.IsTempFile(base) || !strings.HasSuffix(base, ".json") {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs] || w.dirs[filepath.Dir(abs)]
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.touch(event.Name, false)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.touch(event.Name, true)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) touch(path string, removed bool) {
	abs, _ := filepath.Abs(path)
	w.mu.Lock()
	w.pending[abs] = pendingChange{last: time.Now(), removed: removed}
	w.mu.Unlock()
}

// processPending reports pending changes once they have been quiet for the
// debounce period and the file's limiter allows it.
func (w *Watcher) processPending(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []Change
			for path, p := range w.pending {
				if now.Sub(p.last) < w.cfg.Debounce {
					continue
				}
				if !w.limiterLocked(path).Allow() {
					continue
				}
				// A rename onto the path (atomic save) looks like a remove
				// of the old name; trust the file system.
				removed := p.removed
				if _, err := os.Stat(path); err == nil {
					removed = false
				}
				ready = append(ready, Change{Path: path, Removed: removed, At: p.last})
				delete(w.pending, path)
			}
			w.mu.Unlock()

			for _, c := range ready {
				select {
				case w.changes <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) limiterLocked(path string) *rate.Limiter {
	if l, ok := w.limiters[path]; ok {
		return l
	}
	limit := rate.Inf
	if w.cfg.RatePerSecond > 0 {
		limit = rate.Limit(w.cfg.RatePerSecond)
	}
	l := rate.NewLimiter(limit, w.cfg.Burst)
	w.limiters[path] = l
	return l
}
