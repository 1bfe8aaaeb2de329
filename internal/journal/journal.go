// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/continuum/internal/reconcile"
	"github.com/jeranaias/continuum/internal/revision"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("journal closed")
)

// =============================================================================
// TYPES
// =============================================================================

// Entry is one recorded tree mutation.
type Entry struct {
	ID           string
	ChatID       string
	MessageIndex int
	Op           reconcile.Op
	Kind         revision.Kind
	Path         revision.Path
	Text         string
	CreatedAt    time.Time
}

// Filter narrows List results. Empty strings match everything.
type Filter struct {
	ChatID string
	// MessageIndex restricts to one message when >= 0. Use AllMessages
	// to match every message.
	MessageIndex int
	Op           reconcile.Op
	// Limit caps the number of rows (0 = no limit). Newest rows win.
	Limit int
}

// AllMessages is the MessageIndex value matching every message.
const AllMessages = -1

// =============================================================================
// JOURNAL
// =============================================================================

// Journal is an append-only mutation log backed by SQLite.
type Journal struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	closed bool

	logger *log.Logger
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize metadata: %w", err)
	}

	return &Journal{db: db, path: path, logger: log.Default()}, nil
}

// SetLogger replaces the logger used by Recorder for write failures.
func (j *Journal) SetLogger(l *log.Logger) {
	if l != nil {
		j.logger = l
	}
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database. Further calls return ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	j.closed = true
	return j.db.Close()
}

// =============================================================================
// WRITE
// =============================================================================

// Record appends e. ID and CreatedAt are filled in when empty.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return Entry{}, ErrClosed
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO mutations (id, chat_id, message_index, op, kind, path, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ChatID, e.MessageIndex, string(e.Op), string(e.Kind),
		e.Path.String(), e.Text, e.CreatedAt.UnixMilli())
	if err != nil {
		return Entry{}, fmt.Errorf("record mutation: %w", err)
	}
	return e, nil
}

// Recorder returns a mutation observer that journals every change for
// chatID. Write failures are logged, never surfaced to the reconciler.
func (j *Journal) Recorder(chatID string) func(reconcile.Mutation) {
	return func(m reconcile.Mutation) {
		_, err := j.Record(context.Background(), Entry{
			ChatID:       chatID,
			MessageIndex: m.MessageIndex,
			Op:           m.Op,
			Kind:         m.Kind,
			Path:         m.Path,
			Text:         m.Text,
		})
		if err != nil {
			j.logger.Printf("JOURNAL_WRITE_FAILED | chat=%s idx=%d op=%s error=%v", chatID, m.MessageIndex, m.Op, err)
		}
	}
}

// =============================================================================
// READ
// =============================================================================

// List returns matching entries in chronological order. With a Limit, the
// newest Limit entries are returned, still oldest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	var where []string
	var args []any
	if f.ChatID != "" {
		where = append(where, "chat_id = ?")
		args = append(args, f.ChatID)
	}
	if f.MessageIndex >= 0 {
		where = append(where, "message_index = ?")
		args = append(args, f.MessageIndex)
	}
	if f.Op != "" {
		where = append(where, "op = ?")
		args = append(args, string(f.Op))
	}

	query := "SELECT id, chat_id, message_index, op, kind, path, text, created_at FROM mutations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			op      string
			kind    sql.NullString
			path    string
			text    sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.ChatID, &e.MessageIndex, &op, &kind, &path, &text, &created); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Op = reconcile.Op(op)
		e.Kind = revision.Kind(kind.String)
		e.Text = text.String
		e.CreatedAt = time.UnixMilli(created)
		if path != "" {
			if p, err := revision.ParsePath(path); err == nil {
				e.Path = p
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read journal rows: %w", err)
	}

	// Reverse into chronological order.
	for a, b := 0, len(entries)-1; a < b; a, b = a+1, b-1 {
		entries[a], entries[b] = entries[b], entries[a]
	}
	return entries, nil
}

// Count returns the number of entries recorded for chatID, or for all chats
// when chatID is empty.
func (j *Journal) Count(ctx context.Context, chatID string) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}

	var n int
	var err error
	if chatID == "" {
		err = j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mutations").Scan(&n)
	} else {
		err = j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mutations WHERE chat_id = ?", chatID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}

	res, err := j.db.ExecContext(ctx, "DELETE FROM mutations WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}
