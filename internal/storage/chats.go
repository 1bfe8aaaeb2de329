// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/util"
)

// =============================================================================
// CHAT META
// =============================================================================

// ChatMeta contains metadata for listing chats.
type ChatMeta struct {
	ID            string    `json:"id"`
	Character     string    `json:"character"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	MessageCount  int       `json:"message_count"`
	RevisionCount int       `json:"revision_count"`
	Preview       string    `json:"preview"`
}

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore handles chat persistence.
type ChatStore struct {
	// BaseDir is the directory holding one JSON file per chat.
	BaseDir string

	// MaxChats limits stored chats (0 = unlimited). The least recently
	// updated chats are removed first.
	MaxChats int
}

// NewChatStore creates a store rooted at baseDir, creating it if needed.
func NewChatStore(baseDir string) (*ChatStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create chat dir: %w", err)
	}
	return &ChatStore{BaseDir: baseDir, MaxChats: 200}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save writes chat to disk atomically.
func (s *ChatStore) Save(chat *model.Chat) error {
	if chat == nil {
		return fmt.Errorf("save chat: nil chat")
	}
	if chat.ID == "" {
		return fmt.Errorf("save chat: missing id")
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now()
	}
	chat.Touch()

	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat %s: %w", chat.ID, err)
	}
	if err := util.AtomicWriteFile(s.Path(chat.ID), data, 0644); err != nil {
		return fmt.Errorf("write chat %s: %w", chat.ID, err)
	}

	if s.MaxChats > 0 {
		s.enforceLimit()
	}
	return nil
}

// enforceLimit removes the oldest chats if over the limit.
func (s *ChatStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxChats {
		return
	}
	// List is newest first.
	for _, meta := range metas[s.MaxChats:] {
		s.Delete(meta.ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a chat by ID.
func (s *ChatStore) Load(id string) (*model.Chat, error) {
	return s.LoadFile(s.Path(id))
}

// LoadFile reads a chat from an explicit path.
func (s *ChatStore) LoadFile(path string) (*model.Chat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("read chat: %w", err)
	}

	var chat model.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", filepath.Base(path), err)
	}
	if chat.Messages == nil {
		chat.Messages = make([]*model.Message, 0)
	}
	return &chat, nil
}

// Resolve finds a chat by 1-based list position ("1" is the most recent),
// full ID, or unique ID prefix.
func (s *ChatStore) Resolve(ref string) (*model.Chat, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrChatNotFound
	}

	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(metas) && len(ref) < 4 {
		return s.Load(metas[n-1].ID)
	}

	var match string
	for _, meta := range metas {
		if meta.ID == ref {
			return s.Load(meta.ID)
		}
		if strings.HasPrefix(meta.ID, ref) {
			if match != "" {
				return nil, ErrAmbiguousRef
			}
			match = meta.ID
		}
	}
	if match == "" {
		return nil, ErrChatNotFound
	}
	return s.Load(match)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved chats, most recently updated first. Unreadable
// files are skipped.
func (s *ChatStore) List() ([]ChatMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ChatMeta{}, nil
		}
		return nil, fmt.Errorf("list chats: %w", err)
	}

	metas := make([]ChatMeta, 0, len(entries))
	for _, entry := range entries {
		id, ok := s.IDFromPath(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}
		chat, err := s.Load(id)
		if err != nil {
			continue
		}
		metas = append(metas, ChatMeta{
			ID:            chat.ID,
			Character:     chat.Character,
			CreatedAt:     chat.CreatedAt,
			UpdatedAt:     chat.UpdatedAt,
			MessageCount:  chat.Len(),
			RevisionCount: chat.RevisionCount(),
			Preview:       chat.Preview(80),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a chat by ID.
func (s *ChatStore) Delete(id string) error {
	if err := os.Remove(s.Path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrChatNotFound
		}
		return fmt.Errorf("delete chat %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// PATHS
// =============================================================================

// Path returns the file path for a chat ID.
func (s *ChatStore) Path(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// IDFromPath extracts the chat ID from a chat file name or path. Temp files
// and non-JSON files are rejected.
func (s *ChatStore) IDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if util.IsTempFile(base) || !strings.HasSuffix(base, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(base, ".json")
	return id, id != ""
}

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors. Use errors.Is to check for them.
var (
	ErrChatNotFound = &ChatError{Message: "chat not found"}
	ErrAmbiguousRef = &ChatError{Message: "chat reference matches more than one chat"}
)

// ChatError represents a chat lookup error.
type ChatError struct {
	Message string
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing chat errors.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatChatList formats chats as a table for display.
func FormatChatList(metas []ChatMeta) string {
	if len(metas) == 0 {
		return "No chats found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + util.PadRight("ID", 10) + util.PadRight("Character", 16) +
		util.PadRight("Updated", 18) + util.PadRight("Msgs", 6) + util.PadRight("Revs", 6) + "Preview\n")
	for i, m := range metas {
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4))
		sb.WriteString(util.PadRight(m.ID, 10))
		sb.WriteString(util.PadRight(m.Character, 16))
		sb.WriteString(util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 18))
		sb.WriteString(util.PadRight(strconv.Itoa(m.MessageCount), 6))
		sb.WriteString(util.PadRight(strconv.Itoa(m.RevisionCount), 6))
		sb.WriteString(util.TruncateWidth(m.Preview, 40))
		sb.WriteString("\n")
	}
	return sb.String()
}
