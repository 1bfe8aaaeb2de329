// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is an ordered list of messages with one character.
type Chat struct {
	ID        string    `json:"id"`
	Character string    `json:"character"`
	UserName  string    `json:"user_name,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewChat creates an empty chat with a generated ID.
func NewChat(character string) *Chat {
	now := time.Now()
	return &Chat{
		ID:        uuid.NewString(),
		Character: character,
		UserName:  "You",
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Message returns the message at index i, or nil when out of range.
func (c *Chat) Message(i int) *Message {
	if c == nil || i < 0 || i >= len(c.Messages) {
		return nil
	}
	return c.Messages[i]
}

// AddMessage appends msg and returns its index.
func (c *Chat) AddMessage(msg *Message) int {
	c.Messages = append(c.Messages, msg)
	c.Touch()
	return len(c.Messages) - 1
}

// AddUserMessage appends a user message.
func (c *Chat) AddUserMessage(name, text string) *Message {
	if name == "" {
		name = c.UserName
	}
	msg := NewMessage(name, text, true)
	c.AddMessage(msg)
	return msg
}

// AddCharacterMessage appends a message from the chat's character.
func (c *Chat) AddCharacterMessage(text string) *Message {
	msg := NewMessage(c.Character, text, false)
	c.AddMessage(msg)
	return msg
}

// LastIndex returns the index of the last message, or -1 when empty.
func (c *Chat) LastIndex() int {
	if c == nil {
		return -1
	}
	return len(c.Messages) - 1
}

// Last returns the last message, or nil when empty.
func (c *Chat) Last() *Message {
	return c.Message(c.LastIndex())
}

// Len returns the number of messages.
func (c *Chat) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}

// Touch marks the chat as modified now.
func (c *Chat) Touch() {
	c.UpdatedAt = time.Now()
}

// =============================================================================
// SUMMARY
// =============================================================================

// Preview returns the first user message flattened to one line and truncated
// to maxLen runes.
func (c *Chat) Preview(maxLen int) string {
	for _, msg := range c.Messages {
		if msg.IsUser && msg.Mes != "" {
			text := strings.Join(strings.Fields(msg.Mes), " ")
			runes := []rune(text)
			if maxLen > 3 && len(runes) > maxLen {
				return string(runes[:maxLen-3]) + "..."
			}
			return text
		}
	}
	return ""
}

// RevisionCount returns the number of revision nodes across all messages.
func (c *Chat) RevisionCount() int {
	total := 0
	for _, msg := range c.Messages {
		if msg.Revisions != nil {
			total += msg.Revisions.NodeCount()
		}
	}
	return total
}
