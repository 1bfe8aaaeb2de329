// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/continuum/internal/revision"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat entry. The host owns Mes, SwipeID and Swipes and
// mutates them in place; Revisions belongs to the revision tree.
type Message struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsUser   bool      `json:"is_user"`
	IsSystem bool      `json:"is_system,omitempty"`
	SendDate time.Time `json:"send_date"`

	// Mes is the current display text.
	Mes string `json:"mes"`

	// SwipeID selects among Swipes.
	SwipeID int      `json:"swipe_id"`
	Swipes  []string `json:"swipes,omitempty"`

	Revisions *revision.State `json:"revisions,omitempty"`
}

// NewMessage creates a message with a generated ID.
func NewMessage(name, text string, isUser bool) *Message {
	return &Message{
		ID:       uuid.NewString(),
		Name:     name,
		IsUser:   isUser,
		SendDate: time.Now(),
		Mes:      text,
	}
}

// Role derives the message role from the host flags.
func (m *Message) Role() Role {
	switch {
	case m.IsSystem:
		return RoleSystem
	case m.IsUser:
		return RoleUser
	default:
		return RoleAssistant
	}
}

// SetSwipe stores text as the alternate at id, growing Swipes as needed, and
// selects it. Mes is updated to match.
func (m *Message) SetSwipe(id int, text string) {
	if id < 0 {
		return
	}
	if len(m.Swipes) == 0 && id > 0 {
		m.Swipes = append(m.Swipes, m.Mes)
	}
	for len(m.Swipes) <= id {
		m.Swipes = append(m.Swipes, "")
	}
	m.Swipes[id] = text
	m.SwipeID = id
	m.Mes = text
}

// SyncSwipe copies Mes into the selected alternate when the host keeps one.
func (m *Message) SyncSwipe() {
	if m.SwipeID >= 0 && m.SwipeID < len(m.Swipes) {
		m.Swipes[m.SwipeID] = m.Mes
	}
}

// =============================================================================
// REVISION CARRIER
// =============================================================================

// Text implements revision.Carrier.
func (m *Message) Text() string { return m.Mes }

// SwipeIndex implements revision.Carrier.
func (m *Message) SwipeIndex() int { return m.SwipeID }

// Alternates implements revision.Carrier.
func (m *Message) Alternates() []string { return m.Swipes }

// RevisionState implements revision.Carrier.
func (m *Message) RevisionState() *revision.State { return m.Revisions }

// AttachRevisionState implements revision.Carrier.
func (m *Message) AttachRevisionState(st *revision.State) { m.Revisions = st }
