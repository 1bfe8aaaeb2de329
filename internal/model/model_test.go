// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/continuum/internal/revision"
)

func TestMessage_Role(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want Role
	}{
		{"user", Message{IsUser: true}, RoleUser},
		{"character", Message{}, RoleAssistant},
		{"system wins", Message{IsUser: true, IsSystem: true}, RoleSystem},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Role(); got != tc.want {
				t.Errorf("Role() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMessage_SetSwipe(t *testing.T) {
	msg := &Message{Mes: "first"}

	msg.SetSwipe(1, "second")

	if msg.Mes != "second" || msg.SwipeID != 1 {
		t.Errorf("Mes/SwipeID = %q/%d", msg.Mes, msg.SwipeID)
	}
	require.Equal(t, []string{"first", "second"}, msg.Swipes)

	msg.SetSwipe(-1, "ignored")
	require.Equal(t, "second", msg.Mes)
}

func TestMessage_SyncSwipe(t *testing.T) {
	msg := &Message{Mes: "edited", SwipeID: 1, Swipes: []string{"a", "b"}}
	msg.SyncSwipe()
	require.Equal(t, []string{"a", "edited"}, msg.Swipes)

	bare := &Message{Mes: "x"}
	bare.SyncSwipe()
	require.Empty(t, bare.Swipes)
}

func TestMessage_CarrierRoundTrip(t *testing.T) {
	msg := NewMessage("Bot", "Hello", false)
	st := revision.Hydrate(msg)
	require.Same(t, st, msg.Revisions)

	child := st.AppendChild(revision.Path{0}, " world", revision.KindContinue, "Hello world")
	st.SetActive(child)
	msg.Mes = "Hello world"

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var back Message
	require.NoError(t, json.Unmarshal(data, &back))
	got := revision.Hydrate(&back)
	require.Equal(t, revision.Path{0, 0}, got.ActivePath())
	require.Equal(t, "Hello world", got.TextForPath(got.ActivePath()))
}

func TestChat_Messages(t *testing.T) {
	chat := NewChat("Seraphina")
	if chat.LastIndex() != -1 || chat.Last() != nil {
		t.Error("empty chat should have no last message")
	}

	chat.AddUserMessage("", "Hi")
	bot := chat.AddCharacterMessage("Hello")

	if chat.Len() != 2 || chat.LastIndex() != 1 {
		t.Errorf("Len/LastIndex = %d/%d", chat.Len(), chat.LastIndex())
	}
	if chat.Last() != bot || bot.Name != "Seraphina" {
		t.Error("Last() should return the character message")
	}
	if chat.Messages[0].Name != "You" || !chat.Messages[0].IsUser {
		t.Errorf("user message = %+v", chat.Messages[0])
	}
	if chat.Message(5) != nil || chat.Message(-1) != nil {
		t.Error("out of range Message() should be nil")
	}

	var nilChat *Chat
	require.Nil(t, nilChat.Message(0))
	require.Equal(t, -1, nilChat.LastIndex())
}

func TestChat_Preview(t *testing.T) {
	chat := NewChat("Bot")
	chat.AddCharacterMessage("greeting")
	chat.AddUserMessage("", "tell me\na  story about the sea and its many moods")

	if got := chat.Preview(100); got != "tell me a story about the sea and its many moods" {
		t.Errorf("Preview(100) = %q", got)
	}
	if got := chat.Preview(10); got != "tell me..." {
		t.Errorf("Preview(10) = %q", got)
	}
}

func TestChat_RevisionCount(t *testing.T) {
	chat := NewChat("Bot")
	a := chat.AddCharacterMessage("A")
	chat.AddCharacterMessage("B")
	st := revision.Hydrate(a)
	st.AppendChild(revision.Path{0}, "x", revision.KindContinue, "Ax")

	require.Equal(t, 2, chat.RevisionCount())
}
