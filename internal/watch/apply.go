// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"strings"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/reconcile"
	"github.com/jeranaias/continuum/internal/revision"
)

// =============================================================================
// APPLY
// =============================================================================

// Target is the live host a reloaded chat is folded into.
type Target interface {
	reconcile.HostBridge
	ChatModel() *model.Chat
	SetChat(chat *model.Chat)
	Bus() *events.Bus
}

// Result counts what Apply changed.
type Result struct {
	Replaced  bool // a different chat was loaded
	Appended  int  // new messages
	Adopted   int  // messages whose revision tree was taken from disk
	Extended  int  // text grew; replayed as a render
	Edited    int  // text diverged; replayed as an edit
	Swiped    int  // swipe selection changed
	Truncated int  // messages dropped from the end
}

// Changed reports whether anything was applied.
func (r Result) Changed() bool {
	return r.Replaced || r.Appended+r.Adopted+r.Extended+r.Edited+r.Swiped+r.Truncated > 0
}

// Apply folds loaded into the target's live chat and replays each change
// as the host event that would have produced it:
//
//   - a message whose saved tree agrees with its saved text is adopted
//     whole, since another continuum process wrote it;
//   - a new swipe selection becomes MESSAGE_SWIPED;
//   - text that extends what was shown becomes a render event, so the
//     safety net records the surplus;
//   - any other text change becomes MESSAGE_EDITED.
//
// Apply must run on the same goroutine as every other host call.
func Apply(t Target, loaded *model.Chat) Result {
	var res Result
	if loaded == nil {
		return res
	}

	live := t.ChatModel()
	if live == nil || live.ID != loaded.ID {
		t.SetChat(loaded)
		res.Replaced = true
		return res
	}

	bus := t.Bus()
	emit := func(name events.Name, idx int) {
		if bus != nil {
			bus.Emit(events.Event{Name: name, Index: idx})
		}
	}

	if n := len(loaded.Messages); n < len(live.Messages) {
		res.Truncated = len(live.Messages) - n
		live.Messages = live.Messages[:n]
	}

	for i, lm := range loaded.Messages {
		if lm == nil {
			continue
		}
		if i >= len(live.Messages) {
			live.Messages = append(live.Messages, lm)
			render(t, i, lm)
			res.Appended++
			if lm.IsUser {
				emit(events.UserMessageRendered, i)
			} else {
				emit(events.CharacterMessageRendered, i)
			}
			continue
		}

		cur := live.Messages[i]
		if adoptable(cur, lm) {
			copyHostFields(cur, lm)
			cur.Revisions = lm.Revisions
			revision.Hydrate(cur)
			render(t, i, cur)
			res.Adopted++
			continue
		}

		switch {
		case lm.SwipeID != cur.SwipeID:
			copyHostFields(cur, lm)
			emit(events.MessageSwiped, i)
			render(t, i, cur)
			res.Swiped++
		case lm.Mes == cur.Mes:
			if len(lm.Swipes) != len(cur.Swipes) {
				cur.Swipes = append([]string(nil), lm.Swipes...)
			}
		case revision.IsValidText(cur.Mes) && strings.HasPrefix(lm.Mes, cur.Mes):
			copyHostFields(cur, lm)
			render(t, i, cur)
			if cur.IsUser {
				emit(events.UserMessageRendered, i)
			} else {
				emit(events.CharacterMessageRendered, i)
			}
			res.Extended++
		default:
			copyHostFields(cur, lm)
			emit(events.MessageEdited, i)
			render(t, i, cur)
			res.Edited++
		}
	}

	if res.Changed() {
		live.UpdatedAt = loaded.UpdatedAt
	}
	return res
}

// adoptable reports whether the saved message carries a tree that agrees
// with its own text and differs from the live tree.
func adoptable(cur, saved *model.Message) bool {
	if saved.Revisions == nil {
		return false
	}
	st := revision.Hydrate(saved)
	if st.TextForPath(st.ActivePath()) != saved.Mes {
		return false
	}
	if cur.Revisions == nil {
		return saved.Mes != cur.Mes
	}
	live := revision.Hydrate(cur)
	return live.NodeCount() != st.NodeCount() ||
		!live.ActivePath().Equal(st.ActivePath()) ||
		saved.Mes != cur.Mes
}

func copyHostFields(dst, src *model.Message) {
	dst.Mes = src.Mes
	dst.SwipeID = src.SwipeID
	dst.Swipes = append([]string(nil), src.Swipes...)
}

func render(t Target, idx int, msg *model.Message) {
	t.RenderMessage(idx, t.FormatMessage(msg.Mes, msg.Name, msg.IsSystem, msg.IsUser, idx))
}
