// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package browse

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the browser's keyboard bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PrevSibling key.Binding
	NextSibling key.Binding
	Parent      key.Binding
	Current     key.Binding
	Apply       key.Binding
	Undo        key.Binding
	Continue    key.Binding
	Regenerate  key.Binding
	PrevMessage key.Binding
	NextMessage key.Binding
	Cancel      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous node"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next node"),
		),
		PrevSibling: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("left/h", "previous branch"),
		),
		NextSibling: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("right/l", "next branch"),
		),
		Parent: key.NewBinding(
			key.WithKeys("backspace", "b"),
			key.WithHelp("bksp/b", "parent"),
		),
		Current: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "current node"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("Enter", "apply path"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undo continue"),
		),
		Continue: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "continue"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "regenerate continue"),
		),
		PrevMessage: key.NewBinding(
			key.WithKeys("p", "["),
			key.WithHelp("p/[", "previous message"),
		),
		NextMessage: key.NewBinding(
			key.WithKeys("n", "]"),
			key.WithHelp("n/]", "next message"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop generation"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/C-c", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the one-line footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Apply, k.Continue, k.Undo, k.Help, k.Quit}
}

// FullHelp returns the bindings grouped for the expanded footer.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Tree
		{k.Up, k.Down, k.PrevSibling, k.NextSibling, k.Parent, k.Current},
		// Operations
		{k.Apply, k.Undo, k.Continue, k.Regenerate, k.Cancel},
		// Messages
		{k.PrevMessage, k.NextMessage, k.Help, k.Quit},
	}
}
