// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import "github.com/jeranaias/continuum/internal/revision"

// Op names the kind of tree change.
type Op string

const (
	// OpFork appends a generated branch below the active node.
	OpFork Op = "fork"
	// OpSafetyFork appends text the host showed but the tree missed.
	OpSafetyFork Op = "safety_fork"
	// OpEditFork appends the tail of a user edit.
	OpEditFork Op = "edit_fork"
	// OpRootRewrite replaces a root's own text in place.
	OpRootRewrite Op = "root_rewrite"
	// OpApply moves the active path and writes its text to the message.
	OpApply Op = "apply"
	// OpSwipeSeed fills an empty root from the host's swiped text.
	OpSwipeSeed Op = "swipe_seed"
)

// Mutation describes one change made to a message's revision tree.
type Mutation struct {
	MessageIndex int
	Op           Op
	Kind         revision.Kind
	Path         revision.Path
	Text         string
}

// OnMutation registers fn to receive every tree change. Observers run
// synchronously after the change and before the UI refresh.
func (r *Reconciler) OnMutation(fn func(Mutation)) {
	if fn != nil {
		r.observers = append(r.observers, fn)
	}
}

func (r *Reconciler) notify(m Mutation) {
	for _, fn := range r.observers {
		fn(m)
	}
}
