// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// browse_cmd.go - The "browse" command.
package cli

import (
	"context"

	"github.com/jeranaias/continuum/internal/ui/browse"
)

// HandleBrowse opens the interactive tree browser on a chat message.
func HandleBrowse(ctx context.Context, a *App, args Args) error {
	if args.JSON {
		return &ValidationError{
			Field:   "--json",
			Reason:  "browse is interactive",
			Example: "continuum tree 1 --json",
		}
	}
	if err := RequiresTTY("browse revisions"); err != nil {
		return err
	}

	_, idx, _, err := a.target(args)
	if err != nil {
		return err
	}

	a.Logger.Printf("BROWSE_START | chat=%s idx=%d", a.Host.ChatModel().ID, idx)
	err = browse.Run(ctx, browse.Options{
		Controller:   a.Reconciler,
		Host:         a.Host,
		Index:        idx,
		PreviewWidth: a.Config.UI.PreviewWidth,
		Timeout:      a.Config.GenerationTimeout(),
		Logger:       a.Logger,
	})
	a.Logger.Printf("BROWSE_END | mutations=%d", len(a.Mutations()))
	return err
}
