// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - The "serve" command.
package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/jeranaias/continuum/internal/export"
	"github.com/jeranaias/continuum/internal/server"
)

// serveBurst is the request burst each client IP may spend at once.
const serveBurst = 20

// HandleServe runs the HTTP API until ctx is cancelled.
func HandleServe(ctx context.Context, a *App, args Args) error {
	addr := args.Params.FlagOrDefault("addr", a.Config.Server.Addr)
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return &ValidationError{Field: "addr", Value: addr, Reason: err.Error(), Example: "continuum serve --addr 127.0.0.1:8787"}
	}
	token := args.Params.FlagOrDefault("token", a.Config.Server.Token)

	opts := export.DefaultOptions()
	opts.Theme = a.Config.Export.Theme

	srv := server.NewServer(addr, server.NewHostWorkspace(a.Store, a.Host.Host, a.Reconciler)).
		WithAuth(server.TokenAuth(token)).
		WithLogger(a.Logger).
		WithExportOptions(opts, a.Config.Export.Format)
	if n := a.Config.Server.RequestsPerMinute; n > 0 {
		srv.WithRateLimiter(server.NewRateLimiter(n, serveBurst))
	}

	if !args.JSON {
		auth := "no auth"
		if token != "" {
			auth = "bearer token required"
		}
		fmt.Fprintf(a.Out, "%s serving http://%s %s\n", InfoStyle.Render("●"), addr, DimStyle.Render("("+auth+", Ctrl+C to stop)"))
	}
	a.Logger.Printf("SERVE | addr=%s auth=%t", addr, token != "")

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if args.JSON {
		return NewJSONResponse("serve", srv.Stats().Snapshot()).Write(a.Out)
	}
	return nil
}
