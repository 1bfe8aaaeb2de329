// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes saved chats and their revision trees over a small
// JSON HTTP API.
//
// # Endpoints
//
//   - GET  /health                                   - Health check (never authenticated)
//   - GET  /stats                                    - Request counters
//   - GET  /v1/chats                                 - List chats, newest first
//   - GET  /v1/chats/{chat}                          - Full chat with revision trees
//   - GET  /v1/chats/{chat}/export?format=md|json|html
//   - GET  /v1/chats/{chat}/messages/{idx}/tree      - Flattened revision tree
//   - GET  /v1/chats/{chat}/messages/{idx}/diff?from=0/0&to=0/1&unit=word
//   - POST /v1/chats/{chat}/messages/{idx}/apply     - Body {"path":"0/1"}
//   - POST /v1/chats/{chat}/messages/{idx}/undo
//
// {chat} accepts the same references as the CLI (list position, ID or ID
// prefix); {idx} is a message index or "last". Apply and undo that change
// nothing answer 200 with "changed": false.
//
// Generation is not exposed; the server only navigates existing revisions.
//
// # Middleware
//
// Requests pass through panic recovery, security headers, request logging,
// a per-IP token bucket (golang.org/x/time/rate) and optional bearer token
// authentication.
//
// # Key Types
//
//   - Server: router, middleware chain and lifecycle
//   - Workspace: the chat state the handlers read and navigate
//   - HostWorkspace: Workspace backed by a store, host and reconciler
//
// # Usage
//
//	ws := server.NewHostWorkspace(store, h, rec)
//	srv := server.NewServer("127.0.0.1:8787", ws).
//		WithAuth(server.TokenAuth(token)).
//		WithRateLimiter(server.NewRateLimiter(120, 20))
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
