// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the streaming HTTP client used as the host's
// generation backend.
//
// Only the parts of the Ollama API that a chat host needs are covered: a
// health check, model listing and streaming chat. A chat request whose last
// message has the assistant role asks the model to continue that message.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - Message: one chat turn sent to the model
//   - StreamChunk: one decoded line of a streaming response
//   - StreamReader: newline-delimited JSON decoder for streams
//
// # Usage
//
//	client := ollama.NewClient(&ollama.ClientConfig{BaseURL: url})
//	err := client.ChatStream(ctx, "llama3.2", msgs, func(c ollama.StreamChunk) {
//	    fmt.Print(c.Content)
//	})
package ollama
