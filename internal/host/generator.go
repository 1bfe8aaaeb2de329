// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/continuum/internal/events"
	"github.com/jeranaias/continuum/internal/model"
	"github.com/jeranaias/continuum/internal/ollama"
)

// =============================================================================
// GENERATOR
// =============================================================================

// Request describes one generation.
type Request struct {
	Mode      events.GenerationType
	Character string
	UserName  string

	// History is every message before the one being generated.
	History []*model.Message

	// Prefix is the text already on the message for a continue.
	Prefix string
}

// Generator produces text for a request, one token at a time.
type Generator interface {
	Generate(ctx context.Context, req Request, onToken func(token string)) error
}

// =============================================================================
// OLLAMA GENERATOR
// =============================================================================

// OllamaGenerator streams from a local Ollama server.
type OllamaGenerator struct {
	client  *ollama.Client
	model   string
	options *ollama.Options
}

// NewOllamaGenerator wraps client. An empty model uses the client default.
func NewOllamaGenerator(client *ollama.Client, model string, opts *ollama.Options) *OllamaGenerator {
	return &OllamaGenerator{client: client, model: model, options: opts}
}

// Generate implements Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request, onToken func(string)) error {
	return g.client.ChatStream(ctx, g.model, BuildPrompt(req), g.options, func(chunk ollama.StreamChunk) {
		if chunk.Content != "" {
			onToken(chunk.Content)
		}
	})
}

// BuildPrompt converts a request into Ollama chat turns. A continue ends
// with the partial assistant turn so the model picks up where it stopped.
func BuildPrompt(req Request) []ollama.Message {
	character := req.Character
	if character == "" {
		character = "the assistant"
	}
	msgs := []ollama.Message{
		ollama.NewSystemMessage("You are " + character + ". Stay in character and reply to the conversation."),
	}
	for _, m := range req.History {
		if m == nil || strings.TrimSpace(m.Mes) == "" {
			continue
		}
		switch m.Role() {
		case model.RoleUser:
			msgs = append(msgs, ollama.NewUserMessage(m.Mes))
		case model.RoleSystem:
			msgs = append(msgs, ollama.NewSystemMessage(m.Mes))
		default:
			msgs = append(msgs, ollama.NewAssistantMessage(m.Mes))
		}
	}
	if req.Mode == events.GenContinue && req.Prefix != "" {
		msgs = append(msgs, ollama.NewAssistantMessage(req.Prefix))
	}
	return msgs
}

// =============================================================================
// SCRIPTED GENERATOR
// =============================================================================

// ScriptedGenerator replays fixed replies, cycling through them. It streams
// word by word and never touches the network.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	next    int

	// Delay is slept between tokens.
	Delay time.Duration

	// Err, when set, is returned after FailAfter tokens.
	Err       error
	FailAfter int
}

// NewScriptedGenerator returns a generator cycling through replies.
func NewScriptedGenerator(replies ...string) *ScriptedGenerator {
	if len(replies) == 0 {
		replies = []string{" The story goes on."}
	}
	return &ScriptedGenerator{replies: replies}
}

// Calls returns how many generations have run.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}

// Generate implements Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, _ Request, onToken func(string)) error {
	g.mu.Lock()
	reply := g.replies[g.next%len(g.replies)]
	g.next++
	g.mu.Unlock()

	for i, tok := range Tokenize(reply) {
		if g.Err != nil && i >= g.FailAfter {
			return g.Err
		}
		if g.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.Delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		onToken(tok)
	}
	if g.Err != nil {
		return g.Err
	}
	return nil
}

// Tokenize splits text into word tokens that keep their leading whitespace,
// so concatenating them restores text exactly.
func Tokenize(text string) []string {
	var tokens []string
	start := 0
	inWord := false
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t'
		if space && inWord {
			tokens = append(tokens, text[start:i])
			start = i
			inWord = false
		} else if !space {
			inWord = true
		}
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}
