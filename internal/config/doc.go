// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for continuum.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - StorageConfig: Where chats live and how many are kept
//   - JournalConfig: Mutation journal location and retention
//   - GenerationConfig: Backend selection and Ollama settings
//   - AutoSaveConfig, WatchConfig, UIConfig: host and CLI behavior
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CONTINUUM_*)
//   - ~/.continuum/config.toml
//   - ~/.continuum/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := storage.NewChatStore(cfg.ChatsDir())
package config
