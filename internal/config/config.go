// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/continuum/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete continuum configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Journal    JournalConfig    `toml:"journal" json:"journal"`
	Generation GenerationConfig `toml:"generation" json:"generation"`
	AutoSave   AutoSaveConfig   `toml:"autosave" json:"autosave"`
	Watch      WatchConfig      `toml:"watch" json:"watch"`
	UI         UIConfig         `toml:"ui" json:"ui"`
	Export     ExportConfig     `toml:"export" json:"export"`
	Server     ServerConfig     `toml:"server" json:"server"`
}

// StorageConfig controls chat persistence.
type StorageConfig struct {
	// DataDir is the root for chats and the journal. "~" is expanded.
	DataDir string `toml:"data_dir" json:"data_dir"`
	// MaxChats limits stored chats (0 = unlimited)
	MaxChats int `toml:"max_chats" json:"max_chats"`
}

// JournalConfig controls the mutation journal.
type JournalConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path of the SQLite database (empty = <data_dir>/journal.db)
	Path string `toml:"path" json:"path"`
	// RetentionDays prunes older entries on open (0 = keep forever)
	RetentionDays int `toml:"retention_days" json:"retention_days"`
}

// GenerationConfig selects and tunes the text generator.
type GenerationConfig struct {
	// Backend is "ollama" or "scripted"
	Backend     string  `toml:"backend" json:"backend"`
	OllamaURL   string  `toml:"ollama_url" json:"ollama_url"`
	Model       string  `toml:"model" json:"model"`
	TimeoutSecs int     `toml:"timeout_secs" json:"timeout_secs"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens caps one generation (0 = backend default)
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Offline forces the scripted backend
	Offline bool `toml:"offline" json:"offline"`
}

// AutoSaveConfig controls when the host flushes the chat to disk.
type AutoSaveConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// IntervalSecs is the minimum time between saves (0 = save every change)
	IntervalSecs int `toml:"interval_secs" json:"interval_secs"`
}

// WatchConfig tunes the chat-file watcher.
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
	// ReloadsPerSecond rate-limits reloads of one chat
	ReloadsPerSecond float64 `toml:"reloads_per_second" json:"reloads_per_second"`
	Burst            int     `toml:"burst" json:"burst"`
}

// UIConfig contains display settings.
type UIConfig struct {
	// Markdown renders message bodies through glamour
	Markdown bool `toml:"markdown" json:"markdown"`
	// Color is "auto", "always" or "never"
	Color string `toml:"color" json:"color"`
	// PreviewWidth is the fragment preview width in tree listings
	PreviewWidth int `toml:"preview_width" json:"preview_width"`
	// DiffStyle is the chroma style for colored diffs
	DiffStyle string `toml:"diff_style" json:"diff_style"`
}

// ExportConfig sets defaults for the export command.
type ExportConfig struct {
	// Format is "md", "json" or "html"
	Format string `toml:"format" json:"format"`
	// Dir is where export files go (empty = current directory)
	Dir   string `toml:"dir" json:"dir"`
	Theme string `toml:"theme" json:"theme"`
}

// ServerConfig configures the HTTP API started by "continuum serve".
type ServerConfig struct {
	// Addr is the listen address; keep it on loopback unless Token is set.
	Addr string `toml:"addr" json:"addr"`
	// Token, when set, is required as a bearer token on every request
	Token string `toml:"token" json:"token"`
	// RequestsPerMinute limits each client IP (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Storage: StorageConfig{
			DataDir:  "~/.continuum",
			MaxChats: 200,
		},
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Generation: GenerationConfig{
			Backend:     "ollama",
			OllamaURL:   "http://localhost:11434",
			Model:       "llama3.2",
			TimeoutSecs: 300,
			Temperature: 0.8,
		},
		AutoSave: AutoSaveConfig{
			Enabled:      true,
			IntervalSecs: 0,
		},
		Watch: WatchConfig{
			DebounceMs:       250,
			ReloadsPerSecond: 4,
			Burst:            2,
		},
		UI: UIConfig{
			Markdown:     true,
			Color:        "auto",
			PreviewWidth: 48,
			DiffStyle:    "monokai",
		},
		Export: ExportConfig{
			Format: "md",
			Theme:  "dark",
		},
		Server: ServerConfig{
			Addr:              "127.0.0.1:8787",
			RequestsPerMinute: 120,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the continuum configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".continuum"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() string {
	return expandHome(c.Storage.DataDir)
}

// ChatsDir returns the directory holding chat files.
func (c *Config) ChatsDir() string {
	return filepath.Join(c.DataDir(), "chats")
}

// JournalPath returns the journal database path.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return expandHome(c.Journal.Path)
	}
	return filepath.Join(c.DataDir(), "journal.db")
}

// ExportDir returns the expanded export directory, "." when unset.
func (c *Config) ExportDir() string {
	if c.Export.Dir == "" {
		return "."
	}
	return expandHome(c.Export.Dir)
}

// GenerationTimeout returns the generation timeout as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSecs) * time.Second
}

// AutoSaveInterval returns the autosave interval as a duration.
func (c *Config) AutoSaveInterval() time.Duration {
	return time.Duration(c.AutoSave.IntervalSecs) * time.Second
}

// WatchDebounce returns the watcher debounce as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	// A broken file leaves defaults in place; the error is informational.
	if loadErr != nil {
		cfg = Default()
	}
	cfg, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish applies env overrides and validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Storage
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaults.Storage.DataDir
	}

	// Generation
	if cfg.Generation.Backend == "" {
		cfg.Generation.Backend = defaults.Generation.Backend
	}
	if cfg.Generation.OllamaURL == "" {
		cfg.Generation.OllamaURL = defaults.Generation.OllamaURL
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = defaults.Generation.Model
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = defaults.Generation.TimeoutSecs
	}

	// Watch
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = defaults.Watch.DebounceMs
	}
	if cfg.Watch.ReloadsPerSecond == 0 {
		cfg.Watch.ReloadsPerSecond = defaults.Watch.ReloadsPerSecond
	}
	if cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = defaults.Watch.Burst
	}

	// UI
	if cfg.UI.Color == "" {
		cfg.UI.Color = defaults.UI.Color
	}
	if cfg.UI.PreviewWidth == 0 {
		cfg.UI.PreviewWidth = defaults.UI.PreviewWidth
	}
	if cfg.UI.DiffStyle == "" {
		cfg.UI.DiffStyle = defaults.UI.DiffStyle
	}

	// Export
	if cfg.Export.Format == "" {
		cfg.Export.Format = defaults.Export.Format
	}
	if cfg.Export.Theme == "" {
		cfg.Export.Theme = defaults.Export.Theme
	}

	// Server
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# continuum configuration file\n")
	sb.WriteString("# Generated by continuum - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Storage.MaxChats < 0 {
		errs = append(errs, ValidationError{"storage.max_chats", "must be >= 0"})
	}
	if c.Journal.RetentionDays < 0 {
		errs = append(errs, ValidationError{"journal.retention_days", "must be >= 0"})
	}

	switch c.Generation.Backend {
	case "ollama", "scripted":
	default:
		errs = append(errs, ValidationError{"generation.backend", fmt.Sprintf("unknown backend %q (want ollama or scripted)", c.Generation.Backend)})
	}
	if u, err := url.Parse(c.Generation.OllamaURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{"generation.ollama_url", fmt.Sprintf("invalid URL %q", c.Generation.OllamaURL)})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{"generation.ollama_url", "scheme must be http or https"})
	}
	if c.Generation.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"generation.timeout_secs", "must be >= 0"})
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, ValidationError{"generation.temperature", "must be between 0 and 2"})
	}
	if c.Generation.MaxTokens < 0 {
		errs = append(errs, ValidationError{"generation.max_tokens", "must be >= 0"})
	}

	if c.AutoSave.IntervalSecs < 0 {
		errs = append(errs, ValidationError{"autosave.interval_secs", "must be >= 0"})
	}

	if c.Watch.DebounceMs < 0 {
		errs = append(errs, ValidationError{"watch.debounce_ms", "must be >= 0"})
	}
	if c.Watch.ReloadsPerSecond < 0 {
		errs = append(errs, ValidationError{"watch.reloads_per_second", "must be >= 0"})
	}
	if c.Watch.Burst < 0 {
		errs = append(errs, ValidationError{"watch.burst", "must be >= 0"})
	}

	switch c.UI.Color {
	case "auto", "always", "never":
	default:
		errs = append(errs, ValidationError{"ui.color", fmt.Sprintf("unknown mode %q (want auto, always or never)", c.UI.Color)})
	}
	if c.UI.PreviewWidth < 8 {
		errs = append(errs, ValidationError{"ui.preview_width", "must be >= 8"})
	}

	switch c.Export.Format {
	case "md", "json", "html":
	default:
		errs = append(errs, ValidationError{"export.format", fmt.Sprintf("unknown format %q (want md, json or html)", c.Export.Format)})
	}
	switch c.Export.Theme {
	case "dark", "light":
	default:
		errs = append(errs, ValidationError{"export.theme", fmt.Sprintf("unknown theme %q (want dark or light)", c.Export.Theme)})
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, ValidationError{"server.addr", err.Error()})
	}
	if c.Server.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{"server.requests_per_minute", "must be >= 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CONTINUUM_MODEL: overrides generation.model
//   - CONTINUUM_OLLAMA_URL: overrides generation.ollama_url
//   - CONTINUUM_DATA_DIR: overrides storage.data_dir
//   - CONTINUUM_OFFLINE: set to "1" or "true" to force the scripted backend
//   - CONTINUUM_SERVER_TOKEN: overrides server.token
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("CONTINUUM_MODEL"); model != "" {
		c.Generation.Model = model
	}

	if u := os.Getenv("CONTINUUM_OLLAMA_URL"); u != "" {
		c.Generation.OllamaURL = u
	}

	if dir := os.Getenv("CONTINUUM_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}

	if offline := os.Getenv("CONTINUUM_OFFLINE"); offline != "" {
		c.Generation.Offline = offline == "1" || strings.ToLower(offline) == "true"
	}

	if token := os.Getenv("CONTINUUM_SERVER_TOKEN"); token != "" {
		c.Server.Token = token
	}
}

// Backend returns the effective backend, honoring offline mode.
func (c *Config) Backend() string {
	if c.Generation.Offline {
		return "scripted"
	}
	return c.Generation.Backend
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "generation.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "generation.model").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks key through the struct tree and returns the final field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation, in field order.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
