// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// Verdora assistant client.
//
// Configuration lives in TOML with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.verdora/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verdora/verdora-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	Version string `toml:"version"`

	// Assistant endpoint configuration
	Assistant AssistantConfig `toml:"assistant"`

	// Contact channels offered on escalation
	Contact ContactConfig `toml:"contact"`

	// Voice dictation configuration
	Voice VoiceConfig `toml:"voice"`

	// Local transcript storage configuration
	Storage StorageConfig `toml:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// AssistantConfig describes the remote assistant endpoint.
type AssistantConfig struct {
	// BaseURL is the root of the assistant service. The client POSTs to
	// {base}/chat and {base}/feedback. Empty disables the assistant.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds one whole streaming turn. 0 means no limit.
	TimeoutSecs int `toml:"timeout_secs"`
	// HistoryWindow is how many past messages ride along as context.
	HistoryWindow int `toml:"history_window"`
	// Page is free-form request metadata describing where the client
	// runs (e.g. "boutique", "terminal").
	Page string `toml:"page"`
}

// ContactConfig holds the human hand-off channels.
type ContactConfig struct {
	// Phone is the store phone number, displayed as-is.
	Phone string `toml:"phone"`
	// WhatsApp is the store WhatsApp number used for wa.me deep links.
	WhatsApp string `toml:"whatsapp"`
}

// VoiceConfig configures the external dictation recognizer.
type VoiceConfig struct {
	// Command is the recognizer executable. Empty disables dictation.
	Command string `toml:"command"`
	// Args are passed to the recognizer on every session.
	Args []string `toml:"args"`
}

// StorageConfig configures the local transcript database.
type StorageConfig struct {
	// Enabled controls whether transcripts are kept at all.
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database path (empty = ~/.verdora/transcripts.db).
	Path string `toml:"path"`
	// KeepSessions caps how many past sessions are retained.
	KeepSessions int `toml:"keep_sessions"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
	// ShowSuggestions renders follow-up suggestion chips
	ShowSuggestions bool `toml:"show_suggestions"`
	// Plain forces the line-oriented REPL instead of the full TUI
	Plain bool `toml:"plain"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Assistant: AssistantConfig{
			BaseURL:       "",
			TimeoutSecs:   120,
			HistoryWindow: 10,
			Page:          "terminal",
		},

		Contact: ContactConfig{
			Phone:    "+33 4 67 00 00 00",
			WhatsApp: "+33 6 00 00 00 00",
		},

		Voice: VoiceConfig{
			Command: "",
		},

		Storage: StorageConfig{
			Enabled:      true,
			KeepSessions: 50,
		},

		UI: UIConfig{
			Theme:           "dark",
			CompactMode:     false,
			ShowSuggestions: true,
			Plain:           false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the verdora configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".verdora"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills in missing values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Assistant.TimeoutSecs < 0 {
		c.Assistant.TimeoutSecs = defaults.Assistant.TimeoutSecs
	}
	if c.Assistant.HistoryWindow <= 0 {
		c.Assistant.HistoryWindow = defaults.Assistant.HistoryWindow
	}
	if c.Assistant.Page == "" {
		c.Assistant.Page = defaults.Assistant.Page
	}
	if c.Storage.KeepSessions <= 0 {
		c.Storage.KeepSessions = defaults.Storage.KeepSessions
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file. The write is atomic so a
// crash mid-save never leaves a truncated config behind.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# verdora configuration file")
	fmt.Fprintln(&buf, "# Generated by verdora - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
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

	if c.Assistant.BaseURL != "" {
		u, err := url.Parse(c.Assistant.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "assistant.base_url",
				Message: fmt.Sprintf("invalid URL '%s', must be http(s)", c.Assistant.BaseURL),
			})
		}
	}

	if c.Assistant.TimeoutSecs < 0 || c.Assistant.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "assistant.timeout_secs",
			Message: fmt.Sprintf("invalid timeout %d, must be 0-3600", c.Assistant.TimeoutSecs),
		})
	}

	if c.Assistant.HistoryWindow < 1 || c.Assistant.HistoryWindow > 100 {
		errs = append(errs, ValidationError{
			Field:   "assistant.history_window",
			Message: fmt.Sprintf("invalid window %d, must be 1-100", c.Assistant.HistoryWindow),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.Storage.KeepSessions < 1 || c.Storage.KeepSessions > 10000 {
		errs = append(errs, ValidationError{
			Field:   "storage.keep_sessions",
			Message: fmt.Sprintf("invalid keep_sessions %d, must be 1-10000", c.Storage.KeepSessions),
		})
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
//   - VERDORA_ENDPOINT: overrides assistant.base_url
//   - VERDORA_TIMEOUT_SECS: overrides assistant.timeout_secs
//   - VERDORA_HISTORY_WINDOW: overrides assistant.history_window
//   - VERDORA_PAGE: overrides assistant.page
//   - VERDORA_PHONE: overrides contact.phone
//   - VERDORA_WHATSAPP: overrides contact.whatsapp
//   - VERDORA_VOICE_COMMAND: overrides voice.command
//   - VERDORA_DB_PATH: overrides storage.path
//   - VERDORA_THEME: overrides ui.theme
//   - VERDORA_PLAIN: set to "1" or "true" to force the plain REPL
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("VERDORA_ENDPOINT"); endpoint != "" {
		c.Assistant.BaseURL = endpoint
	}

	if timeout := os.Getenv("VERDORA_TIMEOUT_SECS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil {
			c.Assistant.TimeoutSecs = n
		}
	}

	if window := os.Getenv("VERDORA_HISTORY_WINDOW"); window != "" {
		if n, err := strconv.Atoi(window); err == nil {
			c.Assistant.HistoryWindow = n
		}
	}

	if page := os.Getenv("VERDORA_PAGE"); page != "" {
		c.Assistant.Page = page
	}

	if phone := os.Getenv("VERDORA_PHONE"); phone != "" {
		c.Contact.Phone = phone
	}

	if wa := os.Getenv("VERDORA_WHATSAPP"); wa != "" {
		c.Contact.WhatsApp = wa
	}

	if cmd := os.Getenv("VERDORA_VOICE_COMMAND"); cmd != "" {
		c.Voice.Command = cmd
	}

	if db := os.Getenv("VERDORA_DB_PATH"); db != "" {
		c.Storage.Path = db
	}

	if theme := os.Getenv("VERDORA_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if plain := os.Getenv("VERDORA_PLAIN"); plain != "" {
		c.UI.Plain = plain == "1" || strings.ToLower(plain) == "true"
	}
}

// =============================================================================
// DERIVED PATHS
// =============================================================================

// DatabasePath resolves the transcript database location.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcripts.db"), nil
}
