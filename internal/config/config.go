// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for lumen and lumend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete lumen configuration.
type Config struct {
	// Client settings for the TUI.
	Client ClientConfig `toml:"client"`

	// Server settings for lumend.
	Server ServerConfig `toml:"server"`

	// GenAI settings for the generative backend lumend talks to.
	GenAI GenAIConfig `toml:"genai"`

	// UI settings for the chat view.
	UI UIConfig `toml:"ui"`
}

// ClientConfig configures the TUI client.
type ClientConfig struct {
	// ServerURL is the lumend base URL.
	ServerURL string `toml:"server_url"`
	// Token is the identity credential sent on every request.
	Token string `toml:"token"`
	// TimeoutSecs bounds one request round-trip, backend latency included.
	TimeoutSecs int `toml:"timeout_secs"`
}

// ServerConfig configures lumend.
type ServerConfig struct {
	// Port to listen on.
	Port int `toml:"port"`
	// DBPath is the SQLite database path. ":memory:" runs ephemeral.
	DBPath string `toml:"db_path"`
	// Tokens maps identity credentials to user ids (dev token table).
	Tokens map[string]string `toml:"tokens"`
	// RateLimitPerMinute is the per-user request budget.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
	// RateLimitBurst is the per-user burst allowance.
	RateLimitBurst int `toml:"rate_limit_burst"`
}

// GenAIConfig configures the generative backend client.
type GenAIConfig struct {
	// BaseURL of the generation API.
	BaseURL string `toml:"base_url"`
	// APIKey authenticates lumend to the backend.
	APIKey string `toml:"api_key"`
	// Model is the generation model name.
	Model string `toml:"model"`
	// SystemPrompt is prepended to every text prompt.
	SystemPrompt string `toml:"system_prompt"`
	// TimeoutSecs bounds one generation call.
	TimeoutSecs int `toml:"timeout_secs"`
}

// UIConfig configures the chat view.
type UIConfig struct {
	// TypewriterDelayMs is the per-character reveal delay for replies.
	TypewriterDelayMs int `toml:"typewriter_delay_ms"`
	// ShowTimestamps toggles message timestamps in the log.
	ShowTimestamps bool `toml:"show_timestamps"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			ServerURL:   "http://127.0.0.1:8790",
			TimeoutSecs: 120,
		},
		Server: ServerConfig{
			Port:               8790,
			DBPath:             "",
			Tokens:             map[string]string{},
			RateLimitPerMinute: 60,
			RateLimitBurst:     10,
		},
		GenAI: GenAIConfig{
			BaseURL:     "http://127.0.0.1:11434",
			Model:       "gemini-2.5-flash",
			TimeoutSecs: 60,
		},
		UI: UIConfig{
			TypewriterDelayMs: 18,
		},
	}
}

// fillDefaults replaces zero values with the built-in defaults so a sparse
// config file still yields a usable Config.
func fillDefaults(cfg *Config) {
	def := Default()

	if cfg.Client.ServerURL == "" {
		cfg.Client.ServerURL = def.Client.ServerURL
	}
	if cfg.Client.TimeoutSecs <= 0 {
		cfg.Client.TimeoutSecs = def.Client.TimeoutSecs
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Tokens == nil {
		cfg.Server.Tokens = map[string]string{}
	}
	if cfg.Server.RateLimitPerMinute <= 0 {
		cfg.Server.RateLimitPerMinute = def.Server.RateLimitPerMinute
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = def.Server.RateLimitBurst
	}
	if cfg.GenAI.BaseURL == "" {
		cfg.GenAI.BaseURL = def.GenAI.BaseURL
	}
	if cfg.GenAI.Model == "" {
		cfg.GenAI.Model = def.GenAI.Model
	}
	if cfg.GenAI.TimeoutSecs <= 0 {
		cfg.GenAI.TimeoutSecs = def.GenAI.TimeoutSecs
	}
	if cfg.UI.TypewriterDelayMs <= 0 {
		cfg.UI.TypewriterDelayMs = def.UI.TypewriterDelayMs
	}
}

// =============================================================================
// FILE LOCATIONS
// =============================================================================

// ConfigDir returns the lumen configuration directory (~/.lumen).
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".lumen"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lumen.db"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, fills defaults, and applies environment
// overrides. A missing file is not an error; defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Save writes the config as TOML with owner-only permissions. The file
// carries the identity token, so it must not be group or world readable.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the config to a specific file path.
func SaveToPath(cfg *Config, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LUMEN_* environment variables over the loaded
// values. Environment always wins over the file.
func (c *Config) ApplyEnvOverrides() {
	if url := os.Getenv("LUMEN_SERVER_URL"); url != "" {
		c.Client.ServerURL = url
	}
	if token := os.Getenv("LUMEN_TOKEN"); token != "" {
		c.Client.Token = token
	}
	if port := os.Getenv("LUMEN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if path := os.Getenv("LUMEN_DB_PATH"); path != "" {
		c.Server.DBPath = path
	}
	if url := os.Getenv("LUMEN_GENAI_URL"); url != "" {
		c.GenAI.BaseURL = url
	}
	if key := os.Getenv("LUMEN_GENAI_KEY"); key != "" {
		c.GenAI.APIKey = key
	}
	if model := os.Getenv("LUMEN_GENAI_MODEL"); model != "" {
		c.GenAI.Model = model
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Client.TimeoutSecs <= 0 {
		return fmt.Errorf("client.timeout_secs must be positive")
	}
	if c.GenAI.TimeoutSecs <= 0 {
		return fmt.Errorf("genai.timeout_secs must be positive")
	}
	return nil
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
// Load failures fall back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
			cfg.ApplyEnvOverrides()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
