// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/agrichat/internal/backend"
	"github.com/jeranaias/agrichat/internal/reveal"
	"github.com/jeranaias/agrichat/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as text ("15s", "2m") in config files.
type Duration struct {
	time.Duration
}

// Dur wraps a time.Duration.
func Dur(d time.Duration) Duration {
	return Duration{d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the complete agrichat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Backend BackendConfig `toml:"backend" json:"backend"`
	Reveal  RevealConfig  `toml:"reveal" json:"reveal"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// BackendConfig configures the support API client.
type BackendConfig struct {
	// BaseURL is the API root, e.g. http://127.0.0.1:4000/api
	BaseURL string `toml:"base_url" json:"base_url"`

	// Timeout bounds non-streaming requests.
	Timeout Duration `toml:"timeout" json:"timeout"`

	// StreamTimeout bounds one whole streamed answer.
	StreamTimeout Duration `toml:"stream_timeout" json:"stream_timeout"`

	// RequestsPerSecond paces outgoing requests; 0 disables pacing.
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`

	// HistoryLimit is how many conversations the history list shows.
	HistoryLimit int `toml:"history_limit" json:"history_limit"`
}

// RevealConfig configures the streaming reveal cadence.
type RevealConfig struct {
	TickMS       int    `toml:"tick_ms" json:"tick_ms"`
	FlushMS      int    `toml:"flush_ms" json:"flush_ms"`
	PumpsPerTick int    `toml:"pumps_per_tick" json:"pumps_per_tick"`
	MaxRun       int    `toml:"max_run" json:"max_run"`
	StartMarker  string `toml:"start_marker" json:"start_marker"`
	EndMarker    string `toml:"end_marker" json:"end_marker"`
}

// StorageConfig configures the local database.
type StorageConfig struct {
	Path string `toml:"path" json:"path"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
	Level   string `toml:"level" json:"level"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	Markdown bool   `toml:"markdown" json:"markdown"`
	Theme    string `toml:"theme" json:"theme"`
}

// Default returns the built-in configuration. Paths are left empty and
// resolved by SetDefaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Backend: BackendConfig{
			BaseURL:           backend.DefaultBaseURL,
			Timeout:           Dur(15 * time.Second),
			StreamTimeout:     Dur(2 * time.Minute),
			RequestsPerSecond: 2,
			HistoryLimit:      10,
		},
		Reveal: RevealConfig{
			TickMS:       int(reveal.DefaultTickInterval / time.Millisecond),
			FlushMS:      int(reveal.DefaultFlushInterval / time.Millisecond),
			PumpsPerTick: reveal.DefaultPumpsPerTick,
			MaxRun:       reveal.DefaultMaxRun,
			StartMarker:  reveal.DefaultStartMarker,
			EndMarker:    reveal.DefaultEndMarker,
		},
		Log: LogConfig{
			Enabled: true,
			Level:   "info",
		},
		UI: UIConfig{
			Markdown: true,
			Theme:    "auto",
		},
	}
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// RevealOptions converts the reveal section to engine options.
func (c *Config) RevealOptions() reveal.Options {
	return reveal.Options{
		TickInterval:  time.Duration(c.Reveal.TickMS) * time.Millisecond,
		FlushInterval: time.Duration(c.Reveal.FlushMS) * time.Millisecond,
		PumpsPerTick:  c.Reveal.PumpsPerTick,
		MaxRun:        c.Reveal.MaxRun,
		StartMarker:   c.Reveal.StartMarker,
		EndMarker:     c.Reveal.EndMarker,
		DisableMarkup: c.Reveal.StartMarker == "" && c.Reveal.EndMarker == "",
	}
}

// ClientConfig converts the backend section to client options.
func (c *Config) ClientConfig() *backend.ClientConfig {
	return &backend.ClientConfig{
		BaseURL:           c.Backend.BaseURL,
		Timeout:           c.Backend.Timeout.Duration,
		RequestsPerSecond: c.Backend.RequestsPerSecond,
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the agrichat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("AGRICHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".agrichat"), nil
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
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}
	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are read as JSON, anything else as TOML.
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

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys missing from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
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
	return nil
}

// finish applies env overrides and defaults, then validates.
func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
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

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# agrichat configuration file")
	fmt.Fprintln(&buf, "# Durations use Go syntax: 500ms, 15s, 2m")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
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
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Backend
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("backend.base_url", "must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout.Duration <= 0 {
		add("backend.timeout", "must be positive")
	}
	if c.Backend.StreamTimeout.Duration <= 0 {
		add("backend.stream_timeout", "must be positive")
	}
	if c.Backend.RequestsPerSecond < 0 {
		add("backend.requests_per_second", "must be non-negative")
	}
	if c.Backend.HistoryLimit < 1 || c.Backend.HistoryLimit > 50 {
		add("backend.history_limit", "must be 1-50, got %d", c.Backend.HistoryLimit)
	}

	// Reveal
	if c.Reveal.TickMS < 1 || c.Reveal.TickMS > 1000 {
		add("reveal.tick_ms", "must be 1-1000, got %d", c.Reveal.TickMS)
	}
	if c.Reveal.FlushMS < 1 || c.Reveal.FlushMS > 1000 {
		add("reveal.flush_ms", "must be 1-1000, got %d", c.Reveal.FlushMS)
	}
	if c.Reveal.PumpsPerTick < 1 || c.Reveal.PumpsPerTick > 64 {
		add("reveal.pumps_per_tick", "must be 1-64, got %d", c.Reveal.PumpsPerTick)
	}
	if c.Reveal.MaxRun < 1 || c.Reveal.MaxRun > 256 {
		add("reveal.max_run", "must be 1-256, got %d", c.Reveal.MaxRun)
	}
	if (c.Reveal.StartMarker == "") != (c.Reveal.EndMarker == "") {
		add("reveal.start_marker", "start and end markers must both be set or both be empty")
	} else if c.Reveal.StartMarker != "" && c.Reveal.StartMarker == c.Reveal.EndMarker {
		add("reveal.end_marker", "must differ from start_marker")
	}

	// Log
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields and
// resolves file paths under the config directory.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Timeout.Duration == 0 {
		c.Backend.Timeout = defaults.Backend.Timeout
	}
	if c.Backend.StreamTimeout.Duration == 0 {
		c.Backend.StreamTimeout = defaults.Backend.StreamTimeout
	}
	if c.Backend.HistoryLimit == 0 {
		c.Backend.HistoryLimit = defaults.Backend.HistoryLimit
	}

	if c.Reveal.TickMS == 0 {
		c.Reveal.TickMS = defaults.Reveal.TickMS
	}
	if c.Reveal.FlushMS == 0 {
		c.Reveal.FlushMS = defaults.Reveal.FlushMS
	}
	if c.Reveal.PumpsPerTick == 0 {
		c.Reveal.PumpsPerTick = defaults.Reveal.PumpsPerTick
	}
	if c.Reveal.MaxRun == 0 {
		c.Reveal.MaxRun = defaults.Reveal.MaxRun
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if dir, err := ConfigDir(); err == nil {
		if c.Storage.Path == "" {
			c.Storage.Path = filepath.Join(dir, "agrichat.db")
		}
		if c.Log.Path == "" {
			c.Log.Path = filepath.Join(dir, "agrichat.log")
		}
	}
}

// ApplyEnvOverrides applies AGRICHAT_* environment variables. Malformed
// numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("AGRICHAT_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("AGRICHAT_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reveal.TickMS = n
		}
	}
	if v := os.Getenv("AGRICHAT_FLUSH_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reveal.FlushMS = n
		}
	}
	if v := os.Getenv("AGRICHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("AGRICHAT_DB"); v != "" {
		c.Storage.Path = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// String returns the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("error encoding config: %v", err)
	}
	return buf.String()
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
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
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
