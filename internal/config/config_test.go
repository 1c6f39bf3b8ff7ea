// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGRICHAT_HOME", dir)
	for _, k := range []string{"AGRICHAT_BASE_URL", "AGRICHAT_TICK_MS", "AGRICHAT_FLUSH_MS", "AGRICHAT_LOG_LEVEL", "AGRICHAT_DB"} {
		t.Setenv(k, "")
	}
	return dir
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			c.Backend.BaseURL = "http://farm.local/api"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_ConcurrentReload tests concurrent ReloadGlobal and Global calls.
func TestConfig_ConcurrentReload(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	_ = Global()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	dir := isolate(t)
	ResetGlobalForTesting()

	cfg := Global()
	require.NotNil(t, cfg)
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, filepath.Join(dir, "agrichat.db"), cfg.Storage.Path)
	assert.Equal(t, filepath.Join(dir, "agrichat.log"), cfg.Log.Path)
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	_ = Global()

	custom := Default()
	custom.Version = "custom-version"
	SetGlobal(custom)

	assert.Equal(t, "custom-version", Global().Version)
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://127.0.0.1:4000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 25, cfg.Reveal.TickMS)
	assert.Equal(t, 15, cfg.Reveal.FlushMS)
	assert.Equal(t, 2, cfg.Reveal.PumpsPerTick)
	assert.Equal(t, 4, cfg.Reveal.MaxRun)
	assert.Equal(t, "<think>", cfg.Reveal.StartMarker)
	assert.Equal(t, "</think>", cfg.Reveal.EndMarker)
	assert.Equal(t, 10, cfg.Backend.HistoryLimit)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"markers disabled", func(c *Config) { c.Reveal.StartMarker, c.Reveal.EndMarker = "", "" }, false},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "/api" }, true},
		{"ftp base url", func(c *Config) { c.Backend.BaseURL = "ftp://farm/api" }, true},
		{"zero tick", func(c *Config) { c.Reveal.TickMS = 0 }, true},
		{"huge flush", func(c *Config) { c.Reveal.FlushMS = 5000 }, true},
		{"zero pumps", func(c *Config) { c.Reveal.PumpsPerTick = 0 }, true},
		{"zero max run", func(c *Config) { c.Reveal.MaxRun = 0 }, true},
		{"one marker only", func(c *Config) { c.Reveal.EndMarker = "" }, true},
		{"identical markers", func(c *Config) { c.Reveal.EndMarker = c.Reveal.StartMarker }, true},
		{"negative rate", func(c *Config) { c.Backend.RequestsPerSecond = -1 }, true},
		{"history limit above max", func(c *Config) { c.Backend.HistoryLimit = 51 }, true},
		{"zero stream timeout", func(c *Config) { c.Backend.StreamTimeout = Dur(0) }, true},
		{"invalid log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"invalid theme", func(c *Config) { c.UI.Theme = "sepia" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	c := Default()
	c.Reveal.TickMS = 0
	c.UI.Theme = "sepia"

	err := c.Validate()
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "reveal.tick_ms", verrs[0].Field)
	assert.Equal(t, "ui.theme", verrs[1].Field)
	assert.Contains(t, err.Error(), "; ")
}

func TestConfig_LoadTOMLPartial(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[backend]
base_url = "https://support.example.org/api/"
stream_timeout = "45s"

[reveal]
tick_ms = 40
`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://support.example.org/api", cfg.Backend.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Backend.StreamTimeout.Duration)
	assert.Equal(t, 40, cfg.Reveal.TickMS)
	assert.Equal(t, 15, cfg.Reveal.FlushMS, "unset keys keep defaults")
	assert.Equal(t, 40*time.Millisecond, cfg.RevealOptions().TickInterval)
}

func TestConfig_RevealOptionsMarkup(t *testing.T) {
	cfg := Default()
	opts := cfg.RevealOptions()
	assert.False(t, opts.DisableMarkup)
	assert.Equal(t, "<think>", opts.StartMarker)

	cfg.Reveal.StartMarker, cfg.Reveal.EndMarker = "", ""
	assert.True(t, cfg.RevealOptions().DisableMarkup)
}

func TestConfig_LoadJSONFallback(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"reveal":{"flush_ms":8},"backend":{"timeout":"3s"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Reveal.FlushMS)
	assert.Equal(t, 3*time.Second, cfg.ClientConfig().Timeout)
}

func TestConfig_LoadInvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[reveal]\ntick_ms = 0\npumps_per_tick = -1\n"), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("AGRICHAT_BASE_URL", "http://10.0.0.5:4000/api")
	t.Setenv("AGRICHAT_TICK_MS", "50")
	t.Setenv("AGRICHAT_FLUSH_MS", "not-a-number")
	t.Setenv("AGRICHAT_LOG_LEVEL", "DEBUG")
	t.Setenv("AGRICHAT_DB", "/tmp/farm.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:4000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 50, cfg.Reveal.TickMS)
	assert.Equal(t, 15, cfg.Reveal.FlushMS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/farm.db", cfg.Storage.Path)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Reveal.PumpsPerTick = 3
	cfg.Backend.Timeout = Dur(7 * time.Second)

	require.NoError(t, Save(cfg))

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Reveal.PumpsPerTick)
	assert.Equal(t, 7*time.Second, loaded.Backend.Timeout.Duration)
	assert.Contains(t, loaded.String(), `timeout = "7s"`)
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()
	clone.Reveal.TickMS = 99

	assert.Equal(t, 25, original.Reveal.TickMS)
	assert.Equal(t, 99, clone.Reveal.TickMS)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	changes := make(chan *Config, 4)
	w, err := Watch(path, nil, func(c *Config) { changes <- c })
	require.NoError(t, err)
	defer w.Close()

	cfg := Default()
	cfg.Reveal.TickMS = 60
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case got := <-changes:
		assert.Equal(t, 60, got.Reveal.TickMS)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatch_SkipsInvalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	changes := make(chan *Config, 4)
	w, err := Watch(path, nil, func(c *Config) { changes <- c })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[reveal]\ntick_ms = 0\npumps_per_tick = -4\n"), 0600))

	select {
	case <-changes:
		t.Fatal("invalid config should not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
