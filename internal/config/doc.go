// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for agrichat.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, validation, and live reload.
//
// Configuration file locations (in order of precedence):
//   - ~/.agrichat/config.toml
//   - ~/.agrichat/config.json
//   - Built-in defaults
//
// The directory can be moved with AGRICHAT_HOME.
//
// # Environment Overrides
//
//	AGRICHAT_BASE_URL   backend.base_url
//	AGRICHAT_TICK_MS    reveal.tick_ms
//	AGRICHAT_FLUSH_MS   reveal.flush_ms
//	AGRICHAT_LOG_LEVEL  log.level
//	AGRICHAT_DB         storage.path
package config
