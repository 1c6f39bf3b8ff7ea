// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the agrichat command-line interface.
//
// # Usage
//
//	app := cli.NewApp()
//	if err := app.Run(os.Args); err != nil { ... }
//
// # Commands Overview
//
//   - tui: full-screen chat (default)
//   - chat: line-oriented chat with input history
//   - ask: one question, answer revealed on stdout
//   - history, show, delete, new: conversation management
//   - serve: local development backend
//   - config show|path|init: inspect or create the configuration file
//
// Global flags (--config, --base-url, --log-file, --verbose) are applied in
// the app's Before hook, so every command sees the same configuration.
package cli
