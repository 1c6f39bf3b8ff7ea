// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger shared by every agrichat component.
//
// The terminal belongs to the UI, so logs go to a JSON file (by default
// ~/.agrichat/agrichat.log). A disabled log section yields a no-op logger.
package logging
