// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// cancelManager guards the cancel function of a turn's transport context.
// The session, the turn goroutine and UI callers may all reach it.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager(fn context.CancelFunc) *cancelManager {
	return &cancelManager{cancelFunc: fn}
}

// cancel invokes the stored cancel function once and clears it.
// Safe to call multiple times.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}
