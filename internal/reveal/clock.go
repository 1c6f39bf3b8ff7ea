// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"sync"
	"time"
)

// =============================================================================
// CLOCK AND TICKER
// =============================================================================

// Ticker is a repeating timer handle. Stop must be safe to call more than once.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// RealClock returns a Clock backed by time.Ticker.
func RealClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// =============================================================================
// MANUAL CLOCK
// =============================================================================

// ManualClock is a Clock whose tickers fire only when Tick is called.
// It lets tests step an Engine one tick at a time.
type ManualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

// NewManualClock creates a ManualClock with no tickers.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// NewTicker implements Clock.
func (c *ManualClock) NewTicker(d time.Duration) Ticker {
	t := &manualTicker{
		interval: d,
		ch:       make(chan time.Time),
		stop:     make(chan struct{}),
	}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Tick delivers one tick to the newest running ticker and waits until it is
// received. It returns false when no ticker is running or the ticker was
// stopped before receiving.
func (c *ManualClock) Tick() bool {
	t := c.current()
	if t == nil {
		return false
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stop:
		return false
	}
}

// Interval returns the interval of the newest running ticker, or 0.
func (c *ManualClock) Interval() time.Duration {
	if t := c.current(); t != nil {
		return t.interval
	}
	return 0
}

// Running returns the number of tickers that have not been stopped.
func (c *ManualClock) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped() {
			n++
		}
	}
	return n
}

func (c *ManualClock) current() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.tickers) - 1; i >= 0; i-- {
		if !c.tickers[i].stopped() {
			return c.tickers[i]
		}
	}
	return nil
}

type manualTicker struct {
	interval time.Duration
	ch       chan time.Time
	stop     chan struct{}
	once     sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *manualTicker) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}
