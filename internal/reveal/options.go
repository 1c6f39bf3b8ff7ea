// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"time"

	"go.uber.org/zap"
)

// Default cadence.
const (
	DefaultTickInterval  = 25 * time.Millisecond
	DefaultFlushInterval = 15 * time.Millisecond
	DefaultPumpsPerTick  = 2
)

// Options configures an Engine.
type Options struct {
	// TickInterval is the pump cadence while the stream is open.
	TickInterval time.Duration

	// FlushInterval is the pump cadence after the stream has ended.
	FlushInterval time.Duration

	// PumpsPerTick is how many runs are revealed per streaming tick.
	// Flushing always reveals one run per tick.
	PumpsPerTick int

	// MaxRun caps the non-whitespace runes in a single run.
	MaxRun int

	// StartMarker and EndMarker delimit suppressed spans. Empty markers
	// take the defaults unless DisableMarkup is set.
	StartMarker string
	EndMarker   string

	// DisableMarkup reveals marker spans verbatim.
	DisableMarkup bool

	// Clock supplies tickers. Defaults to RealClock.
	Clock Clock

	// Logger receives lifecycle events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultOptions returns the standard reveal cadence.
func DefaultOptions() Options {
	return Options{
		TickInterval:  DefaultTickInterval,
		FlushInterval: DefaultFlushInterval,
		PumpsPerTick:  DefaultPumpsPerTick,
		MaxRun:        DefaultMaxRun,
		StartMarker:   DefaultStartMarker,
		EndMarker:     DefaultEndMarker,
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.DisableMarkup {
		o.StartMarker, o.EndMarker = "", ""
	} else {
		if o.StartMarker == "" {
			o.StartMarker = DefaultStartMarker
		}
		if o.EndMarker == "" {
			o.EndMarker = DefaultEndMarker
		}
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.PumpsPerTick <= 0 {
		o.PumpsPerTick = DefaultPumpsPerTick
	}
	if o.MaxRun <= 0 {
		o.MaxRun = DefaultMaxRun
	}
	if o.Clock == nil {
		o.Clock = RealClock()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
