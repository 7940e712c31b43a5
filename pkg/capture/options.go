package capture

import (
	"log/slog"
	"time"
)

// Option configures a Store.
type Option func(*Store)

// WithMaxStacks sets the maximum number of stored snapshots. Values <= 0 keep
// DefaultMaxStacks.
func WithMaxStacks(n int) Option {
	return func(st *Store) {
		if n > 0 {
			st.max = n
		}
	}
}

// WithDepthMode selects how InsertEnter measures stack depth.
func WithDepthMode(m DepthMode) Option {
	return func(st *Store) {
		st.depthMode = m
	}
}

// WithLogger sets the logger used for debug tracing. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) {
		if l != nil {
			st.logger = l
		}
	}
}

// WithEnabled sets the initial enabled state. Stores start enabled.
func WithEnabled(enabled bool) Option {
	return func(st *Store) {
		st.enabled.Store(enabled)
	}
}

// WithDebug sets the initial debug tracing state.
func WithDebug(debug bool) Option {
	return func(st *Store) {
		st.debug.Store(debug)
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(st *Store) {
		if now != nil {
			st.now = now
		}
	}
}
