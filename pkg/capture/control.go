package capture

import (
	"sync/atomic"

	"github.com/obsidianstack/capturestack/pkg/types"
)

// SetEnabled turns Capture, InsertEnter and InsertExit on or off. The change is
// not coordinated with open regions: a region entered before disabling keeps
// its marker, because the InsertExit issued while disabled does nothing.
func (st *Store) SetEnabled(enabled bool) {
	st.enabled.Store(enabled)
	st.logger.Debug("capture: enabled changed", "enabled", enabled)
}

// Enabled reports whether the store records anything.
func (st *Store) Enabled() bool { return st.enabled.Load() }

// SetDebug turns per-operation debug logging on or off.
func (st *Store) SetDebug(debug bool) {
	st.debug.Store(debug)
}

// Debug reports whether debug logging is on.
func (st *Store) Debug() bool { return st.debug.Load() }

var defaultStore atomic.Pointer[Store]

// Default returns the process-wide store, creating it with default options on
// first use.
func Default() *Store {
	if st := defaultStore.Load(); st != nil {
		return st
	}
	defaultStore.CompareAndSwap(nil, New())
	return defaultStore.Load()
}

// Init replaces the process-wide store with a new one built from opts.
func Init(opts ...Option) *Store {
	st := New(opts...)
	defaultStore.Store(st)
	return st
}

// SetDefault installs st as the process-wide store.
func SetDefault(st *Store) {
	defaultStore.Store(st)
}

// Reset empties the process-wide store.
func Reset() { Default().Reset() }

// SetEnabled toggles the process-wide store.
func SetEnabled(enabled bool) { Default().SetEnabled(enabled) }

// SetDebug toggles debug logging on the process-wide store.
func SetDebug(debug bool) { Default().SetDebug(debug) }

// NewScope returns a scope bound to the process-wide store.
func NewScope() *Scope { return Default().NewScope() }

// RelatedStack queries the process-wide store.
func RelatedStack(key Key) ([]*types.Frame, bool) { return Default().RelatedStack(key) }
