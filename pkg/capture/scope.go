package capture

// Scope is the per-goroutine stack of open insertion regions. A Scope belongs
// to exactly one goroutine at a time and is never locked: InsertEnter and
// InsertExit calls on it must nest strictly.
type Scope struct {
	store *Store
	stack []*InsertMatch
}

// NewScope returns an empty scope bound to st.
func (st *Store) NewScope() *Scope {
	return &Scope{store: st}
}

// Store returns the store the scope records into.
func (sc *Scope) Store() *Store { return sc.store }

// Depth returns the number of open insertion regions.
func (sc *Scope) Depth() int { return len(sc.stack) }

func (sc *Scope) top() *InsertMatch {
	if len(sc.stack) == 0 {
		return nil
	}
	return sc.stack[len(sc.stack)-1]
}

// Capture records the calling goroutine's stack for key. Inside an insertion
// region the snapshot is stitched to the region's ancestor.
//
//go:noinline
func (sc *Scope) Capture(key Key) {
	st := sc.store
	if !st.enabled.Load() || key.IsZero() {
		return
	}
	snap := newSnapshot(callers(0), sc.top(), st.now())
	st.commit(key, snap)
}

// InsertEnter opens a region attributed to key: captures made on this scope
// until the matching InsertExit are stitched to key's stored stack. If key has
// no stored stack an empty marker is pushed so that nesting stays balanced.
//
//go:noinline
func (sc *Scope) InsertEnter(key Key) {
	st := sc.store
	if !st.enabled.Load() {
		return
	}
	st.stats.enters.Add(1)
	snap, ok := st.load(key)
	if !ok {
		st.stats.enterMisses.Add(1)
		sc.stack = append(sc.stack, emptyMatch)
		if st.debug.Load() {
			st.logger.Debug("capture: insert enter, no stack found", "key", key, "depth", len(sc.stack))
		}
		return
	}
	sc.stack = append(sc.stack, &InsertMatch{stack: snap, depth: st.depth(0)})
	if st.debug.Load() {
		st.logger.Debug("capture: insert enter, stack saved", "key", key, "depth", len(sc.stack))
	}
}

// InsertExit closes the most recently opened region. It does not check that
// the region belongs to key.
func (sc *Scope) InsertExit(key Key) {
	st := sc.store
	if !st.enabled.Load() {
		return
	}
	n := len(sc.stack)
	if n == 0 {
		if st.debug.Load() {
			st.logger.Debug("capture: insert exit without enter", "key", key)
		}
		return
	}
	sc.stack[n-1] = nil
	sc.stack = sc.stack[:n-1]
	st.stats.exits.Add(1)
	if st.debug.Load() {
		st.logger.Debug("capture: insert exit, stack removed", "key", key, "depth", n-1)
	}
}
