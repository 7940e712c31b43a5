package capture

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxStacks is the default capacity of a Store.
const DefaultMaxStacks = 1000

// Store maps identity keys to their most recent snapshot and keeps at most
// Cap() of them, evicting the least recently captured key first.
//
// Lookups go through a sync.Map and never take the store lock. Capture,
// eviction and pruning serialize on mu, which also guards the recency history.
type Store struct {
	entries sync.Map // Key -> *Snapshot

	mu      sync.Mutex
	history *list.List // of Key; front is the least recently captured
	index   map[Key]*list.Element

	max       int
	enabled   atomic.Bool
	debug     atomic.Bool
	depthMode DepthMode
	depth     depthFunc
	logger    *slog.Logger
	now       func() time.Time // injectable for deterministic tests

	stats counters
}

// New creates an enabled Store with DefaultMaxStacks capacity.
func New(opts ...Option) *Store {
	st := &Store{
		history: list.New(),
		index:   make(map[Key]*list.Element),
		max:     DefaultMaxStacks,
		now:     time.Now,
	}
	st.enabled.Store(true)

	for _, opt := range opts {
		opt(st)
	}

	if st.logger == nil {
		st.logger = slog.Default()
	}
	st.depth = st.depthMode.depthFunc()
	return st
}

// commit stores snap for key and updates the recency history.
func (st *Store) commit(key Key, snap *Snapshot) {
	st.mu.Lock()
	el, replaced := st.index[key]
	if replaced {
		// Recapture of a live key; expected to be rare.
		st.history.Remove(el)
	} else if st.history.Len() >= st.max {
		st.evictOldest()
	}
	st.entries.Store(key, snap)
	st.index[key] = st.history.PushBack(key)
	size := st.history.Len()
	st.mu.Unlock()

	st.stats.captures.Add(1)
	if replaced {
		st.stats.recaptures.Add(1)
	}
	if st.debug.Load() {
		st.logger.Debug("capture: stack stored",
			"key", key,
			"deep", snap.Deep(),
			"frames", snap.RawDepth(),
			"recapture", replaced,
			"size", size,
		)
	}
}

// evictOldest drops the head of the history. Callers hold mu.
func (st *Store) evictOldest() {
	el := st.history.Front()
	if el == nil {
		return
	}
	key := st.removeElement(el)
	st.stats.evictions.Add(1)
	if st.debug.Load() {
		st.logger.Debug("capture: evicted oldest stack", "key", key)
	}
}

// removeElement removes el's key from the history, the index and the map.
// Callers hold mu.
func (st *Store) removeElement(el *list.Element) Key {
	key := st.history.Remove(el).(Key)
	delete(st.index, key)
	st.entries.Delete(key)
	return key
}

func (st *Store) load(key Key) (*Snapshot, bool) {
	if key.IsZero() {
		return nil, false
	}
	v, ok := st.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

// Snapshot returns the stored snapshot for key.
func (st *Store) Snapshot(key Key) (*Snapshot, bool) {
	return st.load(key)
}

// Len returns the number of stored snapshots.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.history.Len()
}

// Cap returns the maximum number of stored snapshots.
func (st *Store) Cap() int { return st.max }

// DepthMode returns the depth measurement strategy in use.
func (st *Store) DepthMode() DepthMode { return st.depthMode }

// Entry is one stored key and its snapshot.
type Entry struct {
	Key      Key
	Snapshot *Snapshot
}

// Entries returns the stored entries, most recently captured first.
func (st *Store) Entries() []Entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Entry, 0, st.history.Len())
	for el := st.history.Back(); el != nil; el = el.Prev() {
		key := el.Value.(Key)
		if snap, ok := st.load(key); ok {
			out = append(out, Entry{Key: key, Snapshot: snap})
		}
	}
	return out
}

// Keys returns the stored keys, least recently captured first.
func (st *Store) Keys() []Key {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Key, 0, st.history.Len())
	for el := st.history.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(Key))
	}
	return out
}

// Prune removes entries whose referent has been garbage collected and returns
// how many were removed. Such entries can no longer be looked up, but without
// pruning they hold their slot until evicted.
func (st *Store) Prune() int {
	st.mu.Lock()
	removed := 0
	for el := st.history.Front(); el != nil; {
		next := el.Next()
		if !el.Value.(Key).Live() {
			st.removeElement(el)
			removed++
		}
		el = next
	}
	st.mu.Unlock()

	st.stats.pruned.Add(uint64(removed))
	return removed
}

// Run prunes collected entries every interval until ctx is cancelled. An
// interval <= 0 returns immediately.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.Prune(); n > 0 {
				st.logger.Debug("capture: pruned collected stacks", "count", n)
			}
		}
	}
}

// Reset removes every entry. Counters are kept.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entries.Clear()
	st.history.Init()
	clear(st.index)
}
