package capture

import "github.com/obsidianstack/capturestack/pkg/types"

// RelatedStack returns the stitched frames recorded for key. Nil entries mark
// stitch boundaries. ok is false when key was never captured, has been evicted
// or pruned, is the zero Key, or its object has been collected.
func (st *Store) RelatedStack(key Key) (frames []*types.Frame, ok bool) {
	st.stats.lookups.Add(1)
	snap, ok := st.load(key)
	if !ok || !key.Live() {
		st.stats.lookupMisses.Add(1)
		return nil, false
	}
	return snap.Frames(), true
}

// Lookup returns the most recently captured live entry whose key has the given
// identity id. It is meant for callers that cannot hold the object itself.
func (st *Store) Lookup(id uint64) (Entry, bool) {
	st.mu.Lock()
	var found Entry
	ok := false
	for el := st.history.Back(); el != nil; el = el.Prev() {
		key := el.Value.(Key)
		if key.ID() != id || !key.Live() {
			continue
		}
		if snap, loaded := st.load(key); loaded {
			found, ok = Entry{Key: key, Snapshot: snap}, true
			break
		}
	}
	st.mu.Unlock()
	return found, ok
}

// RelatedStackByID is RelatedStack for the newest live entry with identity id.
func (st *Store) RelatedStackByID(id uint64) ([]*types.Frame, bool) {
	st.stats.lookups.Add(1)
	e, ok := st.Lookup(id)
	if !ok {
		st.stats.lookupMisses.Add(1)
		return nil, false
	}
	return e.Snapshot.Frames(), true
}
