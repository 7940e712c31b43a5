package capture

import "sync/atomic"

// Stats is a point-in-time copy of the store's counters.
type Stats struct {
	Captures     uint64 `json:"captures"`
	Recaptures   uint64 `json:"recaptures"`
	Evictions    uint64 `json:"evictions"`
	Enters       uint64 `json:"enters"`
	EnterMisses  uint64 `json:"enter_misses"`
	Exits        uint64 `json:"exits"`
	Lookups      uint64 `json:"lookups"`
	LookupMisses uint64 `json:"lookup_misses"`
	Pruned       uint64 `json:"pruned"`
	Size         int    `json:"size"`
	Capacity     int    `json:"capacity"`
}

// counters are updated without the store lock.
type counters struct {
	captures     atomic.Uint64
	recaptures   atomic.Uint64
	evictions    atomic.Uint64
	enters       atomic.Uint64
	enterMisses  atomic.Uint64
	exits        atomic.Uint64
	lookups      atomic.Uint64
	lookupMisses atomic.Uint64
	pruned       atomic.Uint64
}

// Stats returns the current counters together with the store's size.
func (st *Store) Stats() Stats {
	return Stats{
		Captures:     st.stats.captures.Load(),
		Recaptures:   st.stats.recaptures.Load(),
		Evictions:    st.stats.evictions.Load(),
		Enters:       st.stats.enters.Load(),
		EnterMisses:  st.stats.enterMisses.Load(),
		Exits:        st.stats.exits.Load(),
		Lookups:      st.stats.lookups.Load(),
		LookupMisses: st.stats.lookupMisses.Load(),
		Pruned:       st.stats.pruned.Load(),
		Size:         st.Len(),
		Capacity:     st.max,
	}
}
