package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsidianstack/capturestack/pkg/capture"
)

const namespace = "capturestack"

// Collector exports a capture store's counters and occupancy. Values are read
// from Store.Stats at scrape time.
type Collector struct {
	store *capture.Store

	captures     *prometheus.Desc
	recaptures   *prometheus.Desc
	evictions    *prometheus.Desc
	enters       *prometheus.Desc
	enterMisses  *prometheus.Desc
	exits        *prometheus.Desc
	lookups      *prometheus.Desc
	lookupMisses *prometheus.Desc
	pruned       *prometheus.Desc
	stacks       *prometheus.Desc
	capacity     *prometheus.Desc
	enabled      *prometheus.Desc
	debug        *prometheus.Desc
}

// NewCollector returns a Collector for st.
func NewCollector(st *capture.Store) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &Collector{
		store:        st,
		captures:     desc("captures_total", "Snapshots committed, including recaptures."),
		recaptures:   desc("recaptures_total", "Captures that replaced an existing key's snapshot."),
		evictions:    desc("evictions_total", "Entries evicted because the store was full."),
		enters:       desc("insert_enters_total", "Insertion regions opened."),
		enterMisses:  desc("insert_enter_misses_total", "Insertion regions opened for keys with no stored stack."),
		exits:        desc("insert_exits_total", "Insertion regions closed."),
		lookups:      desc("lookups_total", "Related-stack queries."),
		lookupMisses: desc("lookup_misses_total", "Related-stack queries that found nothing."),
		pruned:       desc("pruned_total", "Entries removed because their object was collected."),
		stacks:       desc("stacks", "Entries currently stored."),
		capacity:     desc("stacks_capacity", "Maximum number of stored entries."),
		enabled:      desc("enabled", "1 while capturing is enabled."),
		debug:        desc("debug", "1 while debug logging is enabled."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.captures, c.recaptures, c.evictions, c.enters, c.enterMisses, c.exits,
		c.lookups, c.lookupMisses, c.pruned, c.stacks, c.capacity, c.enabled, c.debug,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.store.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.captures, s.Captures)
	counter(c.recaptures, s.Recaptures)
	counter(c.evictions, s.Evictions)
	counter(c.enters, s.Enters)
	counter(c.enterMisses, s.EnterMisses)
	counter(c.exits, s.Exits)
	counter(c.lookups, s.Lookups)
	counter(c.lookupMisses, s.LookupMisses)
	counter(c.pruned, s.Pruned)
	gauge(c.stacks, float64(s.Size))
	gauge(c.capacity, float64(s.Capacity))
	gauge(c.enabled, boolValue(c.store.Enabled()))
	gauge(c.debug, boolValue(c.store.Debug()))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
