package cache

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tdb"

// Collector exports the counters of named caches to prometheus.
type Collector struct {
	mu      sync.Mutex
	sources map[string]StatsReporter

	hits    *prometheus.Desc
	misses  *prometheus.Desc
	ejects  *prometheus.Desc
	entries *prometheus.Desc
}

func NewCollector() *Collector {
	labels := []string{"cache"}
	return &Collector{
		sources: make(map[string]StatsReporter),
		hits: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Cache lookups that found an entry.", labels, nil),
		misses: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Cache lookups that found nothing.", labels, nil),
		ejects: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "ejects_total"),
			"Entries dropped by eviction or clear.", labels, nil),
		entries: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries currently resident.", labels, nil),
	}
}

// Add registers a cache under name, replacing any earlier cache of that name.
func (c *Collector) Add(name string, r StatsReporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = r
}

// Snapshot returns the current counters of every registered cache.
func (c *Collector) Snapshot() map[string]Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Stats, len(c.sources))
	for name, r := range c.sources {
		out[name] = r.Stats()
	}
	return out
}

// Names returns the registered cache names in sorted order.
func (c *Collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.ejects
	ch <- c.entries
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, s := range c.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), name)
		ch <- prometheus.MustNewConstMetric(c.ejects, prometheus.CounterValue, float64(s.Ejects), name)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries), name)
	}
}
