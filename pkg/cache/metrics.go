package cache

import (
	"github.com/c360/boundcache/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics holds Prometheus metrics for cache operations.
type cacheMetrics struct {
	registry *metric.MetricsRegistry
	prefix   string

	hits          prometheus.Counter
	misses        prometheus.Counter
	sets          prometheus.Counter
	deletes       prometheus.Counter
	evictions     prometheus.Counter
	persistErrors prometheus.Counter

	size   prometheus.Gauge
	memory prometheus.Gauge
}

// metric names as registered with the MetricsRegistry
var cacheMetricNames = []string{
	"cache_hits", "cache_misses", "cache_sets", "cache_deletes",
	"cache_evictions", "cache_persist_errors", "cache_size", "cache_memory_bytes",
}

func newCounter(prefix, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "boundcache",
		Subsystem:   "cache",
		Name:        name,
		ConstLabels: prometheus.Labels{"component": prefix},
		Help:        help,
	})
}

func newGauge(prefix, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "boundcache",
		Subsystem:   "cache",
		Name:        name,
		ConstLabels: prometheus.Labels{"component": prefix},
		Help:        help,
	})
}

// newCacheMetrics creates and registers cache metrics with the provided registry.
// On failure, metrics registered so far are released.
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		registry:      registry,
		prefix:        prefix,
		hits:          newCounter(prefix, "hits_total", "Total number of cache hits"),
		misses:        newCounter(prefix, "misses_total", "Total number of cache misses"),
		sets:          newCounter(prefix, "sets_total", "Total number of cache set operations"),
		deletes:       newCounter(prefix, "deletes_total", "Total number of cache delete operations"),
		evictions:     newCounter(prefix, "evictions_total", "Total number of cache evictions"),
		persistErrors: newCounter(prefix, "persist_errors_total", "Total number of failed durable store calls"),
		size:          newGauge(prefix, "size", "Current number of entries in cache"),
		memory:        newGauge(prefix, "memory_bytes", "Approximate bytes held by cache entries"),
	}

	collectors := []prometheus.Collector{
		m.hits, m.misses, m.sets, m.deletes, m.evictions, m.persistErrors, m.size, m.memory,
	}
	for i, c := range collectors {
		var err error
		switch c := c.(type) {
		case prometheus.Gauge:
			err = registry.RegisterGauge(prefix, cacheMetricNames[i], c)
		case prometheus.Counter:
			err = registry.RegisterCounter(prefix, cacheMetricNames[i], c)
		}
		if err != nil {
			// release only what this call registered; the prefix may belong to a live cache
			for _, name := range cacheMetricNames[:i] {
				registry.Unregister(prefix, name)
			}
			return nil, err
		}
	}

	return m, nil
}

func (m *cacheMetrics) recordHit()          { m.hits.Inc() }
func (m *cacheMetrics) recordMiss()         { m.misses.Inc() }
func (m *cacheMetrics) recordSet()          { m.sets.Inc() }
func (m *cacheMetrics) recordDelete()       { m.deletes.Inc() }
func (m *cacheMetrics) recordPersistError() { m.persistErrors.Inc() }

func (m *cacheMetrics) recordEvictions(n int) {
	m.evictions.Add(float64(n))
}

// updateResident sets the entry-count and memory gauges.
func (m *cacheMetrics) updateResident(entries int, memoryBytes int64) {
	m.size.Set(float64(entries))
	m.memory.Set(float64(memoryBytes))
}

// unregister releases every metric so the prefix can be reused.
func (m *cacheMetrics) unregister() {
	for _, name := range cacheMetricNames {
		m.registry.Unregister(m.prefix, name)
	}
}
