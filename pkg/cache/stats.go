package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics holds the operation counters of one cache.
type Statistics struct {
	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	deletes       atomic.Int64
	evictions     atomic.Int64
	persistErrors atomic.Int64

	mu        sync.RWMutex
	startTime time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Hit records a cache hit.
func (s *Statistics) Hit() { s.hits.Add(1) }

// Miss records a cache miss.
func (s *Statistics) Miss() { s.misses.Add(1) }

// Set records a cache set operation.
func (s *Statistics) Set() { s.sets.Add(1) }

// Delete records a cache delete operation.
func (s *Statistics) Delete() { s.deletes.Add(1) }

// Eviction records a cache eviction.
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// PersistError records a failed durable store call.
func (s *Statistics) PersistError() { s.persistErrors.Add(1) }

// Hits returns the total number of cache hits.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the total number of cache misses.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Sets returns the total number of set operations.
func (s *Statistics) Sets() int64 { return s.sets.Load() }

// Deletes returns the total number of delete operations.
func (s *Statistics) Deletes() int64 { return s.deletes.Load() }

// Evictions returns the total number of evictions.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// PersistErrors returns the number of failed durable store calls.
func (s *Statistics) PersistErrors() int64 { return s.persistErrors.Load() }

// HitRatio returns hits / (hits + misses), or 0 when nothing was looked up.
func (s *Statistics) HitRatio() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Uptime returns how long since creation or the last Reset.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Reset resets all statistics to zero.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.sets.Store(0)
	s.deletes.Store(0)
	s.evictions.Store(0)
	s.persistErrors.Store(0)

	s.mu.Lock()
	s.startTime = time.Now()
	s.mu.Unlock()
}

// StatsSummary is a point-in-time view of a cache.
type StatsSummary struct {
	EntryCount     int           `json:"entry_count"`
	MemoryBytes    int64         `json:"memory_bytes"`
	MaxEntries     int           `json:"max_entries"`
	MaxMemoryBytes int64         `json:"max_memory_bytes"`
	Hits           int64         `json:"hits"`
	Misses         int64         `json:"misses"`
	Sets           int64         `json:"sets"`
	Deletes        int64         `json:"deletes"`
	Evictions      int64         `json:"evictions"`
	PersistErrors  int64         `json:"persist_errors"`
	HitRate        float64       `json:"hit_rate"`
	Uptime         time.Duration `json:"uptime"`
}

// summary fills the counter fields; the caller adds the resident figures.
func (s *Statistics) summary() StatsSummary {
	return StatsSummary{
		Hits:          s.Hits(),
		Misses:        s.Misses(),
		Sets:          s.Sets(),
		Deletes:       s.Deletes(),
		Evictions:     s.Evictions(),
		PersistErrors: s.PersistErrors(),
		HitRate:       s.HitRatio(),
		Uptime:        s.Uptime(),
	}
}
