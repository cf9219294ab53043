package durable

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. It survives cache instances
// but not the process, which makes it the store for tests and for caches that
// only need to hand entries between successive instances.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Read returns a copy of the record for namespace.
func (s *MemoryStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.records[namespace]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound("MemoryStore", "Read", namespace)
	}
	return append([]byte(nil), data...), nil
}

// Write replaces the record for namespace.
func (s *MemoryStore) Write(ctx context.Context, namespace string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[namespace] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

// Delete removes the record for namespace, if any.
func (s *MemoryStore) Delete(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.records, namespace)
	s.mu.Unlock()
	return nil
}

// Namespaces lists the namespaces holding a record.
func (s *MemoryStore) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	return names
}
