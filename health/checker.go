package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds a single check when none is configured.
const DefaultCheckTimeout = 2 * time.Second

// CheckFunc reports the current health of one dependency.
type CheckFunc func(ctx context.Context) Status

// Checker runs named checks on demand and aggregates their results.
type Checker struct {
	name    string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a checker whose aggregate status is reported under name.
func NewChecker(name string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Checker{
		name:    name,
		timeout: timeout,
		checks:  make(map[string]CheckFunc),
	}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Remove drops the check called name.
func (c *Checker) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Names returns the registered check names in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check in name order and aggregates the results.
func (c *Checker) Check(ctx context.Context) Status {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	fns := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		names = append(names, name)
		fns[name] = fn
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make([]Status, 0, len(names))
	for _, name := range names {
		status := c.run(ctx, fns[name])
		status.Name = name
		if status.CheckedAt.IsZero() {
			status.CheckedAt = time.Now()
		}
		results = append(results, status)
	}
	return Aggregate(c.name, results)
}

// run executes one check with the checker timeout. A check that panics or
// does not return in time is unhealthy.
func (c *Checker) run(ctx context.Context, fn CheckFunc) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan Status, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Unhealthy(fmt.Sprintf("check panicked: %v", r))
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case status := <-done:
		return status
	case <-ctx.Done():
		return Unhealthy("check timed out")
	}
}

// ServeHTTP writes the aggregate status as JSON. Unhealthy answers 503.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := c.Check(r.Context())

	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
