package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_Check(t *testing.T) {
	checker := NewChecker("boundcache", time.Second)
	checker.Register("cache:b", func(context.Context) Status { return Degraded("2 snapshot writes failed") })
	checker.Register("cache:a", func(context.Context) Status { return Healthy("120 entries") })

	assert.Equal(t, []string{"cache:a", "cache:b"}, checker.Names())

	status := checker.Check(context.Background())
	assert.Equal(t, "boundcache", status.Name)
	assert.Equal(t, StateDegraded, status.State)
	require.Len(t, status.Checks, 2)
	assert.Equal(t, "cache:a", status.Checks[0].Name, "checks run in name order")
	assert.Equal(t, "cache:b", status.Checks[1].Name)
	assert.False(t, status.Checks[0].CheckedAt.IsZero())

	checker.Remove("cache:b")
	assert.True(t, checker.Check(context.Background()).IsHealthy())
}

func TestChecker_TimeoutAndPanic(t *testing.T) {
	checker := NewChecker("boundcache", 20*time.Millisecond)
	checker.Register("slow", func(ctx context.Context) Status {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Healthy("late")
	})
	checker.Register("panics", func(context.Context) Status { panic("boom") })

	status := checker.Check(context.Background())
	require.Len(t, status.Checks, 2)
	assert.Equal(t, StateUnhealthy, status.State)
	assert.Contains(t, status.Checks[0].Message, "panicked")
	assert.Equal(t, "check timed out", status.Checks[1].Message)
}

func TestChecker_ServeHTTP(t *testing.T) {
	checker := NewChecker("boundcache", time.Second)
	healthy := true
	checker.Register("nats", func(context.Context) Status {
		if healthy {
			return Healthy("connected")
		}
		return Unhealthy("reconnecting")
	})

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StateHealthy, body.State)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "nats", body.Checks[0].Name)

	healthy = false
	rec = httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewChecker_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultCheckTimeout, NewChecker("x", 0).timeout)
}
