package main

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/boundcache/health"
	"github.com/c360/boundcache/natsclient"
	"github.com/c360/boundcache/pkg/cache"
)

const healthCheckTimeout = 2 * time.Second

// connectionStatus is the part of *natsclient.Client the NATS check reads.
type connectionStatus interface {
	Status() natsclient.ConnectionStatus
}

// newHealthChecker registers one check per hosted cache and one for the NATS
// connection when the store uses it.
func newHealthChecker(caches []hostedCache, nc connectionStatus) *health.Checker {
	checker := health.NewChecker(appName, healthCheckTimeout)
	for _, hc := range caches {
		checker.Register("cache:"+hc.namespace, cacheCheck(hc.cache))
	}
	if nc != nil {
		checker.Register("nats", natsCheck(nc))
	}
	return checker
}

// cacheCheck reports a cache as degraded once any snapshot read or write has
// failed since the last Clear.
func cacheCheck(c cache.Cache[any]) health.CheckFunc {
	return func(context.Context) health.Status {
		stats := c.Stats()
		summary := fmt.Sprintf("%d entries, %d bytes", stats.EntryCount, stats.MemoryBytes)
		if stats.PersistErrors > 0 {
			return health.Degraded(fmt.Sprintf("%s, %d snapshot failures", summary, stats.PersistErrors))
		}
		return health.Healthy(summary)
	}
}

func natsCheck(nc connectionStatus) health.CheckFunc {
	return func(context.Context) health.Status {
		switch status := nc.Status(); status {
		case natsclient.StatusConnected:
			return health.Healthy(status.String())
		case natsclient.StatusConnecting, natsclient.StatusReconnecting:
			return health.Degraded(status.String())
		default:
			return health.Unhealthy(status.String())
		}
	}
}
