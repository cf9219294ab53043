// Package health runs named health checks and serves their aggregate.
//
// Checks are pulled when the status is requested, so a report always
// reflects the current state of the process:
//
//	checker := health.NewChecker("boundcache", 2*time.Second)
//	checker.Register("nats", func(ctx context.Context) health.Status {
//		if client.IsHealthy() {
//			return health.Healthy("connected")
//		}
//		return health.Unhealthy(client.Status().String())
//	})
//
//	status := checker.Check(ctx)
//
// The aggregate carries the worst state of its checks: healthy, degraded or
// unhealthy. Checker implements http.Handler and answers 503 when unhealthy.
//
// Degraded and unhealthy messages are served to remote callers, so URLs, IP
// addresses, absolute paths and credentials are redacted from them.
package health
