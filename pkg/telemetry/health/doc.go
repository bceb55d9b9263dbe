// Package health provides liveness and readiness probes.
//
// GET /health answers 200 while the process runs. GET /ready runs every
// registered check and answers 503 when one fails or the server is
// draining its sessions during shutdown. Readiness also reports point
// values such as the number of open stream sessions.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("providers", health.ProvidersCheck(manager))
//	checker.RegisterInfo("open_sessions", func() any { return registry.Count() })
//
//	r.Get("/health", checker.LivenessHandler())
//	r.Get("/ready", checker.ReadinessHandler())
package health
