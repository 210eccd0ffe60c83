// Package shutdown coordinates graceful process termination.
//
//   - SIGINT/SIGTERM (or Trigger) run shutdown hooks in reverse order
//   - SIGHUP runs reload hooks and keeps waiting
//   - hooks share one context bounded by the handler timeout
//
// Usage:
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown(srv.Stop)
//	err := h.Wait(ctx)
package shutdown
