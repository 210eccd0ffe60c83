// Package cmap provides a concurrent-safe sharded map keyed by strings.
//
// Keys are spread across shards with a randomly seeded maphash, so callers
// may store attacker-influenced keys (client addresses, purposes) without
// making one shard hot. Each shard has its own RWMutex.
//
// Usage:
//
//	m := cmap.New[*rate.Limiter]()
//	lim, _ := m.GetOrCompute(ip, func() (*rate.Limiter, error) {
//	    return rate.NewLimiter(10, 20), nil
//	})
//
// valtok uses it for the derived-cipher cache in pkg/dataprotect and the
// per-client limiter registry of the HTTP server.
package cmap
