// Package cache keeps solver verdicts keyed by level fingerprint.
//
// Two implementations share the SolutionCache interface:
//   - MemoryCache for a single process
//   - RedisCache for several server instances sharing one Redis
//
// Only Solved and Unsolvable results are stored; Aborted results depend on
// the search limits and are rejected with ErrNotCacheable. Entries are also
// reachable by their solution ID through GetByID.
//
// Usage:
//
//	client, err := cache.NewRedisClient("localhost:6379")
//	c := cache.NewRedisCache(client, 24*time.Hour)
//
//	unlock, err := c.Lock(ctx, fingerprint)
//	if err != nil {
//		return err
//	}
//	defer unlock()
//	if e, err := c.Get(ctx, fingerprint); err == nil {
//		return e.Result, nil
//	}
package cache
