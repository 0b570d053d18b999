// Package cache implements a generic, thread-safe, in-memory key-value
// cache with per-entry expiration, optional sliding renewal on access,
// bounded capacity with use-aware eviction, and an optional background
// reaper that periodically removes expired entries.
//
// Goals for this package:
//   - Make every foreground operation safe for concurrent use without
//     making callers reason about a background goroutine.
//   - Expire entries lazily (on the observing read) and, optionally,
//     actively via a reaper that self-suspends once the cache empties.
//   - Evict on a composite priority (soonest-to-expire, then
//     least-recently-used, then least-frequently-used) rather than pure
//     LRU, so a hot workload naturally sheds entries close to expiry
//     first.
//   - Fail fast and terminally after Dispose, the way a scoped resource
//     should.
package cache
