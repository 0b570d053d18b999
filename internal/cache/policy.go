package cache

import "time"

// expiresAt computes the absolute expiration timestamp for an entry
// created or renewed at now with the given window. Callers are expected
// to have already clamped window with clampExpirationWindow.
func expiresAt(now time.Time, window time.Duration) time.Time {
	return now.Add(window)
}

// selectVictim scans items for the entry to evict when capacity has been
// reached: the one minimizing (expiresOn, lastUsedOn, uses) in
// lexicographic order. Ties are broken by the earlier field first, so the
// soonest-to-expire entry always wins regardless of how recently or
// frequently it was used.
//
// This is a deliberate linear scan, not a maintained priority queue: the
// ranking depends on fields mutated by every read, so keeping a secondary
// index in sync would cost more than the occasional O(n) scan capacity
// pressure requires.
func selectVictim[K comparable, V any](items map[K]entryRecord[V]) (K, bool) {
	var victim K
	var victimEntry entryRecord[V]
	found := false

	for key, e := range items {
		if !found || lessVictim(e, victimEntry) {
			victim = key
			victimEntry = e
			found = true
		}
	}

	return victim, found
}

// lessVictim reports whether a is a more eligible eviction victim than b.
func lessVictim[V any](a, b entryRecord[V]) bool {
	if !a.expiresOn.Equal(b.expiresOn) {
		return a.expiresOn.Before(b.expiresOn)
	}
	if !a.lastUsedOn.Equal(b.lastUsedOn) {
		return a.lastUsedOn.Before(b.lastUsedOn)
	}
	return a.uses < b.uses
}
