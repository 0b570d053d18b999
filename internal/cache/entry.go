package cache

import "time"

// now is a small indirection over time.Now so tests can freeze the clock
// by reassigning it (and restoring it via t.Cleanup).
var now = time.Now

// initialUseCount is the uses value stamped on a freshly inserted entry.
// The write that creates the entry counts as its first use; this only
// affects absolute counter values, never their ordering (see policy.go).
const initialUseCount = 1

// entryRecord is the per-key metadata wrapping a stored value. It is held
// by value inside the facade's map; every field mutation happens while the
// facade's lock is held, so no reference to an entryRecord ever escapes
// the package.
type entryRecord[V any] struct {
	value      V
	uses       uint64
	lastUsedOn time.Time
	expiresOn  time.Time
}

// newEntryRecord creates a fresh record whose expiry is window past now.
func newEntryRecord[V any](value V, now time.Time, window time.Duration) entryRecord[V] {
	return entryRecord[V]{
		value:      value,
		uses:       initialUseCount,
		lastUsedOn: now,
		expiresOn:  expiresAt(now, window),
	}
}

// expired reports whether the record is logically absent at now.
func (e entryRecord[V]) expired(now time.Time) bool {
	return !e.expiresOn.After(now)
}

// touch records a successful read: uses/lastUsedOn always advance, and
// expiresOn is extended only when sliding is enabled and the entry has
// not already expired (an expired entry is the observing read's problem
// to delete, not this method's to revive).
func (e *entryRecord[V]) touch(now time.Time, window time.Duration, sliding bool) {
	e.uses++
	e.lastUsedOn = now
	if sliding && !e.expired(now) {
		e.expiresOn = expiresAt(now, window)
	}
}

// overwrite records an in-place update from Put: value replaced, use
// counted, expiry reset unconditionally when sliding is enabled (an
// overwrite is a write, not a read, so it renews even an entry that had
// technically already expired — the caller is actively replacing it).
func (e *entryRecord[V]) overwrite(value V, now time.Time, window time.Duration, sliding bool) {
	e.value = value
	e.uses++
	e.lastUsedOn = now
	if sliding {
		e.expiresOn = expiresAt(now, window)
	}
}

// revive resets expiresOn to a fresh window from now, regardless of
// whether the entry had already expired.
func (e *entryRecord[V]) revive(now time.Time, window time.Duration) {
	e.expiresOn = expiresAt(now, window)
}
