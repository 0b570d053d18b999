package cache

import (
	"time"

	"go.uber.org/zap"
)

// Recommended defaults for a general-purpose cache. The expiration window
// and polling interval defaults are only applied by DefaultConfig; the one
// default New substitutes for a caller-supplied value is defaultCapacity,
// for Capacity <= 0 (see the clamp helpers below).
const (
	defaultCapacity         = 1024
	defaultExpirationWindow = 15 * time.Minute
	defaultPollingInterval  = 60 * time.Second
	minExpirationWindow     = time.Millisecond
)

// Config controls construction of a Cache. The zero Config is valid input
// to New: it clamps to capacity=defaultCapacity, expiration_window=1ms,
// sliding=false and polling disabled. Callers who want the documented
// recommended defaults instead should start from DefaultConfig.
type Config[K comparable] struct {
	// Comparer normalizes keys before every lookup/insert. Nil means
	// structural key equality (defaultComparer).
	Comparer Comparer[K]

	// Capacity is the maximum number of entries. Values <= 0 are clamped
	// to defaultCapacity.
	Capacity int

	// ExpirationWindow is the per-entry TTL. Values <= 0 are clamped to
	// minExpirationWindow (1ms), never to the recommended default: a
	// caller who explicitly asks for "as short as possible" gets exactly
	// that, not a 15 minute surprise.
	ExpirationWindow time.Duration

	// UseSlidingExpiration extends expiresOn on every successful read
	// that observes a non-expired entry.
	UseSlidingExpiration bool

	// PollingInterval is the reaper's tick period. Zero disables the
	// reaper outright; this is a legitimate, meaningful value and is
	// never clamped to a default. Negative values are treated as zero.
	PollingInterval time.Duration

	// Logger receives structured records for reaper and lifecycle
	// transitions. Nil means no logging (zap.NewNop).
	Logger *zap.Logger
}

// DefaultConfig returns a sensible general-purpose configuration:
// capacity 1024, a 15 minute sliding TTL, and a 60 second reaper tick.
func DefaultConfig[K comparable]() Config[K] {
	return Config[K]{
		Capacity:             defaultCapacity,
		ExpirationWindow:     defaultExpirationWindow,
		UseSlidingExpiration: true,
		PollingInterval:      defaultPollingInterval,
	}
}

func clampCapacity(capacity int) int {
	if capacity <= 0 {
		return defaultCapacity
	}
	return capacity
}

func clampExpirationWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return minExpirationWindow
	}
	return window
}

func clampPollingInterval(interval time.Duration) time.Duration {
	if interval < 0 {
		return 0
	}
	return interval
}

func comparerOrDefault[K comparable](c Comparer[K]) Comparer[K] {
	if c == nil {
		return defaultComparer[K]{}
	}
	return c
}
