package cache

import (
	"errors"
	"iter"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pair is a snapshotted key/value observation, returned by Enumerate,
// Keys, Values and CopyTo.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// Cache is the externally observed mapping interface a MemoryCache
// implements. Depending on this interface, rather than the concrete type,
// lets a consumer swap in a test double without pulling in the reaper's
// goroutine machinery.
type Cache[K comparable, V any] interface {
	Put(key K, value V) error
	Get(key K) (V, error)
	TryGet(key K) (V, bool, error)
	Remove(key K) (bool, error)
	RemovePair(key K, value V) (bool, error)
	ContainsKey(key K) (bool, error)
	ContainsValue(value V) (bool, error)
	Clear() error
	ClearExpired() error
	Revive() error
	StartPolling() error
	StopPolling() error
	CopyTo(dst []Pair[K, V], offset int) error
	Enumerate() (iter.Seq2[K, V], error)
	Keys() ([]K, error)
	Values() ([]V, error)
	Count() (int, error)
	IsPolling() (bool, error)
	IsDisposed() bool
	Dispose()
}

// MemoryCache is a generic, thread-safe, in-memory key-value cache with
// per-entry expiration, optional sliding renewal, bounded capacity with
// use-aware eviction, and an optional background reaper. The zero value
// is not usable; construct with New.
type MemoryCache[K comparable, V any] struct {
	mu sync.Mutex

	id     uuid.UUID
	logger *zap.Logger

	comparer             Comparer[K]
	capacity             int
	expirationWindow     time.Duration
	useSlidingExpiration bool
	pollingInterval      time.Duration
	pollingSuppressed    bool
	disposed             bool

	items  map[K]entryRecord[V]
	reaper *reaper
}

var _ Cache[string, any] = (*MemoryCache[string, any])(nil)

// New constructs a MemoryCache from cfg. Boundary values are clamped:
// Capacity <= 0 becomes the recommended default (1024), ExpirationWindow
// <= 0 becomes a 1ms floor, PollingInterval < 0 becomes 0 (disabled). The
// reaper is not started here — it arms lazily on the first Put while the
// map is empty.
func New[K comparable, V any](cfg Config[K]) *MemoryCache[K, V] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()

	return &MemoryCache[K, V]{
		id:                   id,
		logger:               logger.With(zap.String("cache_id", id.String())),
		comparer:             comparerOrDefault(cfg.Comparer),
		capacity:             clampCapacity(cfg.Capacity),
		expirationWindow:     clampExpirationWindow(cfg.ExpirationWindow),
		useSlidingExpiration: cfg.UseSlidingExpiration,
		pollingInterval:      clampPollingInterval(cfg.PollingInterval),
		items:                make(map[K]entryRecord[V]),
	}
}

// ID returns the identity this cache instance tags its log records with.
func (c *MemoryCache[K, V]) ID() uuid.UUID {
	return c.id
}

func (c *MemoryCache[K, V]) checkKey(key K) error {
	if isNilKey(key) {
		return ErrArgumentInvalid
	}
	return nil
}

// Put inserts or overwrites key. An existing entry is overwritten in
// place (use counted, expiry conditionally renewed); a new entry may
// first require an eviction if the cache is at capacity, and arms the
// reaper if this insert transitions the map from empty to non-empty.
func (c *MemoryCache[K, V]) Put(key K, value V) error {
	if err := c.checkKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	nowTime := now()
	nk := c.comparer.Normalize(key)

	if e, ok := c.items[nk]; ok {
		e.overwrite(value, nowTime, c.expirationWindow, c.useSlidingExpiration)
		c.items[nk] = e
		return nil
	}

	wasEmpty := len(c.items) == 0
	// A loop, not a single eviction: SetCapacity can shrink capacity by
	// more than one entry between puts, and count <= capacity must hold
	// immediately after this put completes regardless of how it got here.
	for len(c.items) >= c.capacity {
		if !c.evictLocked() {
			break
		}
	}
	c.items[nk] = newEntryRecord(value, nowTime, c.expirationWindow)

	if wasEmpty && c.pollingInterval > 0 && !c.pollingSuppressed {
		c.armReaperLocked()
	}
	return nil
}

// Get returns the value for key, or ErrNotFound if it is absent or has
// expired. A successful read always advances uses/lastUsedOn, and
// extends expiresOn when sliding expiration is enabled.
func (c *MemoryCache[K, V]) Get(key K) (V, error) {
	var zero V
	if err := c.checkKey(key); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return zero, ErrUsedAfterDisposal
	}

	nk := c.comparer.Normalize(key)
	e, ok := c.items[nk]
	if !ok {
		return zero, ErrNotFound
	}

	nowTime := now()
	if e.expired(nowTime) {
		delete(c.items, nk)
		return zero, ErrNotFound
	}

	e.touch(nowTime, c.expirationWindow, c.useSlidingExpiration)
	c.items[nk] = e
	return e.value, nil
}

// TryGet is Get without the NotFound error: absence and expiry are both
// reported as (zero, false, nil). ArgumentInvalid and UsedAfterDisposal
// still propagate.
func (c *MemoryCache[K, V]) TryGet(key K) (V, bool, error) {
	value, err := c.Get(key)
	if err == nil {
		return value, true, nil
	}
	if errors.Is(err, ErrNotFound) {
		var zero V
		return zero, false, nil
	}
	var zero V
	return zero, false, err
}

// Remove deletes key if present, reporting whether anything was removed.
func (c *MemoryCache[K, V]) Remove(key K) (bool, error) {
	if err := c.checkKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrUsedAfterDisposal
	}

	nk := c.comparer.Normalize(key)
	if _, ok := c.items[nk]; !ok {
		return false, nil
	}
	delete(c.items, nk)
	if len(c.items) == 0 {
		c.cancelReaperLocked()
	}
	return true, nil
}

// RemovePair deletes key only if its current value equals value,
// reporting whether the removal happened.
func (c *MemoryCache[K, V]) RemovePair(key K, value V) (bool, error) {
	if err := c.checkKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrUsedAfterDisposal
	}

	nk := c.comparer.Normalize(key)
	e, ok := c.items[nk]
	if !ok || !reflect.DeepEqual(e.value, value) {
		return false, nil
	}
	delete(c.items, nk)
	if len(c.items) == 0 {
		c.cancelReaperLocked()
	}
	return true, nil
}

// ContainsKey reports whether key is present and not expired, without
// touching use/recency metadata.
func (c *MemoryCache[K, V]) ContainsKey(key K) (bool, error) {
	if err := c.checkKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrUsedAfterDisposal
	}

	nk := c.comparer.Normalize(key)
	e, ok := c.items[nk]
	if !ok {
		return false, nil
	}
	return !e.expired(now()), nil
}

// ContainsValue linearly scans for a non-expired entry whose value equals
// value.
func (c *MemoryCache[K, V]) ContainsValue(value V) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrUsedAfterDisposal
	}

	nowTime := now()
	for _, e := range c.items {
		if e.expired(nowTime) {
			continue
		}
		if reflect.DeepEqual(e.value, value) {
			return true, nil
		}
	}
	return false, nil
}

// Clear cancels the reaper and empties the map.
func (c *MemoryCache[K, V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.cancelReaperLocked()
	c.items = make(map[K]entryRecord[V])
	return nil
}

// ClearExpired performs a single sweep, removing every entry whose
// expiresOn has passed.
func (c *MemoryCache[K, V]) ClearExpired() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.clearExpiredLocked()
	return nil
}

func (c *MemoryCache[K, V]) clearExpiredLocked() {
	nowTime := now()
	for k, e := range c.items {
		if e.expired(nowTime) {
			delete(c.items, k)
		}
	}
	if len(c.items) == 0 {
		c.cancelReaperLocked()
	}
}

// Revive raises every entry's expiresOn to now+expirationWindow,
// including entries that had already expired, and preserves whatever
// reaper state was in effect beforehand.
func (c *MemoryCache[K, V]) Revive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	nowTime := now()
	for k, e := range c.items {
		e.revive(nowTime, c.expirationWindow)
		c.items[k] = e
	}
	return nil
}

// StopPolling suppresses the reaper and cancels any outstanding task.
func (c *MemoryCache[K, V]) StopPolling() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.pollingSuppressed = true
	c.cancelReaperLocked()
	return nil
}

// StartPolling lifts suppression and re-arms the reaper if the map is
// non-empty and a positive polling interval is configured.
func (c *MemoryCache[K, V]) StartPolling() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.pollingSuppressed = false
	if len(c.items) > 0 && c.pollingInterval > 0 {
		c.armReaperLocked()
	}
	return nil
}

// SetExpirationWindow re-clamps and replaces the per-entry TTL used by
// future writes and by sliding renewal on future reads. An entry's
// expiresOn, once stamped, is never rewritten just because the configured
// window changed; it picks up the new window only when it is next
// overwritten or, with sliding expiration, next read.
func (c *MemoryCache[K, V]) SetExpirationWindow(window time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.expirationWindow = clampExpirationWindow(window)
	return nil
}

// SetCapacity re-clamps and replaces the maximum entry count enforced by
// future Puts. Shrinking capacity below the current size does not evict
// anything immediately: the count <= capacity invariant only needs to
// hold immediately after a put completes, so the next Put that needs
// room evicts as usual.
func (c *MemoryCache[K, V]) SetCapacity(capacity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.capacity = clampCapacity(capacity)
	return nil
}

// SetUseSlidingExpiration replaces whether a successful read extends an
// entry's expiresOn. It takes effect on the very next read.
func (c *MemoryCache[K, V]) SetUseSlidingExpiration(sliding bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.useSlidingExpiration = sliding
	return nil
}

// SetPollingInterval re-clamps and replaces the reaper's tick period.
// Setting it to 0 cancels the outstanding reaper token outright; setting
// it to a new positive value while the map is non-empty and polling is
// not suppressed cancels any outstanding token and spawns a fresh task
// bound to the new interval.
func (c *MemoryCache[K, V]) SetPollingInterval(interval time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrUsedAfterDisposal
	}

	c.pollingInterval = clampPollingInterval(interval)
	c.cancelReaperLocked()
	if c.pollingInterval > 0 && len(c.items) > 0 && !c.pollingSuppressed {
		c.armReaperLocked()
	}
	return nil
}

// CopyTo copies a snapshot of (key, value) pairs into dst starting at
// offset. It fails with ErrArgumentInvalid for a nil destination or a
// negative offset, and ErrCapacityInsufficient if dst does not have room
// for every currently live entry starting at offset.
func (c *MemoryCache[K, V]) CopyTo(dst []Pair[K, V], offset int) error {
	if dst == nil || offset < 0 {
		return ErrArgumentInvalid
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrUsedAfterDisposal
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if len(dst)-offset < len(snapshot) {
		return ErrCapacityInsufficient
	}
	copy(dst[offset:], snapshot)
	return nil
}

// Enumerate returns a finite, lazy sequence over a snapshot of the
// cache's live entries taken at call time. It is not restartable across
// mutations: ranging over the returned sequence twice yields the same
// fixed snapshot, not a re-read of the live map.
func (c *MemoryCache[K, V]) Enumerate() (iter.Seq2[K, V], error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrUsedAfterDisposal
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return func(yield func(K, V) bool) {
		for _, p := range snapshot {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}, nil
}

// Keys returns a snapshot of live keys.
func (c *MemoryCache[K, V]) Keys() ([]K, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrUsedAfterDisposal
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	keys := make([]K, len(snapshot))
	for i, p := range snapshot {
		keys[i] = p.Key
	}
	return keys, nil
}

// Values returns a snapshot of live values.
func (c *MemoryCache[K, V]) Values() ([]V, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrUsedAfterDisposal
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	values := make([]V, len(snapshot))
	for i, p := range snapshot {
		values[i] = p.Value
	}
	return values, nil
}

// snapshotLocked materializes the currently live (non-expired) entries.
// Expired-but-not-yet-reaped entries are physically present but are
// semantically absent to every external observer, so they never appear
// here even though they still count toward Count.
func (c *MemoryCache[K, V]) snapshotLocked() []Pair[K, V] {
	nowTime := now()
	out := make([]Pair[K, V], 0, len(c.items))
	for k, e := range c.items {
		if e.expired(nowTime) {
			continue
		}
		out = append(out, Pair[K, V]{Key: k, Value: e.value})
	}
	return out
}

// Count returns the current physical size, including entries that have
// expired but have not yet been reaped or observed.
func (c *MemoryCache[K, V]) Count() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return 0, ErrUsedAfterDisposal
	}
	return len(c.items), nil
}

// IsPolling reports whether the reaper is armed, the map is non-empty,
// and polling has not been suppressed or cancelled.
func (c *MemoryCache[K, V]) IsPolling() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrUsedAfterDisposal
	}
	return c.reaper != nil && len(c.items) > 0 && !c.pollingSuppressed, nil
}

// IsDisposed reports the terminal disposed flag. Like Dispose, it never
// fails.
func (c *MemoryCache[K, V]) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Dispose cancels the reaper, empties the map, and marks the cache
// terminal. It is idempotent and never fails.
func (c *MemoryCache[K, V]) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.cancelReaperLocked()
	c.items = make(map[K]entryRecord[V])
	c.disposed = true
	c.logger.Info("cache disposed")
}

// evictLocked removes one victim chosen by the Policy Engine, reporting
// whether anything was actually evicted (false only when the map is
// already empty).
func (c *MemoryCache[K, V]) evictLocked() bool {
	victim, ok := selectVictim(c.items)
	if !ok {
		return false
	}
	delete(c.items, victim)
	c.logger.Debug("evicted entry under capacity pressure", zap.Any("key", victim))
	return true
}

func (c *MemoryCache[K, V]) armReaperLocked() {
	if c.reaper != nil {
		return
	}
	interval := c.pollingInterval
	c.reaper = startReaper(interval, c.sweep, c.logger)
	c.logger.Info("reaper armed", zap.Duration("interval", interval))
}

func (c *MemoryCache[K, V]) cancelReaperLocked() {
	if c.reaper == nil {
		return
	}
	c.reaper.stop()
	c.reaper = nil
	c.logger.Info("reaper cancelled")
}

// sweep is the reaper's tick callback. It reacquires the facade lock
// itself since it runs on the reaper's own goroutine, not a caller's.
func (c *MemoryCache[K, V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	if len(c.items) == 0 {
		c.cancelReaperLocked()
		return
	}

	c.clearExpiredLocked()
}
