// Package tokencache gates device-facing calls behind a short-lived cache of
// positive credential validations.
//
// Verifying a device secret against its stored Argon2id hash is deliberately
// slow. Devices poll every few seconds, so each (device, secret) pair that
// validated successfully is remembered for a TTL and served from memory.
//
// Only successful validations are cached. A failed validation always goes
// back to the Directory, so a typo cannot lock a device out and a guessed
// secret cannot be planted in the cache. Entries are not invalidated when a
// device token is rotated; the old secret keeps working until its entry
// ages out.
//
// When the cache is full the oldest quarter of entries, by insertion time,
// is evicted in one pass. This is a coarse approximation of LRU that keeps
// eviction cheap and its outcome reproducible.
package tokencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// Default cache parameters.
const (
	DefaultTTL      = 30 * time.Minute
	DefaultCapacity = 1024

	// evictionDivisor sets the share of entries dropped when full (1/4).
	evictionDivisor = 4
)

// Validator checks a device credential against the system of record.
type Validator interface {
	Validate(ctx context.Context, deviceID, secret string) (bool, error)
}

// Logger defines the logging interface used by the Cache.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	TTL      time.Duration
	Capacity int
	Logger   Logger
	Clock    func() time.Time
}

// Cache is a TTL- and capacity-bounded cache of successful validations.
//
// Thread Safety: All methods are safe for concurrent use. The lock is not
// held while the Validator runs, so concurrent misses for the same key may
// each consult the Validator.
type Cache struct {
	validator Validator
	ttl       time.Duration
	capacity  int
	now       func() time.Time
	logger    Logger

	mu      sync.Mutex
	entries map[string]time.Time // digest -> validated at
}

// New creates a Cache in front of validator.
func New(validator Validator, opts Options) *Cache {
	c := &Cache{
		validator: validator,
		ttl:       opts.TTL,
		capacity:  opts.Capacity,
		now:       opts.Clock,
		logger:    opts.Logger,
		entries:   make(map[string]time.Time),
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.capacity <= 0 {
		c.capacity = DefaultCapacity
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	return c
}

// Validate reports whether secret is the current credential for deviceID.
//
// A cached validation no older than the TTL is returned without contacting
// the Validator. Otherwise expired entries are purged, the Validator is
// consulted, and a positive answer is cached. Negative answers and errors
// are never cached.
func (c *Cache) Validate(ctx context.Context, deviceID, secret string) (bool, error) {
	key := digest(deviceID, secret)

	c.mu.Lock()
	if at, ok := c.entries[key]; ok && c.now().Sub(at) <= c.ttl {
		c.mu.Unlock()
		return true, nil
	}
	c.purgeExpiredLocked()
	c.mu.Unlock()

	ok, err := c.validator.Validate(ctx, deviceID, secret)
	if err != nil || !ok {
		return false, err
	}

	c.mu.Lock()
	c.insertLocked(key)
	c.mu.Unlock()

	return true, nil
}

// Len returns the number of cached entries, including any not yet purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge removes all expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpiredLocked()
}

func (c *Cache) purgeExpiredLocked() int {
	now := c.now()
	removed := 0
	for key, at := range c.entries {
		if now.Sub(at) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) insertLocked(key string) {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = c.now()
}

// evictOldestLocked drops the oldest quarter of entries (at least one).
// Ties on timestamp are broken by key so the outcome is deterministic.
func (c *Cache) evictOldestLocked() {
	type entry struct {
		key string
		at  time.Time
	}
	all := make([]entry, 0, len(c.entries))
	for key, at := range c.entries {
		all = append(all, entry{key: key, at: at})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].at.Equal(all[j].at) {
			return all[i].key < all[j].key
		}
		return all[i].at.Before(all[j].at)
	})

	n := len(all) / evictionDivisor
	if n == 0 {
		n = 1
	}
	for _, e := range all[:n] {
		delete(c.entries, e.key)
	}
	c.logger.Debug("token cache evicted oldest entries", "evicted", n, "remaining", len(c.entries))
}

// digest derives the cache key; raw secrets are never stored. The NUL
// separator keeps ("ab","c") and ("a","bc") apart.
func digest(deviceID, secret string) string {
	h := sha256.New()
	h.Write([]byte(deviceID))
	h.Write([]byte{0})
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}
