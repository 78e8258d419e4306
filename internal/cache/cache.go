// Package cache implements the two-tier response cache: a bounded in-memory
// LRU map in front of a bounded on-disk store. Tier-1 is bounded by entry
// count, Tier-2 by total bytes. Disk failures never surface to callers; they
// degrade to cache misses.
package cache

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Entry is one cached value with its bookkeeping timestamps.
type Entry struct {
	Fingerprint    string    `json:"fingerprint"`
	Value          []byte    `json:"value"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
}

// expired reports whether the entry's TTL has passed. A zero ExpiresAt means
// the entry never expires.
func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// sizeBytes returns the value payload size used for Tier-2 accounting.
func (e *Entry) sizeBytes() int64 {
	return int64(len(e.Value))
}

// Error represents a Tier-2 disk failure. It is always recovered locally as
// a miss and never reaches a stage or caller.
type Error struct {
	Op          string
	Fingerprint string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s failed for %s: %v", e.Op, e.Fingerprint, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds cache capacities, fixed for the process lifetime.
type Config struct {
	MaxEntries int           // Tier-1 capacity (entry count)
	MaxBytes   int64         // Tier-2 capacity (total value bytes)
	Dir        string        // Tier-2 directory, one file per fingerprint
	DefaultTTL time.Duration // applied when Set is called with ttl <= 0
}

// Stats exposes read-only cache counters.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	DiskErrors int64 `json:"disk_errors"`
	MemEntries int   `json:"mem_entries"`
	DiskBytes  int64 `json:"disk_bytes"`
}

// TwoTier is the cache used by the inference client. All operations are
// serialized by a single mutex; entries are small and operations are short,
// so coarse locking is sufficient.
type TwoTier struct {
	mu         sync.Mutex
	mem        *memoryTier
	disk       *diskTier
	defaultTTL time.Duration

	hits       int64
	misses     int64
	diskErrors int64
}

// New creates a two-tier cache. The Tier-2 directory is created if missing
// and enumerated once for startup size accounting.
func New(cfg Config) (*TwoTier, error) {
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("cache max entries must be positive, got %d", cfg.MaxEntries)
	}
	if cfg.MaxBytes <= 0 {
		return nil, fmt.Errorf("cache max bytes must be positive, got %d", cfg.MaxBytes)
	}
	disk, err := newDiskTier(cfg.Dir, cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize disk tier: %w", err)
	}
	return &TwoTier{
		mem:        newMemoryTier(cfg.MaxEntries),
		disk:       disk,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

// Get looks up a fingerprint, Tier-1 first. A Tier-1 hit is promoted to
// most-recently-used; a Tier-2 hit is promoted into Tier-1. Expired entries
// are purged lazily and reported as misses. The second return value is false
// on a miss; a miss is not an error.
func (c *TwoTier) Get(fingerprint string) ([]byte, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.mem.get(fingerprint); ok {
		if entry.expired(now) {
			c.mem.remove(fingerprint)
			c.dropDisk(fingerprint)
			c.misses++
			return nil, false
		}
		entry.LastAccessedAt = now
		c.hits++
		return entry.Value, true
	}

	entry, err := c.disk.get(fingerprint, now)
	if err != nil {
		// Disk trouble degrades to a miss; the caller recomputes.
		log.Printf("cache: %v (degrading to miss)", err)
		c.diskErrors++
		c.misses++
		return nil, false
	}
	if entry == nil {
		c.misses++
		return nil, false
	}
	if entry.expired(now) {
		c.dropDisk(fingerprint)
		c.misses++
		return nil, false
	}

	// Promote a copy into Tier-1, spilling Tier-1's LRU entry to disk if the
	// promotion pushes it over capacity.
	entry.LastAccessedAt = now
	c.admit(entry, now)
	c.hits++
	return entry.Value, true
}

// Set inserts a value into Tier-1. If Tier-1 exceeds capacity, its LRU entry
// is written through to Tier-2 rather than discarded. A ttl <= 0 uses the
// configured default.
func (c *TwoTier) Set(fingerprint string, value []byte, ttl time.Duration) {
	now := time.Now()
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	entry := &Entry{
		Fingerprint:    fingerprint,
		Value:          value,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.admit(entry, now)
}

// admit inserts into Tier-1 and write-through-evicts the displaced LRU entry
// into Tier-2. Caller holds c.mu.
func (c *TwoTier) admit(entry *Entry, now time.Time) {
	evicted := c.mem.put(entry)
	if evicted == nil || evicted.expired(now) {
		return
	}
	if err := c.disk.put(evicted); err != nil {
		log.Printf("cache: %v (evicted entry discarded)", err)
		c.diskErrors++
	}
}

// dropDisk removes a fingerprint from Tier-2, counting but not propagating
// failures. Caller holds c.mu.
func (c *TwoTier) dropDisk(fingerprint string) {
	if err := c.disk.remove(fingerprint); err != nil {
		log.Printf("cache: %v", err)
		c.diskErrors++
	}
}

// Stats returns a snapshot of cache counters.
func (c *TwoTier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		DiskErrors: c.diskErrors,
		MemEntries: c.mem.len(),
		DiskBytes:  c.disk.totalBytes,
	}
}
