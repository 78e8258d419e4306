package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newTestCache(t *testing.T, maxEntries int, maxBytes int64) *TwoTier {
	t.Helper()
	c, err := New(Config{
		MaxEntries: maxEntries,
		MaxBytes:   maxBytes,
		Dir:        t.TempDir(),
		DefaultTTL: time.Hour,
	})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadCapacities(t *testing.T) {
	_, err := New(Config{MaxEntries: 0, MaxBytes: 1024, Dir: t.TempDir()})
	assert.Error(t, err)

	_, err = New(Config{MaxEntries: 4, MaxBytes: 0, Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestGetMissIsNotAnError(t *testing.T) {
	c := newTestCache(t, 4, 1<<20)

	value, ok := c.Get(fp("absent"))
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t, 4, 1<<20)
	key := fp("hello")

	c.Set(key, []byte("world"), 0)
	value, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("world"), value)
}

func TestTier1CapacityInvariant(t *testing.T) {
	c := newTestCache(t, 3, 1<<20)

	for i := 0; i < 20; i++ {
		c.Set(fp(fmt.Sprintf("key-%d", i)), []byte("value"), 0)
		stats := c.Stats()
		if stats.MemEntries > 3 {
			t.Fatalf("Tier-1 exceeded capacity after insert %d: %d entries", i, stats.MemEntries)
		}
	}
}

func TestEvictionWritesThroughToDisk(t *testing.T) {
	c := newTestCache(t, 2, 1<<20)

	c.Set(fp("a"), []byte("va"), 0)
	c.Set(fp("b"), []byte("vb"), 0)
	c.Set(fp("c"), []byte("vc"), 0) // evicts "a" to Tier-2

	stats := c.Stats()
	assert.Equal(t, 2, stats.MemEntries)
	assert.Greater(t, stats.DiskBytes, int64(0))

	// The evicted entry is still retrievable (promoted back from disk).
	value, ok := c.Get(fp("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("va"), value)
}

func TestPromotionPreservesCapacity(t *testing.T) {
	c := newTestCache(t, 2, 1<<20)

	c.Set(fp("a"), []byte("va"), 0)
	c.Set(fp("b"), []byte("vb"), 0)
	c.Set(fp("c"), []byte("vc"), 0)

	// Promoting "a" from disk must evict something else, never exceed 2.
	_, ok := c.Get(fp("a"))
	require.True(t, ok)
	assert.LessOrEqual(t, c.Stats().MemEntries, 2)
}

func TestLRUOrderRespectsAccess(t *testing.T) {
	c := newTestCache(t, 2, 1<<20)

	c.Set(fp("a"), []byte("va"), 0)
	c.Set(fp("b"), []byte("vb"), 0)

	// Touch "a" so "b" becomes the LRU entry.
	_, ok := c.Get(fp("a"))
	require.True(t, ok)

	c.Set(fp("c"), []byte("vc"), 0) // should evict "b"

	hitsBefore := c.Stats().Hits
	_, ok = c.Get(fp("a"))
	assert.True(t, ok)
	assert.Equal(t, hitsBefore+1, c.Stats().Hits)
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	c := newTestCache(t, 4, 1<<20)
	key := fp("short-lived")

	c.Set(key, []byte("value"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok)
	// Purged lazily: a second lookup is still a miss.
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestDiskTierPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{MaxEntries: 1, MaxBytes: 1 << 20, Dir: dir, DefaultTTL: time.Hour}

	first, err := New(cfg)
	require.NoError(t, err)

	first.Set(fp("a"), []byte("va"), 0)
	first.Set(fp("b"), []byte("vb"), 0) // spills "a" to disk

	second, err := New(cfg)
	require.NoError(t, err)

	value, ok := second.Get(fp("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("va"), value)
}

func TestDiskTierByteBudget(t *testing.T) {
	dir := t.TempDir()
	disk, err := newDiskTier(dir, 600)
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 10; i++ {
		entry := &Entry{
			Fingerprint:    fp(fmt.Sprintf("entry-%d", i)),
			Value:          []byte("0123456789"),
			CreatedAt:      now,
			LastAccessedAt: now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, disk.put(entry))
		if disk.totalBytes > 600 {
			t.Fatalf("Tier-2 exceeded byte budget after insert %d: %d bytes", i, disk.totalBytes)
		}
	}

	// The most recently accessed entry survives eviction.
	entry, err := disk.get(fp("entry-9"), now)
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestDiskTierCorruptFileIsAMiss(t *testing.T) {
	c := newTestCache(t, 1, 1<<20)

	c.Set(fp("a"), []byte("va"), 0)
	c.Set(fp("b"), []byte("vb"), 0) // "a" now on disk

	// Corrupt the on-disk entry.
	path := c.disk.path(fp("a"))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, ok := c.Get(fp("a"))
	assert.False(t, ok)
	assert.Greater(t, c.Stats().DiskErrors, int64(0))
}
