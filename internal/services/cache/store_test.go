package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreGetSet(t *testing.T) {
	store := NewStore("test")

	store.Set("key", "value", time.Minute)

	got, ok := store.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", got)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	now := time.Now()
	store := NewStoreWithClock("test", func() time.Time { return now })

	store.Set("key", 42, 30*time.Minute)

	// Still live just before expiry
	now = now.Add(29 * time.Minute)
	got, ok := store.Get("key")
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	// Expired entries must never be returned
	now = now.Add(2 * time.Minute)
	_, ok = store.Get("key")
	assert.False(t, ok)

	// The expired read also evicted the entry
	assert.Equal(t, 0, store.Size())
}

func TestStoreExpiryBoundary(t *testing.T) {
	now := time.Now()
	store := NewStoreWithClock("test", func() time.Time { return now })

	store.Set("key", "value", 10*time.Minute)

	// Exactly at the expiry instant counts as expired
	now = now.Add(10 * time.Minute)
	_, ok := store.Get("key")
	assert.False(t, ok)
}

func TestStoreRewriteResetsExpiry(t *testing.T) {
	now := time.Now()
	store := NewStoreWithClock("test", func() time.Time { return now })

	store.Set("key", "old", 10*time.Minute)
	now = now.Add(9 * time.Minute)
	store.Set("key", "new", 10*time.Minute)

	// Past the original expiry but inside the rewritten one
	now = now.Add(5 * time.Minute)
	got, ok := store.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestStoreSizeCountsOnlyLive(t *testing.T) {
	now := time.Now()
	store := NewStoreWithClock("test", func() time.Time { return now })

	store.Set("short", 1, time.Minute)
	store.Set("long", 2, time.Hour)
	assert.Equal(t, 2, store.Size())

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, store.Size())
}

func TestStoreClear(t *testing.T) {
	store := NewStore("test")

	store.Set("a", 1, time.Minute)
	store.Set("b", 2, time.Minute)

	dropped := store.Clear()
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 0, store.Size())

	_, ok := store.Get("a")
	assert.False(t, ok)
}

func TestStorePurgeExpired(t *testing.T) {
	now := time.Now()
	store := NewStoreWithClock("test", func() time.Time { return now })

	store.Set("stale", 1, time.Minute)
	store.Set("fresh", 2, time.Hour)

	now = now.Add(10 * time.Minute)
	dropped := store.PurgeExpired()
	assert.Equal(t, 1, dropped)

	_, ok := store.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, store.Size())
}
