package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mvonlanthen/registry-radar/internal/dedupe"
)

func TestCacheSeenDuplicate(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.IsSeen("alpha"))
	cache.MarkSeen("alpha")
	require.True(t, cache.IsSeen("alpha"))
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := dedupe.NewCache(10, 20*time.Millisecond)
	require.False(t, cache.IsSeen("beta"))
	cache.MarkSeen("beta")
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.IsSeen("beta"))
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.NewCache(1, time.Minute)
	cache.MarkSeen("first")
	cache.MarkSeen("second")

	require.False(t, cache.IsSeen("first"))
	require.True(t, cache.IsSeen("second"))
}

func TestCacheMarkSeenRefreshes(t *testing.T) {
	cache := dedupe.NewCache(2, time.Minute)
	cache.MarkSeen("alpha")
	cache.MarkSeen("beta")
	cache.MarkSeen("alpha")

	// The refresh protects alpha from capacity eviction; beta goes first.
	cache.MarkSeen("gamma")
	require.True(t, cache.IsSeen("alpha"))
	require.False(t, cache.IsSeen("beta"))
	require.True(t, cache.IsSeen("gamma"))
}

func TestCacheIsSeenDoesNotRecord(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.IsSeen("alpha"))
	require.False(t, cache.IsSeen("alpha"))
}
