package cacheinfra

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-inventory-cache/pkg/testsupport"
)

func newTestLRU(t *testing.T, maxSize int, ttl time.Duration, clock *testsupport.Clock) *LRUStore {
	t.Helper()

	opts := []Option{}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}

	store, err := NewLRUStore(Config{MaxSize: maxSize, DefaultTTL: ttl}, opts...)
	if err != nil {
		t.Fatalf("NewLRUStore() failed: %v", err)
	}
	return store
}

func TestNewLRUStore_InvalidConfig(t *testing.T) {
	if _, err := NewLRUStore(Config{MaxSize: 0}); err == nil {
		t.Fatal("expected error for zero MaxSize")
	}
}

func TestLRUStore_SizeBound(t *testing.T) {
	store := newTestLRU(t, 5, 0, nil)

	for i := 0; i < 50; i++ {
		store.Set(fmt.Sprintf("clients:id:%d", i), i)
		if size := store.Stats().Size; size > 5 {
			t.Fatalf("after %d inserts size = %d, want <= 5", i+1, size)
		}
	}

	stats := store.Stats()
	if stats.Evictions != 45 {
		t.Errorf("expected 45 evictions, got %d", stats.Evictions)
	}
}

func TestLRUStore_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := testsupport.NewClock()
	store := newTestLRU(t, 3, 0, clock)

	store.Set("a", "A")
	clock.Advance(time.Millisecond)
	store.Set("b", "B")
	clock.Advance(time.Millisecond)
	store.Set("c", "C")

	// Touch a so b becomes the oldest.
	if _, ok := store.Get("a"); !ok {
		t.Fatal("expected a to exist")
	}

	store.Set("d", "D")

	if _, ok := store.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := store.Get(key); !ok {
			t.Errorf("expected %s to remain", key)
		}
	}
}

func TestLRUStore_EvictionOrderWithoutClockTicks(t *testing.T) {
	// Every insert happens at the same instant; recency order still decides.
	clock := testsupport.NewClock()
	store := newTestLRU(t, 2, 0, clock)

	store.Set("first", 1)
	store.Set("second", 2)
	store.Set("third", 3)

	if store.Has("first") {
		t.Error("expected first inserted key to be evicted")
	}
	if !store.Has("second") || !store.Has("third") {
		t.Error("expected second and third to remain")
	}
}

func TestLRUStore_UpdateDoesNotEvict(t *testing.T) {
	store := newTestLRU(t, 2, 0, nil)

	store.Set("a", 1)
	store.Set("b", 2)
	store.Set("a", 10)

	stats := store.Stats()
	if stats.Size != 2 {
		t.Errorf("expected size 2, got %d", stats.Size)
	}
	if stats.Evictions != 0 {
		t.Errorf("expected no evictions, got %d", stats.Evictions)
	}

	v, ok := store.Get("a")
	if !ok || v != 10 {
		t.Errorf("expected updated value 10, got %v (found=%v)", v, ok)
	}
	if !store.Has("b") {
		t.Error("expected b to survive the update")
	}
}

func TestLRUStore_UpdateRefreshesRecency(t *testing.T) {
	store := newTestLRU(t, 2, 0, nil)

	store.Set("a", 1)
	store.Set("b", 2)
	store.Set("a", 3) // a becomes most recent
	store.Set("c", 4) // evicts b

	if store.Has("b") {
		t.Error("expected b to be evicted")
	}
	if !store.Has("a") {
		t.Error("expected a to remain")
	}
}

func TestLRUStore_TTLExpiry(t *testing.T) {
	clock := testsupport.NewClock()
	store := newTestLRU(t, 10, time.Minute, clock)

	store.SetWithTTL("orders:id:1", "order", 50*time.Millisecond)

	if v, ok := store.Get("orders:id:1"); !ok || v != "order" {
		t.Fatalf("expected value before expiry, got %v (found=%v)", v, ok)
	}

	clock.Advance(50 * time.Millisecond)
	if _, ok := store.Get("orders:id:1"); !ok {
		t.Fatal("entry must still be live exactly at its expiry instant")
	}

	clock.Advance(time.Millisecond)
	if _, ok := store.Get("orders:id:1"); ok {
		t.Fatal("expected entry to be expired")
	}

	stats := store.Stats()
	if stats.Size != 0 {
		t.Errorf("expected expired entry to be removed, size = %d", stats.Size)
	}
	if stats.Expirations != 1 {
		t.Errorf("expected 1 expiration, got %d", stats.Expirations)
	}
	if stats.Misses != 1 {
		t.Errorf("expected expired read to count as a miss, got %d misses", stats.Misses)
	}
}

func TestLRUStore_DefaultTTL(t *testing.T) {
	clock := testsupport.NewClock()
	store := newTestLRU(t, 10, time.Second, clock)

	store.Set("k", "v")
	clock.Advance(2 * time.Second)

	if _, ok := store.Get("k"); ok {
		t.Error("expected default TTL to apply")
	}
}

func TestLRUStore_ZeroTTLNeverExpires(t *testing.T) {
	clock := testsupport.NewClock()

	t.Run("explicit zero ttl", func(t *testing.T) {
		store := newTestLRU(t, 10, time.Second, clock)
		store.SetWithTTL("k", "v", 0)
		clock.Advance(365 * 24 * time.Hour)
		if _, ok := store.Get("k"); !ok {
			t.Error("expected entry with zero TTL to persist")
		}
	})

	t.Run("zero default ttl", func(t *testing.T) {
		store := newTestLRU(t, 10, 0, clock)
		store.Set("k", "v")
		clock.Advance(365 * 24 * time.Hour)
		if _, ok := store.Get("k"); !ok {
			t.Error("expected entry with zero default TTL to persist")
		}
	})
}

func TestLRUStore_CachedNilIsAHit(t *testing.T) {
	store := newTestLRU(t, 10, 0, nil)

	store.Set("sellers:id:none", nil)

	v, ok := store.Get("sellers:id:none")
	if !ok {
		t.Fatal("expected cached nil to be found")
	}
	if v != nil {
		t.Errorf("expected nil value, got %v", v)
	}

	if _, ok := store.Get("sellers:id:missing"); ok {
		t.Error("expected missing key to report not found")
	}
}

func TestLRUStore_Delete(t *testing.T) {
	store := newTestLRU(t, 10, 0, nil)

	store.Set("a", 1)
	store.Delete("a")
	store.Delete("a")
	store.Delete("never-set")

	if store.Has("a") {
		t.Error("expected a to be deleted")
	}
	if store.Stats().Size != 0 {
		t.Errorf("expected empty store, size = %d", store.Stats().Size)
	}
	if keys := store.Keys(); len(keys) != 0 {
		t.Errorf("expected no recency bookkeeping left, got %v", keys)
	}
}

func TestLRUStore_InvalidatePattern(t *testing.T) {
	store := newTestLRU(t, 10, 0, nil)

	store.Set("clients:1", "c1")
	store.Set("clients:2", "c2")
	store.Set("orders:1", "o1")

	count, err := store.InvalidatePattern("clients:*")
	if err != nil {
		t.Fatalf("InvalidatePattern() error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 invalidated keys, got %d", count)
	}

	if store.Has("clients:1") || store.Has("clients:2") {
		t.Error("expected client keys to be removed")
	}
	if v, ok := store.Get("orders:1"); !ok || v != "o1" {
		t.Error("expected orders:1 to remain retrievable")
	}
}

func TestLRUStore_InvalidatePatternExactMatch(t *testing.T) {
	store := newTestLRU(t, 10, 0, nil)

	store.Set("masters:all", 1)
	store.Set("masters:all:v2", 2)

	count, err := store.InvalidatePattern("masters:all")
	if err != nil {
		t.Fatalf("InvalidatePattern() error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exact pattern to remove 1 key, got %d", count)
	}
	if !store.Has("masters:all:v2") {
		t.Error("expected longer key to survive exact pattern")
	}

	count, err = store.InvalidatePattern("masters:all")
	if err != nil {
		t.Fatalf("InvalidatePattern() error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 on second run, got %d", count)
	}
}

func TestLRUStore_InvalidatePatternDoesNotTouchStats(t *testing.T) {
	clock := testsupport.NewClock()
	store := newTestLRU(t, 10, time.Second, clock)

	store.Set("clients:list:1", 1)
	store.Set("orders:list:1", 2)
	clock.Advance(2 * time.Second)

	if _, err := store.InvalidatePattern("clients:*"); err != nil {
		t.Fatalf("InvalidatePattern() error: %v", err)
	}

	stats := store.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Expirations != 0 {
		t.Errorf("expected untouched counters, got %+v", stats)
	}
	// Non-matching expired key lingers until touched.
	if stats.Size != 1 {
		t.Errorf("expected the expired orders key to linger, size = %d", stats.Size)
	}
}

func TestLRUStore_ClearKeepsStats(t *testing.T) {
	store := newTestLRU(t, 10, 0, nil)

	store.Set("a", 1)
	store.Get("a")
	store.Get("b")
	store.Clear()

	stats := store.Stats()
	if stats.Size != 0 {
		t.Errorf("expected empty store after Clear, got %d", stats.Size)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected counters to survive Clear, got hits=%d misses=%d", stats.Hits, stats.Misses)
	}

	store.Set("c", 3)
	if !store.Has("c") {
		t.Error("expected store to be usable after Clear")
	}
}

func TestLRUStore_HitRate(t *testing.T) {
	store := newTestLRU(t, 10, 0, nil)

	if got := store.Stats().HitRate; got != "0%" {
		t.Errorf("expected 0%% before any get, got %s", got)
	}

	store.Set("k", "v")
	store.Get("k")
	store.Get("k")
	store.Get("missing")

	stats := store.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("expected hits=2 misses=1, got hits=%d misses=%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != "66.67%" {
		t.Errorf("expected hit rate 66.67%%, got %s", stats.HitRate)
	}
	if stats.MaxSize != 10 {
		t.Errorf("expected MaxSize 10, got %d", stats.MaxSize)
	}
}

func TestLRUStore_HasDoesNotTouchStatsOrRecency(t *testing.T) {
	store := newTestLRU(t, 2, 0, nil)

	store.Set("a", 1)
	store.Set("b", 2)

	if !store.Has("a") {
		t.Fatal("expected a to exist")
	}
	store.Set("c", 3)

	if store.Has("a") {
		t.Error("Has must not refresh recency; a should have been evicted")
	}
	if stats := store.Stats(); stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Has must not count hits or misses, got %+v", stats)
	}
}

func TestLRUStore_KeysOrder(t *testing.T) {
	store := newTestLRU(t, 10, 0, nil)

	store.Set("a", 1)
	store.Set("b", 2)
	store.Set("c", 3)
	store.Get("a")

	want := []string{"a", "c", "b"}
	if got := store.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestLRUStore_LoadBulk(t *testing.T) {
	clock := testsupport.NewClock()
	store := newTestLRU(t, 10, 0, clock)

	store.LoadBulk([]Entry{
		{Key: "masters:sellers:all", Value: []string{"ana", "luis"}},
		{Key: "masters:clients:all", Value: []string{"acme"}},
	}, time.Minute)

	if stats := store.Stats(); stats.Size != 2 {
		t.Fatalf("expected 2 loaded entries, got %d", stats.Size)
	}

	clock.Advance(2 * time.Minute)
	if store.Has("masters:sellers:all") {
		t.Error("expected bulk TTL to apply")
	}
}
