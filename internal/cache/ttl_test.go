package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetReturnsStoredValue(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected v, got %q (ok=%v)", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}
}

// TestShortTTLExpires mirrors real usage with a wall clock: a 1ms entry is gone after 5ms.
func TestShortTTLExpires(t *testing.T) {
	c := New[int](time.Minute)
	c.SetWithTTL("k", 42, time.Millisecond)

	time.Sleep(5 * time.Millisecond)

	st := c.Stats()
	if st.Total != 1 || st.Valid != 0 || st.Expired != 1 {
		t.Fatalf("expected one expired entry, got %+v", st)
	}

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to be absent")
	}

	st = c.Stats()
	if st.Total != 0 || st.Expired != 0 {
		t.Fatalf("expected lookup to evict the expired entry, got %+v", st)
	}
}

func TestExpiryBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 11, 1, 10, 0, 0, 0, time.UTC)}
	c := New[string](time.Minute, WithClock(clock.Now))
	c.Set("k", "v")

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected entry to be visible before expiry")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to be absent at expiry")
	}
}

func TestSetResetsExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 11, 1, 10, 0, 0, 0, time.UTC)}
	c := New[string](time.Minute, WithClock(clock.Now))

	c.Set("k", "first")
	clock.Advance(50 * time.Second)
	c.Set("k", "second")
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k")
	if !ok || got != "second" {
		t.Fatalf("expected overwritten value to still be live, got %q (ok=%v)", got, ok)
	}
}

func TestNonPositiveTTLUsesDefault(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 11, 1, 10, 0, 0, 0, time.UTC)}
	c := New[string](0, WithClock(clock.Now))
	if c.DefaultTTL() != DefaultTTL {
		t.Fatalf("expected default ttl %s, got %s", DefaultTTL, c.DefaultTTL())
	}

	c.SetWithTTL("k", "v", -time.Second)
	clock.Advance(DefaultTTL - time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected entry to use the default ttl")
	}
}

func TestClear(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be cleared")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("expected b to survive a single-key clear")
	}

	c.ClearAll()
	if st := c.Stats(); st.Total != 0 {
		t.Fatalf("expected empty cache, got %+v", st)
	}
}

func TestStatsKeysSorted(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("stations_data", 1)
	c.Set("aqicn_data", 2)

	st := c.Stats()
	if len(st.Keys) != 2 || st.Keys[0] != "aqicn_data" || st.Keys[1] != "stations_data" {
		t.Fatalf("unexpected keys: %v", st.Keys)
	}
	if st.Valid != 2 {
		t.Fatalf("expected two valid entries, got %d", st.Valid)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", i*j)
				c.Get("k")
				c.Stats()
			}
		}(i)
	}
	wg.Wait()

	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected key to be present after concurrent writes")
	}
}
