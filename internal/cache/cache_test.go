package cache

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T) (*Cache[[]string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
	return New[[]string]("test", WithClock(clock.Now)), clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("search", map[string]string{"query": "sort"}, []string{"a", "b"})

	got, ok := c.Get("search", map[string]string{"query": "sort"})
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if len(got) != 2 {
		t.Errorf("Get() = %v, want 2 items", got)
	}

	if _, ok := c.Get("search", map[string]string{"query": "graph"}); ok {
		t.Error("Get() with different params hit, want miss")
	}
	if _, ok := c.Get("recommendations", map[string]string{"query": "sort"}); ok {
		t.Error("Get() with different prefix hit, want miss")
	}
}

func TestCache_ExpiryEvicts(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("p", 1, []string{"x"})

	clock.Advance(DefaultTTL - time.Second)
	if _, ok := c.Get("p", 1); !ok {
		t.Fatal("Get() before expiry missed")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("p", 1); ok {
		t.Fatal("Get() at expiry hit, want miss")
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries = %d, want 0 after eviction", stats.Entries)
	}
}

func TestCache_SetWithTTL(t *testing.T) {
	c, clock := newTestCache(t)

	c.SetWithTTL("p", "k", []string{"x"}, time.Minute)
	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("p", "k"); ok {
		t.Error("Get() past custom TTL hit, want miss")
	}
}

func TestCache_GetOrCompute(t *testing.T) {
	c, _ := newTestCache(t)
	calls := 0
	compute := func() ([]string, error) {
		calls++
		return []string{"computed"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrCompute("p", "k", compute)
		if err != nil {
			t.Fatalf("GetOrCompute() error = %v", err)
		}
		if got[0] != "computed" {
			t.Errorf("GetOrCompute() = %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestCache_GetOrCompute_ErrorNotStored(t *testing.T) {
	c, _ := newTestCache(t)
	boom := errors.New("boom")

	if _, err := c.GetOrCompute("p", "k", func() ([]string, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrCompute() error = %v, want boom", err)
	}
	if c.Stats().Entries != 0 {
		t.Error("failed compute was stored")
	}
}

func TestCache_Stats(t *testing.T) {
	c, _ := newTestCache(t)

	c.Get("p", 1)
	c.Set("p", 1, nil)
	c.Get("p", 1)
	c.Get("p", 1)

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Stats() hits=%d misses=%d, want 2 and 1", stats.Hits, stats.Misses)
	}
	if rate := stats.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("HitRate() = %v, want ~0.667", rate)
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("a", 1, nil)
	c.Set("b", 2, nil)

	c.Clear()

	if c.Stats().Entries != 0 {
		t.Errorf("Entries = %d after Clear(), want 0", c.Stats().Entries)
	}
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache[int]

	c.Set("p", 1, 42)
	if _, ok := c.Get("p", 1); ok {
		t.Error("nil cache hit")
	}
	got, err := c.GetOrCompute("p", 1, func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("GetOrCompute() = %d, %v; want 7, nil", got, err)
	}
}

func TestGenerateKey(t *testing.T) {
	type params struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}

	got := GenerateKey("search", params{Query: "sort", Limit: 5})
	want := `search:{"query":"sort","limit":5}`
	if got != want {
		t.Errorf("GenerateKey() = %q, want %q", got, want)
	}

	a := GenerateKey("p", map[string]int{"b": 2, "a": 1})
	b := GenerateKey("p", map[string]int{"a": 1, "b": 2})
	if a != b {
		t.Errorf("map key order changed the key: %q vs %q", a, b)
	}

	if got := GenerateKey("all-exercises", "exercises"); got != `all-exercises:"exercises"` {
		t.Errorf("GenerateKey(string) = %q", got)
	}
}
