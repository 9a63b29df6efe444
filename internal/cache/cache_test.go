package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nordicstoday/nordics-today/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore() (*cache.Store, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return cache.New(cache.WithClock(clk.Now)), clk
}

func TestStore_FreshWithinTTL(t *testing.T) {
	s, clk := newStore()
	s.Set("k", 42)

	clk.Advance(cache.DefaultTTL - time.Nanosecond)
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestStore_ExpiredReadDeletes(t *testing.T) {
	s, clk := newStore()
	s.Set("k", "v")

	clk.Advance(cache.DefaultTTL)
	_, ok := s.Get("k")
	assert.False(t, ok, "entry aged exactly TTL must be stale")
	assert.Equal(t, 0, s.Len(), "stale read must evict the entry")
}

func TestStore_NoSweepWithoutRead(t *testing.T) {
	s, clk := newStore()
	s.Set("a", 1)
	s.Set("b", 2)
	clk.Advance(time.Hour)

	assert.Equal(t, 2, s.Len())
	_, _ = s.Get("a")
	assert.Equal(t, 1, s.Len())
}

func TestStore_WithTTL(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	s := cache.New(cache.WithTTL(time.Second), cache.WithClock(clk.Now))
	s.Set("k", true)
	clk.Advance(time.Second)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_CloseAndPurge(t *testing.T) {
	s, _ := newStore()
	s.Set("a", 1)
	s.Set("b", 2)
	assert.Equal(t, 2, s.Purge())
	assert.Equal(t, 0, s.Len())

	s.Set("c", 3)
	s.Close()
	_, ok := s.Get("c")
	assert.False(t, ok)
	s.Set("d", 4)
	assert.Equal(t, 0, s.Len())
}

func TestLookup_TypeMismatchIsMiss(t *testing.T) {
	s, _ := newStore()
	s.Set("k", "text")

	_, ok := cache.Lookup[int](s, "k")
	assert.False(t, ok)
	v, ok := cache.Lookup[string](s, "k")
	assert.True(t, ok)
	assert.Equal(t, "text", v)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s, _ := newStore()
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				s.Set("shared", i*j)
				_, _ = s.Get("shared")
			}
		}()
	}
	wg.Wait()
	_, ok := s.Get("shared")
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		params []cache.Param
		want   string
	}{
		{"empty", "featured", nil, "featured:{}"},
		{"ordered", "articles", []cache.Param{cache.P("country", "SE"), cache.P("page", 1), cache.P("limit", 20)}, `articles:{"country":"SE","page":1,"limit":20}`},
		{"escaping", "article", []cache.Param{cache.P("slug", `a"b`)}, `article:{"slug":"a\"b"}`},
		{"bool", "articles", []cache.Param{cache.P("featured", true)}, `articles:{"featured":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cache.Key(tt.prefix, tt.params...))
		})
	}
}
