package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUCacheExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Hour).WithClock(clk.now)

	c.Set("a", "1")
	c.SetUntil("b", "2", clk.t.Add(10*time.Minute))
	c.SetUntil("c", "3", clk.t.Add(48*time.Hour)) // capped at the TTL

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	clk.t = clk.t.Add(30 * time.Minute)
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have expired")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should still be cached")
	}

	clk.t = clk.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired removed %d, want 2", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b was least recently used and should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive")
	}
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestManager(t *testing.T) {
	clk := &clock{t: time.Now()}
	c := NewLRUCache[int](10, time.Minute).WithClock(clk.now)
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	clk.t = clk.t.Add(2 * time.Minute)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	idle := NewManager(nil)
	idle.Stop()
}
