package cache

import (
	"sync"
	"testing"
)

func TestLRUGetAdd(t *testing.T) {
	c := NewLRU[string, int](2)

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get on empty cache succeeded")
	}
	c.Add("a", 1)
	c.Add("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// "b" is now the least recently used entry.
	c.Add("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("b survived eviction")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s was evicted", k)
		}
	}

	s := c.Stats()
	if s.Len != 2 || s.Capacity != 2 || s.Evictions != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.Hits != 3 || s.Misses != 2 {
		t.Errorf("hits = %d misses = %d, want 3 and 2", s.Hits, s.Misses)
	}
}

func TestLRUUpdateExisting(t *testing.T) {
	c := NewLRU[int, string](2)
	c.Add(1, "one")
	c.Add(2, "two")
	c.Add(1, "uno")
	c.Add(3, "three")

	if v, _ := c.Get(1); v != "uno" {
		t.Errorf("Get(1) = %q, want uno", v)
	}
	if _, ok := c.Get(2); ok {
		t.Error("2 should have been evicted after 1 was refreshed")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRUPurge(t *testing.T) {
	c := NewLRU[int, int](0)
	if c.Stats().Capacity != 1 {
		t.Fatalf("capacity = %d, want 1", c.Stats().Capacity)
	}
	c.Add(1, 1)
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d", c.Len())
	}
	c.Add(2, 2)
	if v, ok := c.Get(2); !ok || v != 2 {
		t.Errorf("Get(2) after Purge = %d, %v", v, ok)
	}
}

func TestLRUHitRate(t *testing.T) {
	tests := []struct {
		stats LRUStats
		want  float64
	}{
		{LRUStats{}, 0},
		{LRUStats{Hits: 3, Misses: 1}, 0.75},
		{LRUStats{Misses: 4}, 0},
	}
	for _, tt := range tests {
		if got := tt.stats.HitRate(); got != tt.want {
			t.Errorf("HitRate(%+v) = %v, want %v", tt.stats, got, tt.want)
		}
	}
}

func TestLRUConcurrent(t *testing.T) {
	c := NewLRU[int, int](16)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				c.Add((g*100+i)%32, i)
				c.Get(i % 32)
			}
		}()
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
