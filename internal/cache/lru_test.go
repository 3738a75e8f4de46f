package cache

import (
	"testing"
	"time"

	"fanrevenue/internal/bucket"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.now)
	c.Set("a", "x")
	c.Set("b", "y")

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "z")
	clock.t = clock.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to expire")
	}
	if v, ok := c.Get("b"); !ok || v != "z" {
		t.Fatalf("Get(b) = %q, %v", v, ok)
	}

	clock.t = clock.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](0, time.Hour)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestSnapshotsIsolatesCallers(t *testing.T) {
	s := NewSnapshots(4, time.Hour)
	in := []bucket.MonthlyBucket{{CreatorID: "c", Year: 2024, Month: 1}}
	s.Put("c", in)
	in[0].Month = 9

	got, ok := s.Last("c")
	if !ok || len(got) != 1 || got[0].Month != 1 {
		t.Fatalf("Last(c) = %+v, %v", got, ok)
	}
	got[0].Month = 7
	again, _ := s.Last("c")
	if again[0].Month != 1 {
		t.Fatal("snapshot mutated through returned slice")
	}

	s.Forget("c")
	if _, ok := s.Last("c"); ok {
		t.Fatal("expected snapshot to be forgotten")
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSnapshots(4, time.Minute).WithClock(clock.now)
	s.Put("a", nil)
	s.Put("b", nil)

	m := NewManager(nil)
	m.Register(s)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	clock.t = clock.t.Add(2 * time.Minute)
	if n := m.CleanNow(); n != 2 {
		t.Fatalf("CleanNow() = %d, want 2", n)
	}
	m.Stop()
}
