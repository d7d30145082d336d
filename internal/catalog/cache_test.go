package catalog

import (
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-tracker/model"
)

func TestElementCacheRoundTrip(t *testing.T) {
	c := NewElementCache(time.Hour)
	sats := []model.Satellite{{ID: "a"}, {ID: "b"}}

	if _, ok := c.Get("starlink"); ok {
		t.Fatal("empty cache reported a hit")
	}

	c.Set("starlink", sats)
	got, ok := c.Get("starlink")
	if !ok {
		t.Fatal("fresh entry reported a miss")
	}
	if len(got) != 2 || got[0].ID != "a" {
		t.Fatalf("got %+v, want cached set back", got)
	}

	if _, ok := c.Get("gps"); ok {
		t.Fatal("hit for a scenario never cached")
	}
}

func TestElementCacheExpiry(t *testing.T) {
	c := NewElementCache(time.Hour)
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("starlink", []model.Satellite{{ID: "a"}})

	now = now.Add(59 * time.Minute)
	if _, ok := c.Get("starlink"); !ok {
		t.Fatal("entry expired before TTL")
	}

	// Exactly TTL old counts as stale.
	now = now.Add(time.Minute)
	if _, ok := c.Get("starlink"); ok {
		t.Fatal("entry survived past TTL")
	}

	// A rewrite restarts the clock.
	c.Set("starlink", []model.Satellite{{ID: "b"}})
	got, ok := c.Get("starlink")
	if !ok || got[0].ID != "b" {
		t.Fatalf("rewrite not served: got %+v ok=%v", got, ok)
	}
}

func TestElementCacheStats(t *testing.T) {
	c := NewElementCache(time.Hour)
	c.Set("gps", nil)

	c.Get("gps")
	c.Get("gps")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Fatalf("stats = (%d, %d), want (2, 1)", hits, misses)
	}
}

func TestElementCacheDefaultTTL(t *testing.T) {
	if got := NewElementCache(0).TTL(); got != time.Hour {
		t.Fatalf("default TTL = %v, want 1h", got)
	}
	if got := NewElementCache(-time.Second).TTL(); got != time.Hour {
		t.Fatalf("negative TTL = %v, want 1h", got)
	}
}
