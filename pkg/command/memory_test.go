package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/decocache/decocache/pkg/errors"
)

// testClock is a settable clock for exercising TTL deadlines without
// sleeping.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestMemory() (*Memory, *testClock) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemory(MemoryConfig{MaxEntries: 100, now: clock.Now}), clock
}

func TestMemoryPutFetch(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	defer m.Close()

	t.Run("round trip", func(t *testing.T) {
		if _, err := m.Put(ctx, "users", "user:1", "alice", 0, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		value, err := m.Fetch(ctx, "users", "user:1")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if value != "alice" {
			t.Errorf("Expected alice, got %v", value)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := m.Fetch(ctx, "users", "user:999")
		if !errors.IsNotFound(err) {
			t.Errorf("Expected not found error, got %v", err)
		}
		if errors.IsExpired(err) {
			t.Error("Missing key must not report as expired")
		}
	})

	t.Run("namespace isolation", func(t *testing.T) {
		if _, err := m.Put(ctx, "users:tenant-a", "user:1", "bob", 0, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		value, err := m.Fetch(ctx, "users", "user:1")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if value != "alice" {
			t.Errorf("Dynamic instance write leaked into default instance: %v", value)
		}
	})
}

func TestMemoryPutModes(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	defer m.Close()

	t.Run("put_new only stores absent keys", func(t *testing.T) {
		stored, err := m.Put(ctx, "ns", "k", 1, 0, PutIfAbsent)
		if err != nil || !stored {
			t.Fatalf("Expected first put_new to store, got stored=%v err=%v", stored, err)
		}
		stored, err = m.Put(ctx, "ns", "k", 2, 0, PutIfAbsent)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if stored {
			t.Error("put_new stored over an existing key")
		}
		value, _ := m.Fetch(ctx, "ns", "k")
		if value != 1 {
			t.Errorf("Expected original value 1, got %v", value)
		}
	})

	t.Run("replace only stores present keys", func(t *testing.T) {
		stored, err := m.Put(ctx, "ns", "absent", 1, 0, PutIfPresent)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if stored {
			t.Error("replace stored an absent key")
		}
		stored, _ = m.Put(ctx, "ns", "k", 3, 0, PutIfPresent)
		if !stored {
			t.Error("replace skipped an existing key")
		}
	})
}

func TestMemoryExpiration(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()
	defer m.Close()

	if _, err := m.Put(ctx, "ns", "k", "v", time.Minute, PutAlways); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	t.Run("live before deadline", func(t *testing.T) {
		clock.Advance(30 * time.Second)
		if _, err := m.Fetch(ctx, "ns", "k"); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		ttl, err := m.TTL(ctx, "ns", "k")
		if err != nil {
			t.Fatalf("TTL failed: %v", err)
		}
		if ttl != 30*time.Second {
			t.Errorf("Expected 30s remaining, got %v", ttl)
		}
	})

	t.Run("touch restarts the countdown", func(t *testing.T) {
		ok, err := m.Touch(ctx, "ns", "k")
		if err != nil || !ok {
			t.Fatalf("Touch failed: ok=%v err=%v", ok, err)
		}
		ttl, _ := m.TTL(ctx, "ns", "k")
		if ttl != time.Minute {
			t.Errorf("Expected full minute after touch, got %v", ttl)
		}
	})

	t.Run("expired key reports expired, not missing", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		_, err := m.Fetch(ctx, "ns", "k")
		if !errors.IsExpired(err) {
			t.Errorf("Expected expired error, got %v", err)
		}
		if !errors.IsNotFound(err) {
			t.Error("Expired entries must still count as misses")
		}
	})

	t.Run("has_key reports expiration", func(t *testing.T) {
		if _, err := m.Put(ctx, "ns", "k-lapsed", "v", time.Minute, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		clock.Advance(2 * time.Minute)
		ok, err := m.HasKey(ctx, "ns", "k-lapsed")
		if ok {
			t.Error("Expected lapsed entry to report absent")
		}
		if !errors.IsExpired(err) {
			t.Errorf("Expected expired error, got %v", err)
		}
	})

	t.Run("expire zero removes the deadline", func(t *testing.T) {
		if _, err := m.Put(ctx, "ns", "k2", "v", time.Minute, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ok, err := m.Expire(ctx, "ns", "k2", 0)
		if err != nil || !ok {
			t.Fatalf("Expire failed: ok=%v err=%v", ok, err)
		}
		clock.Advance(time.Hour)
		if _, err := m.Fetch(ctx, "ns", "k2"); err != nil {
			t.Errorf("Entry without deadline expired: %v", err)
		}
	})
}

func TestMemoryDeleteAll(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	defer m.Close()

	seed := map[string]any{
		"user:1":    "alice",
		"user:2":    "bob",
		"session:1": "s1",
	}
	for k, v := range seed {
		if _, err := m.Put(ctx, "ns", k, v, 0, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	t.Run("pattern", func(t *testing.T) {
		count, err := m.DeleteAll(ctx, "ns", MatchPattern("user:*"))
		if err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2 deletions, got %d", count)
		}
		if ok, _ := m.HasKey(ctx, "ns", "session:1"); !ok {
			t.Error("Pattern delete removed a non-matching key")
		}
	})

	t.Run("predicate", func(t *testing.T) {
		if _, err := m.Put(ctx, "ns", "user:3", "carol", 0, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		count, err := m.DeleteAll(ctx, "ns", MatchFunc(func(key string, value any) bool {
			return strings.HasPrefix(key, "user:") && value == "carol"
		}))
		if err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 deletion, got %d", count)
		}
	})

	t.Run("all", func(t *testing.T) {
		count, err := m.DeleteAll(ctx, "ns", MatchAll())
		if err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 remaining entry deleted, got %d", count)
		}
	})

	t.Run("empty query rejected", func(t *testing.T) {
		_, err := m.DeleteAll(ctx, "ns", Query{})
		if !errors.IsInvalidInput(err) {
			t.Errorf("Expected invalid input error, got %v", err)
		}
	})

	t.Run("empty query rejected on empty namespace", func(t *testing.T) {
		_, err := m.DeleteAll(ctx, "vacant", Query{})
		if !errors.IsInvalidInput(err) {
			t.Errorf("Expected invalid input error, got %v", err)
		}
	})
}

func TestMemoryTake(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	defer m.Close()

	if _, err := m.Put(ctx, "ns", "k", "v", 0, PutAlways); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, err := m.Take(ctx, "ns", "k")
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if value != "v" {
		t.Errorf("Expected v, got %v", value)
	}
	if _, err := m.Fetch(ctx, "ns", "k"); !errors.IsNotFound(err) {
		t.Errorf("Take left the entry behind: %v", err)
	}
	if _, err := m.Take(ctx, "ns", "k"); !errors.IsNotFound(err) {
		t.Errorf("Expected not found on second take, got %v", err)
	}
}

func TestMemoryUpdateCounter(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	defer m.Close()

	t.Run("initializes to default plus offset", func(t *testing.T) {
		value, err := m.UpdateCounter(ctx, "ns", "hits", 1, 10)
		if err != nil {
			t.Fatalf("UpdateCounter failed: %v", err)
		}
		if value != 11 {
			t.Errorf("Expected 11, got %d", value)
		}
	})

	t.Run("updates existing counter", func(t *testing.T) {
		value, err := m.UpdateCounter(ctx, "ns", "hits", -2, 10)
		if err != nil {
			t.Fatalf("UpdateCounter failed: %v", err)
		}
		if value != 9 {
			t.Errorf("Expected 9, got %d", value)
		}
	})

	t.Run("rejects non-counter entries", func(t *testing.T) {
		if _, err := m.Put(ctx, "ns", "name", "alice", 0, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if _, err := m.UpdateCounter(ctx, "ns", "name", 1, 0); !errors.IsInvalidInput(err) {
			t.Errorf("Expected invalid input error, got %v", err)
		}
	})
}

func TestMemoryEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(MemoryConfig{MaxEntries: 2})
	defer m.Close()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := m.Put(ctx, "ns", key, key, 0, PutAlways); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if ok, _ := m.HasKey(ctx, "ns", "a"); ok {
		t.Error("Expected least recently used entry to be evicted")
	}
	if ok, _ := m.HasKey(ctx, "ns", "c"); !ok {
		t.Error("Expected most recent entry to survive")
	}
}

func TestMemoryPutAll(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	defer m.Close()

	entries := []Entry{{Key: "a", Value: 1}, {Key: "b", Value: 2}}

	t.Run("put_new_all is all or nothing", func(t *testing.T) {
		stored, err := m.PutAll(ctx, "ns", entries, 0, PutIfAbsent)
		if err != nil || !stored {
			t.Fatalf("Expected batch to store, got stored=%v err=%v", stored, err)
		}
		stored, err = m.PutAll(ctx, "ns", []Entry{{Key: "b", Value: 99}, {Key: "c", Value: 3}}, 0, PutIfAbsent)
		if err != nil {
			t.Fatalf("PutAll failed: %v", err)
		}
		if stored {
			t.Error("Batch with an existing key must not store")
		}
		if ok, _ := m.HasKey(ctx, "ns", "c"); ok {
			t.Error("Rejected batch stored a key anyway")
		}
	})

	t.Run("put_all overwrites", func(t *testing.T) {
		stored, err := m.PutAll(ctx, "ns", []Entry{{Key: "a", Value: 10}}, 0, PutAlways)
		if err != nil || !stored {
			t.Fatalf("PutAll failed: stored=%v err=%v", stored, err)
		}
		value, _ := m.Fetch(ctx, "ns", "a")
		if value != 10 {
			t.Errorf("Expected 10, got %v", value)
		}
	})
}
