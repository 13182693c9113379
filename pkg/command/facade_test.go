package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/decocache/decocache/pkg/errors"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	f := NewFacade()
	f.MustRegisterCache("users", NewMemory(MemoryConfig{MaxEntries: 100}))
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFacadeRegistration(t *testing.T) {
	f := NewFacade()

	t.Run("rejects empty name", func(t *testing.T) {
		err := f.RegisterCache("", NewMemory(MemoryConfig{}))
		if !errors.IsInvalidInput(err) {
			t.Errorf("Expected invalid input error, got %v", err)
		}
	})

	t.Run("rejects nil adapter", func(t *testing.T) {
		err := f.RegisterCache("users", nil)
		if !errors.IsInvalidInput(err) {
			t.Errorf("Expected invalid input error, got %v", err)
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		if err := f.RegisterCache("users", NewMemory(MemoryConfig{})); err != nil {
			t.Fatalf("RegisterCache failed: %v", err)
		}
		err := f.RegisterCache("users", NewMemory(MemoryConfig{}))
		if !errors.IsInvalidInput(err) {
			t.Errorf("Expected invalid input error, got %v", err)
		}
	})

	t.Run("unknown cache", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), Handle{Cache: "nope"}, "k")
		if !errors.IsInvalidInput(err) {
			t.Errorf("Expected invalid input error, got %v", err)
		}
	})
}

func TestFacadeCompletions(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	var completions []Completion
	f.Subscribe(ObserverFunc(func(_ context.Context, c Completion) error {
		completions = append(completions, c)
		return nil
	}))

	h := Handle{Cache: "users"}
	if err := f.Put(ctx, h, "user:1", "alice", PutOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := f.Fetch(ctx, h, "user:1"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if err := f.Delete(ctx, h, "user:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	want := []Command{CmdPut, CmdFetch, CmdDelete}
	var got []Command
	for _, c := range completions {
		got = append(got, c.Command)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Completion sequence mismatch (-want +got):\n%s", diff)
	}

	if completions[0].Key != "user:1" || completions[0].Handle.Cache != "users" {
		t.Errorf("Unexpected completion record: %+v", completions[0])
	}
	if completions[1].Result != "alice" {
		t.Errorf("Fetch completion missing result: %+v", completions[1])
	}
}

func TestFacadeCompletionsCarryErrors(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	var last Completion
	f.Subscribe(ObserverFunc(func(_ context.Context, c Completion) error {
		last = c
		return nil
	}))

	_, err := f.Fetch(ctx, Handle{Cache: "users"}, "missing")
	if !errors.IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
	if last.Command != CmdFetch {
		t.Fatalf("Expected a fetch completion, got %+v", last)
	}
	if !errors.IsNotFound(last.Err) {
		t.Errorf("Completion should carry the command error, got %v", last.Err)
	}
}

func TestFacadeObserverErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	boom := errors.NewListener("l1", "inserted", errors.NewPermanent("listener exploded", nil))
	f.Subscribe(ObserverFunc(func(context.Context, Completion) error {
		return boom
	}))

	h := Handle{Cache: "users"}

	t.Run("joined with success", func(t *testing.T) {
		err := f.Put(ctx, h, "k", "v", PutOptions{})
		if !errors.IsListener(err) {
			t.Errorf("Expected listener error to surface, got %v", err)
		}
	})

	t.Run("operation outcome survives", func(t *testing.T) {
		value, err := f.Fetch(ctx, h, "k")
		if value != "v" {
			t.Errorf("Observer failure must not undo the command, got %v", value)
		}
		if !errors.IsListener(err) {
			t.Errorf("Expected listener error to surface, got %v", err)
		}
	})

	t.Run("joined with command error", func(t *testing.T) {
		_, err := f.Fetch(ctx, h, "missing")
		if !errors.IsNotFound(err) {
			t.Errorf("Expected not found to survive the join, got %v", err)
		}
		if !errors.IsListener(err) {
			t.Errorf("Expected listener error in the join, got %v", err)
		}
	})
}

func TestFacadeDynamicInstances(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	def := Handle{Cache: "users"}
	tenant := Handle{Cache: "users", Instance: "tenant-a"}

	if err := f.Put(ctx, def, "user:1", "default", PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := f.Put(ctx, tenant, "user:1", "tenant", PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, err := f.Fetch(ctx, def, "user:1")
	if err != nil || value != "default" {
		t.Errorf("Default instance read wrong value: %v err=%v", value, err)
	}
	value, err = f.Fetch(ctx, tenant, "user:1")
	if err != nil || value != "tenant" {
		t.Errorf("Dynamic instance read wrong value: %v err=%v", value, err)
	}

	if got := tenant.String(); got != "users[tenant-a]" {
		t.Errorf("Expected users[tenant-a], got %s", got)
	}
}

func TestFacadeVerbs(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)
	h := Handle{Cache: "users"}

	t.Run("put_new and replace", func(t *testing.T) {
		stored, err := f.PutNew(ctx, h, "k", 1, PutOptions{})
		if err != nil || !stored {
			t.Fatalf("PutNew failed: stored=%v err=%v", stored, err)
		}
		stored, err = f.PutNew(ctx, h, "k", 2, PutOptions{})
		if err != nil || stored {
			t.Fatalf("Second PutNew should not store: stored=%v err=%v", stored, err)
		}
		stored, err = f.Replace(ctx, h, "k", 3, PutOptions{})
		if err != nil || !stored {
			t.Fatalf("Replace failed: stored=%v err=%v", stored, err)
		}
	})

	t.Run("take", func(t *testing.T) {
		value, err := f.Take(ctx, h, "k")
		if err != nil || value != 3 {
			t.Fatalf("Take failed: value=%v err=%v", value, err)
		}
		if ok, _ := f.HasKey(ctx, h, "k"); ok {
			t.Error("Take left the entry behind")
		}
	})

	t.Run("batched puts", func(t *testing.T) {
		if err := f.PutAll(ctx, h, []Entry{{Key: "a", Value: 1}, {Key: "b", Value: 2}}, PutOptions{}); err != nil {
			t.Fatalf("PutAll failed: %v", err)
		}
		stored, err := f.PutNewAll(ctx, h, []Entry{{Key: "b", Value: 9}, {Key: "c", Value: 3}}, PutOptions{})
		if err != nil || stored {
			t.Fatalf("PutNewAll with existing key should not store: stored=%v err=%v", stored, err)
		}
	})

	t.Run("delete_all", func(t *testing.T) {
		count, err := f.DeleteAll(ctx, h, MatchAll())
		if err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2 deletions, got %d", count)
		}
	})

	t.Run("wipe", func(t *testing.T) {
		if err := f.Put(ctx, h, "w1", 1, PutOptions{}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		count, err := f.Wipe(ctx, h)
		if err != nil || count != 1 {
			t.Fatalf("Wipe failed: count=%d err=%v", count, err)
		}
		if ok, _ := f.HasKey(ctx, h, "w1"); ok {
			t.Error("Wipe left an entry behind")
		}
	})

	t.Run("update_counter reports creation", func(t *testing.T) {
		var last Completion
		f.Subscribe(ObserverFunc(func(_ context.Context, c Completion) error {
			last = c
			return nil
		}))

		value, err := f.UpdateCounter(ctx, h, "hits", 1, 0)
		if err != nil || value != 1 {
			t.Fatalf("UpdateCounter failed: value=%v err=%v", value, err)
		}
		result, ok := last.Result.(CounterResult)
		if !ok {
			t.Fatalf("Expected CounterResult, got %T", last.Result)
		}
		if !result.Created() {
			t.Error("First counter update should report creation")
		}

		value, err = f.UpdateCounter(ctx, h, "hits", 1, 0)
		if err != nil || value != 2 {
			t.Fatalf("UpdateCounter failed: value=%v err=%v", value, err)
		}
		result = last.Result.(CounterResult)
		if result.Created() {
			t.Error("Second counter update should not report creation")
		}
	})
}
