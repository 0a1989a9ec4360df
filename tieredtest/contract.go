package tieredtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/goforj/tiered"
)

// Options configures shared store contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// SkipCloneCheck disables the "get returns a cloned value" assertion.
	SkipCloneCheck bool
}

// RunStoreContract runs a backend-agnostic store contract suite.
func RunStoreContract(t *testing.T, store tiered.Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ctx := context.Background()
	key := func(s string) string {
		return sanitize(caseName) + ":" + s
	}

	// Missing keys are absent, not errors.
	if _, ok, err := store.Get(ctx, key("missing")); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	// Set/Get round-trip.
	if err := store.Set(ctx, key("alpha"), []byte("value")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	body, ok, err := store.Get(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if opts.NullSemantics {
		if ok {
			t.Fatalf("expected miss for null semantics")
		}
	} else {
		if !ok || string(body) != "value" {
			t.Fatalf("unexpected get result: ok=%v body=%q", ok, string(body))
		}
		if !opts.SkipCloneCheck {
			body[0] = 'X'
			body2, ok2, err2 := store.Get(ctx, key("alpha"))
			if err2 != nil || !ok2 || string(body2) != "value" {
				t.Fatalf("expected stored value unchanged, got ok=%v body=%q err=%v", ok2, string(body2), err2)
			}
		}
	}

	// Set overwrites unconditionally.
	if err := store.Set(ctx, key("alpha"), []byte("second")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if body, ok, err := store.Get(ctx, key("alpha")); err != nil {
		t.Fatalf("get after overwrite failed: %v", err)
	} else if !opts.NullSemantics && (!ok || string(body) != "second") {
		t.Fatalf("expected overwritten value, got ok=%v body=%q", ok, string(body))
	}

	// Counters.
	n, err := store.Increment(ctx, key("counter"), 3)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if opts.NullSemantics {
		if n != 0 {
			t.Fatalf("expected null-like increment to return 0, got %d", n)
		}
	} else if n != 3 {
		t.Fatalf("expected increment=3, got %d", n)
	}
	n, err = store.Increment(ctx, key("counter"), -1)
	if err != nil {
		t.Fatalf("negative increment failed: %v", err)
	}
	if !opts.NullSemantics && n != 2 {
		t.Fatalf("expected counter=2, got %d", n)
	}

	// Delete, including a key that never existed.
	if err := store.Delete(ctx, key("alpha")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Get(ctx, key("alpha")); err != nil || ok {
		t.Fatalf("expected key alpha deleted; ok=%v err=%v", ok, err)
	}
	if err := store.Delete(ctx, key("never")); err != nil {
		t.Fatalf("delete of missing key failed: %v", err)
	}
	if err := store.Delete(ctx, key("counter")); err != nil {
		t.Fatalf("delete counter failed: %v", err)
	}
	if n, err := store.Increment(ctx, key("counter"), 1); err != nil {
		t.Fatalf("increment after delete failed: %v", err)
	} else if !opts.NullSemantics && n != 1 {
		t.Fatalf("expected counter to restart at 1, got %d", n)
	}
}

// RunResolverContract checks the tier semantics of resolvers built by
// newResolver. Each subtest receives a fresh resolver in its initial state.
func RunResolverContract(t *testing.T, newResolver func(t *testing.T) *tiered.Resolver) {
	t.Helper()
	ctx := context.Background()

	t.Run("starts_empty", func(t *testing.T) {
		r := newResolver(t)
		expectAbsent(t, r, tiered.TierMemory)
		expectAbsent(t, r, tiered.TierDisk)
		expectAbsent(t, r, tiered.TierMemory)
	})

	t.Run("network_writes_through", func(t *testing.T) {
		r := newResolver(t)
		got := expectPresent(t, r, tiered.TierNetwork)
		if got.Payload != "Server Response #1" {
			t.Fatalf("expected first network payload, got %q", got.Payload)
		}
		if mem := expectPresent(t, r, tiered.TierMemory); !mem.Equal(got) {
			t.Fatalf("memory %q does not match network %q", mem, got)
		}
		if disk := expectPresent(t, r, tiered.TierDisk); !disk.Equal(got) {
			t.Fatalf("disk %q does not match network %q", disk, got)
		}
	})

	t.Run("network_counter_increases", func(t *testing.T) {
		r := newResolver(t)
		for i := 1; i <= 5; i++ {
			got := expectPresent(t, r, tiered.TierNetwork)
			if want := fmt.Sprintf("Server Response #%d", i); got.Payload != want {
				t.Fatalf("call %d: expected %q, got %q", i, want, got.Payload)
			}
		}
	})

	t.Run("clear_keeps_disk", func(t *testing.T) {
		r := newResolver(t)
		net := expectPresent(t, r, tiered.TierNetwork)
		if err := r.ClearMemory(ctx); err != nil {
			t.Fatalf("clear memory failed: %v", err)
		}
		expectAbsent(t, r, tiered.TierMemory)
		if disk := expectPresent(t, r, tiered.TierDisk); !disk.Equal(net) {
			t.Fatalf("disk %q does not match network %q", disk, net)
		}
	})

	t.Run("disk_back_fills_memory", func(t *testing.T) {
		r := newResolver(t)
		expectPresent(t, r, tiered.TierNetwork)
		if err := r.ClearMemory(ctx); err != nil {
			t.Fatalf("clear memory failed: %v", err)
		}
		disk := expectPresent(t, r, tiered.TierDisk)
		if mem := expectPresent(t, r, tiered.TierMemory); !mem.Equal(disk) {
			t.Fatalf("memory %q does not match disk %q", mem, disk)
		}
	})

	t.Run("resolve_prefers_fastest", func(t *testing.T) {
		r := newResolver(t)
		rec, tier, err := r.Resolve(ctx)
		if err != nil || tier != tiered.TierNetwork || rec.Payload != "Server Response #1" {
			t.Fatalf("expected network #1, got tier=%s rec=%q err=%v", tier, rec, err)
		}
		rec, tier, err = r.Resolve(ctx)
		if err != nil || tier != tiered.TierMemory || rec.Payload != "Server Response #1" {
			t.Fatalf("expected memory #1, got tier=%s rec=%q err=%v", tier, rec, err)
		}
		if err := r.ClearMemory(ctx); err != nil {
			t.Fatalf("clear memory failed: %v", err)
		}
		rec, tier, err = r.Resolve(ctx)
		if err != nil || tier != tiered.TierDisk || rec.Payload != "Server Response #1" {
			t.Fatalf("expected disk #1, got tier=%s rec=%q err=%v", tier, rec, err)
		}
	})

	t.Run("reset", func(t *testing.T) {
		r := newResolver(t)
		expectPresent(t, r, tiered.TierNetwork)
		expectPresent(t, r, tiered.TierNetwork)
		if err := r.Reset(ctx); err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		expectAbsent(t, r, tiered.TierMemory)
		expectAbsent(t, r, tiered.TierDisk)
		if got := expectPresent(t, r, tiered.TierNetwork); got.Payload != "Server Response #1" {
			t.Fatalf("expected counter restart after reset, got %q", got.Payload)
		}
	})
}

func expectAbsent(t *testing.T, r *tiered.Resolver, tier tiered.Tier) {
	t.Helper()
	rec, ok, err := r.Read(context.Background(), tier)
	if err != nil {
		t.Fatalf("%s read failed: %v", tier, err)
	}
	if ok {
		t.Fatalf("expected %s absent, got %q", tier, rec)
	}
}

func expectPresent(t *testing.T, r *tiered.Resolver, tier tiered.Tier) tiered.Record {
	t.Helper()
	rec, ok, err := r.Read(context.Background(), tier)
	if err != nil {
		t.Fatalf("%s read failed: %v", tier, err)
	}
	if !ok {
		t.Fatalf("expected %s present", tier)
	}
	return rec
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
