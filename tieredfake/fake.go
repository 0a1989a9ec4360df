package tieredfake

import (
	"context"
	"sync"
	"testing"

	"github.com/goforj/tiered"
)

// Op identifies a store operation for assertions.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpInc    Op = "inc"
	OpDelete Op = "delete"
)

// Fake exposes a deterministic in-process resolver plus assertion helpers for
// tests. Both slots are counted memory stores and every event is recorded.
type Fake struct {
	resolver *tiered.Resolver

	mu     sync.Mutex
	events []tiered.Event
	calls  map[tiered.Tier]map[Op]int
}

// New creates a Fake. Options are applied to the underlying resolver after
// the recording observer, so a caller-supplied observer replaces it.
func New(opts ...tiered.Option) *Fake {
	ctx := context.Background()
	f := &Fake{calls: make(map[tiered.Tier]map[Op]int)}
	memory := &countingStore{inner: tiered.NewMemoryStore(ctx), tier: tiered.TierMemory, onCall: f.record}
	disk := &countingStore{inner: tiered.NewMemoryStore(ctx), tier: tiered.TierDisk, onCall: f.record}
	counter := &countingStore{inner: tiered.NewMemoryStore(ctx), tier: tiered.TierNetwork, onCall: f.record}
	f.resolver = tiered.NewResolver(memory, disk, tiered.NewCounterOrigin(counter),
		append([]tiered.Option{tiered.WithObserver(f)}, opts...)...)
	return f
}

// Resolver returns the resolver to inject into code under test.
func (f *Fake) Resolver() *tiered.Resolver { return f.resolver }

// OnTierEvent implements tiered.Observer.
func (f *Fake) OnTierEvent(_ context.Context, ev tiered.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

// Events returns a copy of the recorded events in order.
func (f *Fake) Events() []tiered.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tiered.Event, len(f.events))
	copy(out, f.events)
	return out
}

// Outcomes returns how many reads of tier ended with outcome.
func (f *Fake) Outcomes(tier tiered.Tier, outcome tiered.Outcome) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, ev := range f.events {
		if ev.Op == tiered.OpRead && ev.Tier == tier && ev.Outcome == outcome {
			n++
		}
	}
	return n
}

// Calls returns how many times op hit the store behind tier.
func (f *Fake) Calls(tier tiered.Tier, op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tier][op]
}

// Reset clears recorded events and store calls. Tier contents are kept.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.calls = make(map[tiered.Tier]map[Op]int)
}

// AssertOutcome verifies reads of tier ended with outcome the expected number of times.
func (f *Fake) AssertOutcome(t *testing.T, tier tiered.Tier, outcome tiered.Outcome, times int) {
	t.Helper()
	if got := f.Outcomes(tier, outcome); got != times {
		t.Fatalf("expected %s %q %d times, got %d", tier, outcome, times, got)
	}
}

// AssertCalls verifies op hit the store behind tier the expected number of times.
func (f *Fake) AssertCalls(t *testing.T, tier tiered.Tier, op Op, times int) {
	t.Helper()
	if got := f.Calls(tier, op); got != times {
		t.Fatalf("expected %s store %s called %d times, got %d", tier, op, times, got)
	}
}

// AssertEvents verifies the total number of recorded events.
func (f *Fake) AssertEvents(t *testing.T, times int) {
	t.Helper()
	if got := len(f.Events()); got != times {
		t.Fatalf("expected %d events, got %d", times, got)
	}
}

func (f *Fake) record(tier tiered.Tier, op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls[tier] == nil {
		f.calls[tier] = make(map[Op]int)
	}
	f.calls[tier][op]++
}

// countingStore wraps a Store to record calls.
type countingStore struct {
	inner  tiered.Store
	tier   tiered.Tier
	onCall func(tiered.Tier, Op)
}

func (s *countingStore) Driver() tiered.Driver { return s.inner.Driver() }

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.onCall(s.tier, OpGet)
	return s.inner.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.onCall(s.tier, OpSet)
	return s.inner.Set(ctx, key, value)
}

func (s *countingStore) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	s.onCall(s.tier, OpInc)
	return s.inner.Increment(ctx, key, delta)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.onCall(s.tier, OpDelete)
	return s.inner.Delete(ctx, key)
}
