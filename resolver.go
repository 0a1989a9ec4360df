package tiered

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const defaultSlotKey = "slot:record"

// Resolver answers "do you have the data, and is it fresh" for the memory,
// disk and network tiers of a single record slot. Reads that reach a lower
// tier write the record through to every faster tier.
//
// All operations are safe for concurrent use: one lock covers the three tiers
// so a write-through lands on memory and disk as a group.
type Resolver struct {
	mu sync.Mutex

	memory Store
	disk   Store
	origin Origin

	slotKey    string
	staleAfter time.Duration
	now        func() time.Time
	observer   Observer

	readMemory  readFunc
	readDisk    readFunc
	readNetwork readFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithObserver attaches an observer to receive read and clear events.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// WithStaleAfter marks records read from memory or disk as stale once they
// are older than d. Zero disables staleness.
func WithStaleAfter(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.staleAfter = d
		}
	}
}

// WithSlotKey overrides the key the record slot is stored under, letting
// several resolvers share one backend.
func WithSlotKey(key string) Option {
	return func(r *Resolver) {
		if key != "" {
			r.slotKey = key
		}
	}
}

// WithClock overrides the clock used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver wires a resolver over explicit tiers. Nil arguments fall back to
// in-process stand-ins: memory stores for both slots and a CounterOrigin.
//
// Example: in-process resolver
//
//	ctx := context.Background()
//	r := tiered.NewResolver(nil, nil, nil)
//	rec, ok, _ := r.Network(ctx)
//	fmt.Println(ok, rec.Payload) // true Server Response #1
func NewResolver(memory, disk Store, origin Origin, opts ...Option) *Resolver {
	if memory == nil {
		memory = newMemoryStore()
	}
	if disk == nil {
		disk = newMemoryStore()
	}
	if origin == nil {
		origin = NewCounterOrigin(nil)
	}
	r := &Resolver{
		memory:  memory,
		disk:    disk,
		origin:  origin,
		slotKey: defaultSlotKey,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.readMemory = withDiagnostics(TierMemory, r.memoryRead, r.notify)
	r.readDisk = withDiagnostics(TierDisk, r.diskRead, r.notify)
	r.readNetwork = withDiagnostics(TierNetwork, r.networkRead, r.notify)
	return r
}

// Memory returns the memory slot. It has no side effects.
func (r *Resolver) Memory(ctx context.Context) (Record, bool, error) {
	return r.readMemory(ctx)
}

// Disk returns the disk slot and, when present, copies it into memory.
func (r *Resolver) Disk(ctx context.Context) (Record, bool, error) {
	return r.readDisk(ctx)
}

// Network fetches a new record from the origin and writes it to disk and
// memory. It is always present unless the origin or a store fails.
func (r *Resolver) Network(ctx context.Context) (Record, bool, error) {
	return r.readNetwork(ctx)
}

// Read dispatches to the read operation of tier.
func (r *Resolver) Read(ctx context.Context, tier Tier) (Record, bool, error) {
	switch tier {
	case TierMemory:
		return r.Memory(ctx)
	case TierDisk:
		return r.Disk(ctx)
	case TierNetwork:
		return r.Network(ctx)
	default:
		return Record{}, false, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
}

// Resolve consults memory, disk and network in order and returns the first
// present, up-to-date record together with the tier that served it. A memory
// or disk slot that cannot be read back, such as one sealed under another
// encryption key, counts as a miss.
//
// Example: fall back to the network once
//
//	ctx := context.Background()
//	r := tiered.NewResolver(nil, nil, nil)
//	rec, tier, _ := r.Resolve(ctx)
//	fmt.Println(tier, rec.Payload) // network Server Response #1
//	rec, tier, _ = r.Resolve(ctx)
//	fmt.Println(tier, rec.Payload) // memory Server Response #1
func (r *Resolver) Resolve(ctx context.Context) (Record, Tier, error) {
	var (
		rec Record
		ok  bool
		err error
	)
	for _, tier := range Tiers {
		rec, ok, err = r.Read(ctx, tier)
		if err != nil {
			// an unreadable slot is overwritten by the next tier that answers
			if tier != TierNetwork && unreadableSlot(err) {
				continue
			}
			return Record{}, tier, err
		}
		if ok && rec.UpToDate() {
			return rec, tier, nil
		}
	}
	return rec, TierNetwork, nil
}

// ClearMemory drops the memory slot, simulating eviction under memory
// pressure. The disk slot is left alone.
func (r *Resolver) ClearMemory(ctx context.Context) error {
	start := time.Now()
	r.mu.Lock()
	err := r.memory.Delete(ctx, r.slotKey)
	r.mu.Unlock()
	r.notify(ctx, Event{Op: OpClear, Tier: TierMemory, Err: err, Duration: time.Since(start)})
	return err
}

// Reset returns every tier to its initial state: both slots absent and, when
// the origin supports it, the request counter back at zero.
func (r *Resolver) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if err := r.memory.Delete(ctx, r.slotKey); err != nil {
		errs = append(errs, fmt.Errorf("reset memory: %w", err))
	}
	if err := r.disk.Delete(ctx, r.slotKey); err != nil {
		errs = append(errs, fmt.Errorf("reset disk: %w", err))
	}
	if resetter, ok := r.origin.(interface{ Reset(context.Context) error }); ok {
		if err := resetter.Reset(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reset network: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the stores behind every tier. The resolver must not be used
// afterwards.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := []error{closeStore(r.memory), closeStore(r.disk)}
	if c, ok := r.origin.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (r *Resolver) memoryRead(ctx context.Context) (Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, ok, err := r.memory.Get(ctx, r.slotKey)
	if err != nil || !ok {
		return Record{}, false, err
	}
	return r.load(body)
}

func (r *Resolver) diskRead(ctx context.Context) (Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, ok, err := r.disk.Get(ctx, r.slotKey)
	if err != nil || !ok {
		return Record{}, false, err
	}
	rec, ok, err := r.load(body)
	if err != nil {
		return Record{}, false, err
	}
	if err := r.memory.Set(ctx, r.slotKey, body); err != nil {
		return Record{}, false, fmt.Errorf("write disk record to memory: %w", err)
	}
	return rec, ok, nil
}

func (r *Resolver) networkRead(ctx context.Context) (Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.origin.Fetch(ctx)
	if err != nil {
		return Record{}, false, err
	}
	rec = NewRecord(rec.Payload, r.now())
	body, err := encodeRecord(rec)
	if err != nil {
		return Record{}, false, err
	}
	if err := r.disk.Set(ctx, r.slotKey, body); err != nil {
		return Record{}, false, fmt.Errorf("write network record to disk: %w", err)
	}
	if err := r.memory.Set(ctx, r.slotKey, body); err != nil {
		return Record{}, false, fmt.Errorf("write network record to memory: %w", err)
	}
	return rec, true, nil
}

func (r *Resolver) load(body []byte) (Record, bool, error) {
	rec, err := decodeRecord(body)
	if err != nil {
		return Record{}, false, err
	}
	if r.staleAfter > 0 && r.now().Sub(rec.FetchedAt) > r.staleAfter {
		rec.stale = true
	}
	return rec, true, nil
}

func (r *Resolver) notify(ctx context.Context, ev Event) {
	if r.observer == nil {
		return
	}
	r.observer.OnTierEvent(ctx, ev)
}

func unreadableSlot(err error) bool {
	return errors.Is(err, ErrCorruptRecord) ||
		errors.Is(err, ErrDecryptFailed) ||
		errors.Is(err, ErrCorruptCompression) ||
		errors.Is(err, ErrUnsupportedCodec)
}
