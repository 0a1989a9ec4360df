package tiered

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestNATSStoreNilKeyValueErrors(t *testing.T) {
	store := newNATSStore(nil, "")
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Fatalf("expected get error when nats key-value is nil")
	}
	if err := store.Set(ctx, "k", []byte("v")); err == nil {
		t.Fatalf("expected set error when nats key-value is nil")
	}
	if _, err := store.Increment(ctx, "k", 1); err == nil {
		t.Fatalf("expected increment error when nats key-value is nil")
	}
	if err := store.Delete(ctx, "k"); err == nil {
		t.Fatalf("expected delete error when nats key-value is nil")
	}
}

func TestNATSStoreOperationsWithStubKV(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("bucket")
	store := newNATSStore(kv, "pfx")

	if err := store.Set(ctx, "slot:record", []byte("one")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	body, ok, err := store.Get(ctx, "slot:record")
	if err != nil || !ok || string(body) != "one" {
		t.Fatalf("unexpected get result: ok=%v err=%v body=%s", ok, err, string(body))
	}

	val, err := store.Increment(ctx, "counter", 3)
	if err != nil || val != 3 {
		t.Fatalf("increment failed: val=%d err=%v", val, err)
	}
	val, err = store.Increment(ctx, "counter", -1)
	if err != nil || val != 2 {
		t.Fatalf("decrement failed: val=%d err=%v", val, err)
	}

	if err := store.Delete(ctx, "slot:record"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Get(ctx, "slot:record"); err != nil || ok {
		t.Fatalf("expected slot deleted")
	}
	if err := store.Delete(ctx, "never"); err != nil {
		t.Fatalf("delete missing failed: %v", err)
	}
}

func TestNATSStoreKeysAreValidSubjects(t *testing.T) {
	kv := newStubNATSKeyValue("bucket")
	store := newNATSStore(kv, "pfx")
	_ = store.Set(context.Background(), "network:requests", []byte("1"))
	for key := range kv.entries {
		for _, r := range key {
			valid := r == '-' || r == '/' || r == '_' || r == '=' || r == '.' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !valid {
				t.Fatalf("key %q contains invalid rune %q", key, r)
			}
		}
	}
}

func TestNATSStoreIncrementRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("bucket")
	store := newNATSStore(kv, "pfx")
	if _, err := store.Increment(ctx, "counter", 1); err != nil {
		t.Fatalf("seed increment failed: %v", err)
	}
	kv.conflicts = 2
	val, err := store.Increment(ctx, "counter", 1)
	if err != nil || val != 2 {
		t.Fatalf("expected retry to succeed, val=%d err=%v", val, err)
	}
	if kv.conflicts != 0 {
		t.Fatalf("expected conflicts consumed, left %d", kv.conflicts)
	}
}

func TestNATSStoreIncrementGivesUp(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("bucket")
	store := newNATSStore(kv, "pfx")
	_, _ = store.Increment(ctx, "counter", 1)
	kv.conflicts = natsIncrementAttempts + 1
	if _, err := store.Increment(ctx, "counter", 1); err == nil {
		t.Fatalf("expected retry limit error")
	}
}

func TestNATSStoreIncrementOnNonNumericValue(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("bucket")
	store := newNATSStore(kv, "pfx")
	if err := store.Set(ctx, "badnum", []byte("not-a-number")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := store.Increment(ctx, "badnum", 1); err == nil {
		t.Fatalf("expected increment error on non-numeric value")
	}
}

func TestNATSStoreSurfacesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	kv := newStubNATSKeyValue("bucket")
	kv.getErr = boom
	store := newNATSStore(kv, "pfx")
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected get error, got %v", err)
	}
	if _, err := store.Increment(ctx, "k", 1); !errors.Is(err, boom) {
		t.Fatalf("expected increment error, got %v", err)
	}
	kv.getErr = nil
	kv.purgeErr = boom
	if err := store.Delete(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("expected delete error, got %v", err)
	}
}

type stubNATSKeyValue struct {
	bucket string
	rev    uint64

	entries map[string]*stubNATSKeyValueEntry

	// conflicts makes the next n Update calls fail with ErrKeyExists.
	conflicts int

	getErr   error
	putErr   error
	purgeErr error
}

func newStubNATSKeyValue(bucket string) *stubNATSKeyValue {
	return &stubNATSKeyValue{
		bucket:  bucket,
		entries: make(map[string]*stubNATSKeyValueEntry),
	}
}

func (s *stubNATSKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	return entry.clone(), nil
}

func (s *stubNATSKeyValue) Put(key string, value []byte) (uint64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	s.rev++
	s.entries[key] = &stubNATSKeyValueEntry{
		bucket:   s.bucket,
		key:      key,
		value:    cloneBytes(value),
		revision: s.rev,
		created:  time.Now(),
		op:       nats.KeyValuePut,
	}
	return s.rev, nil
}

func (s *stubNATSKeyValue) Create(key string, value []byte) (uint64, error) {
	if _, ok := s.entries[key]; ok {
		return 0, nats.ErrKeyExists
	}
	return s.Put(key, value)
}

func (s *stubNATSKeyValue) Update(key string, value []byte, last uint64) (uint64, error) {
	if s.conflicts > 0 {
		s.conflicts--
		return 0, nats.ErrKeyExists
	}
	existing, ok := s.entries[key]
	if !ok {
		return 0, nats.ErrKeyNotFound
	}
	if existing.revision != last {
		return 0, nats.ErrKeyExists
	}
	return s.Put(key, value)
}

func (s *stubNATSKeyValue) Purge(key string, _ ...nats.DeleteOpt) error {
	if s.purgeErr != nil {
		return s.purgeErr
	}
	delete(s.entries, key)
	return nil
}

type stubNATSKeyValueEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
	delta    uint64
	op       nats.KeyValueOp
}

func (e *stubNATSKeyValueEntry) clone() *stubNATSKeyValueEntry {
	cp := *e
	cp.value = cloneBytes(e.value)
	return &cp
}

func (e *stubNATSKeyValueEntry) Bucket() string             { return e.bucket }
func (e *stubNATSKeyValueEntry) Key() string                { return e.key }
func (e *stubNATSKeyValueEntry) Value() []byte              { return cloneBytes(e.value) }
func (e *stubNATSKeyValueEntry) Revision() uint64           { return e.revision }
func (e *stubNATSKeyValueEntry) Created() time.Time         { return e.created }
func (e *stubNATSKeyValueEntry) Delta() uint64              { return e.delta }
func (e *stubNATSKeyValueEntry) Operation() nats.KeyValueOp { return e.op }
