package tiered

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithDiagnosticsEmitsOneEventAndPassesThrough(t *testing.T) {
	ctx := context.Background()
	want := NewRecord("payload", time.Now())
	var events []Event
	read := withDiagnostics(TierDisk, func(context.Context) (Record, bool, error) {
		return want, true, nil
	}, func(_ context.Context, ev Event) {
		events = append(events, ev)
	})

	got, ok, err := read(ctx)
	if err != nil || !ok || !got.Equal(want) {
		t.Fatalf("unexpected result: ok=%v err=%v rec=%q", ok, err, got)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	ev := events[0]
	if ev.Op != OpRead || ev.Tier != TierDisk || ev.Outcome != OutcomeFresh || !ev.Present {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestWithDiagnosticsAbsentAndError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var last Event
	notify := func(_ context.Context, ev Event) { last = ev }

	absent := withDiagnostics(TierMemory, func(context.Context) (Record, bool, error) {
		return Record{}, false, nil
	}, notify)
	if _, ok, err := absent(ctx); ok || err != nil {
		t.Fatalf("unexpected absent result: ok=%v err=%v", ok, err)
	}
	if last.Outcome != OutcomeAbsent || last.Present {
		t.Fatalf("expected absent event, got %+v", last)
	}

	failing := withDiagnostics(TierNetwork, func(context.Context) (Record, bool, error) {
		return Record{}, false, boom
	}, notify)
	if _, _, err := failing(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}
	if !errors.Is(last.Err, boom) || last.Tier != TierNetwork {
		t.Fatalf("expected error event, got %+v", last)
	}
}
