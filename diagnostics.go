package tiered

import (
	"context"
	"time"
)

type readFunc func(ctx context.Context) (Record, bool, error)

// withDiagnostics runs read, reports exactly one event for tier and hands the
// result back untouched.
func withDiagnostics(tier Tier, read readFunc, notify func(context.Context, Event)) readFunc {
	return func(ctx context.Context) (Record, bool, error) {
		start := time.Now()
		rec, ok, err := read(ctx)
		notify(ctx, Event{
			Op:       OpRead,
			Tier:     tier,
			Outcome:  classify(rec, ok),
			Record:   rec,
			Present:  ok,
			Err:      err,
			Duration: time.Since(start),
		})
		return rec, ok, err
	}
}
