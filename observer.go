package tiered

import (
	"context"
	"time"
)

// Op identifies the resolver operation behind an Event.
type Op string

const (
	OpRead  Op = "read"
	OpClear Op = "clear"
)

// Event describes one completed resolver operation.
type Event struct {
	Op       Op
	Tier     Tier
	Outcome  Outcome
	Record   Record
	Present  bool
	Err      error
	Duration time.Duration
}

// Observer receives one event per resolver read and per memory clear.
// It is called after the operation's write-through completed and before the
// operation returns to its caller.
type Observer interface {
	OnTierEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// OnTierEvent implements Observer.
func (f ObserverFunc) OnTierEvent(ctx context.Context, ev Event) {
	if f == nil {
		return
	}
	f(ctx, ev)
}

// MultiObserver fans an event out to every non-nil observer in order.
func MultiObserver(observers ...Observer) Observer {
	return ObserverFunc(func(ctx context.Context, ev Event) {
		for _, o := range observers {
			if o != nil {
				o.OnTierEvent(ctx, ev)
			}
		}
	})
}
