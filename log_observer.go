package tiered

import (
	"context"
	"fmt"
	"log/slog"
)

// LogObserver writes one structured log line per event.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an Observer logging to logger, or slog.Default() when nil.
//
// Example: log tier outcomes to stdout
//
//	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
//	r := tiered.NewResolver(nil, nil, nil, tiered.WithObserver(tiered.NewLogObserver(logger)))
//	_, _, _ = r.Memory(context.Background()) // msg="MEMORY does not have any data." tier=memory outcome="no data"
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// OnTierEvent implements Observer.
func (o *LogObserver) OnTierEvent(ctx context.Context, ev Event) {
	attrs := []slog.Attr{
		slog.String("tier", string(ev.Tier)),
		slog.Duration("duration", ev.Duration),
	}
	if ev.Op == OpClear {
		if ev.Err != nil {
			o.logger.LogAttrs(ctx, slog.LevelError, "Wiping memory failed", append(attrs, slog.Any("error", ev.Err))...)
			return
		}
		o.logger.LogAttrs(ctx, slog.LevelInfo, "Wiping memory...", attrs...)
		return
	}
	if ev.Err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, fmt.Sprintf("%s read failed.", ev.Tier.Label()), append(attrs, slog.Any("error", ev.Err))...)
		return
	}
	attrs = append(attrs, slog.String("outcome", ev.Outcome.String()))
	if ev.Present {
		attrs = append(attrs, slog.String("payload", ev.Record.Payload))
	}
	o.logger.LogAttrs(ctx, slog.LevelInfo, eventMessage(ev), attrs...)
}

func eventMessage(ev Event) string {
	switch ev.Outcome {
	case OutcomeAbsent:
		return ev.Tier.Label() + " does not have any data."
	case OutcomeStale:
		return ev.Tier.Label() + " has stale data."
	default:
		return ev.Tier.Label() + " has the data you are looking for!"
	}
}
