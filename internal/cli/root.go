package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goforj/tiered"
	"github.com/goforj/tiered/internal/config"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess      = 0
	ExitRuntimeError = 1
	ExitUsageError   = 2
)

// Run executes the command tree with args and returns an exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return ExitUsageError
	}
	root := newRootCmd(&cfg, stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		var re runtimeError
		if errors.As(err, &re) {
			return ExitRuntimeError
		}
		return ExitUsageError
	}
	return ExitSuccess
}

// usageError marks bad input; runtimeError marks a failure after the
// resolver was opened.
type (
	usageError   struct{ error }
	runtimeError struct{ error }
)

func (e usageError) Unwrap() error   { return e.error }
func (e runtimeError) Unwrap() error { return e.error }

func newRootCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "tiered",
		Short:         "Resolve a record through memory, disk and network tiers",
		Long:          "tiered reads a single record slot from memory, then disk, then a simulated network origin, writing network and disk results through to the faster tiers.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DiskDriver, "disk-driver", cfg.DiskDriver, "disk tier driver (file, memory, null, redis, nats, sql, dynamodb)")
	flags.StringVar(&cfg.CounterDriver, "counter-driver", cfg.CounterDriver, "network request counter driver")
	flags.StringVar(&cfg.FileDir, "file-dir", cfg.FileDir, "directory for the file driver")
	flags.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "key prefix on shared backends")
	flags.DurationVar(&cfg.StaleAfter, "stale-after", cfg.StaleAfter, "report memory and disk records older than this as stale (0 disables)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	flags.BoolVar(&cfg.Quiet, "quiet", cfg.Quiet, "suppress tier event logs")

	app := &app{cfg: cfg, out: stdout}
	root.AddCommand(
		app.demoCmd(),
		app.readCmd(),
		app.resolveCmd(),
		app.clearMemoryCmd(),
		app.resetCmd(),
	)
	return root
}

// app opens a resolver per command invocation.
type app struct {
	cfg *config.Config
	out io.Writer
}

func (a *app) logger() *slog.Logger {
	if a.cfg.Quiet {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if a.cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(a.out, nil))
	}
	return slog.New(slog.NewTextHandler(a.out, nil))
}

func (a *app) withResolver(ctx context.Context, fn func(r *tiered.Resolver) error) error {
	r, backends, err := a.cfg.Open(ctx, tiered.NewLogObserver(a.logger()))
	if err != nil {
		return runtimeError{fmt.Errorf("open resolver: %w", err)}
	}
	defer backends.Close()
	if err := fn(r); err != nil {
		return runtimeError{err}
	}
	return nil
}
