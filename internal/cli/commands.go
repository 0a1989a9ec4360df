package cli

import (
	"fmt"

	"github.com/goforj/tiered"
	"github.com/spf13/cobra"
)

func (a *app) demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Reset the tiers and walk through network, memory and disk hits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withResolver(cmd.Context(), func(r *tiered.Resolver) error {
				ctx := cmd.Context()
				if err := r.Reset(ctx); err != nil {
					return fmt.Errorf("reset: %w", err)
				}
				for i := 0; i < 3; i++ {
					if i == 2 {
						if err := r.ClearMemory(ctx); err != nil {
							return err
						}
					}
					rec, tier, err := r.Resolve(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Request %d: %s (from %s)\n", i+1, rec.Payload, tier)
				}
				return nil
			})
		},
	}
}

func (a *app) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "read <memory|disk|network>",
		Short:     "Read a single tier",
		Long: `Read a single tier.

The memory tier lives only as long as one invocation, so "read memory" always
reports absent. Disk and the network request counter persist between runs.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(tiered.TierMemory), string(tiered.TierDisk), string(tiered.TierNetwork)},
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := tiered.ParseTier(args[0])
			if err != nil {
				return usageError{err}
			}
			return a.withResolver(cmd.Context(), func(r *tiered.Resolver) error {
				rec, ok, err := r.Read(cmd.Context(), tier)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(a.out, "%s: absent\n", tier)
					return nil
				}
				fmt.Fprintf(a.out, "%s: %s\n", tier, rec.Payload)
				return nil
			})
		},
	}
}

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Return the first fresh record from memory, disk or network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withResolver(cmd.Context(), func(r *tiered.Resolver) error {
				rec, tier, err := r.Resolve(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s (from %s)\n", rec.Payload, tier)
				return nil
			})
		},
	}
}

func (a *app) clearMemoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-memory",
		Short: "Drop the memory slot of this process and keep the disk slot",
		Long: `Drop the memory slot and keep the disk slot.

Memory is private to one invocation and starts empty, so on its own this only
logs the wipe. "tiered demo" clears memory between reads within one process.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withResolver(cmd.Context(), func(r *tiered.Resolver) error {
				return r.ClearMemory(cmd.Context())
			})
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Empty both slots and restart the request counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withResolver(cmd.Context(), func(r *tiered.Resolver) error {
				if err := r.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Tiers reset.")
				return nil
			})
		},
	}
}
