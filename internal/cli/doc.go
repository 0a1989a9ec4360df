// Package cli wires together the Cobra command tree for the tiered binary.
//
// It defines the root command and the demo, read, resolve, clear-memory and
// reset subcommands, loads configuration from the environment, lets flags
// override it, and logs every tier event through slog.
package cli
