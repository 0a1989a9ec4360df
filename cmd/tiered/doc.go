// Tiered is a CLI for the memory, disk and network source resolver.
//
// Memory lives only for one invocation, so state carried between runs sits in
// the disk tier and the request counter (file driver by default).
//
// Usage:
//
//	tiered demo                    # network, then memory, then disk after a wipe
//	tiered read disk               # read one tier; memory starts empty each run
//	tiered resolve                 # first fresh record, fastest tier first
//	tiered clear-memory            # drop this process's memory slot
//	tiered reset                   # empty both slots and the counter
//
// Backends are chosen with TIERED_DISK_DRIVER and TIERED_COUNTER_DRIVER or the
// matching --disk-driver and --counter-driver flags.
package main
