package tiered

import (
	"errors"
	"fmt"
	"strings"
)

// Tier names one of the three sources in the fallback hierarchy.
type Tier string

const (
	TierMemory  Tier = "memory"
	TierDisk    Tier = "disk"
	TierNetwork Tier = "network"
)

// Tiers lists the hierarchy from fastest to slowest.
var Tiers = []Tier{TierMemory, TierDisk, TierNetwork}

var ErrUnknownTier = errors.New("tiered: unknown tier")

// ParseTier resolves a case-insensitive tier name.
func ParseTier(name string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(name))); t {
	case TierMemory, TierDisk, TierNetwork:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, name)
	}
}

// Label is the upper-case name used in diagnostics.
func (t Tier) Label() string {
	return strings.ToUpper(string(t))
}

// Outcome classifies the result of a tier read.
type Outcome int

const (
	OutcomeAbsent Outcome = iota
	OutcomeStale
	OutcomeFresh
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAbsent:
		return "no data"
	case OutcomeStale:
		return "stale data"
	case OutcomeFresh:
		return "has the data"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func classify(rec Record, ok bool) Outcome {
	switch {
	case !ok:
		return OutcomeAbsent
	case !rec.UpToDate():
		return OutcomeStale
	default:
		return OutcomeFresh
	}
}
