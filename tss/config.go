package tss

import "trailstate/server/simcontract"

// Config is the closed set of options recognized at coordinator
// construction (spec §6.7).
type Config struct {
	// Delays are the trailing depths beyond the leading slot, strictly
	// ascending. The coordinator prepends delay 0 (the leading slot)
	// internally; callers supply only the non-leading delays.
	Delays []simcontract.Frame

	// ParallelUpdate selects whether FastForward advances non-trailing
	// slots concurrently via a worker pool joined before returning.
	ParallelUpdate bool

	// InitialSnapshot, if present, seeds the coordinator exactly as an
	// Initialize call would.
	InitialSnapshot simcontract.Simulation
}

// allDelays returns the full ascending delay vector including the implicit
// leading delay of 0.
func (c Config) allDelays() []simcontract.Frame {
	out := make([]simcontract.Frame, 0, len(c.Delays)+1)
	out = append(out, 0)
	out = append(out, c.Delays...)
	return out
}
