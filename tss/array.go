package tss

import "trailstate/server/simcontract"

// array is the fixed-size, ascending-delay-ordered list of simulation
// instances the coordinator drives (spec §4.2). Index 0 is the leading
// simulation (delay 0); the last index is the trailing simulation.
type array struct {
	delays []simcontract.Frame
	sims   []simcontract.Simulation
}

func newArray(delays []simcontract.Frame) *array {
	return &array{
		delays: delays,
		sims:   make([]simcontract.Simulation, len(delays)),
	}
}

func (a *array) len() int { return len(a.sims) }

func (a *array) trailingIndex() int { return len(a.sims) - 1 }

func (a *array) trailing() simcontract.Simulation { return a.sims[a.trailingIndex()] }

func (a *array) leading() simcontract.Simulation { return a.sims[0] }

func (a *array) delay(i int) simcontract.Frame { return a.delays[i] }

// setTrailing installs sim as the trailing slot directly (used only by
// Initialize/Deserialize).
func (a *array) setTrailing(sim simcontract.Simulation) {
	a.sims[a.trailingIndex()] = sim
}

// mirror bit-identically copies src := sims[start+1] into sims[start],
// sims[start-1], ..., sims[0], allocating any nil slot via NewInstance
// first. After the call every slot in [0, start] shares src's frame (spec
// §4.2).
func (a *array) mirror(src simcontract.Simulation, start int) {
	for i := start; i >= 0; i-- {
		if a.sims[i] == nil {
			a.sims[i] = src.NewInstance()
		}
		_ = src.CopyInto(a.sims[i])
	}
}
