package refsim

import (
	"sort"

	"trailstate/server/simcontract"
)

// Hash implements simcontract.Simulation: it feeds the frame, every entity
// sorted by ID, the installed systems sorted by name, and the RNG seed into
// h. Map iteration order is otherwise undefined in Go, so sorting first is
// what makes the digest reproducible.
func (w *World) Hash(h simcontract.Hasher) {
	h.WriteUint64(uint64(w.frame))

	ids := make([]simcontract.EntityID, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	h.WriteUint64(uint64(len(ids)))
	for _, id := range ids {
		e := w.entities[id]
		h.WriteUint64(uint64(e.ID))
		h.WriteUint64(floatBits(e.X))
		h.WriteUint64(floatBits(e.Y))
		h.WriteUint64(floatBits(e.Health))
		h.WriteUint64(floatBits(e.MaxHealth))

		names := make([]string, 0, len(e.Attributes))
		for name := range e.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		h.WriteUint64(uint64(len(names)))
		for _, name := range names {
			h.WriteBytes([]byte(name))
			h.WriteUint64(floatBits(e.Attributes[name]))
		}
	}

	systems := append([]simcontract.System(nil), w.systems...)
	sort.Slice(systems, func(i, j int) bool { return systems[i].Name < systems[j].Name })
	h.WriteUint64(uint64(len(systems)))
	for _, sys := range systems {
		h.WriteBytes([]byte(sys.Name))
		h.WriteUint64(uint64(sys.Kind))
	}

	seed := w.seed
	if seed == "" {
		seed = DefaultSeed
	}
	h.WriteBytes([]byte(seed))
}
