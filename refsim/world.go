package refsim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"trailstate/server/simcontract"
)

// World is the reference Simulation implementation. Entity IDs are
// allocated from a per-instance counter rather than a process-wide atomic,
// so two peers that reconstruct the same snapshot and apply the same adds
// produce identical IDs (spec's rejected "global counters" variant).
type World struct {
	frame      simcontract.Frame
	nextEntity simcontract.EntityID
	entities   map[simcontract.EntityID]*Entity
	queued     []simcontract.Command

	seed       string
	rngFactory RNGFactory
	systems    []simcontract.System
}

// NewWorld returns an empty world at frame 0, seeded with DefaultSeed.
func NewWorld() *World {
	return NewWorldWithSeed(DefaultSeed)
}

// NewWorldWithSeed returns an empty world at frame 0 whose subsystem RNGs
// are all derived from seed, mirroring the teacher's per-world RNG root.
func NewWorldWithSeed(seed string) *World {
	return &World{
		entities:   make(map[simcontract.EntityID]*Entity),
		seed:       seed,
		rngFactory: NewDeterministicRNG,
	}
}

// SubsystemRNG returns a deterministic RNG derived from the world's seed and
// label. It is rebuilt fresh from (seed, label) on every call rather than
// threaded through as mutable state, so CopyInto only needs to carry the
// seed string for two replicas to draw identical sequences under the same
// label.
func (w *World) SubsystemRNG(label string) *rand.Rand {
	seed := w.seed
	if seed == "" {
		seed = DefaultSeed
	}
	factory := w.rngFactory
	if factory == nil {
		factory = NewDeterministicRNG
	}
	return factory(seed, label)
}

// InstallSystem implements simcontract.SystemHost. Installation is
// idempotent by name: re-registering a name already installed (as happens
// when Deserialize reinstalls logic systems already carried in the wire
// payload) replaces rather than duplicates the entry.
func (w *World) InstallSystem(sys simcontract.System) error {
	for i, existing := range w.systems {
		if existing.Name == sys.Name {
			w.systems[i] = sys
			return nil
		}
	}
	w.systems = append(w.systems, sys)
	return nil
}

// Systems returns the systems installed on this replica.
func (w *World) Systems() []simcontract.System {
	return append([]simcontract.System(nil), w.systems...)
}

// CurrentFrame implements simcontract.Simulation.
func (w *World) CurrentFrame() simcontract.Frame { return w.frame }

// PushCommand implements simcontract.Simulation, preserving ascending
// (PlayerNumber, CommandID) order and authoritative-over-tentative
// replacement, mirroring tss.PendingStore.ScheduleCommand's discipline at
// the per-tick level.
func (w *World) PushCommand(cmd simcontract.Command) {
	idx := sort.Search(len(w.queued), func(i int) bool { return !simcontract.Less(w.queued[i], cmd) })
	if idx < len(w.queued) && simcontract.SameKey(w.queued[idx], cmd) {
		existing := w.queued[idx]
		if !existing.IsAuthoritative && cmd.IsAuthoritative {
			w.queued[idx] = cmd
		}
		return
	}
	w.queued = append(w.queued, simcontract.Command{})
	copy(w.queued[idx+1:], w.queued[idx:])
	w.queued[idx] = cmd
}

// Step implements simcontract.Simulation: applies every queued command in
// order, clears the queue, and advances the frame by one.
func (w *World) Step() {
	for _, cmd := range w.queued {
		w.apply(cmd)
	}
	w.queued = w.queued[:0]
	w.frame++
}

// SkipNonAuthoritativeCommands implements simcontract.Simulation.
func (w *World) SkipNonAuthoritativeCommands() bool {
	removed := false
	kept := w.queued[:0]
	for _, cmd := range w.queued {
		if cmd.IsAuthoritative {
			kept = append(kept, cmd)
		} else {
			removed = true
		}
	}
	w.queued = kept
	return removed
}

// Manager implements simcontract.Simulation.
func (w *World) Manager() simcontract.EntityManager { return &manager{world: w} }

// NewInstance implements simcontract.Simulation.
func (w *World) NewInstance() simcontract.Simulation { return NewWorld() }

// CopyInto implements simcontract.Simulation: a bit-identical deep copy of
// entities and the command queue into dest.
func (w *World) CopyInto(dest simcontract.Simulation) error {
	d, ok := dest.(*World)
	if !ok {
		return errNotAWorld
	}
	d.frame = w.frame
	d.nextEntity = w.nextEntity
	d.entities = make(map[simcontract.EntityID]*Entity, len(w.entities))
	for id, e := range w.entities {
		d.entities[id] = e.clone()
	}
	d.queued = append(d.queued[:0], w.queued...)
	d.seed = w.seed
	d.rngFactory = w.rngFactory
	d.systems = append(d.systems[:0], w.systems...)
	return nil
}

func (w *World) apply(cmd simcontract.Command) {
	switch cmd.Type {
	case CommandMove:
		var p MovePayload
		if decode(cmd.Payload, &p) == nil {
			if e := w.entities[simcontract.EntityID(cmd.PlayerNumber)]; e != nil {
				e.X += p.DX
				e.Y += p.DY
			}
		}
	case CommandDamage:
		var p DamagePayload
		if decode(cmd.Payload, &p) == nil {
			if e := w.entities[p.Target]; e != nil {
				e.Health -= p.Amount
				if e.Health > e.MaxHealth {
					e.Health = e.MaxHealth
				}
			}
		}
	case CommandSetAttribute:
		var p SetAttributePayload
		if decode(cmd.Payload, &p) == nil {
			if e := w.entities[simcontract.EntityID(cmd.PlayerNumber)]; e != nil {
				if e.Attributes == nil {
					e.Attributes = make(map[string]float64)
				}
				e.Attributes[p.Name] = p.Value
			}
		}
	case CommandScatter:
		var p ScatterPayload
		if decode(cmd.Payload, &p) == nil {
			if e := w.entities[simcontract.EntityID(cmd.PlayerNumber)]; e != nil {
				label := fmt.Sprintf("scatter:%d:%d", w.frame, cmd.PlayerNumber)
				angle := w.SubsystemRNG(label).Float64() * 2 * math.Pi
				e.X += math.Cos(angle) * p.Radius
				e.Y += math.Sin(angle) * p.Radius
			}
		}
	case CommandHeartbeat:
		// No world effect; exists to exercise tentative-command pruning
		// without mutating state.
	}
}
