package simcontract

import "io"

// Simulation is the authoritative-simulation contract: a value-typed world
// replica the TSS coordinator steps, clones, and hashes. Concrete
// simulations must satisfy the determinism obligation described in
// package-level docs: for any two simulations A and B with equal hashes, an
// identical sequence of PushCommand/Step calls on both preserves equal
// hashes.
type Simulation interface {
	// CurrentFrame reports the frame this simulation last completed a Step
	// into. It is monotonically non-decreasing.
	CurrentFrame() Frame

	// PushCommand enqueues cmd to be applied on the next Step. A previously
	// queued command sharing cmd's (PlayerNumber, CommandID) is replaced
	// only if cmd.IsAuthoritative and the existing entry is not.
	PushCommand(cmd Command)

	// Step advances CurrentFrame by exactly one, applies every queued
	// command, then advances registered systems by one tick. Application
	// order must not affect the resulting world state for any permutation
	// of a set of non-equal commands.
	Step()

	// SkipNonAuthoritativeCommands removes every currently queued command
	// whose IsAuthoritative flag is false and reports whether any were
	// removed.
	SkipNonAuthoritativeCommands() bool

	// CopyInto overwrites dest with a bit-identical deep copy of this
	// simulation. dest must have been produced by NewInstance on a
	// simulation of the same concrete type.
	CopyInto(dest Simulation) error

	// NewInstance produces an empty simulation of the same concrete type,
	// ready to receive a CopyInto.
	NewInstance() Simulation

	// Manager exposes the entity manager backing this simulation instance.
	Manager() EntityManager

	// Hash feeds deterministic bytes into h such that two simulations
	// yield equal hashes iff they are observationally equivalent.
	Hash(h Hasher)

	// Serialize writes a lossless encoding of this simulation to w.
	Serialize(w io.Writer) error

	// Deserialize replaces this simulation's state with the encoding read
	// from r, previously produced by Serialize.
	Deserialize(r io.Reader) error
}
