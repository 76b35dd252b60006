package simcontract

// Hasher accepts the deterministic byte and integer stream a Simulation
// feeds it from Hash. Two simulations yield equal digests from their
// underlying hash.Hash64 iff they are observationally equivalent.
type Hasher interface {
	WriteBytes(b []byte)
	WriteUint64(v uint64)
}
