// Package simcontract defines the authoritative-simulation contract (the
// minimum behavior any concrete world simulation must satisfy for the TSS
// coordinator to drive it) and the entity-manager surface the coordinator's
// facade forwards read operations to.
package simcontract

// Frame is a non-negative, monotonically increasing unit of simulation time.
type Frame uint64

// EntityID identifies an entity within a simulation's entity manager.
type EntityID uint64
