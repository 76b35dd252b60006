package tss

import "errors"

// Error kinds surfaced at the coordinator boundary (spec §7).
var (
	// ErrNotReady is returned when a mutating operation is invoked while
	// the coordinator is waiting for synchronization.
	ErrNotReady = errors.New("tss: coordinator is waiting for synchronization")

	// ErrInvalidTiming is returned when a schedule request targets a frame
	// older than the trailing simulation's current frame.
	ErrInvalidTiming = errors.New("tss: frame is older than the trailing simulation")

	// ErrConflict is returned when a caller attempts to schedule an add and
	// a remove for the same entity at the same frame.
	ErrConflict = errors.New("tss: entity already scheduled for the opposite operation at this frame")

	// ErrCodec is returned when a snapshot fails to deserialize.
	ErrCodec = errors.New("tss: malformed snapshot")
)
