// Package facade implements the entity-manager facade described in spec
// §4.6: reads are forwarded to the coordinator's leading simulation, writes
// are routed through the coordinator as scheduled events at the current
// frame, and system registration is a startup-only operation.
package facade

import (
	"trailstate/server/simcontract"
	"trailstate/server/tss"
)

// SystemKind distinguishes presentation-only systems, installed only in the
// leading slot, from logic systems that must run identically in every slot.
type SystemKind = simcontract.SystemKind

const (
	// SystemLogic must be cloned into every simulation slot.
	SystemLogic = simcontract.SystemLogic
	// SystemPresentation ("drawing system") is installed only in the
	// leading slot and never affects a trailing replica's hash.
	SystemPresentation = simcontract.SystemPresentation
)

// System is installed once, at startup, before any frame has advanced.
type System = simcontract.System

// Manager is the facade the host-facing code programs against instead of
// talking to the coordinator or a simulation's EntityManager directly.
type Manager struct {
	coord *tss.Coordinator
}

// New wraps coord.
func New(coord *tss.Coordinator) *Manager {
	return &Manager{coord: coord}
}

// RegisterSystem installs sys. Fails with tss.ErrInvalidTiming once the
// coordinator has advanced past frame 0 (spec §4.6). The coordinator itself
// applies logic systems to the trailing slot and lets the mirror operator's
// CopyInto carry them to every other slot, and applies presentation
// systems only to the leading slot.
func (m *Manager) RegisterSystem(sys System) error {
	return m.coord.RegisterSystem(sys)
}

// GetEntity forwards to the leading simulation's manager. Returns false if
// the coordinator is waiting for synchronization.
func (m *Manager) GetEntity(id simcontract.EntityID) (simcontract.EntitySnapshot, bool) {
	leading := m.coord.Leading()
	if leading == nil {
		return simcontract.EntitySnapshot{}, false
	}
	return leading.Manager().GetEntity(id)
}

// HasEntity forwards to the leading simulation's manager.
func (m *Manager) HasEntity(id simcontract.EntityID) bool {
	leading := m.coord.Leading()
	if leading == nil {
		return false
	}
	return leading.Manager().HasEntity(id)
}

// AddEntity schedules snapshot for insertion at the coordinator's current
// frame, the facade's equivalent of a direct add_entity call (spec §4.6).
func (m *Manager) AddEntity(snapshot simcontract.EntitySnapshot) error {
	return m.coord.ScheduleAdd(snapshot, m.coord.CurrentFrame())
}

// RemoveEntity schedules id for removal at the coordinator's current frame.
func (m *Manager) RemoveEntity(id simcontract.EntityID) error {
	return m.coord.RemoveEntity(id, m.coord.CurrentFrame())
}

// PushCommand schedules cmd for frame, the mutating counterpart to a raw
// command submission from a client or AI controller.
func (m *Manager) PushCommand(cmd simcontract.Command, frame simcontract.Frame) error {
	return m.coord.PushCommand(cmd, frame)
}
