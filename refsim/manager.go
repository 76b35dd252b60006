package refsim

import "trailstate/server/simcontract"

// manager is the per-World EntityManager. The entity-manager facade
// forwards reads to the leading World's manager and routes writes through
// the coordinator instead, per spec §4.6.
type manager struct {
	world *World
}

// AddEntity implements simcontract.EntityManager. If snapshot.ID is zero
// (unset), a fresh ID is allocated from the world's own counter; otherwise
// the caller's ID is honored as-is (used when replaying a scheduled
// insertion that already carries the ID assigned at schedule time).
func (m *manager) AddEntity(snapshot simcontract.EntitySnapshot) simcontract.EntityID {
	id := snapshot.ID
	if id == 0 {
		m.world.nextEntity++
		id = m.world.nextEntity
	} else if id > m.world.nextEntity {
		m.world.nextEntity = id
	}
	e := &Entity{ID: id}
	if len(snapshot.Payload) > 0 {
		var decoded Entity
		if decode(snapshot.Payload, &decoded) == nil {
			e.X, e.Y = decoded.X, decoded.Y
			e.Health, e.MaxHealth = decoded.Health, decoded.MaxHealth
			e.Attributes = decoded.Attributes
		}
	}
	if e.MaxHealth == 0 {
		e.MaxHealth = 100
		e.Health = 100
	}
	m.world.entities[id] = e
	return id
}

// RemoveEntity implements simcontract.EntityManager.
func (m *manager) RemoveEntity(id simcontract.EntityID) {
	delete(m.world.entities, id)
}

// GetEntity implements simcontract.EntityManager.
func (m *manager) GetEntity(id simcontract.EntityID) (simcontract.EntitySnapshot, bool) {
	e, ok := m.world.entities[id]
	if !ok {
		return simcontract.EntitySnapshot{}, false
	}
	body, err := encodeEntity(e)
	if err != nil {
		return simcontract.EntitySnapshot{}, false
	}
	return simcontract.EntitySnapshot{ID: id, Payload: body}, true
}

// HasEntity implements simcontract.EntityManager.
func (m *manager) HasEntity(id simcontract.EntityID) bool {
	_, ok := m.world.entities[id]
	return ok
}
