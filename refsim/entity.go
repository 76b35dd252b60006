// Package refsim is a reference authoritative simulation satisfying
// simcontract.Simulation: a small arena of entities with position, health,
// and free-form attributes, driven by commands the TSS coordinator
// schedules. It exists to exercise the coordinator end to end and as a
// template for a real game simulation's own contract implementation.
package refsim

import "trailstate/server/simcontract"

// Entity is one arena member. Attributes holds anything a command wants to
// mutate that doesn't warrant its own field (buffs, counters, flags encoded
// as 0/1).
type Entity struct {
	ID         simcontract.EntityID `json:"id"`
	X          float64              `json:"x"`
	Y          float64              `json:"y"`
	Health     float64              `json:"health"`
	MaxHealth  float64              `json:"maxHealth"`
	Attributes map[string]float64   `json:"attributes,omitempty"`
}

func (e *Entity) clone() *Entity {
	cp := *e
	if e.Attributes != nil {
		cp.Attributes = make(map[string]float64, len(e.Attributes))
		for k, v := range e.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}
