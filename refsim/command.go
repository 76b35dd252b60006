package refsim

import (
	"encoding/json"

	"trailstate/server/simcontract"
)

// Command type tags recognized by World.apply. Unrecognized tags are
// ignored, matching the teacher's tolerant dispatch in its own command
// switch.
const (
	CommandMove         simcontract.CommandType = "move"
	CommandDamage       simcontract.CommandType = "damage"
	CommandSetAttribute simcontract.CommandType = "set_attribute"
	CommandScatter      simcontract.CommandType = "scatter"
	CommandHeartbeat    simcontract.CommandType = "heartbeat"
)

// MovePayload carries a displacement applied to the entity identified by a
// command's PlayerNumber.
type MovePayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// DamagePayload reduces (or, negative, restores) a target entity's health.
type DamagePayload struct {
	Target simcontract.EntityID `json:"target"`
	Amount float64              `json:"amount"`
}

// SetAttributePayload writes a single named attribute on the acting entity.
type SetAttributePayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ScatterPayload displaces the acting entity by Radius in a direction drawn
// from the world's own deterministic per-frame, per-entity RNG (World.
// SubsystemRNG), rather than a fixed offset like MovePayload.
type ScatterPayload struct {
	Radius float64 `json:"radius"`
}

// EncodeMove builds a move command for entity PlayerNumber.
func EncodeMove(playerNumber, commandID uint64, authoritative bool, dx, dy float64) simcontract.Command {
	return encode(playerNumber, commandID, authoritative, CommandMove, MovePayload{DX: dx, DY: dy})
}

// EncodeDamage builds a damage command issued by playerNumber against target.
func EncodeDamage(playerNumber, commandID uint64, authoritative bool, target simcontract.EntityID, amount float64) simcontract.Command {
	return encode(playerNumber, commandID, authoritative, CommandDamage, DamagePayload{Target: target, Amount: amount})
}

// EncodeSetAttribute builds an attribute-write command for entity PlayerNumber.
func EncodeSetAttribute(playerNumber, commandID uint64, authoritative bool, name string, value float64) simcontract.Command {
	return encode(playerNumber, commandID, authoritative, CommandSetAttribute, SetAttributePayload{Name: name, Value: value})
}

// EncodeScatter builds a scatter command for entity PlayerNumber.
func EncodeScatter(playerNumber, commandID uint64, authoritative bool, radius float64) simcontract.Command {
	return encode(playerNumber, commandID, authoritative, CommandScatter, ScatterPayload{Radius: radius})
}

func encode(playerNumber, commandID uint64, authoritative bool, typ simcontract.CommandType, payload any) simcontract.Command {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return simcontract.Command{
		PlayerNumber:    playerNumber,
		CommandID:       commandID,
		Type:            typ,
		IsAuthoritative: authoritative,
		Payload:         body,
	}
}
