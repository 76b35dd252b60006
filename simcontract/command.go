package simcontract

// CommandType is an opaque tag identifying what a command's payload means to
// the concrete simulation. It plays no part in command equality or order.
type CommandType string

// Command is a serializable intent captured for application on a
// simulation's next step. Equality and ordering are defined solely by
// (PlayerNumber, CommandID); the Type tag and Payload are not part of either.
type Command struct {
	PlayerNumber    uint64
	CommandID       uint64
	Type            CommandType
	IsAuthoritative bool
	Payload         []byte
}

// Key returns the (PlayerNumber, CommandID) pair that identifies a command
// for equality, ordering, and replacement purposes.
func (c Command) Key() (uint64, uint64) {
	return c.PlayerNumber, c.CommandID
}

// Less reports whether a sorts strictly before b under the ascending
// (PlayerNumber, CommandID) order the pending event store and the
// authoritative simulation must both honor.
func Less(a, b Command) bool {
	if a.PlayerNumber != b.PlayerNumber {
		return a.PlayerNumber < b.PlayerNumber
	}
	return a.CommandID < b.CommandID
}

// SameKey reports whether a and b identify the same logical command slot,
// regardless of authority, type, or payload.
func SameKey(a, b Command) bool {
	ap, ac := a.Key()
	bp, bc := b.Key()
	return ap == bp && ac == bc
}
