package tss

import (
	"bytes"
	"io"

	"trailstate/server/simcontract"
	"trailstate/server/wire"
)

// Serialize writes current_frame, the trailing simulation's own serialized
// form (length-prefixed so depacketize doesn't need to know its internal
// framing), and the three pending-event maps (spec §4.5, §6.6). It must not
// be called concurrently with FastForward.
func (c *Coordinator) Serialize(w io.Writer) error {
	c.mu.Lock()
	if c.waiting {
		c.mu.Unlock()
		return ErrNotReady
	}
	current := c.current
	trailing := c.arr.trailing()
	c.mu.Unlock()

	var simBuf bytes.Buffer
	if err := trailing.Serialize(&simBuf); err != nil {
		return ErrCodec
	}

	wr := wire.NewWriter(w)
	wr.WriteUint64(uint64(current))
	wr.WriteBytes(simBuf.Bytes())

	c.pending.writeRemoves(wr)
	c.pending.writeCommands(wr)
	c.pending.writeAdds(wr)

	if wr.Err() != nil {
		return ErrCodec
	}
	return nil
}

// Deserialize reads a snapshot produced by Serialize: it deserializes
// directly into the trailing slot, mirrors it forward, prunes past events,
// merges the incoming pending-event maps into the coordinator's own
// (preserving locally-generated entries that haven't been superseded), and
// clears WaitingForSync (spec §4.5).
func (c *Coordinator) Deserialize(r io.Reader, blank simcontract.Simulation) error {
	rd := wire.NewReader(r)
	current := simcontract.Frame(rd.ReadUint64())
	simBytes := rd.ReadBytes()
	if rd.Err() != nil {
		return ErrCodec
	}

	trailing := blank
	if trailing == nil {
		return ErrCodec
	}
	if err := trailing.Deserialize(bytes.NewReader(simBytes)); err != nil {
		return ErrCodec
	}

	incoming := NewPendingStore(c.pending.metrics)
	if err := incoming.readRemoves(rd); err != nil {
		return ErrCodec
	}
	if err := incoming.readCommands(rd); err != nil {
		return ErrCodec
	}
	if err := incoming.readAdds(rd); err != nil {
		return ErrCodec
	}
	if rd.Err() != nil {
		return ErrCodec
	}

	c.mu.Lock()
	c.arr.setTrailing(trailing)
	c.installLogicSystems(trailing)
	c.arr.mirror(trailing, c.arr.trailingIndex()-1)
	c.installPresentationSystems(c.arr.leading())
	c.current = current
	c.waiting = false
	c.mu.Unlock()

	c.pending.Prune(trailing.CurrentFrame())
	c.pending.Merge(incoming, trailing.CurrentFrame())
	return nil
}
