package tss

import (
	"sort"

	"trailstate/server/simcontract"
	"trailstate/server/wire"
)

// writeRemoves writes: u32 removes.len, for each: u64 frame, u32 count,
// count×u64 entity_id (spec §6.6).
func (p *PendingStore) writeRemoves(wr *wire.Writer) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	frames := sortedFrames(p.removes)
	wr.WriteUint32(uint32(len(frames)))
	for _, f := range frames {
		ids := make([]simcontract.EntityID, 0, len(p.removes[f]))
		for id := range p.removes[f] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		wr.WriteUint64(uint64(f))
		wr.WriteUint32(uint32(len(ids)))
		for _, id := range ids {
			wr.WriteUint64(uint64(id))
		}
	}
}

// readRemoves reads the block writeRemoves produces and schedules every
// entry into p directly (bypassing timing checks: a freshly decoded
// snapshot's own removes are always in-range relative to itself).
func (p *PendingStore) readRemoves(rd *wire.Reader) error {
	n := rd.ReadUint32()
	for i := uint32(0); i < n; i++ {
		frame := simcontract.Frame(rd.ReadUint64())
		count := rd.ReadUint32()
		for j := uint32(0); j < count; j++ {
			id := simcontract.EntityID(rd.ReadUint64())
			if rd.Err() != nil {
				return rd.Err()
			}
			_ = p.ScheduleRemove(id, frame, frame)
		}
	}
	return rd.Err()
}

// writeAdds writes: u32 adds.len, for each: u64 frame, u32 count, count×(u64
// entity_id, bytes payload). Present only in variants permitting scheduled
// insertion (spec §6.6); this build always includes the block, writing a
// zero-length one when empty.
func (p *PendingStore) writeAdds(wr *wire.Writer) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	frames := sortedFrames(p.adds)
	wr.WriteUint32(uint32(len(frames)))
	for _, f := range frames {
		set := p.adds[f]
		snaps := make([]simcontract.EntitySnapshot, 0, len(set))
		for _, s := range set {
			snaps = append(snaps, s)
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })

		wr.WriteUint64(uint64(f))
		wr.WriteUint32(uint32(len(snaps)))
		for _, s := range snaps {
			wr.WriteUint64(uint64(s.ID))
			wr.WriteBytes(s.Payload)
		}
	}
}

func (p *PendingStore) readAdds(rd *wire.Reader) error {
	n := rd.ReadUint32()
	for i := uint32(0); i < n; i++ {
		frame := simcontract.Frame(rd.ReadUint64())
		count := rd.ReadUint32()
		for j := uint32(0); j < count; j++ {
			id := simcontract.EntityID(rd.ReadUint64())
			payload := rd.ReadBytes()
			if rd.Err() != nil {
				return rd.Err()
			}
			_ = p.ScheduleAdd(simcontract.EntitySnapshot{ID: id, Payload: payload}, frame, frame)
		}
	}
	return rd.Err()
}

// writeCommands writes: u32 commands.len, for each: u64 frame, u32 count,
// count×Command (spec §6.6 tagged_list<Command>).
func (p *PendingStore) writeCommands(wr *wire.Writer) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	frames := sortedFrames(p.commands)
	wr.WriteUint32(uint32(len(frames)))
	for _, f := range frames {
		list := p.commands[f]
		wr.WriteUint64(uint64(f))
		wr.WriteUint32(uint32(len(list)))
		for _, cmd := range list {
			wr.WriteUint64(cmd.PlayerNumber)
			wr.WriteUint64(cmd.CommandID)
			wr.WriteBytes([]byte(cmd.Type))
			wr.WriteBool(cmd.IsAuthoritative)
			wr.WriteBytes(cmd.Payload)
		}
	}
}

func (p *PendingStore) readCommands(rd *wire.Reader) error {
	n := rd.ReadUint32()
	for i := uint32(0); i < n; i++ {
		frame := simcontract.Frame(rd.ReadUint64())
		count := rd.ReadUint32()
		for j := uint32(0); j < count; j++ {
			cmd := simcontract.Command{
				PlayerNumber: rd.ReadUint64(),
				CommandID:    rd.ReadUint64(),
			}
			cmd.Type = simcontract.CommandType(rd.ReadBytes())
			cmd.IsAuthoritative = rd.ReadBool()
			cmd.Payload = rd.ReadBytes()
			if rd.Err() != nil {
				return rd.Err()
			}
			_ = p.ScheduleCommand(cmd, frame, frame)
		}
	}
	return rd.Err()
}

func sortedFrames[V any](m map[simcontract.Frame]V) []simcontract.Frame {
	frames := make([]simcontract.Frame, 0, len(m))
	for f := range m {
		frames = append(frames, f)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })
	return frames
}
