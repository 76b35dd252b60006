package tss

import (
	"sort"
	"sync"

	"trailstate/server/internal/telemetry"
	"trailstate/server/simcontract"
)

const (
	pendingCommandsMetricKey = "tss_pending_commands_total"
	pendingRemovesMetricKey  = "tss_pending_removes_total"
	pendingAddsMetricKey     = "tss_pending_adds_total"
)

// PendingStore holds future removals, commands, and scheduled insertions,
// keyed by the frame they are destined for (spec §4.3). It is safe for
// concurrent readers (fast-forward workers) while the driver holds
// exclusive write access between FastForward calls.
type PendingStore struct {
	mu       sync.RWMutex
	removes  map[simcontract.Frame]map[simcontract.EntityID]struct{}
	commands map[simcontract.Frame][]simcontract.Command
	adds     map[simcontract.Frame]map[simcontract.EntityID]simcontract.EntitySnapshot
	metrics  telemetry.Metrics
}

// NewPendingStore constructs an empty pending event store.
func NewPendingStore(metrics telemetry.Metrics) *PendingStore {
	return &PendingStore{
		removes:  make(map[simcontract.Frame]map[simcontract.EntityID]struct{}),
		commands: make(map[simcontract.Frame][]simcontract.Command),
		adds:     make(map[simcontract.Frame]map[simcontract.EntityID]simcontract.EntitySnapshot),
		metrics:  metrics,
	}
}

// ScheduleRemove adds entityID to the removal set for frame. It fails with
// ErrInvalidTiming if frame is older than olderThan (the trailing frame at
// call time), and with ErrConflict if entityID is already scheduled for
// insertion at the same frame.
func (p *PendingStore) ScheduleRemove(entityID simcontract.EntityID, frame, olderThan simcontract.Frame) error {
	if frame < olderThan {
		return ErrInvalidTiming
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if adds, ok := p.adds[frame]; ok {
		if _, conflict := adds[entityID]; conflict {
			return ErrConflict
		}
	}
	set, ok := p.removes[frame]
	if !ok {
		set = make(map[simcontract.EntityID]struct{})
		p.removes[frame] = set
	}
	if _, exists := set[entityID]; !exists {
		set[entityID] = struct{}{}
		p.metrics.Add(pendingRemovesMetricKey, 1)
	}
	return nil
}

// ScheduleAdd stages an entity snapshot for insertion at frame. It fails
// with ErrInvalidTiming if frame is older than olderThan, and with
// ErrConflict if entityID is already scheduled for removal at the same
// frame.
func (p *PendingStore) ScheduleAdd(snapshot simcontract.EntitySnapshot, frame, olderThan simcontract.Frame) error {
	if frame < olderThan {
		return ErrInvalidTiming
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if removes, ok := p.removes[frame]; ok {
		if _, conflict := removes[snapshot.ID]; conflict {
			return ErrConflict
		}
	}
	set, ok := p.adds[frame]
	if !ok {
		set = make(map[simcontract.EntityID]simcontract.EntitySnapshot)
		p.adds[frame] = set
	}
	set[snapshot.ID] = snapshot
	p.metrics.Add(pendingAddsMetricKey, 1)
	return nil
}

// ScheduleCommand inserts cmd into the ordered command list for frame,
// maintaining ascending (PlayerNumber, CommandID) order. If an entry
// sharing cmd's key already exists, the tentative one is replaced by an
// authoritative incomer; otherwise the existing entry is kept. It fails
// with ErrInvalidTiming if frame is older than olderThan.
func (p *PendingStore) ScheduleCommand(cmd simcontract.Command, frame, olderThan simcontract.Frame) error {
	if frame < olderThan {
		return ErrInvalidTiming
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.commands[frame]
	idx := sort.Search(len(list), func(i int) bool { return !simcontract.Less(list[i], cmd) })
	if idx < len(list) && simcontract.SameKey(list[idx], cmd) {
		existing := list[idx]
		if !existing.IsAuthoritative && cmd.IsAuthoritative {
			list[idx] = cmd
		}
		return nil
	}

	list = append(list, simcontract.Command{})
	copy(list[idx+1:], list[idx:])
	list[idx] = cmd
	p.commands[frame] = list
	p.metrics.Add(pendingCommandsMetricKey, 1)
	return nil
}

// Prune removes every key older than olderThan from all three maps. Called
// exactly once per coordinator step after the trailing simulation advances.
func (p *PendingStore) Prune(olderThan simcontract.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for f := range p.removes {
		if f < olderThan {
			delete(p.removes, f)
		}
	}
	for f := range p.commands {
		if f < olderThan {
			delete(p.commands, f)
		}
	}
	for f := range p.adds {
		if f < olderThan {
			delete(p.adds, f)
		}
	}
}

// DrainFor returns the events scheduled for frame: the ordered command
// list, the set of entity IDs to remove, and the snapshots to insert. The
// returned slices are copies; the store's own state is unmodified (removal
// from the maps happens only via Prune).
func (p *PendingStore) DrainFor(frame simcontract.Frame) (commands []simcontract.Command, removes []simcontract.EntityID, adds []simcontract.EntitySnapshot) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if list := p.commands[frame]; len(list) > 0 {
		commands = append([]simcontract.Command(nil), list...)
	}
	if set := p.removes[frame]; len(set) > 0 {
		removes = make([]simcontract.EntityID, 0, len(set))
		for id := range set {
			removes = append(removes, id)
		}
		sort.Slice(removes, func(i, j int) bool { return removes[i] < removes[j] })
	}
	if set := p.adds[frame]; len(set) > 0 {
		adds = make([]simcontract.EntitySnapshot, 0, len(set))
		for _, snap := range set {
			adds = append(adds, snap)
		}
		sort.Slice(adds, func(i, j int) bool { return adds[i].ID < adds[j].ID })
	}
	return commands, removes, adds
}

// Merge folds another store's pending entries into p, keeping any locally
// generated command whose authority dominates the incoming one, and
// preserving every remove/add whose frame is still live. Used by
// Deserialize when merging a freshly decoded snapshot's pending events into
// the coordinator's own (spec §4.5).
func (p *PendingStore) Merge(other *PendingStore, olderThan simcontract.Frame) {
	if other == nil {
		return
	}
	other.mu.RLock()
	commandsByFrame := make(map[simcontract.Frame][]simcontract.Command, len(other.commands))
	for f, list := range other.commands {
		commandsByFrame[f] = append([]simcontract.Command(nil), list...)
	}
	removesByFrame := make(map[simcontract.Frame][]simcontract.EntityID)
	for f, set := range other.removes {
		ids := make([]simcontract.EntityID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		removesByFrame[f] = ids
	}
	addsByFrame := make(map[simcontract.Frame][]simcontract.EntitySnapshot)
	for f, set := range other.adds {
		snaps := make([]simcontract.EntitySnapshot, 0, len(set))
		for _, s := range set {
			snaps = append(snaps, s)
		}
		addsByFrame[f] = snaps
	}
	other.mu.RUnlock()

	for f, list := range commandsByFrame {
		if f < olderThan {
			continue
		}
		for _, cmd := range list {
			_ = p.ScheduleCommand(cmd, f, olderThan)
		}
	}
	for f, ids := range removesByFrame {
		if f < olderThan {
			continue
		}
		for _, id := range ids {
			_ = p.ScheduleRemove(id, f, olderThan)
		}
	}
	for f, snaps := range addsByFrame {
		if f < olderThan {
			continue
		}
		for _, snap := range snaps {
			_ = p.ScheduleAdd(snap, f, olderThan)
		}
	}
}
