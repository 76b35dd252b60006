package tss

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"trailstate/server/internal/telemetry"
	"trailstate/server/simcontract"
	"trailstate/server/tsslog"
)

// Coordinator is the TSS state machine (spec §4.4): it owns the simulation
// array, the pending event store, and the current frame, and orchestrates
// advancing, rewinding, and invalidating them. All mutating methods must be
// invoked from a single driver goroutine; FastForward may internally
// parallelize across non-trailing slots but always joins before returning.
type Coordinator struct {
	mu sync.Mutex

	cfg     Config
	arr     *array
	pending *PendingStore
	current simcontract.Frame
	waiting bool

	publisher tsslog.Publisher
	logger    telemetry.Logger

	handlersMu sync.Mutex
	handlers   []InvalidatedHandler

	systemsMu           sync.Mutex
	pendingLogic        []simcontract.System
	pendingPresentation []simcontract.System
}

// New constructs a Coordinator in the WaitingForSync state. Initialize or
// Deserialize must be called before any other mutating method succeeds.
func New(cfg Config, publisher tsslog.Publisher, metrics telemetry.Metrics) *Coordinator {
	if publisher == nil {
		publisher = tsslog.NopPublisher{}
	}
	if metrics == nil {
		metrics = telemetry.WrapMetrics(nil)
	}
	delays := cfg.allDelays()
	c := &Coordinator{
		cfg:       cfg,
		arr:       newArray(delays),
		pending:   NewPendingStore(metrics),
		waiting:   true,
		publisher: publisher,
	}
	if cfg.InitialSnapshot != nil {
		_ = c.Initialize(cfg.InitialSnapshot)
	}
	return c
}

// OnInvalidated registers a handler invoked synchronously whenever the
// coordinator invalidates, before the triggering call returns.
func (c *Coordinator) OnInvalidated(h InvalidatedHandler) {
	if h == nil {
		return
	}
	c.handlersMu.Lock()
	c.handlers = append(c.handlers, h)
	c.handlersMu.Unlock()
}

// Waiting reports whether the coordinator is in WaitingForSync.
func (c *Coordinator) Waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

// CurrentFrame reports the coordinator's current frame.
func (c *Coordinator) CurrentFrame() simcontract.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Leading exposes the delay-0 simulation for the entity-manager facade's
// read operations. Returns nil while WaitingForSync.
func (c *Coordinator) Leading() simcontract.Simulation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiting {
		return nil
	}
	return c.arr.leading()
}

// Trailing exposes the highest-delay simulation, the one serialize streams
// out and the one determinism comparisons hash against (spec §8). Returns
// nil while WaitingForSync.
func (c *Coordinator) Trailing() simcontract.Simulation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiting {
		return nil
	}
	return c.arr.trailing()
}

// RegisterSystem records sys for installation at the next Initialize or
// Deserialize. It fails with ErrInvalidTiming once current_frame has
// advanced past zero (spec §4.6): system registration is a startup-only
// operation. Logic systems are applied to the trailing simulation and
// carried to every other slot by the mirror operator's own CopyInto, the
// simulation's "copy_system or equivalent"; presentation systems are
// applied only to the leading slot, after mirroring, so they never reach a
// trailing replica or affect its hash.
func (c *Coordinator) RegisterSystem(sys simcontract.System) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current > 0 {
		return ErrInvalidTiming
	}

	c.systemsMu.Lock()
	defer c.systemsMu.Unlock()
	if sys.Kind == simcontract.SystemPresentation {
		c.pendingPresentation = append(c.pendingPresentation, sys)
	} else {
		c.pendingLogic = append(c.pendingLogic, sys)
	}
	return nil
}

// installLogicSystems applies every registered logic system to sim. Called
// on the trailing slot before it is mirrored, so every other slot inherits
// the installation as part of the ordinary CopyInto the mirror operator
// already performs.
func (c *Coordinator) installLogicSystems(sim simcontract.Simulation) {
	c.systemsMu.Lock()
	logic := append([]simcontract.System(nil), c.pendingLogic...)
	c.systemsMu.Unlock()

	host, ok := sim.(simcontract.SystemHost)
	if !ok {
		return
	}
	for _, sys := range logic {
		_ = host.InstallSystem(sys)
	}
}

// installPresentationSystems applies every registered presentation system
// to sim. Called only on the leading slot, after mirroring, so a
// presentation system never reaches a trailing replica or affects its
// hash.
func (c *Coordinator) installPresentationSystems(sim simcontract.Simulation) {
	c.systemsMu.Lock()
	presentation := append([]simcontract.System(nil), c.pendingPresentation...)
	c.systemsMu.Unlock()

	host, ok := sim.(simcontract.SystemHost)
	if !ok {
		return
	}
	for _, sys := range presentation {
		_ = host.InstallSystem(sys)
	}
}

// Initialize seeds the trailing slot from trailingSim, mirrors it forward
// through every shallower slot, and clears WaitingForSync (spec §4.4).
func (c *Coordinator) Initialize(trailingSim simcontract.Simulation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arr.setTrailing(trailingSim)
	c.installLogicSystems(trailingSim)
	c.arr.mirror(trailingSim, c.arr.trailingIndex()-1)
	c.installPresentationSystems(c.arr.leading())
	c.current = trailingSim.CurrentFrame() + c.arr.delay(c.arr.trailingIndex())
	c.waiting = false
	return nil
}

// Invalidate puts the coordinator into WaitingForSync and fires the
// Invalidated event. Idempotent while already waiting.
func (c *Coordinator) Invalidate(reason InvalidatedReason) {
	c.invalidateLocked(reason, true)
}

// invalidateLocked requires callers to hold c.mu when lock is false
// (already held by the caller); otherwise it acquires the lock itself.
func (c *Coordinator) invalidateLocked(reason InvalidatedReason, lock bool) {
	if lock {
		c.mu.Lock()
	}
	already := c.waiting
	c.waiting = true
	current := c.current
	if lock {
		c.mu.Unlock()
	}
	if already {
		return
	}
	c.publisher.Publish(context.Background(), tsslog.Event{
		Type:     "invalidated",
		Category: tsslog.CategoryInvalidate,
		Severity: tsslog.SeverityWarn,
		Frame:    uint64(current),
		Payload:  reason,
	})
	c.handlersMu.Lock()
	handlers := append([]InvalidatedHandler(nil), c.handlers...)
	c.handlersMu.Unlock()
	for _, h := range handlers {
		h(reason)
	}
}

// PushCommand schedules cmd for frame (spec §4.4). Late tentative commands
// are dropped silently; late authoritative commands invalidate the
// coordinator and return ErrInvalidTiming.
func (c *Coordinator) PushCommand(cmd simcontract.Command, frame simcontract.Frame) error {
	c.mu.Lock()
	if c.waiting {
		c.mu.Unlock()
		return ErrNotReady
	}
	trailingFrame := c.arr.trailing().CurrentFrame()
	current := c.current
	c.mu.Unlock()

	if frame < trailingFrame {
		if !cmd.IsAuthoritative {
			return nil
		}
		c.invalidateLocked(ReasonLateAuthoritative, true)
		return ErrInvalidTiming
	}

	if err := c.pending.ScheduleCommand(cmd, frame, trailingFrame); err != nil {
		return err
	}
	if frame < current {
		c.rewind(frame)
	}
	return nil
}

// RemoveEntity schedules entityID for removal at frame (spec §4.4).
func (c *Coordinator) RemoveEntity(entityID simcontract.EntityID, frame simcontract.Frame) error {
	return c.scheduleMutation(frame, func(trailingFrame simcontract.Frame) error {
		return c.pending.ScheduleRemove(entityID, frame, trailingFrame)
	})
}

// ScheduleAdd schedules snapshot for insertion at frame (spec §9 supported
// variant: time-framed scheduled insertions).
func (c *Coordinator) ScheduleAdd(snapshot simcontract.EntitySnapshot, frame simcontract.Frame) error {
	return c.scheduleMutation(frame, func(trailingFrame simcontract.Frame) error {
		return c.pending.ScheduleAdd(snapshot, frame, trailingFrame)
	})
}

func (c *Coordinator) scheduleMutation(frame simcontract.Frame, schedule func(trailingFrame simcontract.Frame) error) error {
	c.mu.Lock()
	if c.waiting {
		c.mu.Unlock()
		return ErrNotReady
	}
	trailingFrame := c.arr.trailing().CurrentFrame()
	current := c.current
	c.mu.Unlock()

	if err := schedule(trailingFrame); err != nil {
		if err == ErrInvalidTiming {
			c.invalidateLocked(ReasonLateAuthoritative, true)
		}
		return err
	}
	if frame < current {
		c.rewind(frame)
	}
	return nil
}

// Update advances current_frame by one and fast-forwards to it.
func (c *Coordinator) Update() error {
	c.mu.Lock()
	if c.waiting {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.current++
	target := c.current
	c.mu.Unlock()
	c.fastForward(target)
	return nil
}

// RunToFrame advances or rewinds to frame, then sets current_frame = frame
// unconditionally unless the operation invalidated the coordinator (spec
// §4.4, scenario 4).
func (c *Coordinator) RunToFrame(frame simcontract.Frame) error {
	c.mu.Lock()
	if c.waiting {
		c.mu.Unlock()
		return ErrNotReady
	}
	current := c.current
	c.mu.Unlock()

	switch {
	case frame > current:
		c.fastForward(frame)
	case frame < current:
		c.rewind(frame)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiting {
		return nil
	}
	c.current = frame
	return nil
}

// fastForward is the central algorithm of spec §4.4.
func (c *Coordinator) fastForward(target simcontract.Frame) {
	c.mu.Lock()
	trailingIdx := c.arr.trailingIndex()
	trailing := c.arr.trailing()
	c.mu.Unlock()

	needsRemirror := false
	for trailing.CurrentFrame()+c.arr.delay(trailingIdx) < target {
		c.drainAndApply(trailing, trailing.CurrentFrame())
		if trailing.SkipNonAuthoritativeCommands() {
			needsRemirror = true
		}
		trailing.Step()
	}

	if needsRemirror {
		c.mu.Lock()
		c.arr.mirror(trailing, trailingIdx-1)
		c.mu.Unlock()
		c.publisher.Publish(context.Background(), tsslog.Event{
			Type:     "remirror",
			Category: tsslog.CategoryMirror,
			Severity: tsslog.SeverityDebug,
			Frame:    uint64(trailing.CurrentFrame()),
		})
	}

	c.advanceShallowSlots(trailingIdx, target)

	c.pending.Prune(trailing.CurrentFrame())
}

// advanceShallowSlots runs step (3) of fast_forward across every slot
// shallower than the trailing one. When ParallelUpdate is set, each slot
// (which owns a disjoint Simulation instance and only reads the shared
// pending store) advances on its own goroutine, joined via errgroup before
// this method returns (spec §5).
func (c *Coordinator) advanceShallowSlots(trailingIdx int, target simcontract.Frame) {
	if !c.cfg.ParallelUpdate {
		for i := trailingIdx - 1; i >= 0; i-- {
			c.advanceSlot(i, target)
		}
		return
	}

	g, _ := errgroup.WithContext(context.Background())
	for i := trailingIdx - 1; i >= 0; i-- {
		idx := i
		g.Go(func() error {
			c.advanceSlot(idx, target)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Coordinator) advanceSlot(i int, target simcontract.Frame) {
	c.mu.Lock()
	sim := c.arr.sims[i]
	delay := c.arr.delay(i)
	c.mu.Unlock()
	if sim == nil {
		return
	}
	for sim.CurrentFrame()+delay < target {
		c.drainAndApply(sim, sim.CurrentFrame())
		sim.Step()
	}
}

func (c *Coordinator) drainAndApply(sim simcontract.Simulation, frame simcontract.Frame) {
	commands, removes, adds := c.pending.DrainFor(frame)
	for _, cmd := range commands {
		sim.PushCommand(cmd)
	}
	mgr := sim.Manager()
	for _, id := range removes {
		mgr.RemoveEntity(id)
	}
	for _, snap := range adds {
		mgr.AddEntity(snap)
	}
}

// rewind jumps a shallower slot back to a deeper slot's state so retroactive
// events can be reapplied (spec §4.4). It requires c.mu NOT held by the
// caller.
func (c *Coordinator) rewind(frame simcontract.Frame) {
	c.mu.Lock()
	n := c.arr.len()
	for i := 0; i < n; i++ {
		sim := c.arr.sims[i]
		if sim != nil && sim.CurrentFrame() <= frame {
			if i > 0 {
				c.arr.mirror(sim, i-1)
			}
			c.mu.Unlock()
			c.publisher.Publish(context.Background(), tsslog.Event{
				Type:     "rewound",
				Category: tsslog.CategoryRewind,
				Severity: tsslog.SeverityDebug,
				Frame:    uint64(frame),
			})
			return
		}
	}
	c.mu.Unlock()
	c.invalidateLocked(ReasonRewindFailed, true)
}
