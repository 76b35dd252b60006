package tsslog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Sink consumes events produced by the Router.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Metrics tracks router counters exposed for diagnostics.
type Metrics struct {
	eventsTotal        atomic.Uint64
	eventsDroppedTotal atomic.Uint64
	sinkErrorsTotal    atomic.Uint64
	counters           sync.Map // string -> *atomic.Uint64
	frameWatermarks    sync.Map // Category -> *atomic.Uint64
}

// Snapshot returns a copy of the metrics counters, including a
// "frame_hwm_<category>" gauge per category that has ever carried a
// non-zero Event.Frame, so an operator can see how far each category's
// telemetry has advanced relative to the coordinator's current frame.
func (m *Metrics) Snapshot() map[string]uint64 {
	out := map[string]uint64{
		"events_total":         m.eventsTotal.Load(),
		"events_dropped_total": m.eventsDroppedTotal.Load(),
		"sink_errors_total":    m.sinkErrorsTotal.Load(),
	}
	m.counters.Range(func(key, value any) bool {
		name, _ := key.(string)
		counter, _ := value.(*atomic.Uint64)
		if name == "" || counter == nil {
			return true
		}
		out[name] = counter.Load()
		return true
	})
	m.frameWatermarks.Range(func(key, value any) bool {
		cat, _ := key.(Category)
		counter, _ := value.(*atomic.Uint64)
		if cat == "" || counter == nil {
			return true
		}
		out["frame_hwm_"+string(cat)] = counter.Load()
		return true
	})
	return out
}

func (m *Metrics) counter(key string) *atomic.Uint64 {
	if m == nil || key == "" {
		return nil
	}
	if v, ok := m.counters.Load(key); ok {
		if c, ok := v.(*atomic.Uint64); ok {
			return c
		}
	}
	fresh := &atomic.Uint64{}
	actual, _ := m.counters.LoadOrStore(key, fresh)
	if c, ok := actual.(*atomic.Uint64); ok {
		return c
	}
	return fresh
}

// Add increments the named counter.
func (m *Metrics) Add(key string, delta uint64) {
	if m == nil || delta == 0 {
		return
	}
	if c := m.counter(key); c != nil {
		c.Add(delta)
	}
}

// Store records a gauge value for the named counter.
func (m *Metrics) Store(key string, value uint64) {
	if m == nil {
		return
	}
	if c := m.counter(key); c != nil {
		c.Store(value)
	}
}

// markFrame raises the recorded high-water mark for category to frame if
// frame is greater than what's already stored. Called once per published
// event so the router's own metrics double as a per-category progress
// gauge, independent of whatever the sinks do with the event.
func (m *Metrics) markFrame(cat Category, frame uint64) {
	if m == nil || cat == "" || frame == 0 {
		return
	}
	v, _ := m.frameWatermarks.LoadOrStore(cat, &atomic.Uint64{})
	counter := v.(*atomic.Uint64)
	for {
		current := counter.Load()
		if frame <= current {
			return
		}
		if counter.CompareAndSwap(current, frame) {
			return
		}
	}
}

// FrameWatermark reports the highest Event.Frame published under cat so
// far, or 0 if none has been observed.
func (m *Metrics) FrameWatermark(cat Category) uint64 {
	if m == nil {
		return 0
	}
	v, ok := m.frameWatermarks.Load(cat)
	if !ok {
		return 0
	}
	return v.(*atomic.Uint64).Load()
}

type sinkEntry struct {
	name string
	sink Sink
	ch   chan Event
	wg   sync.WaitGroup
	// categories, when non-empty, restricts this sink to a subset of
	// event categories (Config.SinkCategories); nil means every category
	// that already cleared the router's severity floor.
	categories map[Category]bool
}

func (e *sinkEntry) accepts(cat Category) bool {
	if len(e.categories) == 0 {
		return true
	}
	return e.categories[cat]
}

// Router coordinates fan-out from publishers to configured sinks.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	queue    chan Event
	sinks    []*sinkEntry
	wg       sync.WaitGroup
	shutdown chan struct{}
	metrics  Metrics
	closeOne sync.Once
}

// NewRouter constructs a Router. Sinks named in cfg.EnabledSinks but absent
// from available are counted as disabled and skipped.
func NewRouter(cfg Config, clock Clock, fallback *log.Logger, available map[string]Sink) (*Router, error) {
	if cfg.BufferSize <= 0 {
		return nil, errors.New("tsslog: buffer size must be positive")
	}
	if fallback == nil {
		fallback = log.Default()
	}
	if clock == nil {
		clock = SystemClock{}
	}

	r := &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: fallback,
		queue:    make(chan Event, cfg.BufferSize),
		shutdown: make(chan struct{}),
	}

	seen := make(map[string]struct{}, len(cfg.EnabledSinks))
	for _, name := range cfg.EnabledSinks {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sink, ok := available[name]
		if !ok {
			fallback.Printf("tsslog: sink %q unavailable", name)
			continue
		}
		entry := &sinkEntry{name: name, sink: sink, ch: make(chan Event, cfg.BufferSize)}
		if cats := cfg.SinkCategories[name]; len(cats) > 0 {
			entry.categories = make(map[Category]bool, len(cats))
			for _, c := range cats {
				entry.categories[c] = true
			}
		}
		entry.wg.Add(1)
		go func(e *sinkEntry) {
			defer e.wg.Done()
			for event := range e.ch {
				if err := e.sink.Write(event); err != nil {
					r.metrics.sinkErrorsTotal.Add(1)
					fallback.Printf("tsslog: sink %s write failed: %v", e.name, err)
				}
			}
		}(entry)
		r.sinks = append(r.sinks, entry)
	}

	r.wg.Add(1)
	go r.dispatch()

	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.shutdown:
			r.drainQueue()
			r.stopSinks()
			return
		case event, ok := <-r.queue:
			if !ok {
				r.stopSinks()
				return
			}
			r.forward(event)
		}
	}
}

func (r *Router) drainQueue() {
	for {
		select {
		case event, ok := <-r.queue:
			if !ok {
				return
			}
			r.forward(event)
		default:
			return
		}
	}
}

func (r *Router) stopSinks() {
	for _, sink := range r.sinks {
		close(sink.ch)
	}
	for _, sink := range r.sinks {
		sink.wg.Wait()
	}
}

func (r *Router) forward(event Event) {
	for _, sink := range r.sinks {
		if !sink.accepts(event.Category) {
			continue
		}
		select {
		case sink.ch <- event:
		default:
			r.metrics.eventsDroppedTotal.Add(1)
			r.metrics.Add("sink_dropped_"+sink.name+"_"+string(event.Category), 1)
			r.fallback.Printf("tsslog: sink %s dropping event %s (buffer full)", sink.name, event.Type)
		}
	}
}

// severityFloor returns the minimum severity event.Category must clear,
// honoring a per-category override before falling back to cfg.MinSeverity.
func (r *Router) severityFloor(cat Category) Severity {
	if floor, ok := r.cfg.CategorySeverity[cat]; ok {
		return floor
	}
	return r.cfg.MinSeverity
}

// Publish implements Publisher.
func (r *Router) Publish(ctx context.Context, event Event) {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
	if event.Severity < r.severityFloor(event.Category) {
		return
	}
	if len(r.cfg.Categories) > 0 {
		allowed := false
		for _, cat := range r.cfg.Categories {
			if cat == event.Category {
				allowed = true
				break
			}
		}
		if !allowed {
			return
		}
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	r.metrics.markFrame(event.Category, event.Frame)

	select {
	case r.queue <- event:
		r.metrics.eventsTotal.Add(1)
	default:
		r.metrics.eventsDroppedTotal.Add(1)
		r.fallback.Printf("tsslog: dropping event %s (router buffer full)", event.Type)
	}
}

// Close flushes outstanding events and stops all sinks.
func (r *Router) Close(ctx context.Context) error {
	var err error
	r.closeOne.Do(func() {
		close(r.shutdown)
		close(r.queue)
		r.wg.Wait()
		for _, sink := range r.sinks {
			if cerr := sink.sink.Close(ctx); cerr != nil {
				err = errors.Join(err, fmt.Errorf("sink %s: %w", sink.name, cerr))
				r.metrics.sinkErrorsTotal.Add(1)
			}
		}
	})
	return err
}

// MetricsSnapshot exposes a copy of the router counters.
func (r *Router) MetricsSnapshot() map[string]uint64 {
	return r.metrics.Snapshot()
}

// Metrics exposes the router counters for dependency injection.
func (r *Router) Metrics() *Metrics {
	if r == nil {
		return nil
	}
	return &r.metrics
}
