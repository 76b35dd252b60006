package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"trailstate/server/facade"
	"trailstate/server/internal/telemetry"
	"trailstate/server/internal/ws"
	"trailstate/server/refsim"
	"trailstate/server/simcontract"
	"trailstate/server/tss"
	"trailstate/server/tsslog"
	"trailstate/server/tsslog/sinks"
)

// Run starts the demo daemon: it builds the telemetry router, seeds a
// coordinator with a fresh reference world, wires the entity-manager
// facade and websocket transport, and blocks serving HTTP until ctx is
// canceled or the server fails.
func Run(ctx context.Context, cfg Config) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	logCfg := tsslog.DefaultConfig()
	if cfg.LogBufferSize > 0 {
		logCfg.BufferSize = cfg.LogBufferSize
	}
	available := map[string]tsslog.Sink{
		"console": sinks.NewConsole(os.Stdout),
	}
	router, err := tsslog.NewRouter(logCfg, tsslog.SystemClock{}, logger, available)
	if err != nil {
		return fmt.Errorf("failed to construct telemetry router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			logger.Printf("failed to close telemetry router: %v", cerr)
		}
	}()

	delays := make([]simcontract.Frame, len(cfg.Delays))
	for i, d := range cfg.Delays {
		delays[i] = simcontract.Frame(d)
	}

	coord := tss.New(tss.Config{
		Delays:         delays,
		ParallelUpdate: cfg.ParallelUpdate,
	}, router, telemetry.WrapMetrics(router.Metrics()))

	if err := coord.Initialize(refsim.NewWorld()); err != nil {
		return fmt.Errorf("failed to initialize coordinator: %w", err)
	}

	coord.OnInvalidated(func(reason tss.InvalidatedReason) {
		logger.Printf("coordinator invalidated: %s; reseeding from a fresh world", reason)
		if err := coord.Initialize(refsim.NewWorld()); err != nil {
			logger.Printf("failed to reseed coordinator: %v", err)
		}
	})

	manager := facade.New(coord)
	hub := ws.NewHub(telemetry.WrapLogger(logger))
	handler := ws.NewHandler(hub, manager, telemetry.WrapLogger(logger))

	keyframes := &keyframeStore{}

	stop := make(chan struct{})
	go driveLoop(coord, hub, keyframes, router, cfg.tickInterval(), cfg.KeyframeIntervalTicks, stop)
	defer close(stop)

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.Handle("/keyframe", keyframes)
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(router.MetricsSnapshot())
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	logger.Printf("tssd listening on %s", srv.Addr)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

func (c Config) tickInterval() time.Duration {
	if c.UpdateIntervalMillis <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.UpdateIntervalMillis) * time.Millisecond
}

// driveLoop is the single owner of the coordinator's mutating API: it calls
// Update once per tick, broadcasts the freshly advanced trailing state
// (spec §5's single-driver scheduling model), and every keyframeInterval
// ticks also caches a snapshot into keyframes for the /keyframe endpoint.
// keyframeInterval <= 0 disables keyframing.
func driveLoop(coord *tss.Coordinator, hub *ws.Hub, keyframes *keyframeStore, publisher tsslog.Publisher, interval time.Duration, keyframeInterval int, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var tick uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := coord.Update(); err != nil {
				continue
			}
			tick++
			var buf bytes.Buffer
			if err := coord.Serialize(&buf); err != nil {
				continue
			}
			hub.Broadcast(func(out *bytes.Buffer) error {
				_, err := out.Write(buf.Bytes())
				return err
			})
			if keyframeInterval > 0 && tick%uint64(keyframeInterval) == 0 {
				keyframes.update(tick, buf.Bytes())
				publisher.Publish(context.Background(), tsslog.Event{
					Type:     "keyframe.captured",
					Frame:    tick,
					Time:     time.Now(),
					Severity: tsslog.SeverityInfo,
					Category: tsslog.CategorySnapshot,
					Extra:    map[string]any{"bytes": buf.Len()},
				})
			}
		}
	}
}
