package facade_test

import (
	"testing"

	"trailstate/server/facade"
	"trailstate/server/internal/telemetry"
	"trailstate/server/refsim"
	"trailstate/server/simcontract"
	"trailstate/server/tss"
	"trailstate/server/tsslog"
)

func newReadyCoordinator(t *testing.T) *tss.Coordinator {
	t.Helper()
	c := tss.New(tss.Config{Delays: []simcontract.Frame{2}}, tsslog.NopPublisher{}, telemetry.WrapMetrics(nil))
	if err := c.Initialize(refsim.NewWorld()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func TestRegisterSystemFailsAfterFrameZero(t *testing.T) {
	c := tss.New(tss.Config{Delays: []simcontract.Frame{2}}, tsslog.NopPublisher{}, telemetry.WrapMetrics(nil))
	m := facade.New(c)

	if err := m.RegisterSystem(facade.System{Name: "physics", Kind: facade.SystemLogic}); err != nil {
		t.Fatalf("expected system registration before Initialize to succeed: %v", err)
	}

	if err := c.Initialize(refsim.NewWorld()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := m.RegisterSystem(facade.System{Name: "late", Kind: facade.SystemLogic}); err != tss.ErrInvalidTiming {
		t.Fatalf("err = %v, want ErrInvalidTiming once current_frame > 0", err)
	}
}

func TestAddEntityRoutesThroughCoordinator(t *testing.T) {
	c := newReadyCoordinator(t)
	m := facade.New(c)

	id := simcontract.EntityID(1)
	if err := m.AddEntity(simcontract.EntitySnapshot{ID: id}); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}

	for i := 0; i < 5; i++ {
		_ = c.Update()
	}

	if !m.HasEntity(id) {
		t.Fatal("expected entity to appear in the leading simulation after enough updates")
	}
}

func TestRegisterSystemInstallsLogicEverywhereAndPresentationOnlyLeading(t *testing.T) {
	c := tss.New(tss.Config{Delays: []simcontract.Frame{2, 6}}, tsslog.NopPublisher{}, telemetry.WrapMetrics(nil))
	m := facade.New(c)

	if err := m.RegisterSystem(facade.System{Name: "physics", Kind: facade.SystemLogic}); err != nil {
		t.Fatalf("RegisterSystem logic: %v", err)
	}
	if err := m.RegisterSystem(facade.System{Name: "minimap", Kind: facade.SystemPresentation}); err != nil {
		t.Fatalf("RegisterSystem presentation: %v", err)
	}
	if err := c.Initialize(refsim.NewWorld()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	leading, ok := c.Leading().(*refsim.World)
	if !ok {
		t.Fatal("expected leading simulation to be a *refsim.World")
	}
	trailing, ok := c.Trailing().(*refsim.World)
	if !ok {
		t.Fatal("expected trailing simulation to be a *refsim.World")
	}

	hasSystem := func(systems []simcontract.System, name string) bool {
		for _, s := range systems {
			if s.Name == name {
				return true
			}
		}
		return false
	}

	if !hasSystem(leading.Systems(), "physics") {
		t.Fatal("expected logic system installed on the leading slot")
	}
	if !hasSystem(trailing.Systems(), "physics") {
		t.Fatal("expected logic system installed on the trailing slot")
	}
	if !hasSystem(leading.Systems(), "minimap") {
		t.Fatal("expected presentation system installed on the leading slot")
	}
	if hasSystem(trailing.Systems(), "minimap") {
		t.Fatal("presentation system must not reach the trailing slot")
	}

	hLeading := refsim.NewXXHasher()
	leading.Hash(hLeading)
	hTrailing := refsim.NewXXHasher()
	trailing.Hash(hTrailing)
	if hLeading.Sum64() == hTrailing.Sum64() {
		t.Fatal("expected the presentation-only system to make the leading and trailing hashes differ")
	}
}

func TestGetEntityReturnsFalseWhileWaiting(t *testing.T) {
	c := tss.New(tss.Config{Delays: []simcontract.Frame{2}}, tsslog.NopPublisher{}, telemetry.WrapMetrics(nil))
	m := facade.New(c)

	if _, ok := m.GetEntity(1); ok {
		t.Fatal("expected GetEntity to report false while WaitingForSync")
	}
}
