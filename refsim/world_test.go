package refsim

import (
	"bytes"
	"testing"

	"trailstate/server/simcontract"
)

func TestMoveCommandAppliesOnStep(t *testing.T) {
	w := NewWorld()
	id := w.Manager().AddEntity(simcontract.EntitySnapshot{})

	w.PushCommand(EncodeMove(uint64(id), 1, true, 3, -2))
	w.Step()

	entity, ok := w.Manager().GetEntity(id)
	if !ok {
		t.Fatal("expected entity to exist after step")
	}
	var decoded Entity
	if err := decode(entity.Payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.X != 3 || decoded.Y != -2 {
		t.Fatalf("got (%v, %v), want (3, -2)", decoded.X, decoded.Y)
	}
	if w.CurrentFrame() != 1 {
		t.Fatalf("CurrentFrame = %d, want 1", w.CurrentFrame())
	}
}

func TestSkipNonAuthoritativeCommandsRemovesTentative(t *testing.T) {
	w := NewWorld()
	id := w.Manager().AddEntity(simcontract.EntitySnapshot{})
	w.PushCommand(EncodeMove(uint64(id), 1, false, 10, 10))
	w.PushCommand(EncodeMove(uint64(id)+1, 2, true, 1, 1))

	removed := w.SkipNonAuthoritativeCommands()
	if !removed {
		t.Fatal("expected a tentative command to be removed")
	}
	w.Step()

	entity, _ := w.Manager().GetEntity(id)
	var decoded Entity
	_ = decode(entity.Payload, &decoded)
	if decoded.X != 0 || decoded.Y != 0 {
		t.Fatalf("tentative move should have been dropped, got (%v, %v)", decoded.X, decoded.Y)
	}
}

func TestCopyIntoProducesIndependentDeepCopy(t *testing.T) {
	src := NewWorld()
	id := src.Manager().AddEntity(simcontract.EntitySnapshot{})
	src.PushCommand(EncodeMove(uint64(id), 1, true, 5, 5))
	src.Step()

	dest := src.NewInstance()
	if err := src.CopyInto(dest); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}

	dst := dest.(*World)
	dst.Manager().RemoveEntity(id)

	if !src.Manager().HasEntity(id) {
		t.Fatal("mutating the copy must not affect the source")
	}
}

func TestHashStableAcrossEqualStates(t *testing.T) {
	a := NewWorld()
	b := NewWorld()
	idA := a.Manager().AddEntity(simcontract.EntitySnapshot{})
	idB := b.Manager().AddEntity(simcontract.EntitySnapshot{})
	if idA != idB {
		t.Fatalf("expected identical per-instance ID allocation, got %d vs %d", idA, idB)
	}

	a.PushCommand(EncodeMove(uint64(idA), 1, true, 2, 2))
	b.PushCommand(EncodeMove(uint64(idB), 1, true, 2, 2))
	a.Step()
	b.Step()

	ha, hb := NewXXHasher(), NewXXHasher()
	a.Hash(ha)
	b.Hash(hb)
	if ha.Sum64() != hb.Sum64() {
		t.Fatal("expected equal hashes for observably identical worlds")
	}
}

func TestScatterCommandIsDeterministicAcrossInstances(t *testing.T) {
	a := NewWorldWithSeed("scatter-seed")
	b := NewWorldWithSeed("scatter-seed")
	idA := a.Manager().AddEntity(simcontract.EntitySnapshot{})
	idB := b.Manager().AddEntity(simcontract.EntitySnapshot{})
	if idA != idB {
		t.Fatalf("expected identical per-instance ID allocation, got %d vs %d", idA, idB)
	}

	a.PushCommand(EncodeScatter(uint64(idA), 1, true, 4))
	b.PushCommand(EncodeScatter(uint64(idB), 1, true, 4))
	a.Step()
	b.Step()

	entA, _ := a.Manager().GetEntity(idA)
	entB, _ := b.Manager().GetEntity(idB)
	var decA, decB Entity
	if err := decode(entA.Payload, &decA); err != nil {
		t.Fatalf("decode a: %v", err)
	}
	if err := decode(entB.Payload, &decB); err != nil {
		t.Fatalf("decode b: %v", err)
	}
	if decA.X != decB.X || decA.Y != decB.Y {
		t.Fatalf("same seed and command must scatter identically, got (%v,%v) vs (%v,%v)", decA.X, decA.Y, decB.X, decB.Y)
	}
	if decA.X == 0 && decA.Y == 0 {
		t.Fatal("expected scatter to actually displace the entity")
	}

	ha, hb := NewXXHasher(), NewXXHasher()
	a.Hash(ha)
	b.Hash(hb)
	if ha.Sum64() != hb.Sum64() {
		t.Fatal("expected equal hashes for observably identical worlds")
	}
}

func TestScatterCommandDiffersAcrossSeeds(t *testing.T) {
	a := NewWorldWithSeed("seed-one")
	b := NewWorldWithSeed("seed-two")
	idA := a.Manager().AddEntity(simcontract.EntitySnapshot{})
	idB := b.Manager().AddEntity(simcontract.EntitySnapshot{})

	a.PushCommand(EncodeScatter(uint64(idA), 1, true, 4))
	b.PushCommand(EncodeScatter(uint64(idB), 1, true, 4))
	a.Step()
	b.Step()

	entA, _ := a.Manager().GetEntity(idA)
	entB, _ := b.Manager().GetEntity(idB)
	var decA, decB Entity
	_ = decode(entA.Payload, &decA)
	_ = decode(entB.Payload, &decB)
	if decA.X == decB.X && decA.Y == decB.Y {
		t.Fatal("different seeds should (almost certainly) scatter differently")
	}
}

func TestWorldCopyIntoPreservesSeedAndSystems(t *testing.T) {
	src := NewWorldWithSeed("copy-seed")
	if err := src.InstallSystem(simcontract.System{Name: "gravity", Kind: simcontract.SystemLogic}); err != nil {
		t.Fatalf("InstallSystem: %v", err)
	}
	id := src.Manager().AddEntity(simcontract.EntitySnapshot{})

	dest := src.NewInstance()
	if err := src.CopyInto(dest); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}
	dst := dest.(*World)

	src.PushCommand(EncodeScatter(uint64(id), 1, true, 4))
	dst.PushCommand(EncodeScatter(uint64(id), 1, true, 4))
	src.Step()
	dst.Step()

	hs, hd := NewXXHasher(), NewXXHasher()
	src.Hash(hs)
	dst.Hash(hd)
	if hs.Sum64() != hd.Sum64() {
		t.Fatal("copy must preserve seed and installed systems so later steps hash identically")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	src := NewWorld()
	id := src.Manager().AddEntity(simcontract.EntitySnapshot{})
	src.PushCommand(EncodeDamage(uint64(id), 1, true, id, 30))
	src.Step()

	var buf bytes.Buffer
	if err := src.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	dest := NewWorld()
	if err := dest.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if dest.CurrentFrame() != src.CurrentFrame() {
		t.Fatalf("frame mismatch: %d vs %d", dest.CurrentFrame(), src.CurrentFrame())
	}
	hs, hd := NewXXHasher(), NewXXHasher()
	src.Hash(hs)
	dest.Hash(hd)
	if hs.Sum64() != hd.Sum64() {
		t.Fatal("expected round-tripped world to hash identically")
	}
}

func TestSerializeDeserializeRoundTripPreservesSeedAndSystems(t *testing.T) {
	src := NewWorldWithSeed("wire-seed")
	if err := src.InstallSystem(simcontract.System{Name: "weather", Kind: simcontract.SystemLogic}); err != nil {
		t.Fatalf("InstallSystem: %v", err)
	}
	id := src.Manager().AddEntity(simcontract.EntitySnapshot{})

	var buf bytes.Buffer
	if err := src.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	dest := NewWorld()
	if err := dest.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	src.PushCommand(EncodeScatter(uint64(id), 1, true, 4))
	dest.PushCommand(EncodeScatter(uint64(id), 1, true, 4))
	src.Step()
	dest.Step()

	hs, hd := NewXXHasher(), NewXXHasher()
	src.Hash(hs)
	dest.Hash(hd)
	if hs.Sum64() != hd.Sum64() {
		t.Fatal("round trip must restore seed and systems so post-restore steps hash identically")
	}
}
