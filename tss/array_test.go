package tss

import (
	"testing"

	"trailstate/server/refsim"
	"trailstate/server/simcontract"
)

func TestMirrorCopiesTrailingStateIntoShallowerSlots(t *testing.T) {
	a := newArray([]simcontract.Frame{0, 3, 7})

	src := refsim.NewWorld()
	id := src.Manager().AddEntity(simcontract.EntitySnapshot{})
	src.PushCommand(refsim.EncodeMove(uint64(id), 1, true, 4, 4))
	src.Step()

	a.setTrailing(src)
	a.mirror(src, a.trailingIndex()-1)

	for i := 0; i < a.len(); i++ {
		if a.sims[i] == nil {
			t.Fatalf("slot %d was not allocated by mirror", i)
		}
		if a.sims[i].CurrentFrame() != src.CurrentFrame() {
			t.Fatalf("slot %d frame = %d, want %d", i, a.sims[i].CurrentFrame(), src.CurrentFrame())
		}
	}
}
