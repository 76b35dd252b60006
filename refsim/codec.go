package refsim

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"trailstate/server/simcontract"
)

var errNotAWorld = errors.New("refsim: dest is not a *World")

func decode(body []byte, out any) error {
	if len(body) == 0 {
		return errors.New("refsim: empty payload")
	}
	return json.Unmarshal(body, out)
}

func encodeEntity(e *Entity) ([]byte, error) {
	return json.Marshal(e)
}

func floatBits(f float64) uint64 { return math.Float64bits(f) }

// wireSnapshot is the JSON form Serialize/Deserialize exchange. Field names
// are stable across versions of this package; unknown fields are ignored by
// encoding/json on decode.
type wireSnapshot struct {
	Frame      simcontract.Frame    `json:"frame"`
	NextEntity simcontract.EntityID `json:"nextEntity"`
	Entities   []*Entity            `json:"entities"`
	Seed       string               `json:"seed,omitempty"`
	Systems    []simcontract.System `json:"systems,omitempty"`
}

// Serialize implements simcontract.Simulation. The encoding is JSON, the
// same convention the teacher's own wire messages use; the TSS snapshot
// envelope length-prefixes this blob so its internal framing never needs to
// be self-describing.
func (w *World) Serialize(sink io.Writer) error {
	snap := wireSnapshot{Frame: w.frame, NextEntity: w.nextEntity, Seed: w.seed, Systems: w.systems}
	ids := make([]simcontract.EntityID, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		snap.Entities = append(snap.Entities, w.entities[id])
	}
	return json.NewEncoder(sink).Encode(snap)
}

// Deserialize implements simcontract.Simulation.
func (w *World) Deserialize(source io.Reader) error {
	var snap wireSnapshot
	if err := json.NewDecoder(source).Decode(&snap); err != nil {
		return err
	}
	w.frame = snap.Frame
	w.nextEntity = snap.NextEntity
	w.entities = make(map[simcontract.EntityID]*Entity, len(snap.Entities))
	for _, e := range snap.Entities {
		w.entities[e.ID] = e
	}
	w.queued = w.queued[:0]
	w.seed = snap.Seed
	if w.seed == "" {
		w.seed = DefaultSeed
	}
	if w.rngFactory == nil {
		w.rngFactory = NewDeterministicRNG
	}
	w.systems = append([]simcontract.System(nil), snap.Systems...)
	return nil
}

// XXHasher adapts cespare/xxhash's streaming digest to simcontract.Hasher.
type XXHasher struct {
	digest *xxhash.Digest
}

// NewXXHasher constructs a fresh hasher.
func NewXXHasher() *XXHasher {
	return &XXHasher{digest: xxhash.New()}
}

// WriteBytes implements simcontract.Hasher.
func (x *XXHasher) WriteBytes(b []byte) { _, _ = x.digest.Write(b) }

// WriteUint64 implements simcontract.Hasher.
func (x *XXHasher) WriteUint64(v uint64) {
	var buf [8]byte
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	buf[4] = byte(v >> 32)
	buf[5] = byte(v >> 40)
	buf[6] = byte(v >> 48)
	buf[7] = byte(v >> 56)
	_, _ = x.digest.Write(buf[:])
}

// Sum64 returns the current digest.
func (x *XXHasher) Sum64() uint64 { return x.digest.Sum64() }
