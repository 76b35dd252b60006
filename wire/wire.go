// Package wire implements the binary envelope snapshots travel in (spec
// §6.6). Every frame, count, and key is written big-endian; the opaque
// command and entity payloads produced by simcontract.Simulation stay
// whatever bytes the simulation chose to serialize as, untouched.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrPayloadTooLarge is returned when a length-prefixed field would not fit
// in its on-wire width.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum frame size")

const maxBlobSize = 1<<32 - 1

// Writer appends big-endian primitives and length-prefixed blobs to an
// underlying io.Writer, stopping at the first error (mirrors the teacher's
// header-then-payload framing convention).
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered by any Write* call.
func (wr *Writer) Err() error { return wr.err }

func (wr *Writer) write(buf []byte) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.Write(buf)
}

// WriteUint64 appends v as 8 big-endian bytes.
func (wr *Writer) WriteUint64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	wr.write(buf[:])
}

// WriteUint32 appends v as 4 big-endian bytes.
func (wr *Writer) WriteUint32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	wr.write(buf[:])
}

// WriteBool appends a single byte: 1 for true, 0 for false.
func (wr *Writer) WriteBool(v bool) {
	if v {
		wr.write([]byte{1})
	} else {
		wr.write([]byte{0})
	}
}

// WriteBytes appends a uint32 length prefix followed by b.
func (wr *Writer) WriteBytes(b []byte) {
	if wr.err != nil {
		return
	}
	if len(b) > maxBlobSize {
		wr.err = ErrPayloadTooLarge
		return
	}
	wr.WriteUint32(uint32(len(b)))
	wr.write(b)
}

// Reader consumes the primitives Writer produces, stopping at the first
// error.
type Reader struct {
	r   io.Reader
	err error
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error encountered by any Read* call.
func (rd *Reader) Err() error { return rd.err }

func (rd *Reader) read(buf []byte) {
	if rd.err != nil {
		return
	}
	_, rd.err = io.ReadFull(rd.r, buf)
}

// ReadUint64 reads 8 big-endian bytes.
func (rd *Reader) ReadUint64() uint64 {
	var buf [8]byte
	rd.read(buf[:])
	if rd.err != nil {
		return 0
	}
	return binary.BigEndian.Uint64(buf[:])
}

// ReadUint32 reads 4 big-endian bytes.
func (rd *Reader) ReadUint32() uint32 {
	var buf [4]byte
	rd.read(buf[:])
	if rd.err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(buf[:])
}

// ReadBool reads a single byte and reports whether it was non-zero.
func (rd *Reader) ReadBool() bool {
	var buf [1]byte
	rd.read(buf[:])
	return buf[0] != 0
}

// ReadBytes reads a uint32 length prefix followed by that many bytes.
func (rd *Reader) ReadBytes() []byte {
	n := rd.ReadUint32()
	if rd.err != nil {
		return nil
	}
	buf := make([]byte, n)
	rd.read(buf)
	if rd.err != nil {
		return nil
	}
	return buf
}
