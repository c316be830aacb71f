// Package bytecodec provides the bounded-region readers, little/big-endian
// integer primitives, and streaming CRC32 accumulator that every container
// parser in rescene is built on. No primitive here ever panics on malformed
// input; out-of-bounds reads return an error.
package bytecodec

import (
	"encoding/binary"
	"errors"

	"github.com/rescene-go/rescene/internal/rerrors"
)

// ErrOutOfBounds is returned when a read would cross the reader's declared end.
var ErrOutOfBounds = errors.New("bytecodec: read past end of region")

// Reader is a bounded, cursor-based reader over an in-memory byte slice.
// It never reads past end, which callers set to scope a read to a sub-region
// (e.g. a RIFF chunk or an EBML element body) without copying.
type Reader struct {
	data []byte
	pos  int
	end  int
}

// NewReader creates a Reader over the whole of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, pos: 0, end: len(data)}
}

// Pos returns the current read cursor.
func (r *Reader) Pos() int { return r.pos }

// End returns the declared end of the readable region.
func (r *Reader) End() int { return r.end }

// SetEnd narrows (or widens, up to len(data)) the readable region.
func (r *Reader) SetEnd(end int) {
	if end > len(r.data) {
		end = len(r.data)
	}
	r.end = end
}

// Remaining returns the number of bytes left before End.
func (r *Reader) Remaining() int { return r.end - r.pos }

// Seek moves the cursor to an absolute position within [0, end].
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > r.end {
		return ErrOutOfBounds
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > r.end {
		return ErrOutOfBounds
	}
	r.pos += n
	return nil
}

// Bytes returns the next n bytes without copying, advancing the cursor.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > r.end {
		return nil, ErrOutOfBounds
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (r *Reader) PeekBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > r.end {
		return nil, ErrOutOfBounds
	}
	return r.data[r.pos : r.pos+n], nil
}

// U8 reads one byte.
func (r *Reader) U8() (byte, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16LE reads a little-endian uint16.
func (r *Reader) U16LE() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U16BE reads a big-endian uint16.
func (r *Reader) U16BE() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U32LE reads a little-endian uint32.
func (r *Reader) U32LE() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U32BE reads a big-endian uint32.
func (r *Reader) U32BE() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// U64LE reads a little-endian uint64.
func (r *Reader) U64LE() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// U64BE reads a big-endian uint64.
func (r *Reader) U64BE() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// U24BE reads a 3-byte big-endian unsigned integer, used by FLAC metadata block sizes.
func (r *Reader) U24BE() (uint32, error) {
	b, err := r.Bytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// Pad reads and discards one byte if pos-start is odd, implementing the
// even-boundary padding RIFF/AVI chunks require between siblings.
func (r *Reader) Pad(start int) error {
	if (r.pos-start)%2 != 0 {
		if r.pos >= r.end {
			return nil
		}
		return r.Skip(1)
	}
	return nil
}

// AsRerror maps a bytecodec error to the rerrors taxonomy.
func AsRerror(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOutOfBounds) {
		return rerrors.UnexpectedEOF("read past end of region", err)
	}
	return rerrors.IO("i/o error", err)
}

// Writer appends LE/BE integers and raw bytes to an in-memory buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteBytes appends b verbatim.
func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteU8 appends one byte.
func (w *Writer) WriteU8(v byte) { w.buf = append(w.buf, v) }

// WriteU16LE appends a little-endian uint16.
func (w *Writer) WriteU16LE(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// WriteU16BE appends a big-endian uint16.
func (w *Writer) WriteU16BE(v uint16) {
	w.buf = append(w.buf, byte(v>>8), byte(v))
}

// WriteU32LE appends a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// WriteU32BE appends a big-endian uint32.
func (w *Writer) WriteU32BE(v uint32) {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteU64LE appends a little-endian uint64.
func (w *Writer) WriteU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU64BE appends a big-endian uint64.
func (w *Writer) WriteU64BE(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU24BE appends a 3-byte big-endian unsigned integer.
func (w *Writer) WriteU24BE(v uint32) {
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
}

const (
	crc32IEEEPoly     = 0xEDB88320
	crc32InitialState = 0xFFFFFFFF
)

var crc32Table = buildCRC32Table()

func buildCRC32Table() [256]uint32 {
	var table [256]uint32
	for i := range table {
		c := uint32(i)
		for bit := 0; bit < 8; bit++ {
			if c&1 != 0 {
				c = crc32IEEEPoly ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		table[i] = c
	}
	return table
}

// CRC32 accumulates a streaming IEEE CRC32 (seed 0xFFFFFFFF, final XOR
// 0xFFFFFFFF), the polynomial every RAR, SRR, and SRS checksum uses.
type CRC32 struct {
	state uint32
}

// NewCRC32 creates a fresh accumulator.
func NewCRC32() *CRC32 { return &CRC32{state: crc32InitialState} }

// Update folds b into the running checksum.
func (c *CRC32) Update(b []byte) {
	state := c.state
	for _, v := range b {
		state = crc32Table[byte(state)^v] ^ (state >> 8)
	}
	c.state = state
}

// Sum returns the finalized CRC32 value.
func (c *CRC32) Sum() uint32 {
	return c.state ^ crc32InitialState
}
