// Package ebmlcodec implements EBML variable-length integer decoding and
// encoding: element IDs (marker bit preserved) and element data sizes
// (marker bit masked out), as used by Matroska/WebM containers.
package ebmlcodec

import (
	"errors"

	"github.com/rescene-go/rescene/internal/bytecodec"
)

// ErrVintTooWide is returned when a VINT's first byte has no set bit within
// the first 8 bytes, which EBML does not allow.
var ErrVintTooWide = errors.New("ebmlcodec: vint wider than 8 bytes")

// width returns 1 plus the number of leading zero bits in b, matching EBML's
// rule that the position of the first set bit in the first byte determines
// the VINT's total width.
func width(b byte) (int, error) {
	if b == 0 {
		return 0, ErrVintTooWide
	}
	n := 0
	for mask := byte(0x80); b&mask == 0; mask >>= 1 {
		n++
	}
	return n + 1, nil
}

// DecodeID reads an EBML element ID, returning it with the marker bit
// preserved (this is what distinguishes e.g. 0xA3 from 0xA1).
func DecodeID(r *bytecodec.Reader) (id uint32, width int, err error) {
	first, err := r.PeekBytes(1)
	if err != nil {
		return 0, 0, bytecodec.AsRerror(err)
	}
	w, err := widthOf(first[0])
	if err != nil {
		return 0, 0, err
	}
	raw, err := r.Bytes(w)
	if err != nil {
		return 0, 0, bytecodec.AsRerror(err)
	}
	var v uint32
	for _, b := range raw {
		v = v<<8 | uint32(b)
	}
	return v, w, nil
}

// DecodeSize reads an EBML element data-size VINT, returning the value with
// the marker bit masked out.
func DecodeSize(r *bytecodec.Reader) (size uint64, width int, err error) {
	first, err := r.PeekBytes(1)
	if err != nil {
		return 0, 0, bytecodec.AsRerror(err)
	}
	w, err := widthOf(first[0])
	if err != nil {
		return 0, 0, err
	}
	raw, err := r.Bytes(w)
	if err != nil {
		return 0, 0, bytecodec.AsRerror(err)
	}
	dataBitsInFirst := 8 - w
	mask := byte(1<<dataBitsInFirst - 1)
	v := uint64(raw[0] & mask)
	for _, b := range raw[1:] {
		v = v<<8 | uint64(b)
	}
	return v, w, nil
}

func widthOf(b byte) (int, error) {
	return width(b)
}

// EncodeID encodes id in the smallest canonical width (1-4 bytes) that
// represents it, preserving the marker bit already present in id.
func EncodeID(id uint32) []byte {
	for w := 1; w <= 4; w++ {
		if w == 4 || id < uint32(1)<<(8*w) {
			buf := make([]byte, w)
			v := id
			for i := w - 1; i >= 0; i-- {
				buf[i] = byte(v)
				v >>= 8
			}
			return buf
		}
	}
	return nil
}

// EncodeSize encodes n in the smallest VINT width (1-8 bytes) that can hold
// it plus the marker bit.
func EncodeSize(n uint64) []byte {
	for w := 1; w <= 8; w++ {
		if w == 8 || n < uint64(1)<<(7*w) {
			buf := make([]byte, w)
			v := n
			for i := w - 1; i >= 0; i-- {
				buf[i] = byte(v)
				v >>= 8
			}
			buf[0] |= 1 << (8 - w)
			return buf
		}
	}
	return nil
}

// BuildElement encodes id and wraps data with its EBML ID and size header.
func BuildElement(id uint32, data []byte) []byte {
	out := make([]byte, 0, 8+len(data))
	out = append(out, EncodeID(id)...)
	out = append(out, EncodeSize(uint64(len(data)))...)
	out = append(out, data...)
	return out
}
