package ebmlcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescene-go/rescene/internal/bytecodec"
)

func TestDecodeIDPreservesMarkerBit(t *testing.T) {
	// 0x1A45DFA3 is Matroska's EBML element ID, a canonical 4-byte VINT.
	r := bytecodec.NewReader([]byte{0x1A, 0x45, 0xDF, 0xA3})
	id, width, err := DecodeID(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1A45DFA3), id)
	assert.Equal(t, 4, width)
}

func TestDecodeSizeMasksMarkerBit(t *testing.T) {
	// A single-byte size VINT: marker bit 0x80 set, value 0x05.
	r := bytecodec.NewReader([]byte{0x85})
	size, width, err := DecodeSize(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), size)
	assert.Equal(t, 1, width)
}

func TestDecodeSizeMultiByte(t *testing.T) {
	// Two-byte size VINT: top bits 01 mark width 2, remaining 14 bits hold 0x0102.
	r := bytecodec.NewReader([]byte{0x41, 0x02})
	size, width, err := DecodeSize(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102), size)
	assert.Equal(t, 2, width)
}

func TestDecodeSizeRejectsAllZeroFirstByte(t *testing.T) {
	r := bytecodec.NewReader([]byte{0x00, 0x01})
	_, _, err := DecodeSize(r)
	assert.ErrorIs(t, err, ErrVintTooWide)
}

func TestEncodeDecodeSizeRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 5, 127, 128, 16383, 16384, 1 << 40} {
		encoded := EncodeSize(n)
		r := bytecodec.NewReader(encoded)
		got, _, err := DecodeSize(r)
		require.NoError(t, err)
		assert.Equal(t, n, got, "round trip for %d", n)
	}
}

func TestEncodeIDRoundTrip(t *testing.T) {
	encoded := EncodeID(0x1A45DFA3)
	r := bytecodec.NewReader(encoded)
	id, width, err := DecodeID(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1A45DFA3), id)
	assert.Equal(t, 4, width)
}

func TestBuildElementLayout(t *testing.T) {
	data := []byte("payload")
	elem := BuildElement(0x1A45DFA3, data)

	r := bytecodec.NewReader(elem)
	id, _, err := DecodeID(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1A45DFA3), id)

	size, _, err := DecodeSize(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(data)), size)

	body, err := r.Bytes(len(data))
	require.NoError(t, err)
	assert.Equal(t, data, body)
}
