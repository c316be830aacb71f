package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildID3v2Header(bodySize uint32) []byte {
	header := []byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, 0}
	// Syncsafe-encode bodySize into the last 4 bytes.
	header[6] = byte((bodySize >> 21) & 0x7F)
	header[7] = byte((bodySize >> 14) & 0x7F)
	header[8] = byte((bodySize >> 7) & 0x7F)
	header[9] = byte(bodySize & 0x7F)
	return append(header, make([]byte, bodySize)...)
}

func TestProfileMP3WithID3Tags(t *testing.T) {
	id3v2 := buildID3v2Header(4)
	frames := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	id3v1 := append([]byte("TAG"), make([]byte, id3v1TagLen-3)...)

	var data []byte
	data = append(data, id3v2...)
	data = append(data, frames...)
	data = append(data, id3v1...)

	res, err := ProfileMP3(data)
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, uint64(len(frames)), res.Tracks[0].DataLength)
}

func TestProfileMP3NoTags(t *testing.T) {
	frames := []byte{0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02}
	res, err := ProfileMP3(frames)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(frames)), res.Tracks[0].DataLength)
}

func TestProfileMP3OversizedID3v2Header(t *testing.T) {
	header := []byte{'I', 'D', '3', 3, 0, 0, 0x7F, 0x7F, 0x7F, 0x7F}
	_, err := ProfileMP3(header)
	assert.Error(t, err)
}

func TestWriteMP3PreservesID3Wrapper(t *testing.T) {
	id3v2 := buildID3v2Header(4)
	frames := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	id3v1 := append([]byte("TAG"), make([]byte, id3v1TagLen-3)...)

	var data []byte
	data = append(data, id3v2...)
	data = append(data, frames...)
	data = append(data, id3v1...)

	res, err := ProfileMP3(data)
	require.NoError(t, err)

	fd := FileData{AppName: "rescene", FileName: "s.mp3", SampleSize: uint64(len(data)), CRC32: res.CRC32}
	out, err := WriteMP3(data, fd, res.Tracks)
	require.NoError(t, err)

	assert.Equal(t, id3v2, out[:len(id3v2)])
	assert.Equal(t, id3v1, out[len(out)-len(id3v1):])
}
