package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectContainerAVI(t *testing.T) {
	data := append([]byte("RIFF\x00\x00\x00\x00AVI "), make([]byte, 8)...)
	c, err := DetectContainer("sample.avi", data)
	require.NoError(t, err)
	assert.Equal(t, ContainerAVI, c)
}

func TestDetectContainerMKV(t *testing.T) {
	data := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x00, 0x00}
	c, err := DetectContainer("sample.mkv", data)
	require.NoError(t, err)
	assert.Equal(t, ContainerMKV, c)
}

func TestDetectContainerMP4(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}
	c, err := DetectContainer("sample.mp4", data)
	require.NoError(t, err)
	assert.Equal(t, ContainerMP4, c)
}

func TestDetectContainerWMV(t *testing.T) {
	data := append(append([]byte{}, asfHeaderGUID...), 0x00)
	c, err := DetectContainer("sample.wmv", data)
	require.NoError(t, err)
	assert.Equal(t, ContainerWMV, c)
}

func TestDetectContainerFLAC(t *testing.T) {
	c, err := DetectContainer("sample.flac", []byte("fLaC\x00\x00\x00\x22"))
	require.NoError(t, err)
	assert.Equal(t, ContainerFLAC, c)
}

func TestDetectContainerMP3ID3(t *testing.T) {
	c, err := DetectContainer("sample.mp3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00"))
	require.NoError(t, err)
	assert.Equal(t, ContainerMP3, c)
}

func TestDetectContainerMP3FrameSync(t *testing.T) {
	c, err := DetectContainer("sample.mp3", []byte{0xFF, 0xFB, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, ContainerMP3, c)
}

func TestDetectContainerStreamByExtension(t *testing.T) {
	c, err := DetectContainer("sample.vob", []byte{0x00, 0x00, 0x01, 0xBA})
	require.NoError(t, err)
	assert.Equal(t, ContainerStream, c)
}

func TestDetectContainerUnknown(t *testing.T) {
	_, err := DetectContainer("sample.bin", []byte{0x00, 0x01, 0x02, 0x03})
	assert.Error(t, err)
}

func TestContainerTypeString(t *testing.T) {
	assert.Equal(t, "MKV", ContainerMKV.String())
	assert.Equal(t, "Unknown", ContainerUnknown.String())
}
