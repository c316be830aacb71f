package reconstruct

import (
	"context"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescene-go/rescene/internal/bytecodec"
	"github.com/rescene-go/rescene/pkg/rar"
	"github.com/rescene-go/rescene/pkg/srr"
)

// buildRar4FileHeader builds a minimal RAR4 FileHeader block (Store method)
// declaring a payload of len(payload) bytes; the caller appends payload
// itself immediately after.
func buildRar4FileHeader(name string, payload []byte) []byte {
	packSize := uint32(len(payload))
	content := make([]byte, 0, 25+len(name))
	content = append(content, byte(packSize), byte(packSize>>8), byte(packSize>>16), byte(packSize>>24))
	content = append(content, 0, 0, 0, 0) // unpSize
	content = append(content, 0)          // hostOS
	content = append(content, 0, 0, 0, 0) // fileCRC
	content = append(content, 0, 0, 0, 0) // time
	content = append(content, 0)          // unpVer
	content = append(content, 0x30)       // method: Store
	content = append(content, byte(len(name)), byte(len(name)>>8))
	content = append(content, 0, 0, 0, 0) // attr
	content = append(content, name...)

	headerSize := 7 + len(content)
	buf := make([]byte, 0, headerSize)
	buf = append(buf, 0, 0, rar.Type4File)
	buf = append(buf, 0, 0) // flags
	buf = append(buf, byte(headerSize), byte(headerSize>>8))
	buf = append(buf, content...)
	return buf
}

func rar4EndArchive() []byte {
	return []byte{0, 0, rar.Type4EndArchive, 0, 0, 7, 0}
}

// TestReconstructRoundTrip builds a synthetic single-volume RAR4 archive,
// produces an SRR from it with pkg/srr, then reconstructs the volume from a
// separate source-file directory and checks the rebuilt volume is byte-for-
// byte identical to the original.
func TestReconstructRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	payload := []byte("the quick brown fox jumps over the lazy dog, scene release bytes")
	header := buildRar4FileHeader("movie.avi", payload)

	var volume []byte
	volume = append(volume, rar.Rar4Marker[:]...)
	volume = append(volume, header...)
	volume = append(volume, payload...)
	volume = append(volume, rar4EndArchive()...)

	require.NoError(t, afero.WriteFile(fs, "/rel/release.rar", volume, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/movie.avi", payload, 0o644))

	createRes := srr.Create(context.Background(), fs, "/out/release.srr", []string{"/rel/release.rar"}, nil, srr.Options{}, nil, nil)
	require.NoError(t, createRes.Error)
	require.True(t, createRes.Success)

	c := bytecodec.NewCRC32()
	c.Update(volume)
	expectedHash := fmt.Sprintf("%08x", c.Sum())

	res := Reconstruct(
		context.Background(),
		fs,
		"/out/release.srr",
		"/src",
		"/rebuilt",
		Options{Hashes: []string{expectedHash}, HashKind: HashCRC32},
		nil,
		nil,
	)
	require.NoError(t, res.Error)
	assert.True(t, res.Success)
	assert.True(t, res.AllMatched)
	assert.Equal(t, 1, res.VolumesWritten)

	rebuilt, err := afero.ReadFile(fs, "/rebuilt/release.rar")
	require.NoError(t, err)
	assert.Equal(t, volume, rebuilt)
}

func TestReconstructMismatchedHashIsWarned(t *testing.T) {
	fs := afero.NewMemMapFs()

	payload := []byte("payload-bytes")
	header := buildRar4FileHeader("f.bin", payload)
	var volume []byte
	volume = append(volume, rar.Rar4Marker[:]...)
	volume = append(volume, header...)
	volume = append(volume, payload...)
	volume = append(volume, rar4EndArchive()...)

	require.NoError(t, afero.WriteFile(fs, "/rel/release.rar", volume, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/f.bin", payload, 0o644))

	createRes := srr.Create(context.Background(), fs, "/out/release.srr", []string{"/rel/release.rar"}, nil, srr.Options{}, nil, nil)
	require.NoError(t, createRes.Error)

	res := Reconstruct(context.Background(), fs, "/out/release.srr", "/src", "/rebuilt", Options{Hashes: []string{"deadbeef"}}, nil, nil)
	require.NoError(t, res.Error)
	assert.True(t, res.Success)
	assert.False(t, res.AllMatched)
	assert.NotEmpty(t, res.Warnings)
}

func TestReconstructMissingSourceFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	payload := []byte("payload-bytes")
	header := buildRar4FileHeader("missing.bin", payload)
	var volume []byte
	volume = append(volume, rar.Rar4Marker[:]...)
	volume = append(volume, header...)
	volume = append(volume, payload...)
	volume = append(volume, rar4EndArchive()...)

	require.NoError(t, afero.WriteFile(fs, "/rel/release.rar", volume, 0o644))
	// Source directory exists but doesn't contain missing.bin.
	require.NoError(t, fs.MkdirAll("/src", 0o755))

	createRes := srr.Create(context.Background(), fs, "/out/release.srr", []string{"/rel/release.rar"}, nil, srr.Options{}, nil, nil)
	require.NoError(t, createRes.Error)

	res := Reconstruct(context.Background(), fs, "/out/release.srr", "/src", "/rebuilt", Options{}, nil, nil)
	assert.False(t, res.Success)
	assert.Error(t, res.Error)

	// The partially-written output volume must be cleaned up on abort.
	exists, _ := afero.Exists(fs, "/rebuilt/release.rar")
	assert.False(t, exists)
}
