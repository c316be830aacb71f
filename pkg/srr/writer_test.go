package srr

import (
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescene-go/rescene/internal/progress"
	"github.com/rescene-go/rescene/pkg/rar"
)

// rar4FileHeaderBlock builds a minimal RAR4 FileHeader block, stored
// (uncompressed) method, zero-length packed payload.
func rar4FileHeaderBlock(name string) []byte {
	content := make([]byte, 0, 25+len(name))
	content = append(content, 0, 0, 0, 0) // packSize = 0
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

func rar4EndArchiveBlock() []byte {
	return []byte{0, 0, rar.Type4EndArchive, 0, 0, 7, 0}
}

func TestCreateSingleVolume(t *testing.T) {
	fs := afero.NewMemMapFs()

	volume := append(append([]byte{}, rar.Rar4Marker[:]...), rar4FileHeaderBlock("movie.avi")...)
	volume = append(volume, rar4EndArchiveBlock()...)
	require.NoError(t, afero.WriteFile(fs, "/rel/release.rar", volume, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/rel/release.nfo", []byte("info"), 0o644))

	res := Create(
		context.Background(),
		fs,
		"/out/release.srr",
		[]string{"/rel/release.rar"},
		[]StoredFileInput{{Path: "/rel/release.nfo"}},
		Options{ComputeOsoHashes: true},
		progress.Null,
		slog.Default(),
	)
	require.NoError(t, res.Error)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.VolumeCount)
	assert.Equal(t, 1, res.StoredFileCount)
	assert.Empty(t, res.Warnings)

	out, err := afero.ReadFile(fs, "/out/release.srr")
	require.NoError(t, err)

	var expected []byte
	expected = append(expected, Header{AppName: DefaultAppName}.Encode()...)
	expected = append(expected, StoredFile{Name: "release.nfo", Data: []byte("info")}.Encode()...)
	expected = append(expected, OsoHash{FileSize: 4, Hash: osoHash([]byte("info")), Name: "release.nfo"}.Encode()...)
	expected = append(expected, RarFile{Name: "release.rar"}.Encode()...)
	expected = append(expected, rar.Rar4Marker[:]...)
	expected = append(expected, rar4FileHeaderBlock("movie.avi")...)
	expected = append(expected, rar4EndArchiveBlock()...)

	assert.Equal(t, expected, out)

	// The tmp file used during Create must not remain.
	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateMissingVolume(t *testing.T) {
	fs := afero.NewMemMapFs()
	res := Create(context.Background(), fs, "/out/release.srr", []string{"/rel/missing.rar"}, nil, Options{}, nil, nil)
	assert.False(t, res.Success)
	assert.Error(t, res.Error)
}

func TestCreateWarnsOnCompressedMethod(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := rar4FileHeaderBlock("movie.avi")
	// Flip the method byte (offset 25 within the block: 7-byte base header
	// + packSize4+unpSize4+hostOS1+fileCRC4+time4+unpVer1) away from Store.
	content[25] = 0x31
	volume := append(append([]byte{}, rar.Rar4Marker[:]...), content...)
	volume = append(volume, rar4EndArchiveBlock()...)
	require.NoError(t, afero.WriteFile(fs, "/rel/release.rar", volume, 0o644))

	res := Create(context.Background(), fs, "/out/release.srr", []string{"/rel/release.rar"}, nil, Options{}, nil, nil)
	require.NoError(t, res.Error)
	assert.NotEmpty(t, res.Warnings)
}
