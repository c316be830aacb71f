package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDirectoryWritableRejectsEmptyPath(t *testing.T) {
	assert.Error(t, CheckDirectoryWritable(""))
}

func TestCheckDirectoryWritableCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, CheckDirectoryWritable(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCheckDirectoryWritableRejectsFilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.Error(t, CheckDirectoryWritable(path))
}

func TestCheckFileDirectoryWritableAllowsEmptyPath(t *testing.T) {
	assert.NoError(t, CheckFileDirectoryWritable("", "log"))
}

func TestCheckFileDirectoryWritableChecksParentDir(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "out.srr")
	assert.NoError(t, CheckFileDirectoryWritable(filePath, "output"))
}
