// Package pathutil validates that output directories exist and are
// writable before rescene starts spending time building a container.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const writeTestFile = ".rescene-write-test"

// CheckDirectoryWritable creates path if missing and confirms it's a
// writable directory.
func CheckDirectoryWritable(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	switch info, statErr := os.Stat(absPath); {
	case os.IsNotExist(statErr):
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return fmt.Errorf("directory %s does not exist and cannot be created: %w", absPath, err)
		}
	case statErr != nil:
		return fmt.Errorf("cannot access directory %s: %w", absPath, statErr)
	case !info.IsDir():
		return fmt.Errorf("path %s exists but is not a directory", absPath)
	}

	probe := filepath.Join(absPath, writeTestFile)
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", absPath, err)
	}
	_, writeErr := f.Write([]byte("probe"))
	f.Close()
	os.Remove(probe)
	if writeErr != nil {
		return fmt.Errorf("directory %s is not writable: %w", absPath, writeErr)
	}

	return nil
}

// CheckFileDirectoryWritable checks that the directory containing filePath
// is writable. An empty filePath is treated as unset and always passes.
func CheckFileDirectoryWritable(filePath string, fileType string) error {
	if filePath == "" {
		return nil
	}

	dir := filepath.Dir(filePath)
	if dir == "" || dir == "." {
		dir = "./"
	}

	if err := CheckDirectoryWritable(dir); err != nil {
		return fmt.Errorf("%s file directory check failed: %w", fileType, err)
	}

	return nil
}
