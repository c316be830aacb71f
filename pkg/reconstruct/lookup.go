package reconstruct

import (
	"fmt"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/rescene-go/rescene/internal/rerrors"
)

// sourceLocator resolves an archivedFileName to an actual path under
// inputDirectory, per spec.md §4.6's lookup rules. Recursive-search results
// are cached per directory so splicing many files from the same release
// doesn't re-walk the tree for each one.
type sourceLocator struct {
	fs        afero.Fs
	inputDir  string
	dirCache  *lru.Cache[string, []string]
}

func newSourceLocator(fs afero.Fs, inputDir string) *sourceLocator {
	cache, _ := lru.New[string, []string](64)
	return &sourceLocator{fs: fs, inputDir: inputDir, dirCache: cache}
}

// Locate finds the real file backing archivedFileName, trying, in order:
// the relative path as-is, the flattened basename, then a case-insensitive
// recursive search.
func (l *sourceLocator) Locate(archivedFileName string) (string, error) {
	candidate := filepath.Join(l.inputDir, archivedFileName)
	if exists, _ := afero.Exists(l.fs, candidate); exists {
		return candidate, nil
	}

	base := filepath.Base(archivedFileName)
	flattened := filepath.Join(l.inputDir, base)
	if exists, _ := afero.Exists(l.fs, flattened); exists {
		return flattened, nil
	}

	searchRoot := l.inputDir
	if dir := filepath.Dir(archivedFileName); dir != "." && dir != "" {
		joined := filepath.Join(l.inputDir, dir)
		if exists, _ := afero.IsDir(l.fs, joined); exists {
			searchRoot = joined
		}
	}

	found, err := l.recursiveFind(searchRoot, base)
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", rerrors.NotFound(fmt.Sprintf("source file for %s", archivedFileName), nil)
	}
	return found, nil
}

func (l *sourceLocator) recursiveFind(root, wantBase string) (string, error) {
	want := strings.ToLower(wantBase)

	var walk func(dir string) (string, error)
	walk = func(dir string) (string, error) {
		names, subdirs, err := l.listDir(dir)
		if err != nil {
			return "", err
		}
		for _, name := range names {
			if strings.ToLower(name) == want {
				return filepath.Join(dir, name), nil
			}
		}
		for _, sub := range subdirs {
			if found, err := walk(filepath.Join(dir, sub)); err != nil {
				return "", err
			} else if found != "" {
				return found, nil
			}
		}
		return "", nil
	}

	return walk(root)
}

// listDir returns a directory's file names and subdirectory names,
// caching the split so repeated lookups under the same tree don't re-stat.
func (l *sourceLocator) listDir(dir string) (files []string, dirs []string, err error) {
	key := "f:" + dir
	if cached, ok := l.dirCache.Get(key); ok {
		dirsCached, _ := l.dirCache.Get("d:" + dir)
		return cached, dirsCached, nil
	}

	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil, nil, rerrors.IO(fmt.Sprintf("listing directory %s", dir), err)
	}
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	l.dirCache.Add(key, files)
	l.dirCache.Add("d:"+dir, dirs)
	return files, dirs, nil
}
