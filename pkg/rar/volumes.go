package rar

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Grounded on javi11-altmount's internal/importer/archive/rar/utils.go
// normalizeRarPartFilename pattern set (partPatternNumber/rPatternNumber/
// numericPatternNumber), generalized into a comparator usable outside the
// NZB-import pipeline.

var (
	partPattern    = regexp.MustCompile(`(?i)\.part(\d+)\.rar$`)
	rExtPattern    = regexp.MustCompile(`(?i)\.r(\d{2,3})$`)
	numericPattern = regexp.MustCompile(`\.(\d{3,})$`)
)

// volumeKey orders volume names the way classic multi-volume RAR archives do:
// .rar sorts first, then .r00 < .r01 < ... < .r99 < .s00, matching the
// "(letter-'r')*100+digits" key spec.md §4.3 spells out; "part01.rar" sets
// sort by integer part number; plain numeric extensions sort numerically.
func volumeKey(name string) (bucket int, key int64) {
	lower := strings.ToLower(name)

	if m := partPattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return 0, n
	}

	if strings.HasSuffix(lower, ".rar") {
		return 1, 0
	}

	if m := rExtPattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return 1, 1 + n
	}

	ext := strings.TrimPrefix(filepath.Ext(lower), ".")
	if len(ext) >= 1 && ext[0] >= 'a' && ext[0] <= 'z' && len(ext) >= 2 {
		if n, err := strconv.ParseInt(ext[1:], 10, 64); err == nil {
			letterRank := int64(ext[0]-'r') * 100
			return 1, letterRank + n
		}
	}

	if m := numericPattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return 2, n
	}

	return 3, 0
}

// CompareRarVolumeNames implements the total order spec.md §8 requires of
// volume names within one release.
func CompareRarVolumeNames(a, b string) int {
	ba, ka := volumeKey(a)
	bb, kb := volumeKey(b)
	if ba != bb {
		return ba - bb
	}
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
}

// SortVolumes orders paths in place using CompareRarVolumeNames on their basenames.
func SortVolumes(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return CompareRarVolumeNames(filepath.Base(paths[i]), filepath.Base(paths[j])) < 0
	})
}

// DiscoverVolumes finds every sibling volume of firstVolume in the same
// directory (by matching basename-minus-extension) and returns them sorted
// by CompareRarVolumeNames. Grounded on javi11-rarlist's directory-scan
// volume discovery, adapted to afero.Fs so it is testable against a
// afero.NewMemMapFs without touching disk.
func DiscoverVolumes(fs afero.Fs, firstVolume string) ([]string, error) {
	dir := filepath.Dir(firstVolume)
	stem := volumeStem(filepath.Base(firstVolume))

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if volumeStem(e.Name()) == stem {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}

	SortVolumes(matches)
	return matches, nil
}

// volumeStem strips a volume-numbering suffix to find the release's shared
// basename, e.g. "release.part03.rar" and "release.r00" both map to
// "release".
func volumeStem(name string) string {
	lower := strings.ToLower(name)
	if m := partPattern.FindStringIndex(lower); m != nil {
		return name[:m[0]]
	}
	if strings.HasSuffix(lower, ".rar") {
		return name[:len(name)-4]
	}
	if m := rExtPattern.FindStringIndex(lower); m != nil {
		return name[:m[0]]
	}
	if m := numericPattern.FindStringIndex(lower); m != nil {
		return name[:m[0]]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
