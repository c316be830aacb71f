package reconstruct

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/spf13/afero"

	"github.com/rescene-go/rescene/internal/bytecodec"
	"github.com/rescene-go/rescene/internal/rerrors"
)

// HashKind selects which digest reconstruct verifies finished volumes
// against, per spec.md §6's reconstruct operation.
type HashKind int

const (
	HashCRC32 HashKind = iota
	HashSHA1
)

// verifyVolume hashes the just-closed volume at path with kind and reports
// whether its hex digest appears in hashes (case-insensitively).
func verifyVolume(fs afero.Fs, path string, kind HashKind, hashes map[string]struct{}) (bool, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return false, rerrors.IO(fmt.Sprintf("reading %s for verification", path), err)
	}

	var digest string
	switch kind {
	case HashCRC32:
		c := bytecodec.NewCRC32()
		c.Update(data)
		digest = fmt.Sprintf("%08x", c.Sum())
	case HashSHA1:
		sum := sha1.Sum(data)
		digest = hex.EncodeToString(sum[:])
	}

	_, ok := hashes[digest]
	return ok, nil
}

// normalizeHashes builds a lookup set from a caller-supplied list of hex
// digests, lower-cased so membership tests are case-insensitive.
func normalizeHashes(raw []string) map[string]struct{} {
	set := make(map[string]struct{}, len(raw))
	for _, h := range raw {
		set[lower(h)] = struct{}{}
	}
	return set
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
