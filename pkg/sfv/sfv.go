// Package sfv parses Simple File Verification listings, the ordered
// filename-plus-CRC32 manifests scene releases ship alongside their RAR
// volumes.
package sfv

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rescene-go/rescene/internal/rerrors"
)

// Entry is one filename/checksum pair from an SFV listing, in file order.
type Entry struct {
	Name string
	CRC  uint32
}

// Parse reads an SFV listing, skipping ";" comment lines and blank lines.
// Lines are "filename crc32hex", separated by the last run of whitespace so
// that filenames containing spaces still parse.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}

		idx := strings.LastIndexAny(line, " \t")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		crcText := strings.TrimSpace(line[idx+1:])
		if name == "" || crcText == "" {
			continue
		}

		crc, err := strconv.ParseUint(crcText, 16, 32)
		if err != nil {
			return nil, rerrors.Malformed("invalid SFV checksum field", err)
		}
		entries = append(entries, Entry{Name: name, CRC: uint32(crc)})
	}
	if err := scanner.Err(); err != nil {
		return nil, rerrors.IO("reading SFV listing", err)
	}
	return entries, nil
}
