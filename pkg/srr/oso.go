package srr

import "encoding/binary"

// osoHashChunk is the window size the OpenSubtitles hash scheme sums over
// at each end of the file.
const osoHashChunk = 64 * 1024

// osoHash computes the OpenSubtitles-style hash of data: file size plus the
// sum of 8-byte little-endian words drawn from the first and last 64KiB
// (the whole file twice over when it is smaller than that).
func osoHash(data []byte) uint64 {
	hash := uint64(len(data))
	if len(data) < osoHashChunk {
		hash += sumWords(data)
		hash += sumWords(data)
		return hash
	}
	hash += sumWords(data[:osoHashChunk])
	hash += sumWords(data[len(data)-osoHashChunk:])
	return hash
}

func sumWords(b []byte) uint64 {
	var sum uint64
	for i := 0; i+8 <= len(b); i += 8 {
		sum += binary.LittleEndian.Uint64(b[i : i+8])
	}
	return sum
}
