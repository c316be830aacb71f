package srs

import (
	"github.com/rescene-go/rescene/internal/bytecodec"
)

var streamTag = []byte("STRM")

const streamHeaderVersion = uint32(8)

// ProfileStream treats a raw elementary stream (.vob/.ts/.m2ts/...) as a
// single track spanning the whole file, with no container structure to
// describe, per spec.md §4.4.7.
func ProfileStream(data []byte) (*ProfileResult, error) {
	track := &Track{Number: 1}
	track.Absorb(data)

	return &ProfileResult{
		ContainerType: ContainerStream,
		Tracks:        []*Track{track},
		CRC32:         crc32Of(data),
		ParsedSize:    0, // raw streams carry no container bytes to preserve
	}, nil
}

// WriteStream emits an SRS for a raw stream sample: a synthetic "STRM" tag
// and version marker, followed by SRSF and SRST records. None of the
// original sample bytes are preserved, since a raw stream has no header
// structure to splice against during reconstruction.
func WriteStream(data []byte, fd FileData, tracks []*Track) ([]byte, error) {
	w := bytecodec.NewWriter()
	w.WriteBytes(streamTag)
	w.WriteU32LE(streamHeaderVersion)
	w.WriteBytes(fd.Encode())
	for _, t := range tracks {
		td := TrackData{TrackNumber: t.Number, DataLength: t.DataLength, MatchOffset: t.MatchOffset, Signature: t.Signature}
		w.WriteBytes(td.Encode())
	}
	return w.Bytes(), nil
}
