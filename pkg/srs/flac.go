package srs

import (
	"github.com/rescene-go/rescene/internal/bytecodec"
	"github.com/rescene-go/rescene/internal/rerrors"
)

const flacMarkerLen = 4

const (
	flacBlockTypeSRSF = 0x73 // 's'
	flacBlockTypeSRST = 0x74 // 't'
)

// ProfileFLAC walks a FLAC sample: the marker and metadata blocks are
// container bytes, and everything from the end of the last ("isLast")
// metadata block to EOF is track 1's frame data, per spec.md §4.4.5.
func ProfileFLAC(data []byte) (*ProfileResult, error) {
	if len(data) < flacMarkerLen || string(data[:flacMarkerLen]) != "fLaC" {
		return nil, rerrors.Malformed("missing fLaC marker", nil)
	}

	pos := flacMarkerLen
	for {
		if pos+4 > len(data) {
			return nil, rerrors.Malformed("truncated FLAC metadata block header", nil)
		}
		header := data[pos]
		isLast := header&0x80 != 0
		size := int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		bodyStart := pos + 4
		bodyEnd := bodyStart + size
		if bodyEnd > len(data) {
			return nil, rerrors.Malformed("FLAC metadata block exceeds file", nil)
		}
		pos = bodyEnd
		if isLast {
			break
		}
	}

	track := &Track{Number: 1}
	track.Absorb(data[pos:])

	var tracks []*Track
	if track.DataLength > 0 {
		tracks = []*Track{track}
	}

	return &ProfileResult{
		ContainerType: ContainerFLAC,
		Tracks:        tracks,
		CRC32:         crc32Of(data),
		ParsedSize:    int64(len(data)),
	}, nil
}

// WriteFLAC emits an SRS copy of a FLAC sample: the marker, then injected
// SRSF/SRST metadata blocks, then the original metadata blocks verbatim,
// with the trailing frame data dropped entirely.
func WriteFLAC(data []byte, fd FileData, tracks []*Track) ([]byte, error) {
	if len(data) < flacMarkerLen || string(data[:flacMarkerLen]) != "fLaC" {
		return nil, rerrors.Malformed("missing fLaC marker", nil)
	}

	pos := flacMarkerLen
	for {
		if pos+4 > len(data) {
			return nil, rerrors.Malformed("truncated FLAC metadata block header", nil)
		}
		size := int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		isLast := data[pos]&0x80 != 0
		pos += 4 + size
		if isLast {
			break
		}
	}

	var out []byte
	out = append(out, data[:flacMarkerLen]...)
	out = append(out, buildFLACBlock(flacBlockTypeSRSF, fd.Encode())...)
	for _, t := range tracks {
		td := TrackData{TrackNumber: t.Number, DataLength: t.DataLength, MatchOffset: t.MatchOffset, Signature: t.Signature}
		out = append(out, buildFLACBlock(flacBlockTypeSRST, td.Encode())...)
	}
	out = append(out, data[flacMarkerLen:pos]...)
	return out, nil
}

func buildFLACBlock(blockType byte, body []byte) []byte {
	w := bytecodec.NewWriter()
	w.WriteU8(blockType) // isLast bit (0x80) left clear: more blocks follow
	w.WriteU24BE(uint32(len(body)))
	w.WriteBytes(body)
	return w.Bytes()
}
