package srs

import (
	"bytes"

	"github.com/rescene-go/rescene/internal/bytecodec"
	"github.com/rescene-go/rescene/internal/rerrors"
)

var asfDataObjectGUIDPrefix = []byte{0x36, 0x26, 0xB2, 0x75}

// srsfGUID and srstGUID are the synthetic ASCII "GUIDs" spec.md §4.5 uses
// to tag injected WMV objects, since ASF has no registered GUID for them.
var srsfGUID = []byte("SRSFSRSFSRSFSRSF")
var srstGUID = []byte("SRSTSRSTSRSTSRST")

const asfObjectHeaderLen = 24  // guid(16) + size(u64 LE)
const asfDataHeaderLen = 26    // fileId(16) + totalPackets(u64 LE) + reserved(u16)

// ProfileWMV walks an ASF sample, treating the Data Object's packets as one
// synthetic track, per spec.md §4.4.4.
func ProfileWMV(data []byte) (*ProfileResult, error) {
	var tracks []*Track

	pos := 0
	for pos+asfObjectHeaderLen <= len(data) {
		guid := data[pos : pos+16]
		size := le64(data[pos+16 : pos+24])
		objEnd := pos + int(size)
		if objEnd > len(data) || objEnd <= pos {
			return nil, rerrors.Malformed("ASF object size exceeds file", nil)
		}

		if bytes.Equal(guid[:4], asfDataObjectGUIDPrefix) {
			if pos+asfObjectHeaderLen+asfDataHeaderLen > objEnd {
				return nil, rerrors.Malformed("ASF Data Object header truncated", nil)
			}
			packetsStart := pos + asfObjectHeaderLen + asfDataHeaderLen
			t := &Track{Number: 1}
			t.Absorb(data[packetsStart:objEnd])
			tracks = append(tracks, t)
		}

		pos = objEnd
	}

	return &ProfileResult{
		ContainerType: ContainerWMV,
		Tracks:        tracks,
		CRC32:         crc32Of(data),
		ParsedSize:    int64(len(data)),
	}, nil
}

// WriteWMV emits an SRS copy of a WMV sample: every object copied
// verbatim except the Data Object, whose packets are stripped to a
// header-only record, followed immediately by synthetic SRSF/SRST objects.
func WriteWMV(data []byte, fd FileData, tracks []*Track) ([]byte, error) {
	var out []byte
	pos := 0
	for pos+asfObjectHeaderLen <= len(data) {
		guid := data[pos : pos+16]
		size := le64(data[pos+16 : pos+24])
		objEnd := pos + int(size)

		if bytes.Equal(guid[:4], asfDataObjectGUIDPrefix) {
			headerEnd := pos + asfObjectHeaderLen + asfDataHeaderLen
			out = append(out, data[pos:headerEnd]...)
			out = append(out, buildASFObject(srsfGUID, fd.Encode())...)
			for _, t := range tracks {
				td := TrackData{TrackNumber: t.Number, DataLength: t.DataLength, MatchOffset: t.MatchOffset, Signature: t.Signature}
				out = append(out, buildASFObject(srstGUID, td.Encode())...)
			}
		} else {
			out = append(out, data[pos:objEnd]...)
		}

		pos = objEnd
	}
	return out, nil
}

func buildASFObject(guid []byte, payload []byte) []byte {
	w := bytecodec.NewWriter()
	w.WriteBytes(guid)
	w.WriteU64LE(uint64(asfObjectHeaderLen + len(payload)))
	w.WriteBytes(payload)
	return w.Bytes()
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
