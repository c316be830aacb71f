package srs

import (
	"github.com/rescene-go/rescene/internal/bytecodec"
	"github.com/rescene-go/rescene/internal/ebmlcodec"
	"github.com/rescene-go/rescene/internal/rerrors"
)

// EBML element IDs relevant to MKV profiling/writing, per spec.md §4.4.2.
const (
	idSegment            = 0x18538067
	idCluster            = 0x1F43B675
	idTracks             = 0x1654AE6B
	idTrackEntry         = 0xAE
	idContentEncodings   = 0x6D80
	idContentEncoding    = 0x6240
	idContentCompression = 0x5034
	idBlockGroup         = 0xA0
	idAttachments        = 0x1941A469
	idAttachedFile       = 0x61A7
	idSimpleBlock        = 0xA3
	idBlock              = 0xA1
	idReSample           = 0x1F697576
	idResampleFile       = 0x6A75
	idResampleTrack      = 0x6B75
)

var mkvContainerIDs = map[uint32]bool{
	idSegment: true, idCluster: true, idTracks: true, idTrackEntry: true,
	idContentEncodings: true, idContentEncoding: true, idContentCompression: true,
	idBlockGroup: true, idAttachments: true, idAttachedFile: true,
}

// ProfileMKV walks an EBML/Matroska sample, classifying SimpleBlock/Block
// frame data as per-track payload.
func ProfileMKV(data []byte) (*ProfileResult, error) {
	tracks := map[uint32]*Track{}

	var walk func(start, end int) error
	walk = func(start, end int) error {
		r := bytecodec.NewReader(data)
		if err := r.Seek(start); err != nil {
			return bytecodec.AsRerror(err)
		}
		r.SetEnd(end)

		for r.Remaining() > 0 {
			id, _, err := ebmlcodec.DecodeID(r)
			if err != nil {
				return rerrors.Malformed("invalid EBML element ID", err)
			}
			size, _, err := ebmlcodec.DecodeSize(r)
			if err != nil {
				return rerrors.Malformed("invalid EBML element size", err)
			}
			bodyStart := r.Pos()
			bodyEnd := bodyStart + int(size)
			if bodyEnd > end {
				return rerrors.Malformed("EBML element exceeds its region", nil)
			}

			switch {
			case mkvContainerIDs[id]:
				if err := walk(bodyStart, bodyEnd); err != nil {
					return err
				}
			case id == idSimpleBlock || id == idBlock:
				if err := absorbBlock(data, bodyStart, bodyEnd, tracks); err != nil {
					return err
				}
			}

			if err := r.Seek(bodyEnd); err != nil {
				return bytecodec.AsRerror(err)
			}
		}
		return nil
	}

	if err := walk(0, len(data)); err != nil {
		return nil, err
	}

	return &ProfileResult{
		ContainerType: ContainerMKV,
		Tracks:        sortedTracks(tracks),
		CRC32:         crc32Of(data),
		ParsedSize:    int64(len(data)),
	}, nil
}

func absorbBlock(data []byte, start, end int, tracks map[uint32]*Track) error {
	r := bytecodec.NewReader(data)
	if err := r.Seek(start); err != nil {
		return bytecodec.AsRerror(err)
	}
	r.SetEnd(end)

	trackNum, _, err := ebmlcodec.DecodeSize(r)
	if err != nil {
		return rerrors.Malformed("invalid Block track number vint", err)
	}
	if _, err := r.Bytes(3); err != nil { // 2-byte timecode + 1-byte flags
		return rerrors.Malformed("truncated Block header", err)
	}
	frameData, err := r.Bytes(r.Remaining())
	if err != nil {
		return bytecodec.AsRerror(err)
	}

	t, ok := tracks[uint32(trackNum)]
	if !ok {
		t = &Track{Number: uint32(trackNum)}
		tracks[uint32(trackNum)] = t
	}
	t.Absorb(frameData)
	return nil
}

// WriteMKV emits an SRS copy of an MKV sample: structurally identical EBML
// elements with SimpleBlock/Block frame data dropped (the track+timecode+
// flags header is kept), and a ReSample element injected as the first
// child of Segment.
func WriteMKV(data []byte, fd FileData, tracks []*Track) ([]byte, error) {
	var walk func(start, end int, isSegment bool) ([]byte, error)
	walk = func(start, end int, isSegment bool) ([]byte, error) {
		r := bytecodec.NewReader(data)
		if err := r.Seek(start); err != nil {
			return nil, bytecodec.AsRerror(err)
		}
		r.SetEnd(end)

		var out []byte
		first := true
		for r.Remaining() > 0 {
			id, _, err := ebmlcodec.DecodeID(r)
			if err != nil {
				return nil, rerrors.Malformed("invalid EBML element ID", err)
			}
			size, _, err := ebmlcodec.DecodeSize(r)
			if err != nil {
				return nil, rerrors.Malformed("invalid EBML element size", err)
			}
			bodyStart := r.Pos()
			bodyEnd := bodyStart + int(size)

			if first && isSegment {
				out = append(out, buildResampleElement(fd, tracks)...)
			}
			first = false

			switch {
			case mkvContainerIDs[id]:
				children, err := walk(bodyStart, bodyEnd, id == idSegment)
				if err != nil {
					return nil, err
				}
				out = append(out, ebmlcodec.BuildElement(id, children)...)
			case id == idSimpleBlock || id == idBlock:
				headerOnly, err := blockHeaderBytes(data, bodyStart, bodyEnd)
				if err != nil {
					return nil, err
				}
				out = append(out, ebmlcodec.BuildElement(id, headerOnly)...)
			default:
				out = append(out, ebmlcodec.BuildElement(id, data[bodyStart:bodyEnd])...)
			}

			if err := r.Seek(bodyEnd); err != nil {
				return nil, bytecodec.AsRerror(err)
			}
		}
		return out, nil
	}

	return walk(0, len(data), false)
}

func blockHeaderBytes(data []byte, start, end int) ([]byte, error) {
	r := bytecodec.NewReader(data)
	if err := r.Seek(start); err != nil {
		return nil, bytecodec.AsRerror(err)
	}
	r.SetEnd(end)
	if _, _, err := ebmlcodec.DecodeSize(r); err != nil {
		return nil, rerrors.Malformed("invalid Block track number vint", err)
	}
	if _, err := r.Bytes(3); err != nil {
		return nil, rerrors.Malformed("truncated Block header", err)
	}
	return data[start:r.Pos()], nil
}

func buildResampleElement(fd FileData, tracks []*Track) []byte {
	inner := ebmlcodec.BuildElement(idResampleFile, fd.Encode())
	for _, t := range tracks {
		td := TrackData{TrackNumber: t.Number, DataLength: t.DataLength, MatchOffset: t.MatchOffset, Signature: t.Signature}
		inner = append(inner, ebmlcodec.BuildElement(idResampleTrack, td.Encode())...)
	}
	return ebmlcodec.BuildElement(idReSample, inner)
}
