package srs

import (
	"github.com/rescene-go/rescene/internal/bytecodec"
	"github.com/rescene-go/rescene/internal/rerrors"
)

const id3v1TagLen = 128

func mp3Bounds(data []byte) (audioStart, audioEnd int, hasID3v1 bool, err error) {
	audioStart = 0
	if len(data) >= 10 && string(data[0:3]) == "ID3" {
		size := syncsafe32(data[6:10])
		audioStart = 10 + int(size)
		if audioStart > len(data) {
			return 0, 0, false, rerrors.Malformed("ID3v2 header size exceeds file", nil)
		}
	}

	audioEnd = len(data)
	if len(data) >= id3v1TagLen && string(data[len(data)-id3v1TagLen:len(data)-id3v1TagLen+3]) == "TAG" {
		audioEnd = len(data) - id3v1TagLen
		hasID3v1 = true
	}

	if audioEnd < audioStart {
		return 0, 0, false, rerrors.Malformed("MP3 ID3v1/ID3v2 regions overlap", nil)
	}
	return audioStart, audioEnd, hasID3v1, nil
}

func syncsafe32(b []byte) uint32 {
	return uint32(b[0])<<21 | uint32(b[1])<<14 | uint32(b[2])<<7 | uint32(b[3])
}

// ProfileMP3 treats everything between an optional ID3v2 header and an
// optional trailing ID3v1 tag as track 1's frame data, per spec.md §4.4.6.
func ProfileMP3(data []byte) (*ProfileResult, error) {
	audioStart, audioEnd, _, err := mp3Bounds(data)
	if err != nil {
		return nil, err
	}

	track := &Track{Number: 1}
	track.Absorb(data[audioStart:audioEnd])

	return &ProfileResult{
		ContainerType: ContainerMP3,
		Tracks:        []*Track{track},
		CRC32:         crc32Of(data),
		ParsedSize:    int64(len(data)),
	}, nil
}

// WriteMP3 emits an SRS copy of an MP3 sample: the ID3v2 header verbatim,
// then SRSF/SRST wrapped in a 4-byte ASCII tag plus 4-byte LE size, then
// the ID3v1 tail verbatim if present. Frame data is dropped.
func WriteMP3(data []byte, fd FileData, tracks []*Track) ([]byte, error) {
	audioStart, audioEnd, hasID3v1, err := mp3Bounds(data)
	if err != nil {
		return nil, err
	}

	var out []byte
	out = append(out, data[:audioStart]...)
	out = append(out, buildMP3Frame("SRSF", fd.Encode())...)
	for _, t := range tracks {
		td := TrackData{TrackNumber: t.Number, DataLength: t.DataLength, MatchOffset: t.MatchOffset, Signature: t.Signature}
		out = append(out, buildMP3Frame("SRST", td.Encode())...)
	}
	if hasID3v1 {
		out = append(out, data[audioEnd:]...)
	}
	return out, nil
}

func buildMP3Frame(tag string, body []byte) []byte {
	w := bytecodec.NewWriter()
	w.WriteBytes([]byte(tag))
	w.WriteU32LE(uint32(len(body)))
	w.WriteBytes(body)
	return w.Bytes()
}
