package srs

import (
	"github.com/rescene-go/rescene/internal/bytecodec"
	"github.com/rescene-go/rescene/internal/rerrors"
)

// File flag bits for FileData.Flags.
const (
	FileFlagSimpleBlockSizeFix = 0x0001
	FileFlagAttachmentsRemoved = 0x0002
	DefaultFileFlags           = FileFlagSimpleBlockSizeFix | FileFlagAttachmentsRemoved
)

// Track flag bits for TrackData.Flags.
const (
	TrackFlagBigDataLength  = 0x0004
	TrackFlagBigTrackNumber = 0x0008
)

const bigDataLengthThreshold = 1 << 31
const bigTrackNumberThreshold = 1 << 16

// FileData is the SRSF payload record: one per SRS file.
type FileData struct {
	Flags      uint16
	AppName    string
	FileName   string
	SampleSize uint64
	CRC32      uint32
}

// Encode serializes the SRSF payload, little-endian throughout.
func (f FileData) Encode() []byte {
	w := bytecodec.NewWriter()
	w.WriteU16LE(f.Flags)
	w.WriteU16LE(uint16(len(f.AppName)))
	w.WriteBytes([]byte(f.AppName))
	w.WriteU16LE(uint16(len(f.FileName)))
	w.WriteBytes([]byte(f.FileName))
	w.WriteU64LE(f.SampleSize)
	w.WriteU32LE(f.CRC32)
	return w.Bytes()
}

// DecodeFileData parses an SRSF payload.
func DecodeFileData(b []byte) (FileData, error) {
	r := bytecodec.NewReader(b)
	flags, err := r.U16LE()
	if err != nil {
		return FileData{}, bytecodec.AsRerror(err)
	}
	appNameLen, err := r.U16LE()
	if err != nil {
		return FileData{}, bytecodec.AsRerror(err)
	}
	appNameBytes, err := r.Bytes(int(appNameLen))
	if err != nil {
		return FileData{}, bytecodec.AsRerror(err)
	}
	fileNameLen, err := r.U16LE()
	if err != nil {
		return FileData{}, bytecodec.AsRerror(err)
	}
	fileNameBytes, err := r.Bytes(int(fileNameLen))
	if err != nil {
		return FileData{}, bytecodec.AsRerror(err)
	}
	sampleSize, err := r.U64LE()
	if err != nil {
		return FileData{}, bytecodec.AsRerror(err)
	}
	crc, err := r.U32LE()
	if err != nil {
		return FileData{}, bytecodec.AsRerror(err)
	}
	return FileData{
		Flags:      flags,
		AppName:    string(appNameBytes),
		FileName:   string(fileNameBytes),
		SampleSize: sampleSize,
		CRC32:      crc,
	}, nil
}

// TrackData is the SRST payload record: one per track in a sample.
type TrackData struct {
	Flags       uint16
	TrackNumber uint32
	DataLength  uint64
	MatchOffset uint64
	Signature   []byte
}

// Encode serializes the SRST payload, choosing the u16/u32 trackNumber and
// u32/u64 dataLength widths per spec.md §3's size thresholds.
func (t TrackData) Encode() []byte {
	flags := t.Flags
	if t.DataLength >= bigDataLengthThreshold {
		flags |= TrackFlagBigDataLength
	}
	if t.TrackNumber >= bigTrackNumberThreshold {
		flags |= TrackFlagBigTrackNumber
	}

	w := bytecodec.NewWriter()
	w.WriteU16LE(flags)
	if flags&TrackFlagBigTrackNumber != 0 {
		w.WriteU32LE(t.TrackNumber)
	} else {
		w.WriteU16LE(uint16(t.TrackNumber))
	}
	if flags&TrackFlagBigDataLength != 0 {
		w.WriteU64LE(t.DataLength)
	} else {
		w.WriteU32LE(uint32(t.DataLength))
	}
	w.WriteU64LE(t.MatchOffset)
	w.WriteU16LE(uint16(len(t.Signature)))
	w.WriteBytes(t.Signature)
	return w.Bytes()
}

// DecodeTrackData parses an SRST payload.
func DecodeTrackData(b []byte) (TrackData, error) {
	r := bytecodec.NewReader(b)
	flags, err := r.U16LE()
	if err != nil {
		return TrackData{}, bytecodec.AsRerror(err)
	}

	var trackNumber uint32
	if flags&TrackFlagBigTrackNumber != 0 {
		trackNumber, err = r.U32LE()
	} else {
		var v uint16
		v, err = r.U16LE()
		trackNumber = uint32(v)
	}
	if err != nil {
		return TrackData{}, bytecodec.AsRerror(err)
	}

	var dataLength uint64
	if flags&TrackFlagBigDataLength != 0 {
		dataLength, err = r.U64LE()
	} else {
		var v uint32
		v, err = r.U32LE()
		dataLength = uint64(v)
	}
	if err != nil {
		return TrackData{}, bytecodec.AsRerror(err)
	}

	matchOffset, err := r.U64LE()
	if err != nil {
		return TrackData{}, bytecodec.AsRerror(err)
	}
	sigLen, err := r.U16LE()
	if err != nil {
		return TrackData{}, bytecodec.AsRerror(err)
	}
	if int(sigLen) > maxSignature {
		return TrackData{}, rerrors.Malformed("track signature longer than 256 bytes", nil)
	}
	sig, err := r.Bytes(int(sigLen))
	if err != nil {
		return TrackData{}, bytecodec.AsRerror(err)
	}

	return TrackData{
		Flags:       flags,
		TrackNumber: trackNumber,
		DataLength:  dataLength,
		MatchOffset: matchOffset,
		Signature:   append([]byte(nil), sig...),
	}, nil
}
