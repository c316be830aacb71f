// Package srs implements the SRS (Sample ReScene) container: an isomorphic
// copy of a media sample's container syntax with per-track A/V payload
// replaced by compact SRSF/SRST descriptors, so the sample can later be
// re-spliced from the original release's streams.
package srs

// ContainerType identifies which media container syntax a sample uses.
type ContainerType int

const (
	ContainerUnknown ContainerType = iota
	ContainerAVI
	ContainerMKV
	ContainerMP4
	ContainerWMV
	ContainerFLAC
	ContainerMP3
	ContainerStream
)

// String renders the container type the way create_srs/detect_srs_container
// report it.
func (c ContainerType) String() string {
	switch c {
	case ContainerAVI:
		return "AVI"
	case ContainerMKV:
		return "MKV"
	case ContainerMP4:
		return "MP4"
	case ContainerWMV:
		return "WMV"
	case ContainerFLAC:
		return "FLAC"
	case ContainerMP3:
		return "MP3"
	case ContainerStream:
		return "Stream"
	default:
		return "Unknown"
	}
}

// Track accumulates one A/V track's payload statistics while a profiler
// walks the container: total length, and the first 256 bytes of payload as
// a self-synchronizing signature.
type Track struct {
	Number      uint32
	DataLength  uint64
	MatchOffset uint64
	Signature   []byte
}

const maxSignature = 256

// Absorb folds a track-payload chunk into the track's running length and
// signature, per spec.md §4.4's shared profiler helper.
func (t *Track) Absorb(chunk []byte) {
	t.DataLength += uint64(len(chunk))
	if len(t.Signature) >= maxSignature {
		return
	}
	need := maxSignature - len(t.Signature)
	if need > len(chunk) {
		need = len(chunk)
	}
	t.Signature = append(t.Signature, chunk[:need]...)
}

// ProfileResult is the outcome of walking one sample's container.
type ProfileResult struct {
	ContainerType ContainerType
	Tracks        []*Track
	CRC32         uint32
	ParsedSize    int64
}
