package rar

import (
	"errors"
	"io"

	"github.com/rescene-go/rescene/internal/rerrors"
)

// ErrMalformedMarker is returned when a stream does not open with either the
// RAR4 or RAR5 marker block.
var ErrMalformedMarker = errors.New("rar: missing RAR marker block")

// Scanner streams RAR blocks from r, one at a time, leaving the cursor
// positioned at the first byte of each block's trailing payload and never
// reading that payload itself unless the caller asks it to.
type Scanner struct {
	r       io.Reader
	version Version
	pending int64 // payload bytes of the last-returned block not yet consumed
}

// DetectAndReadMarker reads the first 7 or 8 bytes of r, determines the RAR
// version, and returns a Scanner plus the verbatim marker bytes.
func DetectAndReadMarker(r io.Reader) (*Scanner, []byte, error) {
	head := make([]byte, 8)
	n, err := io.ReadFull(r, head)
	if err != nil && n < 7 {
		return nil, nil, rerrors.Malformed("truncated RAR marker", err)
	}
	switch {
	case n == 8 && string(head) == string(Rar5Marker[:]):
		return &Scanner{r: r, version: Version5}, head, nil
	case string(head[:7]) == string(Rar4Marker[:]):
		// We over-read by one byte for the RAR5 check; hand it back via a
		// combined reader so the next block read sees it.
		leftover := head[7:8]
		return &Scanner{r: io.MultiReader(bytesReader(leftover), r), version: Version4}, head[:7], nil
	default:
		return nil, nil, rerrors.Malformed("unrecognized RAR marker", ErrMalformedMarker)
	}
}

func bytesReader(b []byte) io.Reader { return &simpleByteReader{b: b} }

type simpleByteReader struct {
	b []byte
	i int
}

func (s *simpleByteReader) Read(p []byte) (int, error) {
	if s.i >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.i:])
	s.i += n
	return n, nil
}

// Version reports which generation this scanner is reading.
func (s *Scanner) Version() Version { return s.version }

// discardPending skips any payload bytes left over from the previously
// returned block that the caller never consumed.
func (s *Scanner) discardPending() error {
	if s.pending <= 0 {
		return nil
	}
	n, err := io.CopyN(io.Discard, s.r, s.pending)
	s.pending -= n
	if err != nil && err != io.EOF {
		return rerrors.IO("discarding RAR block payload", err)
	}
	return nil
}

// PayloadWriter copies up to the current block's PayloadSize bytes to w,
// marking the payload consumed. It must be called at most once per block,
// before the next call to Next.
func (s *Scanner) PayloadWriter(w io.Writer) (int64, error) {
	n, err := io.CopyN(w, s.r, s.pending)
	s.pending -= n
	if err != nil && err != io.EOF {
		return n, rerrors.IO("copying RAR block payload", err)
	}
	return n, nil
}

// Next reads the next block header. It returns io.EOF when the stream ends
// cleanly (including the graceful end-of-scan cases spec.md §4.2 calls
// out: a header declaring fewer than 7 bytes, or a read that runs past
// end-of-stream).
func (s *Scanner) Next() (*Block, error) {
	if err := s.discardPending(); err != nil {
		return nil, err
	}

	switch s.version {
	case Version4:
		return s.next4()
	case Version5:
		return s.next5()
	default:
		return nil, ErrMalformedMarker
	}
}

func (s *Scanner) next4() (*Block, error) {
	base := make([]byte, 7)
	if _, err := io.ReadFull(s.r, base); err != nil {
		return nil, io.EOF
	}

	typ := base[2]
	flags := uint64(base[3]) | uint64(base[4])<<8
	headerSize := int(base[5]) | int(base[6])<<8
	if headerSize < 7 {
		return nil, io.EOF
	}

	content := make([]byte, headerSize-7)
	if _, err := io.ReadFull(s.r, content); err != nil {
		return nil, io.EOF
	}

	headerBytes := make([]byte, 0, headerSize)
	headerBytes = append(headerBytes, base...)
	headerBytes = append(headerBytes, content...)

	hasAddSize := flags&Flag4LongBlock != 0 || typ == Type4File || typ == Type4Service
	var addSize uint64
	if hasAddSize {
		if len(content) < 4 {
			return nil, io.EOF
		}
		addSize = uint64(uint32(content[0]) | uint32(content[1])<<8 | uint32(content[2])<<16 | uint32(content[3])<<24)

		// LARGE FileHeaders carry the high 32 bits of the packed size at
		// header offset 32, i.e. content[25:29] relative to this 7-byte base.
		if typ == Type4File && flags&Flag4Large != 0 {
			const highOff = 32 - 7
			if len(content) < highOff+4 {
				return nil, io.EOF
			}
			packHigh := uint32(content[highOff]) | uint32(content[highOff+1])<<8 | uint32(content[highOff+2])<<16 | uint32(content[highOff+3])<<24
			addSize |= uint64(packHigh) << 32
		}
	}

	s.pending = int64(addSize)
	return &Block{
		Version:     Version4,
		Type:        uint64(typ),
		Flags:       flags,
		HeaderBytes: headerBytes,
		PayloadSize: int64(addSize),
	}, nil
}

func readRar5Vint(r io.Reader) (uint64, []byte, error) {
	var value uint64
	var shift uint
	var raw []byte
	buf := make([]byte, 1)
	for i := 0; i < 11; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, nil, io.EOF
		}
		raw = append(raw, buf[0])
		value |= uint64(buf[0]&0x7F) << shift
		if buf[0]&0x80 == 0 {
			return value, raw, nil
		}
		shift += 7
	}
	return 0, nil, rerrors.Malformed("RAR5 vint wider than 11 bytes", nil)
}

func (s *Scanner) next5() (*Block, error) {
	crc := make([]byte, 4)
	if _, err := io.ReadFull(s.r, crc); err != nil {
		return nil, io.EOF
	}

	hdrSize, hdrSizeRaw, err := readRar5Vint(s.r)
	if err != nil {
		return nil, io.EOF
	}

	content := make([]byte, hdrSize)
	if _, err := io.ReadFull(s.r, content); err != nil {
		return nil, io.EOF
	}

	headerBytes := make([]byte, 0, 4+len(hdrSizeRaw)+len(content))
	headerBytes = append(headerBytes, crc...)
	headerBytes = append(headerBytes, hdrSizeRaw...)
	headerBytes = append(headerBytes, content...)

	cr := &byteCursor{b: content}
	typ, err := cr.vint()
	if err != nil {
		return nil, io.EOF
	}
	flags, err := cr.vint()
	if err != nil {
		return nil, io.EOF
	}

	var dataSize uint64
	if flags&Flag5HasExtra != 0 {
		if _, err := cr.vint(); err != nil {
			return nil, io.EOF
		}
	}
	if flags&Flag5HasData != 0 {
		dataSize, err = cr.vint()
		if err != nil {
			return nil, io.EOF
		}
	}

	s.pending = int64(dataSize)
	return &Block{
		Version:     Version5,
		Type:        typ,
		Flags:       flags,
		HeaderBytes: headerBytes,
		PayloadSize: int64(dataSize),
	}, nil
}

type byteCursor struct {
	b []byte
	i int
}

func (c *byteCursor) vint() (uint64, error) {
	var value uint64
	var shift uint
	for j := 0; j < 11; j++ {
		if c.i >= len(c.b) {
			return 0, io.ErrUnexpectedEOF
		}
		b := c.b[c.i]
		c.i++
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}
	return 0, rerrors.Malformed("RAR5 vint wider than 11 bytes", nil)
}
