// Package srr implements the SRR (Scene Release Reconstruction) container:
// a RAR-shaped envelope that carries every RAR header block of a release's
// volumes verbatim, without the compressed payloads, plus embedded
// auxiliary files and optional per-file hashes.
package srr

import "github.com/rescene-go/rescene/internal/bytecodec"

// Block type tags, sharing the RAR4 base-header shape so RAR-aware tools
// skip them gracefully.
const (
	TagHeader     = 0x69
	TagStoredFile = 0x6A
	TagOsoHash    = 0x6B
	TagRarPadding = 0x6C
	TagRarFile    = 0x71
)

// LongBlock is the RAR4-shaped LONG_BLOCK flag SrrStoredFile and
// SrrRarPadding set to declare a following addSize payload.
const LongBlock = 0x8000

// sentinelCRC returns the static, never-validated "CRC" field SRR's own
// block headers use: the tag byte duplicated into both bytes.
func sentinelCRC(tag byte) uint16 {
	return uint16(tag) | uint16(tag)<<8
}

// writeBaseHeader appends the 7-byte RAR4-shaped base header.
func writeBaseHeader(w *bytecodec.Writer, tag byte, flags uint16, headerSize uint16) {
	w.WriteU16LE(sentinelCRC(tag))
	w.WriteU8(tag)
	w.WriteU16LE(flags)
	w.WriteU16LE(headerSize)
}

// Header is the SrrHeader block: always the first block of an SRR file.
type Header struct {
	AppName string
}

// Encode serializes the SrrHeader block.
func (h Header) Encode() []byte {
	w := bytecodec.NewWriter()
	var flags uint16
	if h.AppName != "" {
		flags |= 0x0001
	}
	contentLen := 0
	if h.AppName != "" {
		contentLen = 2 + len(h.AppName)
	}
	writeBaseHeader(w, TagHeader, flags, uint16(7+contentLen))
	if h.AppName != "" {
		w.WriteU16LE(uint16(len(h.AppName)))
		w.WriteBytes([]byte(h.AppName))
	}
	return w.Bytes()
}

// StoredFile is the SrrStoredFile block: an embedded auxiliary file (NFO,
// SFV, ...) carried whole inside the SRR.
type StoredFile struct {
	Name string
	Data []byte
}

// Encode serializes the SrrStoredFile block, header and payload together.
func (s StoredFile) Encode() []byte {
	w := bytecodec.NewWriter()
	headerSize := 7 + 4 + 2 + len(s.Name)
	writeBaseHeader(w, TagStoredFile, LongBlock, uint16(headerSize))
	w.WriteU32LE(uint32(len(s.Data)))
	w.WriteU16LE(uint16(len(s.Name)))
	w.WriteBytes([]byte(s.Name))
	w.WriteBytes(s.Data)
	return w.Bytes()
}

// OsoHash is the optional SrrOsoHash block: the OpenSubtitles "OSO" hash of
// an embedded or referenced media file, computed at SRR creation time when
// requested.
type OsoHash struct {
	FileSize uint64
	Hash     uint64
	Name     string
}

// Encode serializes the SrrOsoHash block.
func (o OsoHash) Encode() []byte {
	w := bytecodec.NewWriter()
	headerSize := 7 + 8 + 8 + 2 + len(o.Name)
	writeBaseHeader(w, TagOsoHash, 0, uint16(headerSize))
	w.WriteU64LE(o.FileSize)
	w.WriteU64LE(o.Hash)
	w.WriteU16LE(uint16(len(o.Name)))
	w.WriteBytes([]byte(o.Name))
	return w.Bytes()
}

// RarFile is the SrrRarFile block: precedes the copied block stream of one
// RAR volume and names it.
type RarFile struct {
	Name string
}

// Encode serializes the SrrRarFile block.
func (r RarFile) Encode() []byte {
	w := bytecodec.NewWriter()
	headerSize := 7 + 2 + len(r.Name)
	writeBaseHeader(w, TagRarFile, 0, uint16(headerSize))
	w.WriteU16LE(uint16(len(r.Name)))
	w.WriteBytes([]byte(r.Name))
	return w.Bytes()
}

// RarPadding is the rare SrrRarPadding block: literal bytes to be rewritten
// verbatim into the output RAR volume during reconstruction.
type RarPadding struct {
	Name string
	Data []byte
}

// Encode serializes the SrrRarPadding block, header and payload together.
func (p RarPadding) Encode() []byte {
	w := bytecodec.NewWriter()
	headerSize := 7 + 4 + 2 + len(p.Name)
	writeBaseHeader(w, TagRarPadding, LongBlock, uint16(headerSize))
	w.WriteU32LE(uint32(len(p.Data)))
	w.WriteU16LE(uint16(len(p.Name)))
	w.WriteBytes([]byte(p.Name))
	w.WriteBytes(p.Data)
	return w.Bytes()
}
