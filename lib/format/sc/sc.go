// Package sc models the SecondaryContainer (NCCH) format: a signed
// executable package with up to three regions (extended header, flat file
// archive, and a hash-tree filesystem), each covered by a SHA-256 stored in
// the header.
package sc

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// MediaUnit is the SC addressing granularity for offset/size fields.
const MediaUnit = 0x200

// HeaderSize is the fixed SC header size.
const HeaderSize = 0x200

// Flag byte indices (header.Flags[7] in the original; here Flags is a
// fixed 8-byte array matching the on-disk layout exactly).
const (
	FlagCryptoMethod = 3
	FlagContentFlags = 7
)

// Bits within Flags[FlagContentFlags].
const (
	ContentFixedKey  = 0x01
	ContentNoCrypto  = 0x04
	ContentUses7xKey = 0x20
	ContentEncrypted = 0x00 // absence of NoCrypto bit, see Encrypted()
)

const (
	sigOff            = 0x0
	sigSize           = 0x100
	magicOff          = 0x100
	magicExpect       = "NCCH"
	contentSizeOff    = 0x104
	programIDOff      = 0x108
	flagsOff          = 0x188
	sizeExthdrOff     = 0x180
	sizeExthdrHashOff = 0x184
	hashExthdrOff     = 0x190
	offsetExeFsOff    = 0x1A0
	sizeExeFsOff      = 0x1A4
	sizeExeFsHashOff  = 0x1A8
	offsetRomFsOff    = 0x1B0
	sizeRomFsOff      = 0x1B4
	sizeRomFsHashOff  = 0x1B8
	hashExeFsOff      = 0x1C0
	hashRomFsOff      = 0x1E0
	productCodeOff    = 0x150
	productCodeSize   = 0x10
	regionFlagsOff    = 0x18F // within Flags array, index 7 (flagsOff+7)
	versionOff        = 0x112
)

// Header is the fixed SC (NCCH) header.
type Header struct {
	Signature   [sigSize]byte
	ContentSize uint32 // in media units
	ProgramID   uint64
	ProductCode string
	Version     uint16
	Flags       [8]byte

	SizeExtHdr     uint32 // bytes
	SizeExeFs      uint32 // media units
	SizeExeFsHash  uint32 // media units covered by hash
	OffsetExeFs    uint32 // media units
	SizeRomFs      uint32 // media units
	SizeRomFsHash  uint32 // media units covered by hash
	OffsetRomFs    uint32 // media units
	HashExtHdr     [32]byte
	HashExeFs      [32]byte
	HashRomFs      [32]byte
}

// ParseHeader decodes an SC header from buf.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("sc: buffer too small for header")
	}
	if string(buf[magicOff:magicOff+4]) != magicExpect {
		return nil, fmt.Errorf("sc: bad magic %q", buf[magicOff:magicOff+4])
	}
	h := &Header{
		ContentSize: codec.GetLE32(buf[contentSizeOff : contentSizeOff+4]),
		ProgramID:   codec.GetLE64(buf[programIDOff : programIDOff+8]),
		ProductCode: codec.ExtractASCII(buf[productCodeOff : productCodeOff+productCodeSize]),
		Version:     codec.GetLE16(buf[versionOff : versionOff+2]),
		SizeExtHdr:  codec.GetLE32(buf[sizeExthdrOff : sizeExthdrOff+4]),

		SizeExeFs:     codec.GetLE32(buf[sizeExeFsOff : sizeExeFsOff+4]),
		SizeExeFsHash: codec.GetLE32(buf[sizeExeFsHashOff : sizeExeFsHashOff+4]),
		OffsetExeFs:   codec.GetLE32(buf[offsetExeFsOff : offsetExeFsOff+4]),

		SizeRomFs:     codec.GetLE32(buf[sizeRomFsOff : sizeRomFsOff+4]),
		SizeRomFsHash: codec.GetLE32(buf[sizeRomFsHashOff : sizeRomFsHashOff+4]),
		OffsetRomFs:   codec.GetLE32(buf[offsetRomFsOff : offsetRomFsOff+4]),
	}
	copy(h.Signature[:], buf[sigOff:sigOff+sigSize])
	copy(h.Flags[:], buf[flagsOff:flagsOff+8])
	copy(h.HashExtHdr[:], buf[hashExthdrOff:hashExthdrOff+32])
	copy(h.HashExeFs[:], buf[hashExeFsOff:hashExeFsOff+32])
	copy(h.HashRomFs[:], buf[hashRomFsOff:hashRomFsOff+32])
	return h, nil
}

// Marshal serializes h into a HeaderSize buffer.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[sigOff:sigOff+sigSize], h.Signature[:])
	copy(buf[magicOff:magicOff+4], magicExpect)
	codec.PutLE32(buf[contentSizeOff:contentSizeOff+4], h.ContentSize)
	codec.PutLE64(buf[programIDOff:programIDOff+8], h.ProgramID)
	copy(buf[productCodeOff:productCodeOff+productCodeSize], h.ProductCode)
	codec.PutLE16(buf[versionOff:versionOff+2], h.Version)
	codec.PutLE32(buf[sizeExthdrOff:sizeExthdrOff+4], h.SizeExtHdr)
	codec.PutLE32(buf[sizeExeFsOff:sizeExeFsOff+4], h.SizeExeFs)
	codec.PutLE32(buf[sizeExeFsHashOff:sizeExeFsHashOff+4], h.SizeExeFsHash)
	codec.PutLE32(buf[offsetExeFsOff:offsetExeFsOff+4], h.OffsetExeFs)
	codec.PutLE32(buf[sizeRomFsOff:sizeRomFsOff+4], h.SizeRomFs)
	codec.PutLE32(buf[sizeRomFsHashOff:sizeRomFsHashOff+4], h.SizeRomFsHash)
	codec.PutLE32(buf[offsetRomFsOff:offsetRomFsOff+4], h.OffsetRomFs)
	copy(buf[flagsOff:flagsOff+8], h.Flags[:])
	copy(buf[hashExthdrOff:hashExthdrOff+32], h.HashExtHdr[:])
	copy(buf[hashExeFsOff:hashExeFsOff+32], h.HashExeFs[:])
	copy(buf[hashRomFsOff:hashRomFsOff+32], h.HashRomFs[:])
	return buf
}

// Encrypted reports whether the content is encrypted (NoCrypto bit clear).
func (h *Header) Encrypted() bool {
	return h.Flags[FlagContentFlags]&ContentNoCrypto == 0
}

// FixedKey reports whether the fixed (zero) key is used instead of a
// key-slot derivation.
func (h *Header) FixedKey() bool {
	return h.Flags[FlagContentFlags]&ContentFixedKey != 0
}

// Uses7xKey reports whether the 7.x key scrambler slot should be used.
func (h *Header) Uses7xKey() bool {
	return h.Flags[FlagContentFlags]&ContentUses7xKey != 0
}

// ExeFsOffset returns the absolute byte offset of the ExeFS region, relative
// to the start of the SC.
func (h *Header) ExeFsOffset() uint64 { return uint64(h.OffsetExeFs) * MediaUnit }

// RomFsOffset returns the absolute byte offset of the RomFS region.
func (h *Header) RomFsOffset() uint64 { return uint64(h.OffsetRomFs) * MediaUnit }

// ExtHeaderOffset is fixed at 0x200 (immediately after the header).
const ExtHeaderOffset = HeaderSize

// ExtHeaderSize is the fixed ExtendedHeader size.
const ExtHeaderSize = 0x400

// RegionTag identifies which SC region a CTR was derived for (design note
// "CTR derivation per region tag").
type RegionTag byte

const (
	RegionExtHeader RegionTag = 1
	RegionFlatArchive RegionTag = 2
	RegionHashFS    RegionTag = 3
)
