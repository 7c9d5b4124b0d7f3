// Package tmd provides a typed view of a TitleMetadata (TMD) buffer: a
// signature, a body with per-title fields, a 64-entry content-info digest
// table, and a variable-length list of ContentChunk entries.
//
// A View copies the fields it parses out of the buffer; it does not keep a
// reference to the buffer, so later changes to either side are not seen by
// the other.
package tmd

import (
	"crypto/sha256"
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// Signature types recognized in the 4-byte big-endian type tag that
// precedes every signed body (TMD, Ticket, NCCH all share this tag space).
const (
	SigTypeRSA4096SHA1   = 0x010000
	SigTypeRSA2048SHA1   = 0x010001
	SigTypeECDSASHA1     = 0x010002
	SigTypeRSA4096SHA256 = 0x010003
	SigTypeRSA2048SHA256 = 0x010004
	SigTypeECDSASHA256   = 0x010005
)

// sigSizes maps a signature type to its raw signature size; padding to the
// 64-byte boundary is computed separately.
var sigSizes = map[uint32]int{
	SigTypeRSA4096SHA1:   0x200,
	SigTypeRSA2048SHA1:   0x100,
	SigTypeECDSASHA1:     0x3C,
	SigTypeRSA4096SHA256: 0x200,
	SigTypeRSA2048SHA256: 0x100,
	SigTypeECDSASHA256:   0x3C,
}

// SignatureSize returns the raw signature byte length for sigType, or an
// error if the tag is unrecognized (§4.4 "signature tag is one of the known
// constants").
func SignatureSize(sigType uint32) (int, error) {
	if n, ok := sigSizes[sigType]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("tmd: unknown signature type %#x", sigType)
}

// Body layout, relative to the end of the signature block:
const (
	bodyIssuerOff       = 0x0
	bodyIssuerSize      = 0x40
	bodyVersionOff      = 0x40
	bodyCaCrlOff        = 0x41
	bodySignerCrlOff    = 0x42
	bodyReservedOff     = 0x43
	bodySystemVerOff    = 0x44
	bodyTitleIDOff      = 0x4C
	bodyTitleTypeOff    = 0x54
	bodyGroupIDOff      = 0x58
	bodyReserved2Off    = 0x5A
	bodyAccessRightsOff = 0x98
	bodyTitleVersionOff = 0x9C
	bodyContentCountOff = 0x9E
	bodyBootContentOff  = 0xA0
	bodyReserved3Off    = 0xA2
	bodyInfoHashOff     = 0xA4 // sha256 over the 64-entry content-info table
	bodyContentInfoOff  = 0xC4 // 64 * 36-byte content-info table
	// BodySize is the body size up to (not including) the chunk list.
	BodySize = 0x9C4

	// ChunkSize is the size of a single ContentChunk record.
	ChunkSize = 0x30

	// MinSize is the minimum on-disk TMD size: smallest signature + body
	// with zero chunks.
	MinSize = sigSizesMin + BodySize

	sigSizesMin = 0x4 + 0x3C + 0x3C // sig type tag + ECDSA sig + padding, smallest form

	// MaxContentCount bounds the chunk list the tool will parse, matching
	// spec.md's "implementation-defined cap" of 64*1024.
	MaxContentCount = 64 * 1024

	contentInfoEntrySize  = 0x24
	contentInfoEntryCount = 64
)

// ContentInfoEntry is one entry of the 64-slot content-info digest table:
// a commands-index, chunk count covered, and a rolling SHA-256 over that
// command's chunk range.
type ContentInfoEntry struct {
	IndexOffset uint16
	CommandCnt  uint16
	Hash        [32]byte
}

// ContentChunk is one content descriptor within a TMD.
type ContentChunk struct {
	ID    uint32 // unique within the TMD
	Index uint16 // 0-based, not necessarily contiguous
	Type  uint16 // bit0 = encrypted
	Size  uint64
	Hash  [32]byte
}

// Encrypted reports whether bit0 of Type is set.
func (c ContentChunk) Encrypted() bool { return c.Type&0x1 != 0 }

// View is a parsed, owned-copy representation of a TMD: header fields plus
// an owned slice of chunks. Per design note "pointer-into-parent patterns",
// the chunk list is never encoded as "immediately follows the body in
// memory" — Marshal reconstructs that contiguity only at serialization time.
type View struct {
	SigType         uint32
	Signature       []byte
	Issuer          string
	FormatVersion   byte
	TitleID         uint64
	TitleVersion    uint16
	ContentInfoHash [32]byte
	ContentInfo     [contentInfoEntryCount]ContentInfoEntry
	Chunks          []ContentChunk
}

// Parse decodes a TMD from buf. buf must contain at least the signature,
// body and all declared chunks.
func Parse(buf []byte) (*View, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("tmd: buffer too small for signature tag")
	}
	sigType := codec.GetBE32(buf[0:4])
	sigSize, err := SignatureSize(sigType)
	if err != nil {
		return nil, err
	}
	// signature block is padded so the body starts 64-byte aligned from
	// file start: tag(4) + sig(sigSize) + pad(to 64 total alignment)
	bodyOff := int(codec.Align(uint64(4+sigSize), 64))
	if len(buf) < bodyOff+BodySize {
		return nil, fmt.Errorf("tmd: buffer too small for body")
	}
	body := buf[bodyOff : bodyOff+BodySize]

	v := &View{
		SigType:       sigType,
		Signature:     append([]byte(nil), buf[4:4+sigSize]...),
		Issuer:        codec.ExtractASCII(body[bodyIssuerOff : bodyIssuerOff+bodyIssuerSize]),
		FormatVersion: body[bodyVersionOff],
		TitleID:       codec.GetBE64(body[bodyTitleIDOff : bodyTitleIDOff+8]),
		TitleVersion:  codec.GetBE16(body[bodyTitleVersionOff : bodyTitleVersionOff+2]),
	}
	copy(v.ContentInfoHash[:], body[bodyInfoHashOff:bodyInfoHashOff+32])

	for i := 0; i < contentInfoEntryCount; i++ {
		off := bodyContentInfoOff + i*contentInfoEntrySize
		e := ContentInfoEntry{
			IndexOffset: codec.GetBE16(body[off : off+2]),
			CommandCnt:  codec.GetBE16(body[off+2 : off+4]),
		}
		copy(e.Hash[:], body[off+4:off+36])
		v.ContentInfo[i] = e
	}

	contentCount := int(codec.GetBE16(body[bodyContentCountOff : bodyContentCountOff+2]))
	if contentCount > MaxContentCount {
		return nil, fmt.Errorf("tmd: content count %d exceeds cap %d", contentCount, MaxContentCount)
	}
	chunkBase := bodyOff + BodySize
	if len(buf) < chunkBase+contentCount*ChunkSize {
		return nil, fmt.Errorf("tmd: buffer too small for %d chunks", contentCount)
	}
	v.Chunks = make([]ContentChunk, contentCount)
	for i := 0; i < contentCount; i++ {
		off := chunkBase + i*ChunkSize
		c := ContentChunk{
			ID:    codec.GetBE32(buf[off : off+4]),
			Index: codec.GetBE16(buf[off+4 : off+6]),
			Type:  codec.GetBE16(buf[off+6 : off+8]),
			Size:  codec.GetBE64(buf[off+8 : off+16]),
		}
		copy(c.Hash[:], buf[off+16:off+48])
		v.Chunks[i] = c
	}

	return v, nil
}

// Size returns the on-disk size of the TMD represented by v.
func (v *View) Size() int {
	sigSize, _ := SignatureSize(v.SigType)
	bodyOff := int(codec.Align(uint64(4+sigSize), 64))
	return bodyOff + BodySize + len(v.Chunks)*ChunkSize
}

// marshalChunk serializes one ContentChunk into its fixed ChunkSize
// on-disk record, shared by Marshal and RecomputeContentInfo so both
// always hash/write the identical byte layout.
func marshalChunk(c ContentChunk) [ChunkSize]byte {
	var rec [ChunkSize]byte
	codec.PutBE32(rec[0:4], c.ID)
	codec.PutBE16(rec[4:6], c.Index)
	codec.PutBE16(rec[6:8], c.Type)
	codec.PutBE64(rec[8:16], c.Size)
	copy(rec[16:48], c.Hash[:])
	return rec
}

// RecomputeContentInfo rebuilds the single-slot content-info table (slot 0
// covers every chunk) and the TMD's own ContentInfoHash field, per §3
// invariant 4 and design note "cyclic hash dependency": this is pass 2 of
// the two-pass repackage pipeline, called only after every chunk hash is
// final. The content-info digest covers each chunk's full marshaled
// record (id+index+type+size+hash), not just its hash field, matching the
// real TMD's "SHA-256 over the chunk list".
func (v *View) RecomputeContentInfo() {
	h := sha256.New()
	for i := range v.Chunks {
		rec := marshalChunk(v.Chunks[i])
		h.Write(rec[:])
	}
	var table [contentInfoEntryCount]ContentInfoEntry
	table[0] = ContentInfoEntry{
		IndexOffset: 0,
		CommandCnt:  uint16(len(v.Chunks)),
	}
	copy(table[0].Hash[:], h.Sum(nil))
	v.ContentInfo = table

	outer := sha256.New()
	for _, e := range v.ContentInfo {
		var rec [contentInfoEntrySize]byte
		codec.PutBE16(rec[0:2], e.IndexOffset)
		codec.PutBE16(rec[2:4], e.CommandCnt)
		copy(rec[4:36], e.Hash[:])
		outer.Write(rec[:])
	}
	copy(v.ContentInfoHash[:], outer.Sum(nil))
}

// Marshal serializes v into a freshly allocated buffer.
func (v *View) Marshal() ([]byte, error) {
	sigSize, err := SignatureSize(v.SigType)
	if err != nil {
		return nil, err
	}
	bodyOff := int(codec.Align(uint64(4+sigSize), 64))
	buf := make([]byte, bodyOff+BodySize+len(v.Chunks)*ChunkSize)

	codec.PutBE32(buf[0:4], v.SigType)
	copy(buf[4:4+sigSize], v.Signature)

	body := buf[bodyOff : bodyOff+BodySize]
	copy(body[bodyIssuerOff:bodyIssuerOff+bodyIssuerSize], v.Issuer)
	body[bodyVersionOff] = v.FormatVersion
	codec.PutBE64(body[bodyTitleIDOff:bodyTitleIDOff+8], v.TitleID)
	codec.PutBE16(body[bodyTitleVersionOff:bodyTitleVersionOff+2], v.TitleVersion)
	codec.PutBE16(body[bodyContentCountOff:bodyContentCountOff+2], uint16(len(v.Chunks)))
	copy(body[bodyInfoHashOff:bodyInfoHashOff+32], v.ContentInfoHash[:])
	for i, e := range v.ContentInfo {
		off := bodyContentInfoOff + i*contentInfoEntrySize
		codec.PutBE16(body[off:off+2], e.IndexOffset)
		codec.PutBE16(body[off+2:off+4], e.CommandCnt)
		copy(body[off+4:off+36], e.Hash[:])
	}

	chunkBase := bodyOff + BodySize
	for i, c := range v.Chunks {
		off := chunkBase + i*ChunkSize
		rec := marshalChunk(c)
		copy(buf[off:off+ChunkSize], rec[:])
	}

	return buf, nil
}

// ChunkByIndex finds the chunk with the given content-index, or nil.
func (v *View) ChunkByIndex(index uint16) *ContentChunk {
	for i := range v.Chunks {
		if v.Chunks[i].Index == index {
			return &v.Chunks[i]
		}
	}
	return nil
}
