// Package outer models the OuterPackage container (§3): a header prelude,
// certificate chain, ticket, title metadata, content region and an optional
// meta-block, each 64-byte aligned against the one before it.
package outer

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// HeaderSize is the fixed OuterPackage header prelude size.
const HeaderSize = 0x2020

// ContentIndexBits is the number of bits in the content-index bitmap.
const ContentIndexBits = 0x2000

const (
	hdrSizeOff        = 0x0
	hdrTypeOff        = 0x4
	hdrVersionOff     = 0x6
	hdrCertSizeOff    = 0x8
	hdrTicketSizeOff  = 0xC
	hdrTmdSizeOff     = 0x10
	hdrMetaSizeOff    = 0x14
	hdrContentSizeOff = 0x18
	hdrIndexOff       = 0x20
	hdrIndexSize      = ContentIndexBits / 8
)

// Header is the fixed-size OuterPackage prelude.
type Header struct {
	HeaderSize  uint32
	Type        uint16
	Version     uint16
	CertSize    uint32
	TicketSize  uint32
	TmdSize     uint32
	MetaSize    uint32
	ContentSize uint64
	Index       [hdrIndexSize]byte
}

// ParseHeader decodes the fixed prelude from buf.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("outer: buffer too small for header (need %#x)", HeaderSize)
	}
	h := &Header{
		HeaderSize:  codec.GetLE32(buf[hdrSizeOff : hdrSizeOff+4]),
		Type:        codec.GetLE16(buf[hdrTypeOff : hdrTypeOff+2]),
		Version:     codec.GetLE16(buf[hdrVersionOff : hdrVersionOff+2]),
		CertSize:    codec.GetLE32(buf[hdrCertSizeOff : hdrCertSizeOff+4]),
		TicketSize:  codec.GetLE32(buf[hdrTicketSizeOff : hdrTicketSizeOff+4]),
		TmdSize:     codec.GetLE32(buf[hdrTmdSizeOff : hdrTmdSizeOff+4]),
		MetaSize:    codec.GetLE32(buf[hdrMetaSizeOff : hdrMetaSizeOff+4]),
		ContentSize: codec.GetLE64(buf[hdrContentSizeOff : hdrContentSizeOff+8]),
	}
	copy(h.Index[:], buf[hdrIndexOff:hdrIndexOff+hdrIndexSize])
	return h, nil
}

// Marshal serializes h into a HeaderSize buffer.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	codec.PutLE32(buf[hdrSizeOff:hdrSizeOff+4], HeaderSize)
	codec.PutLE16(buf[hdrTypeOff:hdrTypeOff+2], h.Type)
	codec.PutLE16(buf[hdrVersionOff:hdrVersionOff+2], h.Version)
	codec.PutLE32(buf[hdrCertSizeOff:hdrCertSizeOff+4], h.CertSize)
	codec.PutLE32(buf[hdrTicketSizeOff:hdrTicketSizeOff+4], h.TicketSize)
	codec.PutLE32(buf[hdrTmdSizeOff:hdrTmdSizeOff+4], h.TmdSize)
	codec.PutLE32(buf[hdrMetaSizeOff:hdrMetaSizeOff+4], h.MetaSize)
	codec.PutLE64(buf[hdrContentSizeOff:hdrContentSizeOff+8], h.ContentSize)
	copy(buf[hdrIndexOff:hdrIndexOff+hdrIndexSize], h.Index[:])
	return buf
}

// IndexSet reports whether content-index idx's bit is set in the bitmap.
func (h *Header) IndexSet(idx uint16) bool {
	return h.Index[idx/8]&(0x80>>(idx%8)) != 0
}

// SetIndex sets or clears content-index idx's bit (MSB-first per content,
// matching the hardware's bit layout).
func (h *Header) SetIndex(idx uint16, present bool) {
	mask := byte(0x80 >> (idx % 8))
	if present {
		h.Index[idx/8] |= mask
	} else {
		h.Index[idx/8] &^= mask
	}
}

// Layout describes the byte offsets of each section, computed from a
// Header per §3's "each section offset = previous offset + aligned(previous
// size, 64)" invariant.
type Layout struct {
	CertOffset    uint64
	TicketOffset  uint64
	TmdOffset     uint64
	ContentOffset uint64
	MetaOffset    uint64
	TotalSize     uint64
}

// ComputeLayout derives section offsets from h.
func ComputeLayout(h *Header) Layout {
	cert := uint64(HeaderSize)
	ticket := cert + codec.Align(uint64(h.CertSize), 64)
	tmdOff := ticket + codec.Align(uint64(h.TicketSize), 64)
	content := tmdOff + codec.Align(uint64(h.TmdSize), 64)
	meta := content + codec.Align(h.ContentSize, 64)
	total := meta
	if h.MetaSize > 0 {
		total = meta + codec.Align(uint64(h.MetaSize), 64)
	}
	return Layout{
		CertOffset:    cert,
		TicketOffset:  ticket,
		TmdOffset:     tmdOff,
		ContentOffset: content,
		MetaOffset:    meta,
		TotalSize:     total,
	}
}
