// Package ticket provides a typed view over a Ticket: signature + body
// carrying the title-id, the AES-CBC-wrapped title-key, and the per-content
// rights bitmap.
package ticket

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

// Body layout, relative to the end of the signature block.
const (
	bodyIssuerOff        = 0x0
	bodyIssuerSize       = 0x40
	bodyECCPublicKeyOff  = 0x40
	bodyFormatVersionOff = 0x7C
	bodyTitleKeyOff      = 0x7F
	bodyTitleKeySize     = 0x10
	bodyReservedOff      = 0x8F
	bodyTicketIDOff      = 0x90
	bodyConsoleIDOff     = 0x98
	bodyTitleIDOff       = 0x9C
	bodyReserved2Off     = 0xA4
	bodyTicketVersionOff = 0xA6
	bodyLicenseTypeOff   = 0xA8
	bodyCommonKeyIdxOff  = 0xA9
	bodyReserved3Off     = 0xAA
	bodyAudit            = 0xB2
	bodyReserved4Off     = 0xB3
	bodyRightsOff        = 0xB3 + 0x40
	bodyRightsSize       = 0x40 // 0x20 "content index" + 0x20 limits, simplified here

	// BodySize is the ticket body length.
	BodySize = 0x140

	// CommonSize is the canonical "common-size" ticket used by the
	// installer: signature (RSA-2048-SHA256, 0x100 raw + pad to 64) + body,
	// with no content-index extension data.
	CommonSize = 4 + 0x100 + 0x3C + BodySize
)

// View is a parsed Ticket.
type View struct {
	SigType      uint32
	Signature    []byte
	Issuer       string
	TitleKeyEnc  [16]byte // AES-CBC(common-key) wrapped
	TicketID     uint64
	ConsoleID    uint32 // 0 = not personalized
	TitleID      uint64
	CommonKeyIdx byte
	RightsBitmap [0x40]byte // per-content-index rights, bit-per-index
}

// Parse decodes a Ticket from buf.
func Parse(buf []byte) (*View, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("ticket: buffer too small for signature tag")
	}
	sigType := codec.GetBE32(buf[0:4])
	sigSize, err := tmd.SignatureSize(sigType)
	if err != nil {
		return nil, fmt.Errorf("ticket: %w", err)
	}
	bodyOff := int(codec.Align(uint64(4+sigSize), 64))
	if len(buf) < bodyOff+BodySize {
		return nil, fmt.Errorf("ticket: buffer too small for body")
	}
	body := buf[bodyOff : bodyOff+BodySize]

	v := &View{
		SigType:      sigType,
		Signature:    append([]byte(nil), buf[4:4+sigSize]...),
		Issuer:       codec.ExtractASCII(body[bodyIssuerOff : bodyIssuerOff+bodyIssuerSize]),
		TicketID:     codec.GetBE64(body[bodyTicketIDOff : bodyTicketIDOff+8]),
		ConsoleID:    codec.GetBE32(body[bodyConsoleIDOff : bodyConsoleIDOff+4]),
		TitleID:      codec.GetBE64(body[bodyTitleIDOff : bodyTitleIDOff+8]),
		CommonKeyIdx: body[bodyCommonKeyIdxOff],
	}
	copy(v.TitleKeyEnc[:], body[bodyTitleKeyOff:bodyTitleKeyOff+bodyTitleKeySize])
	if bodyRightsOff+bodyRightsSize <= len(body) {
		copy(v.RightsBitmap[:], body[bodyRightsOff:bodyRightsOff+bodyRightsSize])
	} else {
		// No rights extension present: every content implicitly allowed.
		for i := range v.RightsBitmap {
			v.RightsBitmap[i] = 0xFF
		}
	}

	return v, nil
}

// HasRight reports whether content-index idx is permitted by the rights
// bitmap (bit idx%8 of byte idx/8).
func (v *View) HasRight(idx uint16) bool {
	byteIdx := int(idx) / 8
	if byteIdx >= len(v.RightsBitmap) {
		return false
	}
	return v.RightsBitmap[byteIdx]&(1<<(idx%8)) != 0
}

// SetRight sets or clears the rights bit for content-index idx.
func (v *View) SetRight(idx uint16, allowed bool) {
	byteIdx := int(idx) / 8
	if byteIdx >= len(v.RightsBitmap) {
		return
	}
	if allowed {
		v.RightsBitmap[byteIdx] |= 1 << (idx % 8)
	} else {
		v.RightsBitmap[byteIdx] &^= 1 << (idx % 8)
	}
}

// Marshal serializes v as a common-size ticket (no content-index extension
// data), the canonical form the installer writes per spec.md §3.
func (v *View) Marshal() ([]byte, error) {
	sigSize, err := tmd.SignatureSize(v.SigType)
	if err != nil {
		return nil, err
	}
	bodyOff := int(codec.Align(uint64(4+sigSize), 64))
	buf := make([]byte, bodyOff+BodySize)

	codec.PutBE32(buf[0:4], v.SigType)
	copy(buf[4:4+sigSize], v.Signature)

	body := buf[bodyOff : bodyOff+BodySize]
	copy(body[bodyIssuerOff:bodyIssuerOff+bodyIssuerSize], v.Issuer)
	copy(body[bodyTitleKeyOff:bodyTitleKeyOff+bodyTitleKeySize], v.TitleKeyEnc[:])
	codec.PutBE64(body[bodyTicketIDOff:bodyTicketIDOff+8], v.TicketID)
	codec.PutBE32(body[bodyConsoleIDOff:bodyConsoleIDOff+4], v.ConsoleID)
	codec.PutBE64(body[bodyTitleIDOff:bodyTitleIDOff+8], v.TitleID)
	body[bodyCommonKeyIdxOff] = v.CommonKeyIdx
	if bodyRightsOff+bodyRightsSize <= len(body) {
		copy(body[bodyRightsOff:bodyRightsOff+bodyRightsSize], v.RightsBitmap[:])
	}

	return buf, nil
}

// Personalized reports whether this ticket is bound to a specific console
// (nonzero console-id), vs. a generic/common ticket.
func (v *View) Personalized() bool { return v.ConsoleID != 0 }

// Zeroed returns a copy of v with the console-id cleared, for the install
// path's "always zero console-id for portability" non-goal (§1).
func (v *View) Zeroed() *View {
	cp := *v
	cp.ConsoleID = 0
	return &cp
}
