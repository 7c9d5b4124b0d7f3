// Package hr models the legacy HandheldROM cartridge header (TWL/NTR): a
// single flat header with title-id, game code, game title, region flags
// and trimmed ROM size.
package hr

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// HeaderSize is the legacy cartridge header size the tool reads.
const HeaderSize = 0x200

const (
	gameTitleOff    = 0x0
	gameTitleSize   = 12
	gameCodeOff     = 0xC
	gameCodeSize    = 4
	unitCodeOff     = 0x12
	regionOff       = 0x1D
	romSizeOff      = 0x80
	savePublicOff   = 0x181
	savePrivateOff  = 0x185
	titleIDOff      = 0x230 // TWL title-id, present only on DSi-enhanced carts
)

// Header is the parsed legacy cartridge header.
type Header struct {
	GameTitle        string
	GameCode         string
	UnitCode         byte
	RegionFlags      byte
	TrimmedROMSize   uint32
	PublicSaveSize   uint32
	PrivateSaveSize  uint32
	TitleID          uint64
}

// ParseHeader decodes a HandheldROM header from buf.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("hr: buffer too small for header")
	}
	h := &Header{
		GameTitle:   codec.ExtractASCII(buf[gameTitleOff : gameTitleOff+gameTitleSize]),
		GameCode:    codec.ExtractASCII(buf[gameCodeOff : gameCodeOff+gameCodeSize]),
		UnitCode:    buf[unitCodeOff],
		RegionFlags: buf[regionOff],
	}
	if romSizeOff+4 <= len(buf) {
		h.TrimmedROMSize = codec.GetLE32(buf[romSizeOff : romSizeOff+4])
	}
	if savePublicOff < len(buf) {
		h.PublicSaveSize = 1 << buf[savePublicOff]
	}
	if savePrivateOff < len(buf) {
		h.PrivateSaveSize = 1 << buf[savePrivateOff]
	}
	if titleIDOff+8 <= len(buf) {
		h.TitleID = codec.GetLE64(buf[titleIDOff : titleIDOff+8])
	}
	return h, nil
}

// IsDSiEnhanced reports whether UnitCode indicates a DSi-capable cartridge
// (bit1 set).
func (h *Header) IsDSiEnhanced() bool { return h.UnitCode&0x02 != 0 }
