// Package tie models the TitleInfoEntry database record describing an
// installed title, and the BuildTitleInfoEntry* construction logic,
// grounded directly on GodMode9's arm9/source/game/tie.c.
package tie

import (
	"github.com/sargunv/ctrtool/lib/codec"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

const (
	entryTitleTypeOff       = 0x00
	entryTitleVersionOff    = 0x02
	entryTitleVersionExtOff = 0x04
	entryCmdContentIDOff    = 0x08
	entryProductCodeOff     = 0x0C
	entryTitleSizeOff       = 0x1C
	entryExtDataIDLowOff    = 0x24
	entryFlags0Off          = 0x28
	entryFlags1Off          = 0x2C
	entryFlags2Off          = 0x30
	entryUnknownOff         = 0x38 // "GM9" install magic, tie.c:18
)

// Size is the fixed on-disk TitleInfoEntry record size.
const Size = 0x80

// title-id-hi well-known values, named rather than left as magic constants
// (design notes call these out by policy, not by symbol — this toolkit
// names them for readability without changing behavior).
const (
	tidHiTWLApp      = 0x00048004
	tidHiSystemData  = 0x0004800F
	tidHiEShopApp    = 0x00040000
	tidHiEShopApp2   = 0x00040010
	tidHiSystemBit   = 0x10
)

// CmdSizeAlign returns the CMD/TMD size alignment unit: 0x8000 on
// removable media (SD), 0x4000 on NAND/TWL (tie.c CMD_SIZE_ALIGN).
func CmdSizeAlign(sd bool) uint32 {
	if sd {
		return 0x8000
	}
	return 0x4000
}

// Entry is the parsed/constructed TitleInfoEntry.
type Entry struct {
	TitleType       byte
	TitleVersion    uint16
	TitleVersionExt uint32 // NCCH installs only: TitleVersion | (ncch.Version << 16)
	CmdContentID    uint32
	ProductCode     [16]byte
	TitleSize       uint64
	ExtDataIDLow    uint32

	Flags0 [4]byte
	Flags1 [4]byte
	Flags2 [8]byte

	// Unknown carries the "GM9" install-magic tie.c stamps into every
	// freshly built entry (tie.c:18, memcpy(tie->unknown, "GM9", 4)).
	Unknown [4]byte
}

// BuildFromTMD computes the base TitleInfoEntry fields common to every
// install kind: title type, version, CMD id, and the accumulated title
// size (base folders + TMD + CMD placeholder + every content, aligned to
// CmdSizeAlign(sd)). Mirrors tie.c BuildTitleInfoEntryTmd.
func BuildFromTMD(t *tmd.View, sd bool) *Entry {
	e := &Entry{
		TitleType:    0x40,
		TitleVersion: t.TitleVersion,
		CmdContentID: 0x01,
		Unknown:      [4]byte{'G', 'M', '9', 0x00},
	}

	alignSize := CmdSizeAlign(sd)
	// base folder + 'content' + 'cmd', the TMD itself, and a CMD placeholder.
	e.TitleSize = uint64(alignSize)*3 + uint64(codec.Align32(uint32(t.Size()), alignSize)) + uint64(alignSize)

	hasIdx1 := false
	for _, c := range t.Chunks {
		if c.Index == 1 {
			hasIdx1 = true
		}
		e.TitleSize += uint64(codec.Align32(uint32(c.Size), alignSize))
	}

	titleIDHi := uint32(t.TitleID >> 32)
	if hasIdx1 && (titleIDHi == tidHiEShopApp || titleIDHi == tidHiEShopApp2) {
		e.Flags0[0] = 0x1 // may have a manual
	}

	return e
}

// BuildFromTWL augments a base TMD-derived entry with TWL-specific fields:
// the game title from the embedded TWL header (except for system data
// archives, title-id-hi 0x0004800F) and the DSiWare-port flags for
// title-id-hi 0x00048004. Mirrors tie.c BuildTitleInfoEntryTwl.
func BuildFromTWL(t *tmd.View, twlGameTitle [12]byte, sd bool) *Entry {
	e := BuildFromTMD(t, sd)

	titleIDHi := uint32(t.TitleID >> 32)
	if titleIDHi != tidHiSystemData {
		copy(e.ProductCode[:12], twlGameTitle[:])
	}
	if titleIDHi == tidHiTWLApp {
		e.Flags2[0] = 0x01
		e.Flags2[4] = 0x01
		e.Flags2[5] = 0x01
	}
	return e
}

// BuildFromNCCH augments a base TMD-derived entry with NCCH-specific
// fields: product code, extended title version (NCCH version in the high
// 16 bits), the "not a system title" flag, savedata accounting and the
// extdata-id-low hack. Mirrors tie.c BuildTitleInfoEntryNcch.
func BuildFromNCCH(t *tmd.View, ncch *sc.Header, exthdr *sc.ExtHeader, sd bool) *Entry {
	e := BuildFromTMD(t, sd)

	copy(e.ProductCode[:], ncch.ProductCode)
	e.TitleVersionExt = uint32(e.TitleVersion) | uint32(ncch.Version)<<16

	titleIDHi := uint32(t.TitleID >> 32)
	if titleIDHi&tidHiSystemBit == 0 {
		e.Flags2[4] = 0x01
	}

	if exthdr != nil {
		if exthdr.SaveDataSize != 0 {
			alignSize := CmdSizeAlign(sd)
			e.TitleSize += uint64(alignSize) + uint64(codec.Align32(exthdr.SaveDataSize, alignSize))
			e.Flags1[0] = 0x01
		}
		e.ExtDataIDLow = exthdr.ExtDataIDLow()
	} else {
		e.Flags0[0] = 0x00
	}

	return e
}

// Marshal serializes e into the fixed Size-byte on-disk record.
func (e *Entry) Marshal() []byte {
	buf := make([]byte, Size)
	buf[entryTitleTypeOff] = e.TitleType
	codec.PutLE16(buf[entryTitleVersionOff:entryTitleVersionOff+2], e.TitleVersion)
	codec.PutLE32(buf[entryTitleVersionExtOff:entryTitleVersionExtOff+4], e.TitleVersionExt)
	codec.PutLE32(buf[entryCmdContentIDOff:entryCmdContentIDOff+4], e.CmdContentID)
	copy(buf[entryProductCodeOff:entryProductCodeOff+16], e.ProductCode[:])
	codec.PutLE64(buf[entryTitleSizeOff:entryTitleSizeOff+8], e.TitleSize)
	codec.PutLE32(buf[entryExtDataIDLowOff:entryExtDataIDLowOff+4], e.ExtDataIDLow)
	copy(buf[entryFlags0Off:entryFlags0Off+4], e.Flags0[:])
	copy(buf[entryFlags1Off:entryFlags1Off+4], e.Flags1[:])
	copy(buf[entryFlags2Off:entryFlags2Off+8], e.Flags2[:])
	copy(buf[entryUnknownOff:entryUnknownOff+4], e.Unknown[:])
	return buf
}
