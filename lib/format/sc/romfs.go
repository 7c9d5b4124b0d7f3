package sc

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// IVFCHeaderSize is the fixed RomFS/IVFC header size.
const IVFCHeaderSize = 0x5C

// IVFCHeader describes the 3-level hash tree used by the HashFileSystem
// region: a master-hash block covering level 1, level 1 covering level 2,
// and level 2 covering the streamed level-3 data blocks.
type IVFCHeader struct {
	MagicOK       bool
	MasterHashSize uint32
	SizeLvl1       uint64
	LogLvl1        uint32
	SizeLvl2       uint64
	LogLvl2        uint32
	SizeLvl3       uint64
	LogLvl3        uint32
}

const (
	ivfcMagicOff     = 0x0
	ivfcMagicExpect  = "IVFC"
	ivfcMasterHashSz = 0x8
	ivfcLvl1Off      = 0xC
	ivfcLvl1LogOff   = 0x18
	ivfcLvl2Off      = 0x1C
	ivfcLvl2LogOff   = 0x28
	ivfcLvl3Off      = 0x2C
	ivfcLvl3LogOff   = 0x38
)

// ParseIVFCHeader decodes a RomFS IVFC header from a decrypted buffer.
func ParseIVFCHeader(buf []byte) (*IVFCHeader, error) {
	if len(buf) < IVFCHeaderSize {
		return nil, fmt.Errorf("sc: buffer too small for ivfc header")
	}
	if string(buf[ivfcMagicOff:ivfcMagicOff+4]) != ivfcMagicExpect {
		return nil, fmt.Errorf("sc: bad ivfc magic %q", buf[ivfcMagicOff:ivfcMagicOff+4])
	}
	h := &IVFCHeader{
		MagicOK:        true,
		MasterHashSize: codec.GetLE32(buf[ivfcMasterHashSz : ivfcMasterHashSz+4]),
		SizeLvl1:       codec.GetLE64(buf[ivfcLvl1Off : ivfcLvl1Off+8]),
		LogLvl1:        codec.GetLE32(buf[ivfcLvl1LogOff : ivfcLvl1LogOff+4]),
		SizeLvl2:       codec.GetLE64(buf[ivfcLvl2Off : ivfcLvl2Off+8]),
		LogLvl2:        codec.GetLE32(buf[ivfcLvl2LogOff : ivfcLvl2LogOff+4]),
		SizeLvl3:       codec.GetLE64(buf[ivfcLvl3Off : ivfcLvl3Off+8]),
		LogLvl3:        codec.GetLE32(buf[ivfcLvl3LogOff : ivfcLvl3LogOff+4]),
	}
	return h, nil
}

// LevelOffset returns the byte offset of level lvl (1-3) relative to the
// start of the RomFS region: level 1 immediately follows the header and
// master-hash block; subsequent levels are aligned to their own block size.
func (h *IVFCHeader) LevelOffset(lvl int) uint64 {
	base := uint64(IVFCHeaderSize) + codec.Align(uint64(h.MasterHashSize), 1<<h.LogLvl1)
	switch lvl {
	case 1:
		return base
	case 2:
		lvl1Size := codec.Align(h.SizeLvl1, 1<<h.LogLvl1)
		return codec.Align(base+lvl1Size, 1<<h.LogLvl2)
	case 3:
		lvl2Size := codec.Align(h.SizeLvl2, 1<<h.LogLvl2)
		return codec.Align(h.LevelOffset(2)+lvl2Size, 1<<h.LogLvl3)
	default:
		return 0
	}
}

// BlockSize returns 1<<log for the given level's log_lvlN field.
func (h *IVFCHeader) BlockSize(lvl int) uint64 {
	switch lvl {
	case 1:
		return 1 << h.LogLvl1
	case 2:
		return 1 << h.LogLvl2
	case 3:
		return 1 << h.LogLvl3
	default:
		return 0
	}
}

// LevelSize returns the declared (unaligned) size of the given level.
func (h *IVFCHeader) LevelSize(lvl int) uint64 {
	switch lvl {
	case 1:
		return h.SizeLvl1
	case 2:
		return h.SizeLvl2
	case 3:
		return h.SizeLvl3
	default:
		return 0
	}
}
