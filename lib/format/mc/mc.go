// Package mc models the MultiContainer (NCSD/cartridge dump) format: a
// header with up to 8 partition slots, each an offset/size pair in
// media units pointing at an embedded SC. Partition 0 is the primary SC.
package mc

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// MediaUnit matches sc.MediaUnit; kept separate so mc has no import cycle
// risk and mirrors the original's distinct NCSD_MEDIA_UNIT constant.
const MediaUnit = 0x200

// HeaderSize is the fixed NCSD header size.
const HeaderSize = 0x200

const (
	sigOff         = 0x0
	sigSize        = 0x100
	magicOff       = 0x100
	magicExpect    = "NCSD"
	mediaSizeOff   = 0x104
	mediaIDOff     = 0x108
	partitionsOff  = 0x120 // 8 * (offset u32, size u32)
	partitionCount = 8
)

// Partition is one of the 8 partition slots.
type Partition struct {
	Offset uint32 // media units
	Size   uint32 // media units
}

// Header is the parsed NCSD header.
type Header struct {
	Signature  [sigSize]byte
	MediaSize  uint32
	MediaID    uint64
	Partitions [partitionCount]Partition
}

// ParseHeader decodes an NCSD header from buf.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("mc: buffer too small for header")
	}
	if string(buf[magicOff:magicOff+4]) != magicExpect {
		return nil, fmt.Errorf("mc: bad magic %q", buf[magicOff:magicOff+4])
	}
	h := &Header{
		MediaSize: codec.GetLE32(buf[mediaSizeOff : mediaSizeOff+4]),
		MediaID:   codec.GetLE64(buf[mediaIDOff : mediaIDOff+8]),
	}
	copy(h.Signature[:], buf[sigOff:sigOff+sigSize])
	for i := 0; i < partitionCount; i++ {
		off := partitionsOff + i*8
		h.Partitions[i] = Partition{
			Offset: codec.GetLE32(buf[off : off+4]),
			Size:   codec.GetLE32(buf[off+4 : off+8]),
		}
	}
	return h, nil
}

// PartitionByteRange returns the absolute (offset, size) in bytes for
// partition i, or (0, 0) if the slot is unused.
func (h *Header) PartitionByteRange(i int) (offset, size uint64) {
	p := h.Partitions[i]
	return uint64(p.Offset) * MediaUnit, uint64(p.Size) * MediaUnit
}
