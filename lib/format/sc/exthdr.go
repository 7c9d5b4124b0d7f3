package sc

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// ExtHeader layout (0x400 bytes), fields relevant to this toolkit only:
const (
	exthdrNameOff         = 0x0
	exthdrNameSize        = 8
	exthdrSaveSizeOff     = 0x1C0
	exthdrJumpIDOff       = 0x1C8
	exthdrDependencyOff   = 0x30
	exthdrDependencyCount = 48
	exthdrDependencySize  = 8
	exthdrProgramIDOff    = 0x200 + 0x18 // access-control-info program id
	exthdrACIDataOff      = 0x200
)

// ExtHeader is the parsed ExtendedHeader.
type ExtHeader struct {
	Name         string
	SaveDataSize uint32
	Dependencies [][8]byte
	ProgramID    uint64
	ACIData      []byte // raw ACI block, used for the extdata-id-low hack
}

// ParseExtHeader decodes an ExtendedHeader from a decrypted 0x400-byte buffer.
func ParseExtHeader(buf []byte) (*ExtHeader, error) {
	if len(buf) < ExtHeaderSize {
		return nil, fmt.Errorf("sc: buffer too small for exthdr")
	}
	e := &ExtHeader{
		Name:         codec.ExtractASCII(buf[exthdrNameOff : exthdrNameOff+exthdrNameSize]),
		SaveDataSize: codec.GetLE32(buf[exthdrSaveSizeOff : exthdrSaveSizeOff+4]),
		ProgramID:    codec.GetLE64(buf[exthdrProgramIDOff : exthdrProgramIDOff+8]),
		ACIData:      append([]byte(nil), buf[exthdrACIDataOff:]...),
	}
	for i := 0; i < exthdrDependencyCount; i++ {
		off := exthdrDependencyOff + i*exthdrDependencySize
		var dep [8]byte
		copy(dep[:], buf[off:off+exthdrDependencySize])
		if dep != ([8]byte{}) {
			e.Dependencies = append(e.Dependencies, dep)
		}
	}
	return e, nil
}

// ExtDataIDLow replicates the original's "hacky" extraction of the extdata
// ID's low word from the ACI block at a fixed sub-offset (tie.c:93).
func (e *ExtHeader) ExtDataIDLow() uint32 {
	const off = 0x30 - 0x0C + 0x04
	if off+4 > len(e.ACIData) {
		return 0
	}
	return codec.GetLE32(e.ACIData[off : off+4])
}

