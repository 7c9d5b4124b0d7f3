package sc

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// FlatArchiveHeaderSize is the fixed ExeFS header size: 10 file entries
// followed by 10 inverse-ordered SHA-256 hashes.
const FlatArchiveHeaderSize = 0x200

const (
	faFileEntryCount = 10
	faFileEntrySize  = 16 // 8-byte name, 4-byte offset, 4-byte size
	faHashesOff      = 0xC0
	faHashSize       = 32
)

// FlatArchiveFile is one named file entry in the flat archive.
type FlatArchiveFile struct {
	Name   string
	Offset uint32 // relative to end of FlatArchiveHeaderSize
	Size   uint32
	Hash   [32]byte // stored inverse-ordered ahead of the matching entry
}

// FlatArchive is the parsed flat file archive (ExeFS) header.
type FlatArchive struct {
	Files [faFileEntryCount]FlatArchiveFile
}

// ParseFlatArchive decodes a FlatArchive header from a decrypted buffer.
func ParseFlatArchive(buf []byte) (*FlatArchive, error) {
	if len(buf) < FlatArchiveHeaderSize {
		return nil, fmt.Errorf("sc: buffer too small for flat archive header")
	}
	fa := &FlatArchive{}
	for i := 0; i < faFileEntryCount; i++ {
		off := i * faFileEntrySize
		f := FlatArchiveFile{
			Name:   codec.ExtractASCII(buf[off : off+8]),
			Offset: codec.GetLE32(buf[off+8 : off+12]),
			Size:   codec.GetLE32(buf[off+12 : off+16]),
		}
		// hashes are stored in reverse file-entry order
		hoff := faHashesOff + (faFileEntryCount-1-i)*faHashSize
		copy(f.Hash[:], buf[hoff:hoff+faHashSize])
		fa.Files[i] = f
	}
	return fa, nil
}

// Marshal serializes fa into a FlatArchiveHeaderSize buffer.
func (fa *FlatArchive) Marshal() []byte {
	buf := make([]byte, FlatArchiveHeaderSize)
	for i, f := range fa.Files {
		off := i * faFileEntrySize
		copy(buf[off:off+8], f.Name)
		codec.PutLE32(buf[off+8:off+12], f.Offset)
		codec.PutLE32(buf[off+12:off+16], f.Size)
		hoff := faHashesOff + (faFileEntryCount-1-i)*faHashSize
		copy(buf[hoff:hoff+faHashSize], f.Hash[:])
	}
	return buf
}

// ActiveFiles returns the non-empty file entries.
func (fa *FlatArchive) ActiveFiles() []FlatArchiveFile {
	var out []FlatArchiveFile
	for _, f := range fa.Files {
		if f.Size > 0 {
			out = append(out, f)
		}
	}
	return out
}

// ProcessExempt is the firmware module whose hash check is skipped during
// thorough verification (§4.5 step 4, "Process9 exemption").
const ProcessExempt = "Process9"
