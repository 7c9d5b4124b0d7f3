// Package cm models the ContentManifest (CMD) device-side index of
// installed contents for a title, with a CMAC footer.
package cm

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

const (
	hdrContentCountOff   = 0x0
	hdrContentCount2Off  = 0x4 // "installed" count, equal to above at install time
	hdrHighestIndexOff   = 0x8
	hdrUnknownOff        = 0xC
	headerSize           = 0x10
	entrySize            = 0x4 // content-id
	cmacSize             = 0x10
)

// Entry is one content-id slot in the manifest, ordered by content-index.
type Entry struct {
	ContentID uint32
	Index     uint16
	Installed bool
}

// Manifest is the parsed ContentManifest.
type Manifest struct {
	Entries []Entry
	CMAC    [cmacSize]byte
}

// BuildFromChunks constructs a fresh Manifest from a TMD's chunk list,
// ordered by content-index, as the installer does when writing
// content/cmd/00000001.cmd (§4.8).
func BuildFromChunks(chunks []tmd.ContentChunk) *Manifest {
	m := &Manifest{Entries: make([]Entry, len(chunks))}
	for i, c := range chunks {
		m.Entries[i] = Entry{ContentID: c.ID, Index: c.Index, Installed: true}
	}
	return m
}

// Marshal serializes the manifest body (header + flag table), excluding the
// CMAC which is fixed up separately by the caller via an external CMAC
// helper (§1 "auxiliary format helpers ... CMAC fixup").
func (m *Manifest) Marshal() []byte {
	highest := uint32(0)
	for _, e := range m.Entries {
		if uint32(e.Index) > highest {
			highest = uint32(e.Index)
		}
	}
	flagTableSize := int(highest+1+7) / 8 * 8 // byte-aligned bitmask, 8-index granularity
	buf := make([]byte, headerSize+flagTableSize)
	codec.PutLE32(buf[hdrContentCountOff:hdrContentCountOff+4], uint32(len(m.Entries)))
	codec.PutLE32(buf[hdrContentCount2Off:hdrContentCount2Off+4], uint32(len(m.Entries)))
	codec.PutLE32(buf[hdrHighestIndexOff:hdrHighestIndexOff+4], highest)
	for _, e := range m.Entries {
		if !e.Installed {
			continue
		}
		byteOff := headerSize + int(e.Index)/8
		if byteOff >= len(buf) {
			continue
		}
		buf[byteOff] |= 1 << (e.Index % 8)
	}
	return buf
}

// Parse decodes a Manifest from buf, which must include the trailing CMAC.
func Parse(buf []byte) (*Manifest, error) {
	if len(buf) < headerSize+cmacSize {
		return nil, fmt.Errorf("cm: buffer too small")
	}
	count := codec.GetLE32(buf[hdrContentCountOff : hdrContentCountOff+4])
	highest := codec.GetLE32(buf[hdrHighestIndexOff : hdrHighestIndexOff+4])
	flagTableSize := int(highest+1+7) / 8 * 8
	if headerSize+flagTableSize+cmacSize > len(buf) {
		return nil, fmt.Errorf("cm: buffer too small for declared flag table")
	}

	m := &Manifest{}
	flags := buf[headerSize : headerSize+flagTableSize]
	for idx := 0; idx <= int(highest); idx++ {
		if flags[idx/8]&(1<<(idx%8)) != 0 {
			m.Entries = append(m.Entries, Entry{Index: uint16(idx), Installed: true})
		}
	}
	_ = count
	copy(m.CMAC[:], buf[headerSize+flagTableSize:headerSize+flagTableSize+cmacSize])
	return m, nil
}
