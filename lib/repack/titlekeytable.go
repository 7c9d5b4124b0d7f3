package repack

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TitleKeyTable is the ambient title-key lookup spec.md §4.7 names as a
// repackage fallback source when no ticket for a title is discovered on
// the source medium (SUPPLEMENTED FEATURES #4, grounded on gameutil.c's
// BuildTitleKeyInfo title-key-table file). Each record is a fixed 24
// bytes: an 8-byte big-endian title-id followed by its 16-byte title-key.
type TitleKeyTable map[uint64][16]byte

// LoadTitleKeyTable reads a title-key table from r until EOF.
func LoadTitleKeyTable(r io.Reader) (TitleKeyTable, error) {
	t := make(TitleKeyTable)
	var rec [24]byte
	for {
		_, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("repack: title-key table truncated record")
		}
		if err != nil {
			return nil, fmt.Errorf("repack: reading title-key table: %w", err)
		}
		titleID := binary.BigEndian.Uint64(rec[0:8])
		var key [16]byte
		copy(key[:], rec[8:24])
		t[titleID] = key
	}
	return t, nil
}

// Lookup returns the title-key for titleID, if present.
func (t TitleKeyTable) Lookup(titleID uint64) ([16]byte, bool) {
	k, ok := t[titleID]
	return k, ok
}
