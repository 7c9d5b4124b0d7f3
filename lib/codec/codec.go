// Package codec provides big/little-endian integer accessors and the
// alignment helpers used across the container header views in lib/format.
//
// Every multi-byte field in TMD, OuterPackage and Ticket is big-endian;
// everything in SC, MC, HR and the filesystem structures is little-endian.
// Callers pick the accessor that matches the field they're reading — the
// codec never infers endianness from the host.
package codec

import "encoding/binary"

// GetBE16 reads a big-endian uint16 at the start of b.
func GetBE16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// GetBE32 reads a big-endian uint32 at the start of b.
func GetBE32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// GetBE64 reads a big-endian uint64 at the start of b.
func GetBE64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// PutBE16 writes a big-endian uint16 to the start of b.
func PutBE16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }

// PutBE32 writes a big-endian uint32 to the start of b.
func PutBE32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// PutBE64 writes a big-endian uint64 to the start of b.
func PutBE64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }

// GetLE16 reads a little-endian uint16 at the start of b.
func GetLE16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// GetLE32 reads a little-endian uint32 at the start of b.
func GetLE32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// GetLE64 reads a little-endian uint64 at the start of b.
func GetLE64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// PutLE16 writes a little-endian uint16 to the start of b.
func PutLE16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// PutLE32 writes a little-endian uint32 to the start of b.
func PutLE32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// PutLE64 writes a little-endian uint64 to the start of b.
func PutLE64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

// Align rounds size up to the next multiple of unit. unit must be a power of two.
func Align(size, unit uint64) uint64 {
	if unit == 0 {
		return size
	}
	return (size + unit - 1) &^ (unit - 1)
}

// Align32 is the uint32 form of Align, used by media-unit fields.
func Align32(size, unit uint32) uint32 {
	if unit == 0 {
		return size
	}
	return (size + unit - 1) &^ (unit - 1)
}

// ExtractASCII extracts a null-terminated (or full-length) ASCII string from
// a fixed-size field, trimming trailing whitespace left by short names.
//
// Adapted from the teacher's string-extraction helper; used for product
// codes, game titles and ExeFS file names which all share this fixed-field
// null-padded convention.
func ExtractASCII(data []byte) string {
	end := len(data)
	for i, b := range data {
		if b == 0 {
			end = i
			break
		}
	}
	return trimTrailingSpace(string(data[:end]))
}

func trimTrailingSpace(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	start := 0
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	return s[start:end]
}
