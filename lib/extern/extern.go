// Package extern defines the external-collaborator contracts this toolkit
// consumes but does not implement (§1): block storage, cryptographic
// primitives, key-slot access, progress/cancellation and interactive
// prompts. Production callers wire these to the host's FAT-like
// filesystem, hardware AES/SHA engines and UI; tests wire them to the
// in-memory/stdlib-backed implementations in this package.
package extern

import (
	"context"
	"io"
)

// Storage is the block-storage / FAT-like filesystem contract: random
// access read/write/truncate/rename/unlink/mkdir-p over drive-prefixed
// paths (§6 "Filesystem mount points").
type Storage interface {
	Open(path string) (File, error)
	Create(path string) (File, error)
	OpenReadWrite(path string) (File, error)
	Remove(path string) error
	Rename(oldPath, newPath string) error
	MkdirAll(path string) error
	Stat(path string) (Info, error)
}

// File is a random-access handle into Storage.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Truncate(size int64) error
	Size() (int64, error)
}

// Info is minimal stat metadata.
type Info struct {
	Size  int64
	IsDir bool
}

// OffsetFile rebases ReadAt against a File so a sub-window of a larger
// source (e.g. one SC partition inside an MC image, or one content inside
// an OuterPackage) can be streamed as if it started at offset 0, without
// copying. Every other method forwards to the embedded File unchanged.
type OffsetFile struct {
	File
	Base int64
}

// ReadAt reads from the underlying File at off+Base.
func (f OffsetFile) ReadAt(p []byte, off int64) (int, error) {
	return f.File.ReadAt(p, off+f.Base)
}

// MountSwitcher is the "mount an image as a virtual filesystem" facility
// used to edit the title/ticket databases (§1, design note "mutable
// shared database state"). Mount is expected to be paired with a restore
// of the prior mount by the caller (lib/install couples this with a
// defer-based scoped acquisition).
type MountSwitcher interface {
	Mount(drive string, imagePath string) (prior string, err error)
	Restore(drive string, prior string) error
}

// KeySlots is the key-slot abstraction holding device-unique keys by
// index (§1, §6 "Key-slot IDs").
type KeySlots interface {
	// KeyX returns the 16-byte key-X for the given hardware slot index.
	KeyX(slot int) ([16]byte, error)
	// CommonKey returns the common-key used to unwrap a ticket's title-key.
	CommonKey(idx byte) ([16]byte, error)
}

// Well-known key-slot indices (§6), not renamed from the platform's
// cryptographic coprocessor assignments.
const (
	SlotNCCHStandard = 0x2C
	SlotNCCH7x       = 0x25
	SlotNCCHFixed    = 0x18 // zero key
	SlotTitleKey     = 0x3D
	SlotSystemKey    = 0x1B
	SlotSeed         = 0x2E
)

// AESCipher is the block-cipher contract: CBC for title-key unwrap, CTR
// for content streaming (§6 "Cipher: AES-128").
type AESCipher interface {
	// NewCTRStream returns a stream cipher positioned at the given key/IV.
	NewCTRStream(key, iv [16]byte) CTRStream
	// CBCDecrypt decrypts data (a multiple of 16 bytes) in place using key/iv.
	CBCDecrypt(key, iv [16]byte, data []byte)
}

// CTRStream transforms bytes in a counter-mode stream. XORKeyStream must be
// safe to call repeatedly over a contiguous logical byte range; callers
// seek by constructing a fresh stream with a CTR advanced to the target
// block via lib/crypto's derivation helpers.
type CTRStream interface {
	XORKeyStream(dst, src []byte)
}

// SHA256 is the rolling/one-shot hash contract (§4.3 "Hash rolling").
type SHA256 interface {
	Init()
	Update(p []byte)
	Sum() [32]byte
}

// Progress is the user-I/O progress callback: (done, total, label) -> bool,
// where false means cancel (§6). Both done and total may be 0 to request a
// heartbeat.
type Progress func(done, total int64, label string) bool

// Prompter is the interactive recovery/choice contract (§6 "Prompts", §9
// design note "Interactive fixups"). NonInteractive implementations answer
// every prompt with a fixed, documented default.
type Prompter interface {
	Confirm(ctx context.Context, label string) (bool, error)
	Select(ctx context.Context, label string, options []string) (int, error)
}
