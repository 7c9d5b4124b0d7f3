// Package cryptcopy implements the streaming transform engine of §4.6: a
// block-buffered copy from a source window to a destination window,
// in-place or to a separate file, with per-kind header rewrites and a
// progress/cancellation callback.
package cryptcopy

import (
	"context"
	"fmt"

	ctrcrypto "github.com/sargunv/ctrtool/lib/crypto"
	"github.com/sargunv/ctrtool/lib/ctrerr"
	"github.com/sargunv/ctrtool/lib/extern"
)

// Mode distinguishes the per-kind header/hash handling described in §4.6.
type Mode int

const (
	// ModeRaw copies/transforms a window with no post-loop bookkeeping:
	// used for SC/MC region in-place crypt.
	ModeRaw Mode = iota
	// ModeOuterContent is an OuterPackage content stream: the caller
	// uses the returned hash to update the content's TMD chunk entry.
	ModeOuterContent
	// ModeFirmware marks a firmware image window; encrypting one is
	// refused outright (§4.6 "Firmware encryption is unsupported").
	ModeFirmware
	// ModeBOSS is the legacy CDN "BOSS" wrapper: a one-time payload
	// header precedes the streamed content.
	ModeBOSS
)

// Direction is the crypt direction. CTR transform is its own inverse, so
// Direction only gates policy checks (ModeFirmware) — it does not change
// how bytes are transformed.
type Direction int

const (
	Decrypt Direction = iota
	Encrypt
)

// DefaultBlockSize is the implementation-default streaming buffer size
// (§4.6 "Allocate a block buffer (implementation default 128 KiB)").
const DefaultBlockSize = 128 * 1024

// Options parameterizes one crypt-copy pass.
type Options struct {
	Src extern.File
	Dst extern.File // equal to Src for in-place operation

	Offset int64 // window start, relative to both Src and Dst
	Size   int64 // window length

	BlockSize int // 0 means DefaultBlockSize

	Cipher extern.AESCipher
	Key    [16]byte
	IVBase [16]byte
	Plain  bool // no-crypto/fixed-key passthrough: bytes copied untransformed

	Mode      Mode
	Direction Direction

	// NewHash, if non-nil, accumulates a rolling SHA-256 over the
	// emitted (post-transform) bytes; Result.Hash is only populated
	// when this is set.
	NewHash func() extern.SHA256

	// BossHeader, when Mode is ModeBOSS, is written at destination
	// offset 0 before the payload window is streamed (§4.6 "prepend a
	// payload-header of 0x28 B obtained from the BOSS header").
	BossHeader []byte

	Progress extern.Progress
}

// Result reports what was emitted.
type Result struct {
	Size int64
	Hash [32]byte
}

// Run streams opts.Size bytes from Src+Offset to Dst+Offset, transforming
// each block and optionally hashing the emitted bytes. In-place operation
// (Src == Dst) is safe because reads and writes use the same absolute
// offsets and CTR-mode transform depends only on that offset — there is no
// sequential cursor to race (§4.6 "writes never precede reads by more than
// one buffer" is automatically satisfied by random-access ReadAt/WriteAt).
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Mode == ModeFirmware && opts.Direction == Encrypt {
		return nil, fmt.Errorf("cryptcopy: firmware encryption: %w", ctrerr.ErrPolicyRefused)
	}

	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}

	need := opts.Offset + opts.Size
	if opts.Mode == ModeBOSS {
		need += int64(len(opts.BossHeader))
	}
	curSize, err := opts.Dst.Size()
	if err != nil {
		return nil, fmt.Errorf("cryptcopy: stat destination: %w", err)
	}
	if curSize < need {
		if err := opts.Dst.Truncate(need); err != nil {
			return nil, fmt.Errorf("cryptcopy: extend destination: %w", err)
		}
	}

	if opts.Mode == ModeBOSS && len(opts.BossHeader) > 0 {
		if _, err := opts.Dst.WriteAt(opts.BossHeader, 0); err != nil {
			return nil, fmt.Errorf("cryptcopy: writing boss header: %w", err)
		}
	}

	var hash extern.SHA256
	if opts.NewHash != nil {
		hash = opts.NewHash()
		hash.Init()
	}

	buf := make([]byte, blockSize)
	var done int64
	for done < opts.Size {
		want := int64(len(buf))
		if remaining := opts.Size - done; want > remaining {
			want = remaining
		}
		n, err := opts.Src.ReadAt(buf[:want], opts.Offset+done)
		if err != nil && int64(n) < want {
			return nil, fmt.Errorf("cryptcopy: reading block at %d: %w", opts.Offset+done, err)
		}
		if n > 0 {
			chunk := buf[:n]
			if !opts.Plain {
				ctrcrypto.Transform(opts.Cipher, opts.Key, opts.IVBase, uint64(done), chunk)
			}
			if _, werr := opts.Dst.WriteAt(chunk, opts.Offset+done); werr != nil {
				return nil, fmt.Errorf("cryptcopy: writing block at %d: %w", opts.Offset+done, werr)
			}
			if hash != nil {
				hash.Update(chunk)
			}
			done += int64(n)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("cryptcopy: %w", ctrerr.ErrCancelled)
		default:
		}
		if opts.Progress != nil && !opts.Progress(done, opts.Size, "crypt") {
			return nil, fmt.Errorf("cryptcopy: %w", ctrerr.ErrCancelled)
		}
	}

	res := &Result{Size: done}
	if hash != nil {
		res.Hash = hash.Sum()
	}
	return res, nil
}
