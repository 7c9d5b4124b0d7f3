// Package verify implements the hash-DAG walk of §4.5: per-region header
// hash checks, the thorough flat-archive file pass, the thorough IVFC
// walk, and the outer-package per-content pass. Every check is independent
// of its siblings; a failure in one region never prevents the others from
// running, and all failures are reported together (§4.5 "Error semantics").
package verify

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	ctrcrypto "github.com/sargunv/ctrtool/lib/crypto"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/mc"
	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

// Report collects the pass/fail flag for every region checked, plus the
// accumulated errors describing each failure (§4.5 "returns the OR of
// flags so the caller can report each per-region result").
type Report struct {
	ExtHeader    *bool
	FlatArchive  *bool
	HashFS       *bool
	FileHashes   map[string]bool
	IVFC         *IVFCReport
	Partitions   map[int]*Report
	Contents     map[uint16]bool

	Err error
}

func (r *Report) fail(format string, args ...any) {
	r.Err = multierror.Append(r.Err, fmt.Errorf(format, args...))
}

// OK reports whether every checked region passed.
func (r *Report) OK() bool { return r.Err == nil }

func boolPtr(b bool) *bool { return &b }

// checkRegionHash hashes region and compares against want. On mismatch, if
// opts.CryptoFix is set, it retries under the opposite Plain assumption;
// when that retry matches, it consults the strategy and, if accepted,
// flips region.Plain permanently (so later reads of the same region, e.g.
// a Thorough flat-archive file walk, use the corrected flag) and reports
// success.
func checkRegionHash(ctx context.Context, region *ctrcrypto.Region, size int64, want [32]byte, opts SecondaryContainerOptions, blockSize int, label string) (bool, error) {
	sum, err := ctrcrypto.HashAll(region, size, opts.NewHash(), blockSize)
	if err != nil {
		return false, err
	}
	if sum == want {
		return true, nil
	}
	if opts.CryptoFix == nil {
		return false, nil
	}
	region.Plain = !region.Plain
	retrySum, err := ctrcrypto.HashAll(region, size, opts.NewHash(), blockSize)
	if err != nil {
		return false, err
	}
	if retrySum != want {
		region.Plain = !region.Plain // restore: the flip didn't explain the mismatch
		return false, nil
	}
	fix, err := opts.CryptoFix.Resolve(ctx, label)
	if err != nil {
		return false, err
	}
	if !fix {
		region.Plain = !region.Plain
		return false, nil
	}
	return true, nil
}

// SecondaryContainerOptions parameterizes a single SC verification pass.
type SecondaryContainerOptions struct {
	Cipher    extern.AESCipher
	Key       [16]byte
	NewHash   func() extern.SHA256
	Thorough  bool
	BlockSize int // defaults to 128 KiB when 0

	// CryptoFix, if set, is offered a chance to reclassify a region as
	// encrypted/plaintext when its declared hash fails under the
	// header's own Encrypted() flag but would pass under the opposite
	// assumption (§9 "Interactive fixups", SUPPLEMENTED FEATURES
	// cryptofix_always dance).
	CryptoFix *CryptoFixStrategy
}

// SecondaryContainer verifies one SC's header-declared hashes (§4.5 steps
// 1-3), and, if Thorough, every flat-archive file (step 4, skipping the
// Process9 exemption) and the full IVFC hash tree (step 5).
func SecondaryContainer(ctx context.Context, src io.ReaderAt, base int64, h *sc.Header, opts SecondaryContainerOptions) (*Report, error) {
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = 128 * 1024
	}
	r := &Report{FileHashes: map[string]bool{}}

	if h.SizeExtHdr > 0 {
		region := &ctrcrypto.Region{
			Src: src, Base: base + sc.ExtHeaderOffset,
			Cipher: opts.Cipher, Key: opts.Key,
			IVBase: ctrcrypto.RegionCTR(h.ProgramID, sc.RegionExtHeader),
			Plain:  !h.Encrypted(),
		}
		ok, err := checkRegionHash(ctx, region, int64(sc.ExtHeaderSize), h.HashExtHdr, opts, blockSize, "exthdr")
		if err != nil {
			return nil, fmt.Errorf("verify: reading exthdr: %w", err)
		}
		r.ExtHeader = boolPtr(ok)
		if !ok {
			r.fail("exthdr hash mismatch")
		}
	}

	faRegion := &ctrcrypto.Region{
		Src: src, Base: base + int64(h.ExeFsOffset()),
		Cipher: opts.Cipher, Key: opts.Key,
		IVBase: ctrcrypto.RegionCTR(h.ProgramID, sc.RegionFlatArchive),
		Plain:  !h.Encrypted(),
	}
	if h.SizeExeFsHash > 0 {
		ok, err := checkRegionHash(ctx, faRegion, int64(h.SizeExeFsHash)*sc.MediaUnit, h.HashExeFs, opts, blockSize, "flat archive")
		if err != nil {
			return nil, fmt.Errorf("verify: reading flat archive: %w", err)
		}
		r.FlatArchive = boolPtr(ok)
		if !ok {
			r.fail("flat archive hash mismatch")
		}
	}

	hfsRegion := &ctrcrypto.Region{
		Src: src, Base: base + int64(h.RomFsOffset()),
		Cipher: opts.Cipher, Key: opts.Key,
		IVBase: ctrcrypto.RegionCTR(h.ProgramID, sc.RegionHashFS),
		Plain:  !h.Encrypted(),
	}
	if h.SizeRomFsHash > 0 {
		ok, err := checkRegionHash(ctx, hfsRegion, int64(h.SizeRomFsHash)*sc.MediaUnit, h.HashRomFs, opts, blockSize, "hash filesystem")
		if err != nil {
			return nil, fmt.Errorf("verify: reading hash filesystem: %w", err)
		}
		r.HashFS = boolPtr(ok)
		if !ok {
			r.fail("hash filesystem hash mismatch")
		}
	}

	if !opts.Thorough {
		return r, nil
	}

	if h.SizeExeFsHash > 0 {
		headerBuf := make([]byte, sc.FlatArchiveHeaderSize)
		if _, err := faRegion.ReadAt(headerBuf, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("verify: reading flat archive header: %w", err)
		}
		fa, err := sc.ParseFlatArchive(headerBuf)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		for _, f := range fa.ActiveFiles() {
			if f.Name == sc.ProcessExempt {
				continue
			}
			fileRegion := &ctrcrypto.Region{
				Src: faRegion.Src, Base: faRegion.Base + int64(sc.FlatArchiveHeaderSize) + int64(f.Offset),
				Cipher: opts.Cipher, Key: opts.Key, IVBase: faRegion.IVBase, Plain: faRegion.Plain,
			}
			sum, err := ctrcrypto.HashAll(fileRegion, int64(f.Size), opts.NewHash(), blockSize)
			if err != nil {
				return nil, fmt.Errorf("verify: reading flat archive file %s: %w", f.Name, err)
			}
			ok := sum == f.Hash
			r.FileHashes[f.Name] = ok
			if !ok {
				r.fail("flat archive file %q hash mismatch", f.Name)
			}
		}
	}

	if h.SizeRomFsHash > 0 {
		ivfcHdrBuf := make([]byte, sc.IVFCHeaderSize)
		if _, err := hfsRegion.ReadAt(ivfcHdrBuf, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("verify: reading ivfc header: %w", err)
		}
		ivfcHdr, err := sc.ParseIVFCHeader(ivfcHdrBuf)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		ivfcReport, err := IVFC(hfsRegion, ivfcHdr, opts.NewHash)
		if err != nil {
			return nil, fmt.Errorf("verify: ivfc walk: %w", err)
		}
		r.IVFC = ivfcReport
		if !ivfcReport.OK() {
			r.fail("ivfc hash tree mismatch")
		}
	}

	return r, nil
}

// MultiContainer verifies every populated partition slot as an SC.
func MultiContainer(ctx context.Context, src io.ReaderAt, h *mc.Header, parse func(io.ReaderAt, int64) (*sc.Header, error), opts SecondaryContainerOptions) (*Report, error) {
	r := &Report{Partitions: map[int]*Report{}}
	for i := range h.Partitions {
		off, size := h.PartitionByteRange(i)
		if size == 0 {
			continue
		}
		scHeader, err := parse(src, int64(off))
		if err != nil {
			r.fail("partition %d: %v", i, err)
			continue
		}
		sub, err := SecondaryContainer(ctx, src, int64(off), scHeader, opts)
		if err != nil {
			return nil, fmt.Errorf("verify: partition %d: %w", i, err)
		}
		r.Partitions[i] = sub
		if !sub.OK() {
			r.fail("partition %d failed verification", i)
		}
	}
	return r, nil
}

// OuterPackageOptions parameterizes the per-content pass.
type OuterPackageOptions struct {
	Cipher  extern.AESCipher
	Key     [16]byte
	NewHash func() extern.SHA256
	ContentOffset func(index uint16) (offset int64, ok bool)
	BlockSize int
}

// OuterPackage verifies each present content (§4.5 "iterate chunks in the
// present-bitmap order"): absent-bit chunks are skipped and never counted
// as failures.
func OuterPackage(src io.ReaderAt, h *outer.Header, t *tmd.View, opts OuterPackageOptions) (*Report, error) {
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = 128 * 1024
	}
	r := &Report{Contents: map[uint16]bool{}}
	for _, chunk := range t.Chunks {
		if !h.IndexSet(chunk.Index) {
			continue
		}
		off, ok := opts.ContentOffset(chunk.Index)
		if !ok {
			r.fail("content %d: no offset available", chunk.Index)
			continue
		}
		region := &ctrcrypto.Region{
			Src: src, Base: off,
			Cipher: opts.Cipher, Key: opts.Key,
			IVBase: ctrcrypto.ContentCTR(chunk.Index),
			Plain:  !chunk.Encrypted(),
		}
		sum, err := ctrcrypto.HashAll(region, int64(chunk.Size), opts.NewHash(), blockSize)
		if err != nil {
			return nil, fmt.Errorf("verify: reading content %d: %w", chunk.Index, err)
		}
		ok2 := sum == chunk.Hash
		r.Contents[chunk.Index] = ok2
		if !ok2 {
			r.fail("content %d hash mismatch", chunk.Index)
		}
	}
	return r, nil
}
