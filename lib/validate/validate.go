// Package validate implements the header-level sanity checks of §4.4:
// declared sizes fitting their enclosing region, monotonic
// offsets, and signature-tag domain checks. Validators never touch
// payload bytes beyond a header; hash-level integrity is lib/verify's job.
package validate

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/format/hr"
	"github.com/sargunv/ctrtool/lib/format/mc"
	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

// Result collects every problem found; a Result with no Problems is valid.
// Unlike lib/verify, a validator never continues past a problem that would
// make further field access unsafe (e.g. an offset outside the file).
type Result struct {
	Problems []string
}

func (r *Result) fail(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// OK reports whether no problems were recorded.
func (r *Result) OK() bool { return len(r.Problems) == 0 }

// knownSigType reports whether sigType is one of the constants tmd/ticket
// recognize (§4.4 "signature tag is one of the known constants").
func knownSigType(sigType uint32) bool {
	_, err := tmd.SignatureSize(sigType)
	return err == nil
}

// OuterPackage validates an outer-package header against fileSize: nonzero
// archive type and cert-chain size, the content region ending within
// fileSize, and a content-index population
// consistent with a non-negative content-region size.
func OuterPackage(h *outer.Header, fileSize int64) *Result {
	r := &Result{}
	if h.Type == 0 {
		r.fail("outer: zero archive type")
	}
	layout := outer.ComputeLayout(h)
	end := int64(layout.ContentOffset) + int64(h.ContentSize)
	if end > fileSize {
		r.fail("outer: content region end %d exceeds file size %d", end, fileSize)
	}
	if h.CertSize == 0 {
		r.fail("outer: zero cert-chain size")
	}
	popcount := 0
	for _, b := range h.Index {
		for i := 0; i < 8; i++ {
			if b&(1<<uint(7-i)) != 0 {
				popcount++
			}
		}
	}
	if popcount == 0 && h.ContentSize > 0 {
		r.fail("outer: content-region size %d but no index bits set", h.ContentSize)
	}
	return r
}

// TMD validates a title-metadata view: known signature tag and no
// content-id repeated in the chunk list.
func TMD(v *tmd.View) *Result {
	r := &Result{}
	if !knownSigType(v.SigType) {
		r.fail("tmd: unknown signature type %#x", v.SigType)
	}
	seen := make(map[uint32]bool, len(v.Chunks))
	for _, c := range v.Chunks {
		if seen[c.ID] {
			r.fail("tmd: duplicate content-id %#x", c.ID)
		}
		seen[c.ID] = true
	}
	return r
}

// Ticket validates a ticket view: known signature tag.
func Ticket(sigType uint32) *Result {
	r := &Result{}
	if !knownSigType(sigType) {
		r.fail("ticket: unknown signature type %#x", sigType)
	}
	return r
}

// SecondaryContainer validates an SC header: a nonzero flat-archive size,
// the flat archive starting no earlier than the exthdr offset, the hash
// filesystem starting no earlier than the flat archive, and the hash
// filesystem ending within fileSize.
func SecondaryContainer(h *sc.Header, fileSize int64) *Result {
	r := &Result{}
	if h.SizeExeFs == 0 {
		r.fail("sc: zero-size flat archive")
	}
	if h.OffsetExeFs != 0 && h.ExeFsOffset() < sc.ExtHeaderOffset {
		r.fail("sc: flat-archive offset %#x precedes exthdr region", h.OffsetExeFs)
	}
	if h.OffsetRomFs != 0 && h.SizeRomFs != 0 && h.OffsetRomFs < h.OffsetExeFs {
		r.fail("sc: hash-filesystem offset %#x precedes flat-archive offset %#x", h.OffsetRomFs, h.OffsetExeFs)
	}
	end := int64(h.RomFsOffset()) + int64(h.SizeRomFs)*sc.MediaUnit
	if h.SizeRomFs > 0 && end > fileSize {
		r.fail("sc: hash-filesystem region end %d exceeds file size %d", end, fileSize)
	}
	return r
}

// MultiContainer validates an MC (cart dump) header: partition
// byte-ranges monotonic and within fileSize.
func MultiContainer(h *mc.Header, fileSize int64) *Result {
	r := &Result{}
	var prevEnd uint64
	for i := range h.Partitions {
		off, size := h.PartitionByteRange(i)
		if size == 0 {
			continue
		}
		if off < prevEnd {
			r.fail("mc: partition %d offset %#x overlaps prior partition end %#x", i, off, prevEnd)
		}
		if int64(off+size) > fileSize {
			r.fail("mc: partition %d end %d exceeds file size %d", i, off+size, fileSize)
		}
		prevEnd = off + size
	}
	return r
}

// HandheldROM validates a legacy cart header: trimmed ROM size within
// fileSize. The unit-code is not checked.
func HandheldROM(h *hr.Header, fileSize int64) *Result {
	r := &Result{}
	if int64(h.TrimmedROMSize) > fileSize {
		r.fail("hr: trimmed ROM size %d exceeds file size %d", h.TrimmedROMSize, fileSize)
	}
	return r
}
