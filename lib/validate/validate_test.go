package validate

import (
	"testing"

	"github.com/sargunv/ctrtool/lib/format/mc"
	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/sc"
)

func TestOuterPackageRejectsOversizedContent(t *testing.T) {
	h := &outer.Header{Type: 1, CertSize: 0x200, ContentSize: 0x1000}
	h.SetIndex(0, true)
	r := OuterPackage(h, 100)
	if r.OK() {
		t.Fatalf("expected failure for content region exceeding file size")
	}
}

func TestOuterPackageAcceptsConsistentHeader(t *testing.T) {
	h := &outer.Header{Type: 1, CertSize: 0x200, TicketSize: 0x350, TmdSize: 0xB04, ContentSize: 0x1000}
	h.SetIndex(0, true)
	layout := outer.ComputeLayout(h)
	r := OuterPackage(h, int64(layout.TotalSize))
	if !r.OK() {
		t.Fatalf("unexpected problems: %v", r.Problems)
	}
}

func TestOuterPackageFlagsPopulationMismatch(t *testing.T) {
	h := &outer.Header{Type: 1, CertSize: 0x200, ContentSize: 0x1000}
	r := OuterPackage(h, 0x10000)
	if r.OK() {
		t.Fatalf("expected failure: nonzero content size with empty bitmap")
	}
}

func TestSecondaryContainerRejectsOutOfOrderOffsets(t *testing.T) {
	h := &sc.Header{
		OffsetExeFs: 0x10,
		SizeExeFs:   1,
		OffsetRomFs: 0x5,
		SizeRomFs:   1,
	}
	r := SecondaryContainer(h, 0x10000)
	if r.OK() {
		t.Fatalf("expected failure for out-of-order region offsets")
	}
}

func TestMultiContainerRejectsOverlap(t *testing.T) {
	h := &mc.Header{}
	h.Partitions[0] = mc.Partition{Offset: 0, Size: 10}
	h.Partitions[1] = mc.Partition{Offset: 5, Size: 10}
	r := MultiContainer(h, 0x10000)
	if r.OK() {
		t.Fatalf("expected failure for overlapping partitions")
	}
}
