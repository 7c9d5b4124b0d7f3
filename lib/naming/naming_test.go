package naming

import (
	"testing"

	"github.com/sargunv/ctrtool/lib/format/banner"
	"github.com/sargunv/ctrtool/lib/format/hr"
)

func TestRegionCodeAllBitsIsW(t *testing.T) {
	if got := RegionCode(allRegionsMask); got != "W" {
		t.Fatalf("expected W for every region bit set, got %q", got)
	}
}

func TestRegionCodeSubset(t *testing.T) {
	mask := uint32(1<<0 | 1<<2) // JPN + EUR
	if got := RegionCode(mask); got != "JE" {
		t.Fatalf("expected JE, got %q", got)
	}
}

func TestRegionCodeIgnoresAUSBit(t *testing.T) {
	mask := uint32(1 << 3) // AUS only
	if got := RegionCode(mask); got != "" {
		t.Fatalf("expected no letters for AUS-only mask, got %q", got)
	}
}

func TestSanitizeStripsIllegalCharsAndCollapsesSpaces(t *testing.T) {
	got := Sanitize(`Foo:  Bar / Baz***.ext`)
	if got != "Foo Bar Baz.ext" {
		t.Fatalf("unexpected sanitized name: %q", got)
	}
}

func TestFilenameFromSecondaryContainer(t *testing.T) {
	b := &banner.Banner{RegionLock: 1<<0 | 1<<1 | 1<<2 | 1<<4 | 1<<5 | 1<<6}
	b.Titles[banner.LangEnglish] = banner.Title{Short: "Example Game"}
	src := FromSecondaryContainer("CTR-P-AAAA", b, banner.LangEnglish)
	got := Filename(0x0004000000030200, src, "3ds")
	want := "0004000000030200 Example Game (CTR-P-AAAA) (W).3ds"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFilenameFromHandheldROM(t *testing.T) {
	h := &hr.Header{GameTitle: "LEGACY GAME", GameCode: "ADAE", RegionFlags: 0x01}
	src := FromHandheldROM(h)
	got := Filename(0x00048004, src, "nds")
	want := "0000000000048004 LEGACY GAME (ADAE) (E).nds"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
