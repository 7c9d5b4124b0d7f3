// Package naming composes the deterministic output filename of §4.9:
// "<tid> <short_title> (<product>) (<region>).<ext>", choosing its banner
// source by container kind and scrubbing the result for filesystem safety.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"github.com/sargunv/ctrtool/lib/format/banner"
	"github.com/sargunv/ctrtool/lib/format/hr"
)

// regionBit is one SMDH RegionLock bit and the letter it contributes to the
// compact region code (§4.9 "{J,U,E,C,K,T} bits"). AUS (bit 3) carries no
// letter of its own — titles region-locked to Australia are EUR releases
// on this platform and already covered by the E bit.
type regionBit struct {
	mask   uint32
	letter byte
}

var regionBits = []regionBit{
	{1 << 0, 'J'},
	{1 << 1, 'U'},
	{1 << 2, 'E'},
	{1 << 4, 'C'},
	{1 << 5, 'K'},
	{1 << 6, 'T'},
}

// allRegionsMask is every bit regionBits names, set at once.
var allRegionsMask = func() uint32 {
	var m uint32
	for _, b := range regionBits {
		m |= b.mask
	}
	return m
}()

// RegionCode composes the compact region letter-code for a banner's
// RegionLock bitmask: one letter per licensed region, or "W" when every
// region in regionBits is licensed (§4.9).
func RegionCode(regionLock uint32) string {
	if regionLock&allRegionsMask == allRegionsMask {
		return "W"
	}
	var sb strings.Builder
	for _, b := range regionBits {
		if regionLock&b.mask != 0 {
			sb.WriteByte(b.letter)
		}
	}
	return sb.String()
}

// legacyRegionLetters maps the HandheldROM cartridge header's single
// region byte to a region code, for carts predating the SMDH bitmask.
var legacyRegionLetters = map[byte]string{
	0x00: "J",
	0x01: "E",
	0x02: "U",
	0x04: "W", // "free"/region-independent cart
	0x41: "E",
	0x43: "W",
}

// Source is the title/product/region triple a filename is composed from,
// independent of which container kind it came from.
type Source struct {
	ShortTitle  string
	ProductCode string
	Region      string
}

// FromSecondaryContainer builds a Source from an SC's header and its
// parsed SMDH banner (§4.9 "SC -> SMDH").
func FromSecondaryContainer(productCode string, b *banner.Banner, lang banner.Language) Source {
	return Source{
		ShortTitle:  b.TitleFor(lang).Short,
		ProductCode: strings.TrimRight(productCode, "\x00"),
		Region:      RegionCode(b.RegionLock),
	}
}

// FromHandheldROM builds a Source from a legacy cartridge header (§4.9
// "HR -> TWL banner"): full TWL icon.bin decoding is an auxiliary format
// helper outside this toolkit's domain (§1), so the cart header's own
// embedded game title stands in for a banner title.
func FromHandheldROM(h *hr.Header) Source {
	region, ok := legacyRegionLetters[h.RegionFlags]
	if !ok {
		region = "U"
	}
	return Source{
		ShortTitle:  strings.TrimRight(h.GameTitle, "\x00"),
		ProductCode: strings.TrimRight(h.GameCode, "\x00"),
		Region:      region,
	}
}

// illegalChars matches characters unsafe to use verbatim in a filename
// across the common desktop filesystems this tool's output may land on.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// runsOfSpaces collapses any run of two or more spaces left behind by
// scrubbing (or already present in a banner title) into one.
var runsOfSpaces = regexp.MustCompile(` {2,}`)

// Sanitize strips filesystem-illegal characters and collapses runs of
// spaces, after folding any fullwidth glyphs in s to their narrow
// equivalent so half- and full-width variants of the same title don't
// produce visually-duplicate filenames (§4.9 "illegal filename characters
// and runs of spaces are collapsed").
func Sanitize(s string) string {
	s = width.Narrow.String(s)
	s = illegalChars.ReplaceAllString(s, "")
	s = runsOfSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Filename composes the deterministic output name for titleID and src,
// with extension ext (no leading dot).
func Filename(titleID uint64, src Source, ext string) string {
	name := fmt.Sprintf("%016x %s (%s) (%s).%s",
		titleID, src.ShortTitle, src.ProductCode, src.Region, ext)
	return Sanitize(name)
}
