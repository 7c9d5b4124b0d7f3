// Package banner provides a minimal typed view over the SMDH icon/banner
// structure, used only by lib/naming to compose human-readable output
// filenames. Full icon decoding is an external auxiliary helper per §1;
// this view reads only the title table needed for naming.
package banner

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/codec"
)

// Size is the fixed SMDH structure size.
const Size = 0x36C0

const (
	magicOff       = 0x0
	magicExpect    = "SMDH"
	titlesOff      = 0x8
	titleEntrySize = 0x200 // 0x80 short + 0x100 long (UTF-16LE) + 0x80 publisher
	titleCount     = 16    // one per language slot
	regionLockOff  = 0x2018
)

// Language indexes into the title table, matching the SMDH language order.
type Language int

const (
	LangJapanese Language = iota
	LangEnglish
	LangFrench
	LangGerman
	LangItalian
	LangSpanish
	LangChineseSimplified
	LangKorean
	LangDutch
	LangPortuguese
	LangRussian
	LangChineseTraditional
)

// Title holds the decoded short/long title names for one language slot.
type Title struct {
	Short string
	Long  string
}

// Banner is the parsed subset of an SMDH relevant to naming.
type Banner struct {
	Titles      [titleCount]Title
	RegionLock  uint32 // bitmask: bit0 JPN bit1 USA bit2 EUR bit3 AUS bit4 CHN bit5 KOR bit6 TWN
}

// Parse decodes a Banner from buf.
func Parse(buf []byte) (*Banner, error) {
	if len(buf) < Size {
		return nil, fmt.Errorf("banner: buffer too small")
	}
	if string(buf[magicOff:magicOff+4]) != magicExpect {
		return nil, fmt.Errorf("banner: bad magic %q", buf[magicOff:magicOff+4])
	}
	b := &Banner{
		RegionLock: codec.GetLE32(buf[regionLockOff : regionLockOff+4]),
	}
	for i := 0; i < titleCount; i++ {
		off := titlesOff + i*titleEntrySize
		b.Titles[i] = Title{
			Short: utf16leToString(buf[off : off+0x80]),
			Long:  utf16leToString(buf[off+0x80 : off+0x180]),
		}
	}
	return b, nil
}

// TitleFor returns the title for lang, falling back to English, then the
// first non-empty slot.
func (b *Banner) TitleFor(lang Language) Title {
	if int(lang) < titleCount && b.Titles[lang].Short != "" {
		return b.Titles[lang]
	}
	if b.Titles[LangEnglish].Short != "" {
		return b.Titles[LangEnglish]
	}
	for _, t := range b.Titles {
		if t.Short != "" {
			return t
		}
	}
	return Title{}
}

func utf16leToString(b []byte) string {
	n := len(b) / 2
	runes := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		u := codec.GetLE16(b[i*2 : i*2+2])
		if u == 0 {
			break
		}
		runes = append(runes, u)
	}
	return decodeUTF16(runes)
}

func decodeUTF16(s []uint16) string {
	out := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(s) {
			r2 := rune(s[i+1])
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				r = ((r - 0xD800) << 10) | (r2 - 0xDC00) + 0x10000
				i++
			}
		}
		out = append(out, r)
	}
	return string(out)
}
