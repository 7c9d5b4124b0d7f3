// Package dispatch implements the top-level container detector and
// routing table of §4.10: identify a source's container kind from a
// magic/structural probe plus its path shape, then report which of
// verify/crypt/build-package/install apply to it.
package dispatch

import (
	"path/filepath"
	"strings"

	"github.com/sargunv/ctrtool/lib/codec"
	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

// Kind is a detected container kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindOuterPackage
	KindNetworkContent // bare TMD + CDN-style sibling content/.cetk layout
	KindSecondaryContainer
	KindMultiContainer
	KindHandheldROM
	KindFirmware
	KindLegacyWrapBOSS
)

func (k Kind) String() string {
	switch k {
	case KindOuterPackage:
		return "OuterPackage"
	case KindNetworkContent:
		return "NetworkContent"
	case KindSecondaryContainer:
		return "SecondaryContainer"
	case KindMultiContainer:
		return "MultiContainer"
	case KindHandheldROM:
		return "HandheldROM"
	case KindFirmware:
		return "Firmware"
	case KindLegacyWrapBOSS:
		return "LegacyWrap"
	default:
		return "Unknown"
	}
}

// ProbeSize is the amount of leading file content Detect needs.
const ProbeSize = 0x200

var (
	firmwareMagic = []byte("FIRM")
	bossMagic     = []byte("boss")
)

// legacyCodePrintable reports whether every byte in b is a printable
// uppercase-ASCII game-code character or a digit, the shape a
// HandheldROM cartridge header's 4-byte game code always takes.
func legacyCodePrintable(b []byte) bool {
	for _, c := range b {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// Detect identifies buf's container kind from its leading ProbeSize bytes
// and path (§4.10 "magic and structural probe... then parent/bit flags
// from the path"). buf must hold at least min(len(buf), ProbeSize) valid
// bytes; fileSize is the full underlying file size.
func Detect(buf []byte, fileSize int64, path string) Kind {
	if len(buf) >= 4 && string(buf[0:4]) == string(firmwareMagic) {
		return KindFirmware
	}
	if len(buf) >= 4 && string(buf[0:4]) == string(bossMagic) {
		return KindLegacyWrapBOSS
	}
	if len(buf) >= 0x104 && string(buf[0x100:0x104]) == "NCCH" {
		return KindSecondaryContainer
	}
	if len(buf) >= 0x104 && string(buf[0x100:0x104]) == "NCSD" {
		return KindMultiContainer
	}
	if len(buf) >= outer.HeaderSize && looksLikeOuterPackage(buf, fileSize) {
		return KindOuterPackage
	}
	if strings.EqualFold(filepath.Ext(path), ".tmd") && looksLikeTMD(buf) {
		return KindNetworkContent
	}
	if looksLikeTMD(buf) && looksLikeNetworkPath(path) {
		return KindNetworkContent
	}
	if looksLikeHandheldROM(buf, fileSize) {
		return KindHandheldROM
	}
	return KindUnknown
}

func looksLikeOuterPackage(buf []byte, fileSize int64) bool {
	h, err := outer.ParseHeader(buf)
	if err != nil || h.HeaderSize != outer.HeaderSize {
		return false
	}
	layout := outer.ComputeLayout(h)
	return int64(layout.TotalSize) <= fileSize
}

func looksLikeTMD(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	sigType := codec.GetBE32(buf[0:4])
	_, err := tmd.SignatureSize(sigType)
	return err == nil
}

// looksLikeNetworkPath reports whether path's parent directories look
// like a CDN title/content download (title-id-shaped hex directory
// names), as opposed to an arbitrary standalone TMD.
func looksLikeNetworkPath(path string) bool {
	dir := filepath.Base(filepath.Dir(path))
	if len(dir) != 8 {
		return false
	}
	for _, c := range dir {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func looksLikeHandheldROM(buf []byte, fileSize int64) bool {
	const minCartSize = 0x4000
	if fileSize < minCartSize || len(buf) < 0x10 {
		return false
	}
	return legacyCodePrintable(buf[0xC:0x10])
}

// Route reports which component kinds a detected Kind can be dispatched
// to, per §4.10's routing matrix.
type Route struct {
	Verify       bool
	Crypt        bool
	BuildPackage bool
	Install      bool
}

var routes = map[Kind]Route{
	KindOuterPackage:       {Verify: true, Crypt: true, BuildPackage: false, Install: true},
	KindNetworkContent:     {Verify: true, Crypt: true, BuildPackage: false, Install: true},
	KindSecondaryContainer: {Verify: true, Crypt: true, BuildPackage: true, Install: true},
	KindMultiContainer:     {Verify: true, Crypt: true, BuildPackage: true, Install: true},
	KindHandheldROM:        {Verify: false, Crypt: false, BuildPackage: true, Install: true},
	KindFirmware:           {Verify: true, Crypt: true, BuildPackage: false, Install: false},
	KindLegacyWrapBOSS:     {Verify: true, Crypt: true, BuildPackage: false, Install: false},
}

// RouteFor looks up k's capabilities; KindUnknown and any kind absent from
// the table route nowhere.
func RouteFor(k Kind) Route {
	return routes[k]
}
