package dispatch

import (
	"testing"

	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

func pad(buf []byte, size int) []byte {
	if len(buf) >= size {
		return buf
	}
	out := make([]byte, size)
	copy(out, buf)
	return out
}

func TestDetectSecondaryContainer(t *testing.T) {
	buf := make([]byte, ProbeSize)
	copy(buf[0x100:0x104], "NCCH")
	if got := Detect(buf, int64(ProbeSize), "/x/game.3ds"); got != KindSecondaryContainer {
		t.Fatalf("expected SecondaryContainer, got %v", got)
	}
}

func TestDetectMultiContainer(t *testing.T) {
	buf := make([]byte, ProbeSize)
	copy(buf[0x100:0x104], "NCSD")
	if got := Detect(buf, int64(ProbeSize), "/x/game.3ds"); got != KindMultiContainer {
		t.Fatalf("expected MultiContainer, got %v", got)
	}
}

func TestDetectOuterPackage(t *testing.T) {
	h := &outer.Header{Type: 0}
	h.SetIndex(0, true)
	buf := pad(h.Marshal(), ProbeSize)
	layout := outer.ComputeLayout(h)
	if got := Detect(buf, int64(layout.TotalSize), "/x/game.cia"); got != KindOuterPackage {
		t.Fatalf("expected OuterPackage, got %v", got)
	}
}

func TestDetectNetworkContentByExtension(t *testing.T) {
	v := &tmd.View{
		SigType:      tmd.SigTypeRSA2048SHA256,
		Signature:    make([]byte, 0x100),
		Issuer:       "Root-CA00000003-CP0000004",
		TitleID:      0x0004000000030200,
		TitleVersion: 1,
	}
	buf, err := v.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	buf = pad(buf, ProbeSize)
	if got := Detect(buf, int64(len(buf)), "/cdn/0004000000030200/content/00000000.tmd"); got != KindNetworkContent {
		t.Fatalf("expected NetworkContent, got %v", got)
	}
}

func TestDetectHandheldROMFallback(t *testing.T) {
	buf := make([]byte, ProbeSize)
	copy(buf[0xC:0x10], "ADAE")
	if got := Detect(buf, 0x8000, "/x/game.nds"); got != KindHandheldROM {
		t.Fatalf("expected HandheldROM, got %v", got)
	}
}

func TestDetectFirmwareMagic(t *testing.T) {
	buf := make([]byte, ProbeSize)
	copy(buf[0:4], "FIRM")
	if got := Detect(buf, int64(ProbeSize), "/x/firm.bin"); got != KindFirmware {
		t.Fatalf("expected Firmware, got %v", got)
	}
}

func TestRouteForMatrix(t *testing.T) {
	r := RouteFor(KindHandheldROM)
	if r.Verify || r.Crypt {
		t.Fatalf("expected HandheldROM to skip verify/crypt, got %+v", r)
	}
	if !r.BuildPackage || !r.Install {
		t.Fatalf("expected HandheldROM to support build-package and install, got %+v", r)
	}

	r = RouteFor(KindOuterPackage)
	if r.BuildPackage {
		t.Fatalf("expected OuterPackage to have no build-package route")
	}
}
