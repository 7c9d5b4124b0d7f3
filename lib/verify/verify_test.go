package verify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"testing"

	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/sc"
)

func buildPlainSC(t *testing.T) ([]byte, *sc.Header) {
	t.Helper()
	const (
		exthdrOff = sc.ExtHeaderOffset
		exthdrLen = sc.ExtHeaderSize
		exefsOff  = exthdrOff + exthdrLen
		exefsLen  = sc.FlatArchiveHeaderSize
	)
	buf := make([]byte, exefsOff+exefsLen)
	for i := range buf[exthdrOff : exthdrOff+exthdrLen] {
		buf[exthdrOff+i] = byte(i)
	}
	for i := range buf[exefsOff : exefsOff+exefsLen] {
		buf[exefsOff+i] = byte(i * 3)
	}

	extSum := sha256.Sum256(buf[exthdrOff : exthdrOff+exthdrLen])
	exefsSum := sha256.Sum256(buf[exefsOff : exefsOff+exefsLen])

	h := &sc.Header{
		ProgramID:     0x0004000000030200,
		SizeExtHdr:    exthdrLen,
		OffsetExeFs:   uint32(exefsOff / sc.MediaUnit),
		SizeExeFs:     uint32(exefsLen / sc.MediaUnit),
		SizeExeFsHash: uint32(exefsLen / sc.MediaUnit),
		HashExtHdr:    extSum,
		HashExeFs:     exefsSum,
	}
	h.Flags[sc.FlagContentFlags] = sc.ContentNoCrypto
	return buf, h
}

func TestSecondaryContainerPasses(t *testing.T) {
	buf, h := buildPlainSC(t)
	src := bytes.NewReader(buf)

	r, err := SecondaryContainer(context.Background(), src, 0, h, SecondaryContainerOptions{
		Cipher:  extern.StdAESCipher{},
		NewHash: func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		t.Fatalf("SecondaryContainer: %v", err)
	}
	if !r.OK() {
		t.Fatalf("expected pass, got: %v", r.Err)
	}
	if r.ExtHeader == nil || !*r.ExtHeader {
		t.Fatalf("expected exthdr pass")
	}
	if r.FlatArchive == nil || !*r.FlatArchive {
		t.Fatalf("expected flat archive pass")
	}
}

func TestSecondaryContainerDetectsTamper(t *testing.T) {
	buf, h := buildPlainSC(t)
	buf[sc.ExtHeaderOffset] ^= 0xFF
	src := bytes.NewReader(buf)

	r, err := SecondaryContainer(context.Background(), src, 0, h, SecondaryContainerOptions{
		Cipher:  extern.StdAESCipher{},
		NewHash: func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		t.Fatalf("SecondaryContainer: %v", err)
	}
	if r.OK() {
		t.Fatalf("expected failure after tampering with exthdr")
	}
	if r.ExtHeader == nil || *r.ExtHeader {
		t.Fatalf("expected exthdr failure flag")
	}
}
