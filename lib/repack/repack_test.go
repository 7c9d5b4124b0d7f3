package repack

import (
	"context"
	"testing"

	"github.com/sargunv/ctrtool/lib/extern"
)

func TestBuildSingleContentRoundTrip(t *testing.T) {
	store := extern.NewMemStore()
	src, err := store.Create("/source.bin")
	if err != nil {
		t.Fatalf("Create source: %v", err)
	}
	plain := []byte("a small decrypted secondary container payload")
	if _, err := src.WriteAt(plain, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	dst, err := store.Create("/out.cia")
	if err != nil {
		t.Fatalf("Create dst: %v", err)
	}

	res, err := Build(context.Background(), Options{
		Dst:          dst,
		TitleID:      0x0004000000030200,
		TitleVersion: 1,
		Contents: []ContentSource{
			{Index: 0, Src: src, Offset: 0, Size: int64(len(plain)), Plain: true},
		},
		Cipher:  extern.StdAESCipher{},
		NewHash: func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.TMD.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(res.TMD.Chunks))
	}
	if res.TMD.Chunks[0].Encrypted() {
		t.Fatalf("expected plaintext output chunk, got encrypted bit set")
	}
	if !res.Header.IndexSet(0) {
		t.Fatalf("expected content-index 0 set")
	}
	if res.Header.ContentSize != uint64(len(plain)) {
		t.Fatalf("unexpected content size %d", res.Header.ContentSize)
	}

	out := make([]byte, len(plain))
	if _, err := dst.ReadAt(out, int64(res.Layout.ContentOffset)); err != nil {
		t.Fatalf("ReadAt content: %v", err)
	}
	if string(out) != string(plain) {
		t.Fatalf("content mismatch: got %q want %q", out, plain)
	}
}

func TestTitleKeySourcePriority(t *testing.T) {
	discovered := [16]byte{9, 9, 9}
	src := TitleKeySource{Discovered: &discovered, Table: TitleKeyTable{1: {1, 1, 1}}}
	if got := src.resolve(1); got != discovered {
		t.Fatalf("expected discovered key to take priority, got %x", got)
	}

	tableOnly := TitleKeySource{Table: TitleKeyTable{1: {2, 2, 2}}}
	if got := tableOnly.resolve(1); got != [16]byte{2, 2, 2} {
		t.Fatalf("expected table key, got %x", got)
	}

	none := TitleKeySource{}
	var allFF [16]byte
	for i := range allFF {
		allFF[i] = 0xFF
	}
	if got := none.resolve(1); got != allFF {
		t.Fatalf("expected all-FF fallback key, got %x", got)
	}
}

func TestBuildDropsDLCContentsWithoutRights(t *testing.T) {
	store := extern.NewMemStore()
	src, err := store.Create("/source.bin")
	if err != nil {
		t.Fatalf("Create source: %v", err)
	}
	plain := []byte("dlc content payload 0123456789")
	if _, err := src.WriteAt(plain, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	dst, err := store.Create("/out.cia")
	if err != nil {
		t.Fatalf("Create dst: %v", err)
	}

	policy, err := NewRightsPolicy("")
	if err != nil {
		t.Fatalf("NewRightsPolicy: %v", err)
	}

	res, err := Build(context.Background(), Options{
		Dst:          dst,
		TitleID:      0x0004008C00030200, // title-id-hi = tidHiDLC
		TitleVersion: 1,
		Rights:       policy,
		Legit:        true,
		Contents: []ContentSource{
			{Index: 0, Src: src, Offset: 0, Size: int64(len(plain)), Plain: true, Right: true},
			{Index: 2, Src: src, Offset: 0, Size: int64(len(plain)), Plain: true, Right: false},
			{Index: 5, Src: src, Offset: 0, Size: int64(len(plain)), Plain: true, Right: true},
		},
		Cipher:  extern.StdAESCipher{},
		NewHash: func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(res.TMD.Chunks) != 2 {
		t.Fatalf("expected 2 admitted chunks, got %d", len(res.TMD.Chunks))
	}
	if !res.Header.IndexSet(0) || res.Header.IndexSet(2) || !res.Header.IndexSet(5) {
		t.Fatalf("expected bitmap {0,5} set and 2 cleared")
	}
	if res.Header.ContentSize != uint64(2*len(plain)) {
		t.Fatalf("unexpected content-region size %d", res.Header.ContentSize)
	}
}

func TestRightsPolicyDefault(t *testing.T) {
	p, err := NewRightsPolicy("")
	if err != nil {
		t.Fatalf("NewRightsPolicy: %v", err)
	}
	ok, err := p.Admit(RightsContext{HasRight: false, IsDLC: true, Legit: true})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ok {
		t.Fatalf("expected legit-mode DLC content without rights to be refused")
	}
	ok, err = p.Admit(RightsContext{HasRight: true, IsDLC: true, Legit: true})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if !ok {
		t.Fatalf("expected content with its own right to be admitted")
	}
}

