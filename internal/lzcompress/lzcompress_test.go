package lzcompress

import (
	"bytes"
	"testing"
)

func TestRoundtrip(t *testing.T) {
	src := bytes.Repeat([]byte("ctrtool"), 1000)
	compressed, err := Compress(src, DefaultLevel)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) >= len(src) {
		t.Fatalf("expected compression to shrink repetitive input")
	}
	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatalf("roundtrip mismatch")
	}
}
