// Package lzcompress wraps klauspost/compress for the "name --zip"
// convenience path that writes a zlib-compressed copy of the named source
// file (SPEC_FULL.md
// DOMAIN STACK), extended with klauspost/compress/flate for the better
// compression ratio the teacher's own dependency offers over the stdlib
// flate it shadows.
package lzcompress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// Level is a compression level, passed straight through to the underlying
// writer (flate.DefaultCompression etc.).
type Level int

const (
	DefaultLevel Level = Level(flate.DefaultCompression)
	BestSize     Level = Level(flate.BestCompression)
	BestSpeed    Level = Level(flate.BestSpeed)
)

// Compress zlib-compresses src at the given level.
func Compress(src []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, int(level))
	if err != nil {
		return nil, fmt.Errorf("lzcompress: new writer: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("lzcompress: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzcompress: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(src []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("lzcompress: new reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lzcompress: read: %w", err)
	}
	return out, nil
}
