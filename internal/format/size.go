package format

import "github.com/dustin/go-humanize"

// ByteSize renders n bytes as a human-friendly size ("128 KiB"), replacing
// the teacher's own hand-rolled formatSize helper with the ecosystem
// library fiano already depends on for the same concern.
func ByteSize(n int64) string {
	return humanize.IBytes(uint64(n))
}
