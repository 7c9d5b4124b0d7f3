package crypto

import (
	"io"

	"github.com/sargunv/ctrtool/lib/extern"
)

// Region is a decrypting io.ReaderAt over a byte range of an underlying
// source: reads at logical offset off fetch ciphertext at Base+off and
// transform it in place with the region's key/CTR, so callers can hash or
// stream a region's plaintext without decrypting it all upfront.
type Region struct {
	Src    io.ReaderAt
	Base   int64
	Cipher extern.AESCipher
	Key    [16]byte
	IVBase [16]byte

	// Plain marks the region as already-plaintext (no-crypto/fixed-key
	// content whose "encryption" is a no-op passthrough).
	Plain bool
}

// ReadAt implements io.ReaderAt, decrypting in place.
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.Src.ReadAt(p, r.Base+off)
	if n > 0 && !r.Plain {
		Transform(r.Cipher, r.Key, r.IVBase, uint64(off), p[:n])
	}
	return n, err
}

// HashAll streams the entire region (logical length n) through h in
// blockSize chunks, returning the resulting digest.
func HashAll(r *Region, n int64, h extern.SHA256, blockSize int) ([32]byte, error) {
	h.Init()
	buf := make([]byte, blockSize)
	var off int64
	for off < n {
		want := len(buf)
		if remaining := n - off; int64(want) > remaining {
			want = int(remaining)
		}
		read, err := r.ReadAt(buf[:want], off)
		if read > 0 {
			h.Update(buf[:read])
			off += int64(read)
		}
		if err != nil {
			if err == io.EOF && off >= n {
				break
			}
			if err != io.EOF {
				return [32]byte{}, err
			}
			break
		}
	}
	return h.Sum(), nil
}
