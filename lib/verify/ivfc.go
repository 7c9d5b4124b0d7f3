package verify

import (
	"fmt"
	"io"

	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/sc"
)

// IVFCReport is the per-level pass/fail result of the 3-level hash-tree
// walk (§4.5 step 5).
type IVFCReport struct {
	Level1 bool
	Level2 bool
	Level3 bool
}

// OK reports whether every level the walk covered passed. A level with no
// data is considered ok per §4.5's "an empty level is ok" tie-break.
func (r *IVFCReport) OK() bool { return r.Level1 && r.Level2 && r.Level3 }

// IVFC walks the IVFC hash tree rooted at hfs (a decrypting reader over the
// full HashFS region, offset 0 at the region start): the master-hash block
// covers level 1, level 1 covers level 2, and level 2 covers the streamed
// level-3 data blocks. A short trailing block is hashed as-is, unpadded.
func IVFC(hfs io.ReaderAt, hdr *sc.IVFCHeader, newHash func() extern.SHA256) (*IVFCReport, error) {
	r := &IVFCReport{Level1: true, Level2: true, Level3: true}

	masterHash := make([]byte, hdr.MasterHashSize)
	if hdr.MasterHashSize > 0 {
		if _, err := hfs.ReadAt(masterHash, int64(sc.IVFCHeaderSize)); err != nil && err != io.EOF {
			return nil, fmt.Errorf("ivfc: reading master hash: %w", err)
		}
	}

	lvl1, err := readLevel(hfs, hdr, 1)
	if err != nil {
		return nil, err
	}
	lvl1OK := verifyBlocks(lvl1, hdr.BlockSize(1), masterHash, newHash())
	r.Level1 = lvl1OK

	lvl2, err := readLevel(hfs, hdr, 2)
	if err != nil {
		return nil, err
	}
	lvl2OK := verifyBlocks(lvl2, hdr.BlockSize(2), lvl1, newHash())
	r.Level2 = lvl2OK

	lvl3OK, err := verifyStreamedLevel(hfs, hdr, lvl2, newHash)
	if err != nil {
		return nil, err
	}
	r.Level3 = lvl3OK

	return r, nil
}

func readLevel(hfs io.ReaderAt, hdr *sc.IVFCHeader, lvl int) ([]byte, error) {
	size := hdr.LevelSize(lvl)
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	off := int64(hdr.LevelOffset(lvl))
	n, err := hfs.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("ivfc: reading level %d: %w", lvl, err)
	}
	return buf[:n], nil
}

// verifyBlocks splits data into blockSize chunks (a short trailing chunk is
// hashed as-is) and compares each chunk's SHA-256 against the corresponding
// 32-byte slot of hashTable, in order.
func verifyBlocks(data []byte, blockSize uint64, hashTable []byte, h extern.SHA256) bool {
	if len(data) == 0 {
		return true
	}
	ok := true
	for i := 0; uint64(i)*blockSize < uint64(len(data)); i++ {
		start := uint64(i) * blockSize
		end := start + blockSize
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		h.Init()
		h.Update(data[start:end])
		sum := h.Sum()

		hoff := i * 32
		if hoff+32 > len(hashTable) {
			ok = false
			continue
		}
		var want [32]byte
		copy(want[:], hashTable[hoff:hoff+32])
		if sum != want {
			ok = false
		}
	}
	return ok
}

// verifyStreamedLevel streams level 3 from hfs one level-3 block at a time,
// verifying each against the
// corresponding level-2 slot without materializing all of level 3.
func verifyStreamedLevel(hfs io.ReaderAt, hdr *sc.IVFCHeader, lvl2 []byte, newHash func() extern.SHA256) (bool, error) {
	size := hdr.LevelSize(3)
	if size == 0 {
		return true, nil
	}
	blockSize := hdr.BlockSize(3)
	base := int64(hdr.LevelOffset(3))
	ok := true

	buf := make([]byte, blockSize)
	for blockIdx := 0; uint64(blockIdx)*blockSize < size; blockIdx++ {
		start := uint64(blockIdx) * blockSize
		end := start + blockSize
		if end > size {
			end = size
		}
		want := int(end - start)
		n, err := hfs.ReadAt(buf[:want], base+int64(start))
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("ivfc: streaming level 3 block %d: %w", blockIdx, err)
		}

		h := newHash()
		h.Init()
		h.Update(buf[:n])
		sum := h.Sum()

		hoff := blockIdx * 32
		if hoff+32 > len(lvl2) {
			ok = false
			continue
		}
		var wantSum [32]byte
		copy(wantSum[:], lvl2[hoff:hoff+32])
		if sum != wantSum {
			ok = false
		}
	}
	return ok, nil
}
