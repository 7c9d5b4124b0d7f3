// Package crypto implements the per-region key derivation, CTR formatting,
// and streaming cipher/hash contracts of §4.3: key-slot selection, CTR
// derivation per content, block-aligned encrypt/decrypt over arbitrary
// windows, and SHA rolling.
package crypto

import (
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/sc"
)

// ContentKey derives the AES key for an SC's own regions (ExtHeader, flat
// archive, hash filesystem), selecting key-X by the header's crypto flags
// and key-Y from the first 16 bytes of the SC signature.
func ContentKey(slots extern.KeySlots, h *sc.Header) ([16]byte, error) {
	slot := extern.SlotNCCHStandard
	switch {
	case h.FixedKey():
		slot = extern.SlotNCCHFixed
	case h.Uses7xKey():
		slot = extern.SlotNCCH7x
	}
	keyX, err := slots.KeyX(slot)
	if err != nil {
		return [16]byte{}, err
	}
	var keyY [16]byte
	copy(keyY[:], h.Signature[:16])
	return Scramble(keyX, keyY), nil
}

// UnwrapTitleKey decrypts a ticket's AES-CBC-wrapped title-key using the
// common-key indexed by commonKeyIdx, with IV = title-id || zeros(8).
func UnwrapTitleKey(cipher extern.AESCipher, slots extern.KeySlots, titleID uint64, wrapped [16]byte, commonKeyIdx byte) ([16]byte, error) {
	key, err := slots.CommonKey(commonKeyIdx)
	if err != nil {
		return [16]byte{}, err
	}
	var iv [16]byte
	for i := 0; i < 8; i++ {
		iv[i] = byte(titleID >> (56 - 8*i))
	}
	out := wrapped
	cipher.CBCDecrypt(key, iv, out[:])
	return out, nil
}

// ContentCTR formats the per-content CTR for an OuterPackage content: the
// 2-byte big-endian content-index followed by 14 zero bytes.
func ContentCTR(index uint16) [16]byte {
	var ctr [16]byte
	ctr[0] = byte(index >> 8)
	ctr[1] = byte(index)
	return ctr
}

// RegionCTR formats the per-region CTR for one of an SC's own regions: the
// 8-byte big-endian program-id, a 1-byte region tag, and 7 zero bytes.
func RegionCTR(programID uint64, tag sc.RegionTag) [16]byte {
	var ctr [16]byte
	for i := 0; i < 8; i++ {
		ctr[i] = byte(programID >> (56 - 8*i))
	}
	ctr[8] = byte(tag)
	return ctr
}

// advance adds n (a block count) to a big-endian 128-bit counter, as a
// plain 128-bit integer increment (not a rotation): needed so a stream can
// be "seeked" to resume mid-payload at absoluteOffset/16 blocks from ivBase,
// per §4.3's streaming contract.
func advance(ctr [16]byte, n uint64) [16]byte {
	var carry uint64 = n
	for i := 15; i >= 0 && carry > 0; i-- {
		sum := uint64(ctr[i]) + carry
		ctr[i] = byte(sum)
		carry = sum >> 8
	}
	return ctr
}

// Transform XORs buf (read from absoluteOffset within a logical payload
// that started at CTR ivBase) against the AES-CTR keystream, advancing
// ivBase by absoluteOffset/16 blocks and discarding absoluteOffset%16
// leading keystream bytes so arbitrary byte-aligned windows can be
// transformed independently (§4.3 streaming contract; same operation
// serves encrypt and decrypt since CTR XOR is its own inverse).
func Transform(cipherImpl extern.AESCipher, key [16]byte, ivBase [16]byte, absoluteOffset uint64, buf []byte) {
	blockIndex := absoluteOffset / 16
	blockOff := absoluteOffset % 16
	ctr := advance(ivBase, blockIndex)
	stream := cipherImpl.NewCTRStream(key, ctr)
	if blockOff != 0 {
		discard := make([]byte, blockOff)
		stream.XORKeyStream(discard, discard)
	}
	stream.XORKeyStream(buf, buf)
}

// RollingHash wraps extern.SHA256 for the sha_init/sha_update/sha_get
// contract of §4.3, guaranteeing sha_update(a); sha_update(b) == one-shot
// over a||b as long as the same SHA256 implementation backs both calls.
type RollingHash struct {
	h extern.SHA256
}

// NewRollingHash starts a fresh rolling hash over h (already Init'd or not;
// NewRollingHash calls Init itself).
func NewRollingHash(h extern.SHA256) *RollingHash {
	h.Init()
	return &RollingHash{h: h}
}

func (r *RollingHash) Update(p []byte) { r.h.Update(p) }

func (r *RollingHash) Sum() [32]byte { return r.h.Sum() }
