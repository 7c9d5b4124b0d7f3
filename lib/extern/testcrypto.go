package extern

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
)

// StdAESCipher is a reference AESCipher backed by crypto/aes, the same way
// the teacher reaches for crypto/sha1 and crypto/md5 directly (lib/identify
// hash.go) rather than a third-party crypto package. Production firmware
// wires KeySlots/AESCipher to the hardware coprocessor instead.
type StdAESCipher struct{}

func (StdAESCipher) NewCTRStream(key, iv [16]byte) CTRStream {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		panic(err) // key is always 16 bytes; aes.NewCipher cannot fail here
	}
	return cipher.NewCTR(block, iv[:])
}

func (StdAESCipher) CBCDecrypt(key, iv [16]byte, data []byte) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		panic(err)
	}
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(data, data)
}

// StdSHA256 is a reference rolling-hash SHA256 implementation backed by
// crypto/sha256.
type StdSHA256 struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
		Reset()
	}
}

func NewStdSHA256() *StdSHA256 {
	s := &StdSHA256{}
	s.Init()
	return s
}

func (s *StdSHA256) Init() { s.h = sha256.New() }

func (s *StdSHA256) Update(p []byte) { s.h.Write(p) }

func (s *StdSHA256) Sum() [32]byte {
	var out [32]byte
	copy(out[:], s.h.Sum(nil))
	return out
}

// StdKeySlots is a fixed, deterministic KeySlots implementation for tests:
// every slot and common-key index maps to a distinct, reproducible key
// derived from its index, with no relation to real device keys.
type StdKeySlots struct{}

func (StdKeySlots) KeyX(slot int) ([16]byte, error) {
	if slot < 0 || slot > 0xFF {
		return [16]byte{}, fmt.Errorf("testcrypto: invalid key slot %#x", slot)
	}
	var k [16]byte
	for i := range k {
		k[i] = byte(slot) ^ byte(i*7+1)
	}
	return k, nil
}

func (StdKeySlots) CommonKey(idx byte) ([16]byte, error) {
	var k [16]byte
	for i := range k {
		k[i] = idx ^ byte(i*3+2)
	}
	return k, nil
}
