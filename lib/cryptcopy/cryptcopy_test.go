package cryptcopy

import (
	"context"
	"crypto/sha256"
	"testing"

	ctrcrypto "github.com/sargunv/ctrtool/lib/crypto"
	"github.com/sargunv/ctrtool/lib/extern"
)

func TestRunInPlaceRoundTrip(t *testing.T) {
	store := extern.NewMemStore()
	f, err := store.Create("/content.bin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	plain := []byte("the quick brown fox jumps over the lazy dog, repeated for padding")
	if _, err := f.WriteAt(plain, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	key := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	ivBase := ctrcrypto.ContentCTR(0)
	cipher := extern.StdAESCipher{}

	ctx := context.Background()
	encRes, err := Run(ctx, Options{
		Src: f, Dst: f, Size: int64(len(plain)),
		BlockSize: 16, Cipher: cipher, Key: key, IVBase: ivBase,
		Mode: ModeOuterContent, Direction: Encrypt,
	})
	if err != nil {
		t.Fatalf("Run (encrypt): %v", err)
	}
	if encRes.Size != int64(len(plain)) {
		t.Fatalf("unexpected emitted size %d", encRes.Size)
	}

	cipherBuf := make([]byte, len(plain))
	if _, err := f.ReadAt(cipherBuf, 0); err != nil {
		t.Fatalf("ReadAt after encrypt: %v", err)
	}
	if string(cipherBuf) == string(plain) {
		t.Fatalf("expected ciphertext to differ from plaintext")
	}

	decRes, err := Run(ctx, Options{
		Src: f, Dst: f, Size: int64(len(plain)),
		BlockSize: 16, Cipher: cipher, Key: key, IVBase: ivBase,
		Mode: ModeOuterContent, Direction: Decrypt,
		NewHash: func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		t.Fatalf("Run (decrypt): %v", err)
	}

	out := make([]byte, len(plain))
	if _, err := f.ReadAt(out, 0); err != nil {
		t.Fatalf("ReadAt after decrypt: %v", err)
	}
	if string(out) != string(plain) {
		t.Fatalf("round trip mismatch: got %q want %q", out, plain)
	}
	if decRes.Hash != sha256.Sum256(plain) {
		t.Fatalf("emitted hash does not match plaintext sha256")
	}
}

func TestRunRefusesFirmwareEncrypt(t *testing.T) {
	store := extern.NewMemStore()
	f, _ := store.Create("/fw.bin")
	_, err := Run(context.Background(), Options{
		Src: f, Dst: f, Size: 16,
		Mode: ModeFirmware, Direction: Encrypt,
	})
	if err == nil {
		t.Fatalf("expected firmware encryption to be refused")
	}
}

func TestRunCancellation(t *testing.T) {
	store := extern.NewMemStore()
	f, _ := store.Create("/content.bin")
	buf := make([]byte, 256)
	f.WriteAt(buf, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{
		Src: f, Dst: f, Size: 256, BlockSize: 16,
		Cipher: extern.StdAESCipher{}, Plain: true,
	})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}
