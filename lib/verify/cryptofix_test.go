package verify

import (
	"bytes"
	"context"
	"testing"

	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/sc"
)

// fixedSelectPrompter always answers Select with a fixed index.
type fixedSelectPrompter struct{ idx int }

func (p fixedSelectPrompter) Confirm(ctx context.Context, label string) (bool, error) {
	return p.idx == 0, nil
}

func (p fixedSelectPrompter) Select(ctx context.Context, label string, options []string) (int, error) {
	return p.idx, nil
}

func TestCryptoFixStrategyStickyAlways(t *testing.T) {
	s := NewCryptoFixStrategy(fixedSelectPrompter{idx: 2}) // "Always fix"
	fix, err := s.Resolve(context.Background(), "exthdr")
	if err != nil || !fix {
		t.Fatalf("expected first resolve to fix, got %v, %v", fix, err)
	}
	if s.sticky != cryptoFixAlways {
		t.Fatalf("expected sticky state to become cryptoFixAlways")
	}

	// A second resolve must not re-prompt; a prompter that errors on any
	// call would fail this if the sticky choice weren't honored.
	s.Prompter = erroringPrompter{}
	fix, err = s.Resolve(context.Background(), "flat archive")
	if err != nil || !fix {
		t.Fatalf("expected sticky always to short-circuit, got %v, %v", fix, err)
	}
}

type erroringPrompter struct{}

func (erroringPrompter) Confirm(ctx context.Context, label string) (bool, error) {
	panic("unexpected prompt")
}
func (erroringPrompter) Select(ctx context.Context, label string, options []string) (int, error) {
	panic("unexpected prompt")
}

func TestSecondaryContainerCryptoFixCorrectsFlippedFlag(t *testing.T) {
	buf, h := buildPlainSC(t)

	// Flip the header's claim: declare the content encrypted when the
	// bytes on disk are actually plaintext, exactly the mismatch a
	// corrupted content-type flag produces.
	h.Flags[sc.FlagContentFlags] = 0
	src := bytes.NewReader(buf)

	r, err := SecondaryContainer(context.Background(), src, 0, h, SecondaryContainerOptions{
		Cipher:    extern.StdAESCipher{},
		NewHash:   func() extern.SHA256 { return extern.NewStdSHA256() },
		CryptoFix: NewCryptoFixStrategy(fixedSelectPrompter{idx: 0}), // "Fix"
	})
	if err != nil {
		t.Fatalf("SecondaryContainer: %v", err)
	}
	if r.ExtHeader == nil || !*r.ExtHeader {
		t.Fatalf("expected cryptofix to recover the exthdr hash match, got %v", r.Err)
	}
}

func TestSecondaryContainerCryptoFixDeclinedStaysFailed(t *testing.T) {
	buf, h := buildPlainSC(t)
	h.Flags[sc.FlagContentFlags] = 0
	src := bytes.NewReader(buf)

	r, err := SecondaryContainer(context.Background(), src, 0, h, SecondaryContainerOptions{
		Cipher:    extern.StdAESCipher{},
		NewHash:   func() extern.SHA256 { return extern.NewStdSHA256() },
		CryptoFix: NewCryptoFixStrategy(fixedSelectPrompter{idx: 1}), // "Skip"
	})
	if err != nil {
		t.Fatalf("SecondaryContainer: %v", err)
	}
	if r.ExtHeader == nil || *r.ExtHeader {
		t.Fatalf("expected declined fix to leave exthdr failed")
	}
}
