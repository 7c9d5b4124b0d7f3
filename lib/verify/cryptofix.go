package verify

import (
	"context"
	"fmt"

	"github.com/sargunv/ctrtool/lib/extern"
)

// CryptoFixChoice is the sticky answer a CryptoFixStrategy remembers once
// the user picks "always" or "never" (§9 "Interactive fixups", the
// cryptofix_always/ShowSelectPrompt dance).
type CryptoFixChoice int

const (
	cryptoFixAsk CryptoFixChoice = iota
	cryptoFixAlways
	cryptoFixNever
)

// CryptoFixStrategy resolves whether a region whose crypto flags look
// inconsistent with its actual content (e.g. the NoCrypto bit is set but
// the region fails its declared hash as plaintext, or vice versa) should
// be rehashed under the opposite crypto assumption. A single strategy instance is
// meant to be reused across every region of a batch verify so an "always"
// or "never" choice answered once applies to the rest of the batch
// without prompting again.
type CryptoFixStrategy struct {
	Prompter extern.Prompter
	sticky   CryptoFixChoice
}

// NewCryptoFixStrategy wraps p (nil means "never fix": the region is left
// as its header declares).
func NewCryptoFixStrategy(p extern.Prompter) *CryptoFixStrategy {
	return &CryptoFixStrategy{Prompter: p}
}

// Resolve asks (unless a sticky choice already answers it) whether the
// region named by label should be retried under the opposite crypto
// assumption from its header. It returns true
// when the fix should be applied.
func (s *CryptoFixStrategy) Resolve(ctx context.Context, label string) (bool, error) {
	if s == nil || s.Prompter == nil {
		return false, nil
	}
	switch s.sticky {
	case cryptoFixAlways:
		return true, nil
	case cryptoFixNever:
		return false, nil
	}

	idx, err := s.Prompter.Select(ctx, fmt.Sprintf("%s: crypto flags look inconsistent, fix?", label),
		[]string{"Fix", "Skip", "Always fix", "Never fix"})
	if err != nil {
		return false, fmt.Errorf("verify: cryptofix prompt: %w", err)
	}
	switch idx {
	case 2:
		s.sticky = cryptoFixAlways
		return true, nil
	case 3:
		s.sticky = cryptoFixNever
		return false, nil
	case 0:
		return true, nil
	default:
		return false, nil
	}
}
