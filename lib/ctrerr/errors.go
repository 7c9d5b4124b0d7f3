// Package ctrerr defines the sentinel errors of §7's error taxonomy, so
// callers can errors.Is-switch on failure category instead of parsing
// messages, the way the teacher exposes typed Format/HashType vocabularies
// for its own domain instead of stringly-typed checks.
package ctrerr

import "errors"

var (
	// ErrInvalidFormat means a header failed a validate.* check: bad
	// magic, an out-of-range field, or a non-monotonic offset.
	ErrInvalidFormat = errors.New("ctrtool: invalid container format")

	// ErrHashMismatch means a verify.* check found a region whose
	// computed hash disagreed with its header-declared commitment.
	ErrHashMismatch = errors.New("ctrtool: hash mismatch")

	// ErrMissingResource means an operation needed a collaborator
	// resource that was not available: no ticket for a title-id, no
	// title-key table entry, no CDN .cetk sibling file.
	ErrMissingResource = errors.New("ctrtool: missing resource")

	// ErrCancelled means a Progress callback returned false mid-operation.
	ErrCancelled = errors.New("ctrtool: operation cancelled")

	// ErrPolicyRefused means an operation refused on policy grounds
	// rather than a data error: firmware re-encryption, a "legit" mode
	// repackage of a title with no legitimate ticket, a reserved
	// title-id install.
	ErrPolicyRefused = errors.New("ctrtool: operation refused by policy")
)
