// Package repack implements the repackager of §4.7: build a fresh
// OuterPackage in memory from a SecondaryContainer, MultiContainer, or
// HandheldROM source, streaming each partition through the crypt-copy
// engine and fixing up every chained hash afterward.
package repack

import (
	"context"
	"fmt"

	"github.com/sargunv/ctrtool/lib/cryptcopy"
	"github.com/sargunv/ctrtool/lib/ctrerr"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/ticket"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

// DummyCertSize is a placeholder certificate-chain size: certificate-chain
// content is outside this toolkit's domain (§1 lists only the container
// graph, crypto pipeline, verification engine, and install/repack
// orchestrator in scope), so the repackager reserves a fixed-size zeroed
// region in the stub rather than model certificate bytes it never reads.
const DummyCertSize = 0xA00

// tidHiDLC is the title-id-hi value gating the DLC per-content rights
// check (§4.7 "DLC titles (title-id-hi = 0x0004008C) are validated
// per-content against the ticket's rights bitmap").
const tidHiDLC = 0x0004008C

// ContentSource is one payload to stream into the fresh package: either an
// SC partition (MC source), a bare SC, or an HR cart image.
type ContentSource struct {
	Index  uint16
	Src    extern.File
	Offset int64
	Size   int64
	Key    [16]byte
	IVBase [16]byte
	Plain  bool

	// Right reports whether the source ticket already grants this
	// content's index a right. Only consulted when Options.Rights is
	// set and the title is DLC (§4.7); ignored otherwise.
	Right bool

	// DeclaredHash, when non-nil, is the source TMD's already-declared
	// chunk hash for this content. Only consulted when Options.Legit is
	// set: a mismatch against the freshly streamed payload refuses the
	// whole repackage instead of silently re-deriving the hash (§4.7
	// "Legit mode").
	DeclaredHash *[32]byte
}

// TitleKeySource resolves the title-key to embed in the synthesized
// ticket, per §4.7's priority: a discovered ticket for this title-id, else
// an ambient title-key table lookup, else left as 0xFF (decrypt-only).
type TitleKeySource struct {
	Discovered *[16]byte
	Table      TitleKeyTable
}

func (s TitleKeySource) resolve(titleID uint64) [16]byte {
	if s.Discovered != nil {
		return *s.Discovered
	}
	if s.Table != nil {
		if key, ok := s.Table.Lookup(titleID); ok {
			return key
		}
	}
	var allFF [16]byte
	for i := range allFF {
		allFF[i] = 0xFF
	}
	return allFF
}

// Options parameterizes one repackage pass.
type Options struct {
	Dst extern.File

	TitleID      uint64
	TitleVersion uint16
	CommonKeyIdx byte

	Contents []ContentSource
	TitleKey TitleKeySource

	// Rights gates DLC content admission (§4.7): when set and the title
	// is DLC, each content is passed through Rights.Admit and dropped
	// (bitmap bit cleared, content-region size reduced) if not admitted.
	// Left nil, every content is admitted unconditionally.
	Rights *RightsPolicy

	// Legit, when true, refuses the repackage outright if any content's
	// freshly streamed hash disagrees with its DeclaredHash (§4.7
	// "Legit" mode: "refuse to repackage if the recomputed SHA differs
	// from the TMD's declared chunk hash").
	Legit bool

	Cipher    extern.AESCipher
	NewHash   func() extern.SHA256
	BlockSize int
	Progress  extern.Progress
}

// Result is the fixed-up in-memory graph the repackager produced, already
// flushed to Dst.
type Result struct {
	Header *outer.Header
	Ticket *ticket.View
	TMD    *tmd.View
	Layout outer.Layout
}

// Build constructs a fresh OuterPackage from opts.Contents (§4.7): a stub
// is written first, every content is streamed through cryptcopy (decrypt
// if encrypted), and the stub is rewritten once every chunk's size and
// hash is final.
func Build(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Contents) == 0 {
		return nil, fmt.Errorf("repack: %w: no contents to package", ctrerr.ErrMissingResource)
	}

	contents, err := admitContents(opts)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("repack: %w: no contents admitted by rights policy", ctrerr.ErrMissingResource)
	}

	tkt := &ticket.View{
		SigType:      tmd.SigTypeRSA2048SHA256,
		Signature:    make([]byte, 0x100),
		Issuer:       "Root-CA00000003-XS0000000c",
		TitleID:      opts.TitleID,
		CommonKeyIdx: opts.CommonKeyIdx,
	}
	tkt.TitleKeyEnc = opts.TitleKey.resolve(opts.TitleID)
	tkt = tkt.Zeroed()
	for i := range contents {
		tkt.SetRight(contents[i].Index, true)
	}

	tmdView := &tmd.View{
		SigType:       tmd.SigTypeRSA2048SHA256,
		Signature:     make([]byte, 0x100),
		Issuer:        "Root-CA00000003-CP0000004",
		FormatVersion: 1,
		TitleID:       opts.TitleID,
		TitleVersion:  opts.TitleVersion,
		Chunks:        make([]tmd.ContentChunk, len(contents)),
	}
	for i, c := range contents {
		tmdView.Chunks[i] = tmd.ContentChunk{
			ID:    uint32(c.Index),
			Index: c.Index,
			Type:  0, // plaintext output: encrypted bit never set
			Size:  uint64(c.Size),
		}
	}

	header := &outer.Header{Type: 0, CertSize: DummyCertSize}
	for _, c := range contents {
		header.SetIndex(c.Index, true)
	}

	ticketBuf, err := tkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("repack: marshal ticket: %w", err)
	}
	header.TicketSize = uint32(len(ticketBuf))
	header.TmdSize = uint32(tmdView.Size())

	layout := outer.ComputeLayout(header)
	if err := writeStub(opts.Dst, header, ticketBuf, tmdView, layout); err != nil {
		return nil, err
	}

	var contentOff int64
	for i, c := range contents {
		res, err := cryptcopy.Run(ctx, cryptcopy.Options{
			Src: extern.OffsetFile{File: c.Src, Base: c.Offset - (int64(layout.ContentOffset) + contentOff)}, Dst: opts.Dst,
			Offset:    int64(layout.ContentOffset) + contentOff,
			Size:      c.Size,
			BlockSize: opts.BlockSize,
			Cipher:    opts.Cipher,
			Key:       c.Key,
			IVBase:    c.IVBase,
			Plain:     c.Plain,
			Mode:      cryptcopy.ModeOuterContent,
			Direction: cryptcopy.Decrypt,
			NewHash:   opts.NewHash,
			Progress:  opts.Progress,
		})
		if err != nil {
			return nil, fmt.Errorf("repack: streaming content %d: %w", c.Index, err)
		}
		if opts.Legit && c.DeclaredHash != nil && res.Hash != *c.DeclaredHash {
			return nil, fmt.Errorf("repack: content %d: %w: recomputed hash disagrees with declared chunk hash in legit mode", c.Index, ctrerr.ErrHashMismatch)
		}
		tmdView.Chunks[i].Size = uint64(res.Size)
		tmdView.Chunks[i].Hash = res.Hash
		contentOff += res.Size
	}
	header.ContentSize = uint64(contentOff)

	tmdView.RecomputeContentInfo()

	layout = outer.ComputeLayout(header)
	if err := writeStub(opts.Dst, header, ticketBuf, tmdView, layout); err != nil {
		return nil, fmt.Errorf("repack: rewriting fixed-up stub: %w", err)
	}

	return &Result{Header: header, Ticket: tkt, TMD: tmdView, Layout: layout}, nil
}

// admitContents applies opts.Rights to opts.Contents, dropping any content
// the policy refuses (§4.7 "DLC titles ... validated per-content against
// the ticket's rights bitmap": absent/out-of-rights contents are dropped,
// not treated as an error). With no Rights policy set, every content is
// admitted unconditionally, preserving the original input order.
func admitContents(opts Options) ([]ContentSource, error) {
	if opts.Rights == nil {
		return opts.Contents, nil
	}
	isDLC := uint32(opts.TitleID>>32) == tidHiDLC
	admitted := make([]ContentSource, 0, len(opts.Contents))
	for _, c := range opts.Contents {
		ok, err := opts.Rights.Admit(RightsContext{
			Index:    int(c.Index),
			HasRight: c.Right,
			IsDLC:    isDLC,
			Legit:    opts.Legit,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			admitted = append(admitted, c)
		}
	}
	return admitted, nil
}

func writeStub(dst extern.File, h *outer.Header, ticketBuf []byte, t *tmd.View, layout outer.Layout) error {
	if _, err := dst.WriteAt(h.Marshal(), 0); err != nil {
		return fmt.Errorf("repack: writing header: %w", err)
	}
	certBuf := make([]byte, h.CertSize)
	if _, err := dst.WriteAt(certBuf, int64(layout.CertOffset)); err != nil {
		return fmt.Errorf("repack: writing cert placeholder: %w", err)
	}
	if _, err := dst.WriteAt(ticketBuf, int64(layout.TicketOffset)); err != nil {
		return fmt.Errorf("repack: writing ticket: %w", err)
	}
	tmdBuf, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("repack: marshal tmd: %w", err)
	}
	if _, err := dst.WriteAt(tmdBuf, int64(layout.TmdOffset)); err != nil {
		return fmt.Errorf("repack: writing tmd: %w", err)
	}
	return nil
}
