// Package install implements the installer of §4.8: lay out a title's
// content/cmd/savedata tree on a destination drive, stream every content
// through the crypt-copy engine, and insert the resulting TitleInfoEntry
// and ticket into the title/ticket databases.
package install

import (
	"context"
	"fmt"

	"github.com/sargunv/ctrtool/lib/cryptcopy"
	"github.com/sargunv/ctrtool/lib/ctrerr"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/cm"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/format/tie"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

// Well-known title-id-hi values governing reserved-id policy (§4.8
// "Reserved-ID policies"), named for readability at the call site.
const (
	tidHiDLC = 0x0004008C
)

// Layout derives the on-disk paths for a title-id's content/cmd/savedata
// tree under a drive prefix, per §4.8's "title/<hi>/<lo>/..." scheme.
type Layout struct {
	Drive   string
	TitleID uint64
}

func (l Layout) hi() uint32 { return uint32(l.TitleID >> 32) }
func (l Layout) lo() uint32 { return uint32(l.TitleID) }

func (l Layout) titleDir() string {
	return fmt.Sprintf("%stitle/%08x/%08x", l.Drive, l.hi(), l.lo())
}

// ContentDir is the title's content directory.
func (l Layout) ContentDir() string { return l.titleDir() + "/content" }

// TmdPath is the installed TMD path.
func (l Layout) TmdPath() string { return l.ContentDir() + "/00000000.tmd" }

// CmdPath is the installed ContentManifest path for cmdContentID (almost
// always 1, per tie.Entry.CmdContentID).
func (l Layout) CmdPath(cmdContentID uint32) string {
	return fmt.Sprintf("%s/cmd/%08x.cmd", l.ContentDir(), cmdContentID)
}

// ContentPath is the installed path for one content-id's payload. DLC
// titles nest every content under a 00000000 directory (§4.8).
func (l Layout) ContentPath(contentID uint32, dlc bool) string {
	if dlc {
		return fmt.Sprintf("%s/00000000/%08x.app", l.ContentDir(), contentID)
	}
	return fmt.Sprintf("%s/%08x.app", l.ContentDir(), contentID)
}

// SaveDataPath is the savegame file path: hashed under the system NAND's
// sysdata tree, or a flat file on removable media (§4.8).
func (l Layout) SaveDataPath(systemNAND bool, nandID0 uint32) string {
	if systemNAND {
		sysdataID := l.lo() | 0x00020000
		return fmt.Sprintf("%sdata/%08x/sysdata/%08x/00000000", l.Drive, nandID0, sysdataID)
	}
	return l.titleDir() + "/data/00000001.sav"
}

// ContentInput is one content to install: its plaintext or ciphertext
// source, and the key material needed to decrypt it en route.
type ContentInput struct {
	ContentID uint32
	Index     uint16
	Src       extern.File
	Offset    int64
	Size      int64
	Key       [16]byte
	IVBase    [16]byte
	Plain     bool
}

// Options parameterizes one install pass.
type Options struct {
	Store extern.Storage
	Mount extern.MountSwitcher

	Drive   string
	TitleID uint64

	TitleVersion uint16
	Contents     []ContentInput

	// SaveDataSize is ExtHdr.SaveDataSize; zero means no savegame file.
	SaveDataSize uint32
	SystemNAND   bool
	NandID0      uint32

	// NCCH and ExtHeader, when set, identify the installed title as an
	// NCCH-backed (SC) title: the TitleInfoEntry is built with
	// tie.BuildFromNCCH instead of the bare tie.BuildFromTMD, carrying
	// product code, extended title version, the "not a system title"
	// flag, and savedata/extdata accounting (§3 invariant 6, §4.8). Left
	// nil, Install falls back to the TMD-only accounting (e.g. a CDN or
	// TWL-sourced install with no SC header on hand).
	NCCH      *sc.Header
	ExtHeader *sc.ExtHeader

	// TicketBuf is the already-marshaled common-ticket to insert.
	TicketBuf []byte
	// NonSystem marks this as a non-system install, which fixes the CMAC
	// over the installed ContentManifest (§4.8).
	NonSystem bool

	TitleDBImage  string
	TicketDBImage string
	TitleDBDrive  string
	TicketDBDrive string

	CMAC func(buf []byte) [16]byte

	Cipher    extern.AESCipher
	NewHash   func() extern.SHA256
	BlockSize int
	Progress  extern.Progress
}

// Result is what Install produced.
type Result struct {
	Layout   Layout
	TMD      *tmd.View
	Manifest *cm.Manifest
	Entry    *tie.Entry
}

// Install lays out opts.Contents under opts.Drive's title/<hi>/<lo> tree,
// streams each through the crypt-copy engine, writes the TMD and
// ContentManifest, sizes and zero-fills the savegame file if present, and
// inserts the resulting TitleInfoEntry and ticket into the title/ticket
// databases (§4.8).
func Install(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Contents) == 0 {
		return nil, fmt.Errorf("install: %w: no contents to install", ctrerr.ErrMissingResource)
	}

	layout := Layout{Drive: opts.Drive, TitleID: opts.TitleID}
	if err := opts.Store.MkdirAll(layout.ContentDir() + "/cmd"); err != nil {
		return nil, fmt.Errorf("install: creating content dir: %w", err)
	}

	dlc := layout.hi() == tidHiDLC
	if dlc {
		if err := opts.Store.MkdirAll(layout.ContentDir() + "/00000000"); err != nil {
			return nil, fmt.Errorf("install: creating DLC content dir: %w", err)
		}
	}

	tmdView := &tmd.View{
		SigType:       tmd.SigTypeRSA2048SHA256,
		Signature:     make([]byte, 0x100),
		Issuer:        "Root-CA00000003-CP0000004",
		FormatVersion: 1,
		TitleID:       opts.TitleID,
		TitleVersion:  opts.TitleVersion,
		Chunks:        make([]tmd.ContentChunk, len(opts.Contents)),
	}

	for i, c := range opts.Contents {
		dst, err := opts.Store.Create(layout.ContentPath(c.ContentID, dlc))
		if err != nil {
			return nil, fmt.Errorf("install: creating content %#x: %w", c.ContentID, err)
		}
		res, err := cryptcopy.Run(ctx, cryptcopy.Options{
			Src: extern.OffsetFile{File: c.Src, Base: c.Offset}, Dst: dst,
			Offset:    0,
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
		closeErr := dst.Close()
		if err != nil {
			return nil, fmt.Errorf("install: streaming content %#x: %w", c.ContentID, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("install: closing content %#x: %w", c.ContentID, closeErr)
		}
		tmdView.Chunks[i] = tmd.ContentChunk{
			ID:    c.ContentID,
			Index: c.Index,
			Type:  0, // plaintext on-disk form
			Size:  uint64(res.Size),
			Hash:  res.Hash,
		}
	}
	tmdView.RecomputeContentInfo()

	tmdBuf, err := tmdView.Marshal()
	if err != nil {
		return nil, fmt.Errorf("install: marshal tmd: %w", err)
	}
	if err := writeFile(opts.Store, layout.TmdPath(), tmdBuf); err != nil {
		return nil, err
	}

	var entry *tie.Entry
	if opts.NCCH != nil {
		entry = tie.BuildFromNCCH(tmdView, opts.NCCH, opts.ExtHeader, !opts.SystemNAND)
	} else {
		entry = tie.BuildFromTMD(tmdView, !opts.SystemNAND)
	}

	manifest := cm.BuildFromChunks(tmdView.Chunks)
	cmdBuf := manifest.Marshal()
	if opts.CMAC != nil && opts.NonSystem {
		manifest.CMAC = opts.CMAC(cmdBuf)
	}
	cmdBuf = append(cmdBuf, manifest.CMAC[:]...)
	if err := writeFile(opts.Store, layout.CmdPath(entry.CmdContentID), cmdBuf); err != nil {
		return nil, err
	}

	if opts.SaveDataSize > 0 {
		savePath := layout.SaveDataPath(opts.SystemNAND, opts.NandID0)
		zero := make([]byte, opts.SaveDataSize)
		if err := writeFile(opts.Store, savePath, zero); err != nil {
			return nil, fmt.Errorf("install: writing savedata stub: %w", err)
		}
	}

	entryBuf := entry.Marshal()
	if err := InsertTitleEntry(opts.Mount, opts.Store, opts.TitleDBDrive, opts.TitleDBImage, entryBuf); err != nil {
		return nil, err
	}
	if err := InsertTicket(opts.Mount, opts.Store, opts.TicketDBDrive, opts.TicketDBImage, opts.TicketBuf); err != nil {
		return nil, err
	}

	return &Result{Layout: layout, TMD: tmdView, Manifest: manifest, Entry: entry}, nil
}

func writeFile(store extern.Storage, path string, buf []byte) error {
	f, err := store.Create(path)
	if err != nil {
		return fmt.Errorf("install: creating %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("install: writing %s: %w", path, err)
	}
	return nil
}
