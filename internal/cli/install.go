package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	ctrcrypto "github.com/sargunv/ctrtool/lib/crypto"
	"github.com/sargunv/ctrtool/lib/dispatch"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/format/ticket"
	"github.com/sargunv/ctrtool/lib/format/tmd"
	"github.com/sargunv/ctrtool/lib/install"
)

var (
	installDrive      string
	installSystemNAND bool
)

var installCmd = &cobra.Command{
	Use:   "install <package.cia> <drive-root>",
	Short: "Lay out an OuterPackage's contents on a destination drive tree",
	Args:  cobra.ExactArgs(2),
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installDrive, "drive", "S:", "drive prefix to install under")
	installCmd.Flags().BoolVar(&installSystemNAND, "system", false, "install as a system title (savedata under sysdata, CMAC left unfixed)")
	installCmd.Flags().StringVar(&cryptKeyfile, "keyfile", "", "hex key-slot file (falls back to the built-in deterministic test slots if unset)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	pkgPath, root := args[0], args[1]

	f, err := extern.OpenFile(pkgPath)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return fmt.Errorf("install: stat: %w", err)
	}
	probeSize := int64(dispatch.ProbeSize)
	if probeSize > size {
		probeSize = size
	}
	buf := make([]byte, probeSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("install: probe read: %w", err)
	}
	kind := dispatch.Detect(buf, size, pkgPath)
	if kind != dispatch.KindOuterPackage {
		return fmt.Errorf("install: %s: only an OuterPackage can be installed", kind)
	}

	header, err := outer.ParseHeader(buf)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	layout := outer.ComputeLayout(header)

	tmdBuf := make([]byte, header.TmdSize)
	if _, err := f.ReadAt(tmdBuf, int64(layout.TmdOffset)); err != nil {
		return fmt.Errorf("install: reading tmd: %w", err)
	}
	tmdView, err := tmd.Parse(tmdBuf)
	if err != nil {
		return fmt.Errorf("install: parsing tmd: %w", err)
	}

	ticketBuf := make([]byte, header.TicketSize)
	if _, err := f.ReadAt(ticketBuf, int64(layout.TicketOffset)); err != nil {
		return fmt.Errorf("install: reading ticket: %w", err)
	}
	tkt, err := ticket.Parse(ticketBuf)
	if err != nil {
		return fmt.Errorf("install: parsing ticket: %w", err)
	}

	slots := resolveKeySlots(cryptKeyfile)
	titleKey, err := ctrcrypto.UnwrapTitleKey(extern.StdAESCipher{}, slots, tkt.TitleID, tkt.TitleKeyEnc, tkt.CommonKeyIdx)
	if err != nil {
		return fmt.Errorf("install: unwrapping title key: %w", err)
	}

	contents := make([]install.ContentInput, 0, len(tmdView.Chunks))
	var contentOff int64
	for _, chunk := range tmdView.Chunks {
		if !header.IndexSet(chunk.Index) {
			continue
		}
		contents = append(contents, install.ContentInput{
			ContentID: chunk.ID,
			Index:     chunk.Index,
			Src:       f,
			Offset:    int64(layout.ContentOffset) + contentOff,
			Size:      int64(chunk.Size),
			Key:       titleKey,
			IVBase:    ctrcrypto.ContentCTR(chunk.Index),
			Plain:     !chunk.Encrypted(),
		})
		contentOff += int64(chunk.Size)
	}

	ncchHeader, extHeader := peekNCCH(f, contents, slots)
	var saveDataSize uint32
	if extHeader != nil {
		saveDataSize = extHeader.SaveDataSize
	}

	store := extern.NewOSStore(root)
	res, err := install.Install(context.Background(), install.Options{
		Store:         store,
		Mount:         store,
		Drive:         installDrive,
		TitleID:       tmdView.TitleID,
		TitleVersion:  tmdView.TitleVersion,
		Contents:      contents,
		SaveDataSize:  saveDataSize,
		NCCH:          ncchHeader,
		ExtHeader:     extHeader,
		TicketBuf:     ticketBuf,
		NonSystem:     !installSystemNAND,
		SystemNAND:    installSystemNAND,
		TitleDBImage:  "dbs/title.db",
		TicketDBImage: "dbs/ticket.db",
		TitleDBDrive:  "T:",
		TicketDBDrive: "K:",
		Cipher:        extern.StdAESCipher{},
		NewHash:       func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	fmt.Printf("install: laid out title %016x under %s (%d content(s))\n", res.Layout.TitleID, res.Layout.ContentDir(), len(res.TMD.Chunks))
	return nil
}

// peekNCCH decrypts content index 0's SC header and, if present, its
// ExtendedHeader, so Install can build an NCCH-aware TitleInfoEntry (§3
// invariant 6, §4.8's product-code/extdata/flags accounting). A typical
// CIA's content 0 is an SC; failures here are non-fatal (CDN-ish installs
// with a non-SC content 0 simply fall back to the bare TMD accounting).
func peekNCCH(src extern.File, contents []install.ContentInput, slots extern.KeySlots) (*sc.Header, *sc.ExtHeader) {
	var content0 *install.ContentInput
	for i := range contents {
		if contents[i].Index == 0 {
			content0 = &contents[i]
			break
		}
	}
	if content0 == nil {
		return nil, nil
	}

	headerRegion := &ctrcrypto.Region{
		Src: src, Base: content0.Offset,
		Cipher: extern.StdAESCipher{}, Key: content0.Key, IVBase: content0.IVBase,
		Plain: content0.Plain,
	}
	headerBuf := make([]byte, sc.HeaderSize)
	if _, err := headerRegion.ReadAt(headerBuf, 0); err != nil {
		return nil, nil
	}
	header, err := sc.ParseHeader(headerBuf)
	if err != nil {
		return nil, nil
	}
	if header.SizeExtHdr == 0 {
		return header, nil
	}

	scKey, err := ctrcrypto.ContentKey(slots, header)
	if err != nil {
		return header, nil
	}
	extRegion := &ctrcrypto.Region{
		Src: src, Base: content0.Offset + sc.ExtHeaderOffset,
		Cipher: extern.StdAESCipher{}, Key: scKey,
		IVBase: ctrcrypto.RegionCTR(header.ProgramID, sc.RegionExtHeader),
		Plain:  !header.Encrypted(),
	}
	extBuf := make([]byte, sc.ExtHeaderSize)
	if _, err := extRegion.ReadAt(extBuf, 0); err != nil {
		return header, nil
	}
	extHeader, err := sc.ParseExtHeader(extBuf)
	if err != nil {
		return header, nil
	}
	return header, extHeader
}
