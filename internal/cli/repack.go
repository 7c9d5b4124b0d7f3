package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sargunv/ctrtool/lib/dispatch"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/repack"
)

var (
	repackTitleID      string
	repackTitleVersion uint16
	repackCommonKeyIdx uint8
)

var repackCmd = &cobra.Command{
	Use:   "repack <file> <output.cia>",
	Short: "Build a fresh OuterPackage wrapping a SecondaryContainer",
	Args:  cobra.ExactArgs(2),
	RunE:  runRepack,
}

func init() {
	repackCmd.Flags().StringVar(&repackTitleID, "title-id", "", "override the title-id embedded in the ticket and TMD (defaults to the source's program-id)")
	repackCmd.Flags().Uint16Var(&repackTitleVersion, "title-version", 0, "title version to embed in the TMD")
	repackCmd.Flags().Uint8Var(&repackCommonKeyIdx, "common-key-idx", 0, "common-key index to record in the synthesized ticket")
	rootCmd.AddCommand(repackCmd)
}

func runRepack(cmd *cobra.Command, args []string) error {
	srcPath, dstPath := args[0], args[1]

	src, err := extern.OpenFile(srcPath)
	if err != nil {
		return fmt.Errorf("repack: %w", err)
	}
	defer src.Close()

	size, err := src.Size()
	if err != nil {
		return fmt.Errorf("repack: stat: %w", err)
	}
	probeSize := int64(dispatch.ProbeSize)
	if probeSize > size {
		probeSize = size
	}
	buf := make([]byte, probeSize)
	if _, err := src.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("repack: probe read: %w", err)
	}
	kind := dispatch.Detect(buf, size, srcPath)
	if kind != dispatch.KindSecondaryContainer {
		return fmt.Errorf("repack: %s: only a bare SecondaryContainer source is wired to this command", kind)
	}
	header, err := sc.ParseHeader(buf)
	if err != nil {
		return fmt.Errorf("repack: %w", err)
	}

	titleID := header.ProgramID
	if repackTitleID != "" {
		parsed, err := strconv.ParseUint(repackTitleID, 16, 64)
		if err != nil {
			return fmt.Errorf("repack: --title-id: %w", err)
		}
		titleID = parsed
	}

	dst, err := extern.CreateFile(dstPath)
	if err != nil {
		return fmt.Errorf("repack: %w", err)
	}
	defer dst.Close()

	// A bare SC repackaged alone becomes the package's single content,
	// carried through untransformed: OuterPackage content crypto uses a
	// title-key derived stream unrelated to the SC's own internal
	// region keys, and this command has no ticket to source one from.
	res, err := repack.Build(context.Background(), repack.Options{
		Dst:          dst,
		TitleID:      titleID,
		TitleVersion: repackTitleVersion,
		CommonKeyIdx: repackCommonKeyIdx,
		Contents: []repack.ContentSource{
			{Index: 0, Src: src, Offset: 0, Size: size, Plain: true},
		},
		Cipher:  extern.StdAESCipher{},
		NewHash: func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		return fmt.Errorf("repack: %w", err)
	}
	fmt.Printf("repack: wrote %s: title %016x v%d, %d content(s)\n", dstPath, res.TMD.TitleID, res.TMD.TitleVersion, len(res.TMD.Chunks))
	return nil
}
