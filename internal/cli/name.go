package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sargunv/ctrtool/internal/lzcompress"
	"github.com/sargunv/ctrtool/lib/dispatch"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/banner"
	"github.com/sargunv/ctrtool/lib/format/hr"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/naming"
)

var nameZip bool

var nameCmd = &cobra.Command{
	Use:   "name <file>",
	Short: "Print the deterministic output filename composed for a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runName,
}

func init() {
	nameCmd.Flags().BoolVar(&nameZip, "zip", false, "also write a zlib-compressed copy of the source next to the computed name")
	rootCmd.AddCommand(nameCmd)
}

func runName(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := extern.OpenFile(path)
	if err != nil {
		return fmt.Errorf("name: %w", err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return fmt.Errorf("name: stat: %w", err)
	}
	probeSize := int64(dispatch.ProbeSize)
	if probeSize > size {
		probeSize = size
	}
	buf := make([]byte, probeSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("name: probe read: %w", err)
	}
	kind := dispatch.Detect(buf, size, path)

	var (
		titleID uint64
		src     naming.Source
		ext     = strings.TrimPrefix(filepath.Ext(path), ".")
	)

	switch kind {
	case dispatch.KindSecondaryContainer:
		header, err := sc.ParseHeader(buf)
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
		titleID = header.ProgramID
		var bannerView banner.Banner // no embedded banner parsed from a bare SC without its ExeFS walked
		src = naming.FromSecondaryContainer(header.ProductCode, &bannerView, banner.LangEnglish)
	case dispatch.KindHandheldROM:
		header, err := hr.ParseHeader(buf)
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
		titleID = header.TitleID
		src = naming.FromHandheldROM(header)
	default:
		return fmt.Errorf("name: %s has no naming source", kind)
	}

	filename := naming.Filename(titleID, src, ext)
	fmt.Println(filename)

	if nameZip {
		fileBuf := make([]byte, size)
		if _, err := f.ReadAt(fileBuf, 0); err != nil {
			return fmt.Errorf("name: reading source for --zip: %w", err)
		}
		compressed, err := lzcompress.Compress(fileBuf, lzcompress.DefaultLevel)
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
		out, err := extern.CreateFile(filename + ".zz")
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
		defer out.Close()
		if _, err := out.WriteAt(compressed, 0); err != nil {
			return fmt.Errorf("name: writing --zip output: %w", err)
		}
	}
	return nil
}
