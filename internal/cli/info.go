package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sargunv/ctrtool/internal/format"
	"github.com/sargunv/ctrtool/lib/dispatch"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/mc"
	"github.com/sargunv/ctrtool/lib/format/outer"
	"github.com/sargunv/ctrtool/lib/format/sc"
	"github.com/sargunv/ctrtool/lib/format/tmd"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Identify a container and print its header fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// infoResult is the structure emitted for --json.
type infoResult struct {
	Path string `json:"path"`
	Kind string `json:"kind"`

	OuterPackage *outerInfo `json:"outer_package,omitempty"`
	SC           *scInfo    `json:"secondary_container,omitempty"`
	MC           *mcInfo    `json:"multi_container,omitempty"`
}

type outerInfo struct {
	ContentCount int    `json:"content_count"`
	TitleID      string `json:"title_id"`
	TitleVersion uint16 `json:"title_version"`
}

type scInfo struct {
	ProgramID   string `json:"program_id"`
	ProductCode string `json:"product_code"`
	Encrypted   bool   `json:"encrypted"`
}

type mcInfo struct {
	MediaID    string `json:"media_id"`
	Partitions int    `json:"partitions"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := extern.OpenFile(path)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return fmt.Errorf("info: stat: %w", err)
	}
	probeSize := int64(dispatch.ProbeSize)
	if probeSize > size {
		probeSize = size
	}
	buf := make([]byte, probeSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("info: probe read: %w", err)
	}

	kind := dispatch.Detect(buf, size, path)
	res := infoResult{Path: path, Kind: kind.String()}

	switch kind {
	case dispatch.KindOuterPackage:
		header, err := outer.ParseHeader(buf)
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}
		layout := outer.ComputeLayout(header)
		tmdBuf := make([]byte, header.TmdSize)
		if _, err := f.ReadAt(tmdBuf, int64(layout.TmdOffset)); err != nil {
			return fmt.Errorf("info: reading tmd: %w", err)
		}
		tmdView, err := tmd.Parse(tmdBuf)
		if err != nil {
			return fmt.Errorf("info: parsing tmd: %w", err)
		}
		res.OuterPackage = &outerInfo{
			ContentCount: len(tmdView.Chunks),
			TitleID:      fmt.Sprintf("%016x", tmdView.TitleID),
			TitleVersion: tmdView.TitleVersion,
		}
		if !jsonOutput {
			printOuterPackage(header, tmdView)
			return nil
		}
	case dispatch.KindSecondaryContainer:
		header, err := sc.ParseHeader(buf)
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}
		res.SC = &scInfo{
			ProgramID:   fmt.Sprintf("%016x", header.ProgramID),
			ProductCode: header.ProductCode,
			Encrypted:   header.Encrypted(),
		}
		if !jsonOutput {
			printSC(header)
			return nil
		}
	case dispatch.KindMultiContainer:
		header, err := mc.ParseHeader(buf)
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}
		active := 0
		for i := range header.Partitions {
			if _, size := header.PartitionByteRange(i); size > 0 {
				active++
			}
		}
		res.MC = &mcInfo{MediaID: fmt.Sprintf("%016x", header.MediaID), Partitions: active}
		if !jsonOutput {
			printMC(header, active)
			return nil
		}
	default:
		if !jsonOutput {
			fmt.Printf("%s: %s (no detailed view for this kind)\n", path, kind)
			return nil
		}
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(res)
}

func printOuterPackage(h *outer.Header, t *tmd.View) {
	fmt.Println(format.HeaderStyle.Render("OuterPackage"))
	fmt.Printf("  %s %016x\n", format.LabelStyle.Render("Title ID:"), t.TitleID)
	fmt.Printf("  %s %d\n", format.LabelStyle.Render("Title version:"), t.TitleVersion)
	fmt.Printf("  %s %d\n", format.LabelStyle.Render("Contents:"), len(t.Chunks))

	rows := make([][]string, 0, len(t.Chunks))
	for _, c := range t.Chunks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.Index),
			fmt.Sprintf("%08x", c.ID),
			fmt.Sprintf("%#x", c.Type),
			format.ByteSize(int64(c.Size)),
			format.SkipStyle.Render("-"),
		})
	}
	format.ContentTable("Contents", rows)
}

func printSC(h *sc.Header) {
	fmt.Println(format.HeaderStyle.Render("SecondaryContainer"))
	fmt.Printf("  %s %016x\n", format.LabelStyle.Render("Program ID:"), h.ProgramID)
	fmt.Printf("  %s %s\n", format.LabelStyle.Render("Product code:"), h.ProductCode)
	fmt.Printf("  %s %v\n", format.LabelStyle.Render("Encrypted:"), h.Encrypted())

	rows := [][]string{
		{"ExtHeader", boolRegion(h.SizeExtHdr > 0)},
		{"Flat archive (ExeFS)", boolRegion(h.SizeExeFsHash > 0)},
		{"Hash filesystem (RomFS)", boolRegion(h.SizeRomFsHash > 0)},
	}
	format.RegionTable("Regions", rows)
}

func boolRegion(present bool) string {
	if present {
		return "present"
	}
	return format.SkipStyle.Render("absent")
}

func printMC(h *mc.Header, active int) {
	fmt.Println(format.HeaderStyle.Render("MultiContainer"))
	fmt.Printf("  %s %016x\n", format.LabelStyle.Render("Media ID:"), h.MediaID)
	fmt.Printf("  %s %d/%d\n", format.LabelStyle.Render("Active partitions:"), active, len(h.Partitions))
}
