// Package cli wires the cobra subcommand tree the cmd/ctrtool binary
// executes, mirroring the teacher's internal/cli package layout: one
// cobra.Command per file, registered onto a package-level rootCmd from
// each file's init().
package cli

import (
	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "ctrtool",
	Short: "A toolkit for inspecting, verifying, and repackaging 3DS title content",
	Long: `ctrtool parses, verifies, re-encrypts, repackages, and installs the
3DS container format family: OuterPackage (CIA), TitleMetadata, Ticket,
SecondaryContainer (NCCH), MultiContainer (NCSD), and legacy HandheldROM
cartridge images.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON Lines instead of styled text")
}

// Execute runs the root command, returning any error for main to report.
func Execute() error {
	return rootCmd.Execute()
}
