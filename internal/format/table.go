package format

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ContentTable renders the OuterPackage/TMD content-chunk list (index, id,
// type, size, hash OK/FAIL) to stdout, grounded on fiano's own
// PSP-directory-entry table rendering.
func ContentTable(title string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"Index", "Content ID", "Type", "Size", "Hash"})
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		t.AppendRow(r)
	}
	t.Render()
}

// RegionTable renders the SecondaryContainer region summary (ExtHdr/ExeFS/
// RomFS pass-fail-skip) to stdout.
func RegionTable(title string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"Region", "Status"})
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		t.AppendRow(r)
	}
	t.Render()
}
