// Package format holds the CLI's human-readable rendering helpers: lipgloss
// styles, byte-size formatting, and table rendering, mirroring the
// teacher's internal/format package for the same concerns.
package format

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle is for section headers ("Secondary Container:", "Verify
	// results:").
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	// LabelStyle is for key-value labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	// PassStyle marks a passed verification flag.
	PassStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	// FailStyle marks a failed verification flag.
	FailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// SkipStyle marks a region that was not checked.
	SkipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	// DimStyle is for secondary information.
	DimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true)
)

// PassFail renders ok as a styled glyph, or a dim "-" when checked is false
// (the region wasn't present to check), matching the original's
// ShowCiaCheckerInfo "%s/%s/%s"-style summary line (SUPPLEMENTED FEATURES).
func PassFail(checked bool, ok bool) string {
	if !checked {
		return SkipStyle.Render("-")
	}
	if ok {
		return PassStyle.Render("OK")
	}
	return FailStyle.Render("FAIL")
}
