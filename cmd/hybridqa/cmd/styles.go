package cmd

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#9CA3AF")
)

// statusStyles renders status output for one writer. Colors are dropped when
// the writer is not a terminal.
type statusStyles struct {
	ok, warn, fail, muted, bold lipgloss.Style
}

func newStyles(w io.Writer) statusStyles {
	r := lipgloss.NewRenderer(w)
	return statusStyles{
		ok:    r.NewStyle().Foreground(colorSuccess),
		warn:  r.NewStyle().Foreground(colorWarning),
		fail:  r.NewStyle().Foreground(colorError).Bold(true),
		muted: r.NewStyle().Foreground(colorMuted),
		bold:  r.NewStyle().Bold(true),
	}
}
