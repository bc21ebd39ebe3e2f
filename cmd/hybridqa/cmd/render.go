package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

const renderWidth = 80

// resultMarkdown lays out one result for reading in a terminal.
func resultMarkdown(res core.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", res.ID)

	answer := "_no answer_"
	if !res.FinalAnswer.IsNull() {
		answer = "`" + res.FinalAnswer.String() + "`"
	}
	fmt.Fprintf(&b, "**Answer:** %s\n\n", answer)
	fmt.Fprintf(&b, "**Confidence:** %.2f\n\n", res.Confidence)

	if res.Explanation != "" {
		fmt.Fprintf(&b, "%s\n\n", res.Explanation)
	}
	if res.SQL != "" {
		fmt.Fprintf(&b, "## SQL\n\n```sql\n%s\n```\n\n", res.SQL)
	}
	if len(res.Citations) > 0 {
		b.WriteString("## Sources\n\n")
		for _, c := range res.Citations {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

// renderMarkdown writes md to w, styled when w is a terminal.
func renderMarkdown(w io.Writer, md string) error {
	style := styles.NoTTYStyleConfig
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		style = styles.DraculaStyleConfig
		empty := ""
		style.Code = ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color:           stringPtr("229"),
				BackgroundColor: &empty,
			},
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("rendering result: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func stringPtr(s string) *string { return &s }
