package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/text2mind/internal/convert"
)

var (
	// labelStyle for muted field names
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// pathStyle for file paths
	pathStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("81"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// fallbackStyle marks output produced by a lower tier
	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle for the batch summary
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1)
)

// formatResult prints one finished conversion.
func formatResult(w io.Writer, in string, res convert.Result) {
	tier := successStyle.Render(res.Tier.String())
	if res.Tier != convert.TierPrimary {
		tier = fallbackStyle.Render(res.Tier.String() + " (fallback)")
	}
	fmt.Fprintf(w, "%s %s %s %s\n  %s %d  %s %s  %s %s  %s %s\n",
		successStyle.Render("✓"),
		pathStyle.Render(in),
		labelStyle.Render("->"),
		pathStyle.Render(res.Path),
		labelStyle.Render("nodes:"), res.Nodes,
		labelStyle.Render("layout:"), res.Strategy,
		labelStyle.Render("tier:"), tier,
		labelStyle.Render("size:"), formatBytes(res.Size),
	)
}

func formatFailure(w io.Writer, in string, err error) {
	fmt.Fprintf(w, "%s %s\n  %s\n", errorStyle.Render("✗"), pathStyle.Render(in), errorStyle.Render(err.Error()))
}

func formatBatchSummary(w io.Writer, total, failed int) {
	status := successStyle.Render(fmt.Sprintf("%d converted", total-failed))
	if failed > 0 {
		status += "  " + errorStyle.Render(fmt.Sprintf("%d failed", failed))
	}
	style := boxStyle
	if failed > 0 {
		style = style.BorderForeground(lipgloss.Color("196"))
	}
	fmt.Fprintln(w, style.Render(fmt.Sprintf("%s %d files\n%s", labelStyle.Render("Batch:"), total, status)))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
