package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/esmstat/pkg/classify"
	"github.com/matzehuels/esmstat/pkg/crawl"
	"github.com/matzehuels/esmstat/pkg/report"
)

// stdout receives all user-facing output; stderr receives spinners.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, "  "+StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Domain Output
// =============================================================================

// printCounts prints one snapshot's style breakdown on a single line.
func printCounts(row report.Row) {
	parts := make([]string, 0, len(classify.Styles))
	for _, st := range classify.Styles {
		parts = append(parts, fmt.Sprintf("%s %s (%.1f%%)",
			st, StyleNumber.Render(fmt.Sprint(row.Count(st))), row.Share(st)*100))
	}
	fmt.Fprintln(stdout, "  "+StyleDim.Render(row.Date+":")+" "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printCrawlSummary prints the outcome of a crawl run.
func printCrawlSummary(sum *crawl.Summary) {
	printSuccess("Crawled %d packages into %s", sum.Total, StyleHighlight.Render(sum.Date))
	printKeyValue("classified", fmt.Sprint(sum.Classified))
	printKeyValue("skipped", fmt.Sprint(sum.Skipped))
	printKeyValue("failed", fmt.Sprint(sum.Failed))
	for _, st := range classify.Styles {
		printKeyValue(string(st), fmt.Sprint(sum.Counts[st]))
	}
	printDetail("run %s in %s", sum.RunID, elapsed(sum.Duration))
}

// printClassification prints one classify result.
func printClassification(r classify.Outcome) {
	switch {
	case r.Error != "":
		printError("%s %s", r.Name, StyleDim.Render(r.Error))
	case r.Skipped:
		printWarning("%s skipped: %s", r.Name, r.Reason)
		if r.Detail != "" {
			printDetail("%s", r.Detail)
		}
	default:
		printSuccess("%s %s", r.Name, StyleHighlight.Render(string(r.Style)))
	}
	for _, a := range r.Anomalies {
		printDetail("unrecognised exports entry %s", a)
	}
}
