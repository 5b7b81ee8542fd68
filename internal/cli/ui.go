package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/causalhub/pkg/citest"
	"github.com/matzehuels/causalhub/pkg/pipeline"
)

// uiOut receives all status output. Results go to stdout, so status
// lines go to stderr.
var uiOut io.Writer = os.Stderr

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

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
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
	iconCached  = "cached"
	iconFresh   = "fresh"
	iconEdge    = "->"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

// printError prints an error message.
func printError(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(uiOut, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(uiOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Results
// =============================================================================

// printStats prints graph statistics on a single line.
func printStats(variables, edges int, cached bool) {
	parts := []string{
		fmt.Sprintf("%d variables", variables),
		fmt.Sprintf("%d edges", edges),
	}
	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Fprintln(uiOut, line+StyleDim.Render(" · ")+statusStyle.Render(status))
}

// printFitSummary prints the outcome of a fit.
func printFitSummary(res *pipeline.Result) {
	if res.Graph != nil {
		verdict := "converged"
		if !res.Converged {
			verdict = "stopped early"
		}
		printSuccess("Learned DAG in %d moves, %s", res.Iterations, verdict)
		printDetail("score %.4f", res.Score)
	} else if res.CPDAG != nil {
		printSuccess("Learned CPDAG with %d directed and %d undirected edges", len(res.CPDAG.Arcs()), len(res.CPDAG.Lines()))
		printDetail("%d separating sets", len(res.SepSets))
	} else {
		printSuccess("Learned skeleton with %d separating sets", len(res.SepSets))
	}
	printStats(res.Stats.Variables, res.Stats.Edges, res.CacheHit)
	if !res.CacheHit {
		printDetail("search %s", res.Stats.SearchTime.Round(time.Millisecond))
	}
}

// printMoves prints the accepted moves of a hill-climbing search as a table.
func printMoves(moves []pipeline.Move) {
	if len(moves) == 0 {
		printInfo("No moves")
		return
	}
	rows := make([][]string, len(moves))
	for i, m := range moves {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			m.Kind,
			m.From + " " + iconEdge + " " + m.To,
			fmt.Sprintf("%+.4f", m.Delta),
			fmt.Sprintf("%.4f", m.Score),
		}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Move", "Edge", "Delta", "Score").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return StyleHighlight
			case col == 0:
				return StyleDim
			}
			return StyleValue
		})
	fmt.Fprintln(uiOut, t.Render())
}

// printTestResult prints the outcome of an independence test.
func printTestResult(query string, r citest.Result) {
	if r.Independent {
		printSuccess("%s: independent", query)
	} else {
		printWarning("%s: dependent", query)
	}
	printKeyValue("statistic", fmt.Sprintf("%.6g", r.Statistic))
	printKeyValue("dof", fmt.Sprintf("%g", r.DoF))
	printKeyValue("p-value", fmt.Sprintf("%.6g", r.PValue))
}

// formatSet formats labels as {A, B}.
func formatSet(labels []string) string {
	return "{" + strings.Join(labels, ", ") + "}"
}
