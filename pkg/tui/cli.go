// Package tui renders mining results for the terminal.
// Simple, streaming output with lipgloss styles; no full-screen UI.
package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/logflow/procmine/pkg/conformance"
	"github.com/logflow/procmine/pkg/mining"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/results"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

const rule = "  ─────────────────────────────────────"

// Version is printed in the header.
var Version = "0.1.0"

// PrintHeader prints the banner.
func PrintHeader(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("  PROCMINE")+mutedStyle.Render(" v"+Version))
	fmt.Fprintln(w, mutedStyle.Render("  Process discovery and conformance checking"))
	fmt.Fprintln(w)
}

// WizardResult holds the answers of the interactive mining wizard.
type WizardResult struct {
	InputFile  string
	OutputFile string
	Algorithm  string
	CaseID     string
	Activity   string
	Timestamp  string
	Resource   string
}

// RunWizard asks for an input log, an algorithm and the column mapping.
// It returns nil without error when the user declines to start.
func RunWizard(in io.Reader, out io.Writer, defaults parser.Config) (*WizardResult, error) {
	reader := bufio.NewReader(in)

	PrintHeader(out)

	fmt.Fprintln(out, accentStyle.Render("▸ SELECT EVENT LOG"))
	fmt.Fprintln(out, mutedStyle.Render("  Drag & drop a file, or type the path:"))
	fmt.Fprintln(out)

	inputPath, err := promptPath(reader, out, "  Input: ")
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		fmt.Fprintln(out, accentStyle.Render("  ✗ File not found: "+inputPath))
		return nil, err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, mutedStyle.Render(rule))
	fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("Format:"), titleStyle.Render(strings.ToUpper(parser.DetectFormat(inputPath).String())))
	fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("Size:"), titleStyle.Render(formatBytes(info.Size())))
	fmt.Fprintln(out, mutedStyle.Render(rule))

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".dot"
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("Model:"), codeStyle.Render(outputPath))

	fmt.Fprintln(out)
	fmt.Fprintln(out, accentStyle.Render("▸ ALGORITHM"))
	algorithm, _ := promptWithDefault(reader, out, "  alpha | heuristic | frequency", mining.AlgorithmAlpha.String())

	fmt.Fprintln(out)
	fmt.Fprintln(out, accentStyle.Render("▸ COLUMN MAPPING"))
	fmt.Fprintln(out, mutedStyle.Render("  Press Enter to accept defaults, or type column name:"))
	fmt.Fprintln(out)

	caseID, _ := promptWithDefault(reader, out, "  case_id", defaults.CaseIDColumn)
	activity, _ := promptWithDefault(reader, out, "  activity", defaults.ActivityColumn)
	timestamp, _ := promptWithDefault(reader, out, "  timestamp", defaults.TimestampColumn)
	resource, _ := promptWithDefault(reader, out, "  resource", defaults.ResourceColumn)

	fmt.Fprintln(out)
	fmt.Fprintln(out, mutedStyle.Render(rule))
	fmt.Fprintf(out, "  %s\n", titleStyle.Render("Ready to mine"))
	fmt.Fprintf(out, "  %s → %s (%s)\n", filepath.Base(inputPath), filepath.Base(outputPath), algorithm)
	fmt.Fprintln(out, mutedStyle.Render(rule))
	fmt.Fprintln(out)

	confirm, _ := promptConfirm(reader, out, "  Start mining? [Y/n]: ")
	if !confirm {
		fmt.Fprintln(out, mutedStyle.Render("  Cancelled."))
		return nil, nil
	}

	return &WizardResult{
		InputFile:  inputPath,
		OutputFile: outputPath,
		Algorithm:  algorithm,
		CaseID:     caseID,
		Activity:   activity,
		Timestamp:  timestamp,
		Resource:   resource,
	}, nil
}

func promptPath(reader *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}

	path := strings.TrimSpace(input)
	// Drag & drop quotes the path.
	path = strings.Trim(path, "\"'")
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}

	return path, nil
}

func promptWithDefault(reader *bufio.Reader, out io.Writer, field, defaultVal string) (string, error) {
	fmt.Fprintf(out, "  %s %s: ", mutedStyle.Render(field), mutedStyle.Render("["+defaultVal+"]"))
	input, err := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal, err
	}
	return input, nil
}

func promptConfirm(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return false, err
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "" || input == "y" || input == "yes", nil
}

// PrintReport prints the summary of a mining run.
func PrintReport(w io.Writer, r *results.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, successStyle.Render("  ✓ MINING COMPLETE"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Report:"), codeStyle.Render(r.ID))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Source:"), titleStyle.Render(r.Source))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Algorithm:"), titleStyle.Render(r.Algorithm))
	fmt.Fprintf(w, "  %s %s traces, %s events, %s variants\n",
		mutedStyle.Render("Log:"),
		titleStyle.Render(formatNumber(int64(r.Traces))),
		titleStyle.Render(formatNumber(int64(r.Events))),
		titleStyle.Render(formatNumber(int64(r.Variants))))
	fmt.Fprintf(w, "  %s %d nodes, %d edges\n", mutedStyle.Render("Model:"), r.Nodes, r.Edges)
	if r.DurationMS > 0 {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Time:"),
			titleStyle.Render(formatDuration(time.Duration(r.DurationMS)*time.Millisecond)))
	}
	for _, k := range sortedKeys(r.Metadata) {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(k+":"), r.Metadata[k])
	}

	if r.Conformance != nil {
		PrintConformance(w, *r.Conformance)
	}
	if len(r.TopVariants) > 0 {
		PrintVariants(w, r.TopVariants)
	}
	if len(r.TopActivities) > 0 {
		PrintActivities(w, r.TopActivities)
	}
	fmt.Fprintln(w)
}

// PrintConformance prints a conformance summary.
func PrintConformance(w io.Writer, s conformance.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ CONFORMANCE"))
	style := successStyle
	if s.AverageFitness < 1 {
		style = accentStyle
	}
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Fitness:"), style.Render(fmt.Sprintf("%.3f", s.AverageFitness)))
	fmt.Fprintf(w, "  %s %d/%d traces\n", mutedStyle.Render("Fitting:"), s.FittingTraces, s.Traces)
	fmt.Fprintf(w, "  %s %d\n", mutedStyle.Render("Violations:"), s.Violations)
}

// PrintVariants prints a variant frequency table.
func PrintVariants(w io.Writer, variants []mining.VariantCount) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ TOP VARIANTS"))
	for i, v := range variants {
		fmt.Fprintf(w, "  %s %6d %s  %s\n",
			mutedStyle.Render(fmt.Sprintf("%2d.", i+1)),
			v.Count,
			mutedStyle.Render(fmt.Sprintf("(%5.1f%%)", v.Percent)),
			strings.Join(v.Activities, " → "))
	}
}

// PrintActivities prints an activity frequency table.
func PrintActivities(w io.Writer, activities []mining.ActivityCount) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ TOP ACTIVITIES"))
	for _, a := range activities {
		fmt.Fprintf(w, "  %6d %s  %s\n",
			a.Count,
			mutedStyle.Render(fmt.Sprintf("(%5.1f%%)", a.Percent)),
			a.Activity)
	}
}

// PrintViolations prints the deviating traces, at most limit of them
// (all when limit <= 0).
func PrintViolations(w io.Writer, checks []conformance.Result, limit int) {
	shown := 0
	for _, c := range checks {
		if len(c.Violations) == 0 {
			continue
		}
		if limit > 0 && shown == limit {
			fmt.Fprintln(w, mutedStyle.Render("  ..."))
			return
		}
		if shown == 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, accentStyle.Render("▸ DEVIATIONS"))
		}
		fmt.Fprintf(w, "  %s %s\n", titleStyle.Render(c.CaseID), mutedStyle.Render(fmt.Sprintf("fitness %.3f", c.Fitness)))
		for _, v := range c.Violations {
			fmt.Fprintf(w, "    %s %s\n", accentStyle.Render("✗"), v)
		}
		shown++
	}
}

// PrintReportList prints one line per stored report.
func PrintReportList(w io.Writer, reports []*results.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  No reports."))
		return
	}
	for _, r := range reports {
		fitness := "-"
		if r.Conformance != nil {
			fitness = fmt.Sprintf("%.3f", r.Conformance.AverageFitness)
		}
		fmt.Fprintf(w, "  %s  %s  %-9s %s  %s\n",
			codeStyle.Render(r.ID),
			mutedStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			r.Algorithm,
			titleStyle.Render(fitness),
			r.Source)
	}
}

// PrintError prints a failure line.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, accentStyle.Render("  ✗ "+msg))
}

// PrintSuccess prints a success line.
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("  ✓ "+msg))
}

// ShowProgress creates a progress bar writing to w.
func ShowProgress(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
