package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	// Color enables ANSI colors.
	Color bool
}

func (t *TextWriter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (t *TextWriter) Write(w io.Writer, report *gate.Report) error {
	ew := &errWriter{w: w}
	bold := t.paint(color.Bold)
	green := t.paint(color.FgGreen)
	red := t.paint(color.FgRed, color.Bold)

	ew.println(bold.Sprintf("Guardrail Quality Gates — %s mode", report.Inputs.Mode))
	if report.Inputs.Base != "" || report.Inputs.Head != "" {
		ew.printf("Range: %s...%s\n", report.Inputs.Base, report.Inputs.Head)
	}
	if report.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	}
	ew.println(strings.Repeat("─", 60))

	for _, g := range report.Gates {
		mark, status := green.Sprint("✅"), green.Sprint("PASSED")
		if !g.Passed {
			mark, status = red.Sprint("❌"), red.Sprint("FAILED")
		}
		line := fmt.Sprintf("%s %s: %s", mark, g.Name, status)
		if g.Details != "" {
			line += " - " + g.Details
		}
		if g.Cached {
			line += " (cached)"
		}
		ew.println(line)
	}
	ew.println(strings.Repeat("─", 60))

	c := report.Counts
	ew.printf("Issues: %d total", len(report.Issues))
	if c.Total() > 0 {
		ew.printf(" (%d error, %d warning, %d info)", c.Errors, c.Warnings, c.Infos)
	}
	ew.println("")

	grouped, paths := groupIssuesByFile(report.Issues)
	for _, path := range paths {
		ew.printf("\n%s\n", bold.Sprint(path))
		for _, i := range grouped[path] {
			loc := fmt.Sprintf("%d", i.LineNumber)
			if i.Column > 0 {
				loc = fmt.Sprintf("%d:%d", i.LineNumber, i.Column)
			}
			sev := t.severityColor(i.Severity).Sprintf("%-7s", i.Severity)
			ew.printf("  %-8s %s %-8s %s\n", loc, sev, i.RuleID, i.Message)
			if i.Suggestion != "" {
				for _, line := range wrapText("Suggestion: "+i.Suggestion, 66) {
					ew.printf("           %s\n", line)
				}
			}
		}
	}

	if len(report.Review.SecurityIssues) > 0 {
		ew.printf("\n%s\n", bold.Sprint("Security findings"))
		for _, s := range report.Review.SecurityIssues {
			ew.printf("  %s\n", s)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Status: %s | Quality score: %.1f%%\n",
		bold.Sprint(review.StatusTitle(report.Review.OverallStatus)), report.Review.QualityScore*100)
	ew.println(report.Review.Summary)
	if len(report.Review.Suggestions) > 0 {
		ew.println("Suggestions:")
		for _, s := range report.Review.Suggestions {
			ew.printf("  - %s\n", s)
		}
	}

	if failed := len(gate.Failed(report.Gates)); failed > 0 {
		ew.println(red.Sprintf("❌ %d gate(s) failed", failed))
	} else {
		ew.println(green.Sprint("✅ All gates passed!"))
	}
	ew.printf("Completed in %dms (tools: %dms)\n", report.Timing.TotalMs, report.Timing.ToolsMs)

	return ew.err
}

func (t *TextWriter) severityColor(s review.Severity) *color.Color {
	switch s {
	case review.SeverityError:
		return t.paint(color.FgRed)
	case review.SeverityWarning:
		return t.paint(color.FgYellow)
	default:
		return t.paint(color.FgCyan)
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// groupIssuesByFile groups issues by path, sorted by line within a file.
func groupIssuesByFile(issues []review.Issue) (map[string][]review.Issue, []string) {
	m := make(map[string][]review.Issue)
	for _, i := range issues {
		m[i.FilePath] = append(m[i.FilePath], i)
	}
	paths := make([]string, 0, len(m))
	for p, list := range m {
		paths = append(paths, p)
		sort.SliceStable(list, func(a, b int) bool {
			return list[a].LineNumber < list[b].LineNumber
		})
	}
	sort.Strings(paths)
	return m, paths
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
