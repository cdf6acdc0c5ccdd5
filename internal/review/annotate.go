package review

import (
	"fmt"
	"strings"
	"time"
)

// maxUncoveredNotices caps the per-file "Uncovered Code" notices.
const maxUncoveredNotices = 5

// FromIssue builds the annotation for a normalized issue. Column fields are
// only set when the issue column is known (> 0).
func FromIssue(i Issue) Annotation {
	a := Annotation{
		Path:      i.FilePath,
		StartLine: i.LineNumber,
		EndLine:   i.LineNumber,
		Level:     Classify(i.Severity),
		Message:   IssueMessage(i),
		Title:     fmt.Sprintf("%s: %s", i.RuleID, i.Message),
	}
	if i.Column > 0 {
		start, end := i.Column, i.Column+1
		a.StartColumn = &start
		a.EndColumn = &end
	}
	return a
}

// IssueMessage renders the annotation body for an issue, appending the
// suggestion and fix snippet when present.
func IssueMessage(i Issue) string {
	parts := []string{i.Message}
	if i.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\n💡 **Suggestion:** %s", i.Suggestion))
	}
	if i.FixCode != "" {
		parts = append(parts, fmt.Sprintf("\n🔧 **Fix:**\n```\n%s\n```", i.FixCode))
	}
	return strings.Join(parts, "\n")
}

// FromCoverage builds the coverage-gap annotations for one file: a warning
// anchored at line 1 when percent is below threshold, and a notice for each of
// the first few uncovered lines.
func FromCoverage(path string, percent float64, uncovered []int, threshold float64) []Annotation {
	var out []Annotation
	if percent < threshold {
		out = append(out, Annotation{
			Path:      path,
			StartLine: 1,
			EndLine:   1,
			Level:     LevelWarning,
			Message: fmt.Sprintf("⚠️ **Low Coverage Warning:** This file has %.1f%% test coverage. "+
				"Consider adding tests for uncovered lines.", percent),
			Title: "Low Test Coverage",
		})
	}
	for n, line := range uncovered {
		if n == maxUncoveredNotices {
			break
		}
		out = append(out, Annotation{
			Path:      path,
			StartLine: line,
			EndLine:   line,
			Level:     LevelNotice,
			Message:   "🔍 **Uncovered Line:** This line is not covered by tests. Consider adding a test case.",
			Title:     "Uncovered Code",
		})
	}
	return out
}

// FromCoverageSummary builds the single coverage-analysis annotation for a
// report-level coverage percentage.
func FromCoverageSummary(path string, percent, threshold float64) Annotation {
	level := LevelNotice
	msg := fmt.Sprintf("Coverage: %.1f%%", percent)
	if percent < threshold {
		level = LevelWarning
		msg += fmt.Sprintf(" (below threshold of %.1f%%)", threshold)
	}
	return Annotation{
		Path:      path,
		StartLine: 1,
		EndLine:   1,
		Level:     level,
		Message:   msg,
		Title:     "Coverage Analysis",
	}
}

// FromSecurity builds the annotation for a security finding.
func FromSecurity(f SecurityFinding) Annotation {
	rule := f.Rule
	if rule == "" {
		rule = "Unknown"
	}
	line := anchorLine(f.Line)
	return Annotation{
		Path:      f.File,
		StartLine: line,
		EndLine:   line,
		Level:     securityLevel(f.Severity),
		Message:   fmt.Sprintf("🛡️ **Security Issue (%s):** %s", strings.ToUpper(f.Severity), f.Message),
		Title:     "Security: " + rule,
	}
}

// GateFact is the outcome of one named quality gate.
type GateFact struct {
	Path    string
	Line    int
	Name    string
	Passed  bool
	Details string
}

// FromGate builds the annotation for a quality-gate result.
func FromGate(g GateFact) Annotation {
	status := statusWord(g.Passed)
	msg := fmt.Sprintf("Quality Gate '%s': %s", g.Name, status)
	if g.Details != "" {
		msg += " - " + g.Details
	}
	line := anchorLine(g.Line)
	return Annotation{
		Path:      g.Path,
		StartLine: line,
		EndLine:   line,
		Level:     passLevel(g.Passed),
		Message:   msg,
		Title:     "Quality Gate: " + g.Name,
	}
}

// PerformanceFact is one timing measurement compared against its budget.
type PerformanceFact struct {
	Path      string
	Line      int
	Function  string
	Elapsed   time.Duration
	Threshold time.Duration
}

// Passed reports whether the measurement stayed under its threshold.
func (p PerformanceFact) Passed() bool {
	return p.Elapsed < p.Threshold
}

// FromPerformance builds the annotation for a performance measurement.
func FromPerformance(p PerformanceFact) Annotation {
	line := anchorLine(p.Line)
	return Annotation{
		Path:      p.Path,
		StartLine: line,
		EndLine:   line,
		Level:     passLevel(p.Passed()),
		Message: fmt.Sprintf("Performance: %s took %.3fs (threshold: %gs)",
			p.Function, p.Elapsed.Seconds(), p.Threshold.Seconds()),
		Title: "Performance: " + p.Function,
	}
}

// TestFact is the result of one test case.
type TestFact struct {
	Path     string
	Line     int
	Name     string
	Passed   bool
	Duration time.Duration
	Error    string
}

// FromTest builds the annotation for a test result.
func FromTest(t TestFact) Annotation {
	msg := fmt.Sprintf("Test '%s': %s (%.3fs)", t.Name, statusWord(t.Passed), t.Duration.Seconds())
	if t.Error != "" {
		msg += "\nError: " + t.Error
	}
	line := anchorLine(t.Line)
	return Annotation{
		Path:      t.Path,
		StartLine: line,
		EndLine:   line,
		Level:     passLevel(t.Passed),
		Message:   msg,
		Title:     "Test: " + t.Name,
	}
}

func statusWord(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

// anchorLine keeps annotations on a real line; facts without a location
// attach to the first line of their file.
func anchorLine(line int) int {
	if line < 1 {
		return 1
	}
	return line
}
