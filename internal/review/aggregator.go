package review

import (
	"errors"
	"fmt"
	"strings"
)

// Aggregator accumulates the issues and annotations of exactly one review run
// and derives the review decision from them. It is not safe for concurrent use.
type Aggregator struct {
	weights     Weights
	issues      []Issue
	annotations []Annotation
	coverage    *CoverageInfo
	security    []SecurityFinding
}

// NewAggregator creates an empty aggregator scoring with the given weights.
func NewAggregator(w Weights) *Aggregator {
	return &Aggregator{weights: w}
}

// AddIssue stores an issue and its annotation. Issues with a line number
// below 1 are rejected with ErrInvalidLine.
func (a *Aggregator) AddIssue(i Issue) error {
	if err := i.Validate(); err != nil {
		return err
	}
	if i.RuleID == "" {
		i.RuleID = UnknownRule
	}
	a.issues = append(a.issues, i)
	a.annotations = append(a.annotations, FromIssue(i))
	return nil
}

// AddIssues stores every valid issue and returns the joined errors of the
// rejected ones.
func (a *Aggregator) AddIssues(issues []Issue) error {
	var errs []error
	for _, i := range issues {
		if err := a.AddIssue(i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AddAnnotation appends a prebuilt annotation (gate, performance or test fact).
func (a *Aggregator) AddAnnotation(ann Annotation) {
	a.annotations = append(a.annotations, ann)
}

// AddCoverage appends the coverage-gap annotations for one file.
func (a *Aggregator) AddCoverage(path string, percent float64, uncovered []int, threshold float64) {
	a.annotations = append(a.annotations, FromCoverage(path, percent, uncovered, threshold)...)
}

// SetCoverage records the overall coverage verdict for the summary.
func (a *Aggregator) SetCoverage(info CoverageInfo) {
	a.coverage = &info
}

// AddSecurity records security findings and appends their annotations.
// Security findings are listed in the summary but do not change severity counts.
func (a *Aggregator) AddSecurity(findings ...SecurityFinding) {
	for _, f := range findings {
		a.security = append(a.security, f)
		a.annotations = append(a.annotations, FromSecurity(f))
	}
}

// Issues returns a copy of the stored issues in insertion order.
func (a *Aggregator) Issues() []Issue {
	return append([]Issue(nil), a.issues...)
}

// Annotations returns a copy of the stored annotations in insertion order.
func (a *Aggregator) Annotations() []Annotation {
	return append([]Annotation(nil), a.annotations...)
}

// SecurityFindings returns a copy of the recorded security findings.
func (a *Aggregator) SecurityFindings() []SecurityFinding {
	return append([]SecurityFinding(nil), a.security...)
}

// Counts returns the issue counts by severity.
func (a *Aggregator) Counts() SeverityCounts {
	return CountSeverities(a.issues)
}

// Status returns the overall review status.
func (a *Aggregator) Status() Status {
	return StatusFor(a.Counts())
}

// QualityScore returns the severity-weighted quality score in [0,1].
func (a *Aggregator) QualityScore() float64 {
	return Score(a.Counts(), len(a.issues), a.weights)
}

// SummaryLine returns the pipe-joined count line.
func (a *Aggregator) SummaryLine() string {
	return SummaryLine(a.Counts())
}

// Suggestions returns the improvement suggestions for the current issues.
func (a *Aggregator) Suggestions() []string {
	return Suggest(a.issues)
}

// Summary computes the review summary. It is recomputed on every call and
// does not modify the aggregator.
func (a *Aggregator) Summary() ReviewSummary {
	s := ReviewSummary{
		OverallStatus: a.Status(),
		Summary:       a.SummaryLine(),
		Annotations:   a.Annotations(),
		Suggestions:   a.Suggestions(),
		QualityScore:  a.QualityScore(),
	}
	if a.coverage != nil {
		c := *a.coverage
		s.Coverage = &c
	}
	for _, f := range a.security {
		s.SecurityIssues = append(s.SecurityIssues, f.String())
	}
	return s
}

// Reset drops all accumulated state.
func (a *Aggregator) Reset() {
	a.issues = nil
	a.annotations = nil
	a.coverage = nil
	a.security = nil
}

// StatusFor applies the status rules in priority order: any error, more than
// five warnings, any warning or info, otherwise approved.
func StatusFor(c SeverityCounts) Status {
	switch {
	case c.Errors > 0:
		return StatusChangesRequested
	case c.Warnings > 5:
		return StatusChangesRequested
	case c.Warnings > 0 || c.Infos > 0:
		return StatusCommented
	default:
		return StatusApproved
	}
}

// Score computes 1 - weighted/total clamped to [0,1]; total counts every
// stored issue, including ones with an unrecognized severity.
func Score(c SeverityCounts, total int, w Weights) float64 {
	if total == 0 {
		return 1.0
	}
	weighted := float64(c.Errors)*w.Error + float64(c.Warnings)*w.Warning + float64(c.Infos)*w.Info
	score := 1.0 - weighted/float64(total)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// SummaryLine renders counts as e.g. "❌ 2 errors | ⚠️ 3 warnings".
func SummaryLine(c SeverityCounts) string {
	var parts []string
	if c.Errors > 0 {
		parts = append(parts, fmt.Sprintf("❌ %d error%s", c.Errors, plural(c.Errors)))
	}
	if c.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("⚠️ %d warning%s", c.Warnings, plural(c.Warnings)))
	}
	if c.Infos > 0 {
		parts = append(parts, fmt.Sprintf("ℹ️ %d info", c.Infos))
	}
	if len(parts) == 0 {
		return "✅ All quality checks passed!"
	}
	return strings.Join(parts, " | ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
