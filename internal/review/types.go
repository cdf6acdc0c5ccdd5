package review

import (
	"errors"
	"fmt"
)

// Severity is the canonical severity of a normalized issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AnnotationLevel is the three-tier level used by GitHub check annotations.
type AnnotationLevel string

const (
	LevelNotice  AnnotationLevel = "notice"
	LevelWarning AnnotationLevel = "warning"
	LevelFailure AnnotationLevel = "failure"
)

// Status is the overall decision of one review.
type Status string

const (
	StatusApproved         Status = "approved"
	StatusCommented        Status = "commented"
	StatusChangesRequested Status = "changes_requested"
)

// UnknownRule is stored when no rule identifier can be recovered from a line.
const UnknownRule = "unknown"

// ErrInvalidLine is returned when an issue carries a line number below 1.
var ErrInvalidLine = errors.New("issue line number must be >= 1")

// Issue is one finding from one tool.
type Issue struct {
	FilePath   string   `json:"file_path"`
	LineNumber int      `json:"line_number"`
	Column     int      `json:"column"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	RuleID     string   `json:"rule_id"`
	Suggestion string   `json:"suggestion,omitempty"`
	FixCode    string   `json:"fix_code,omitempty"`
}

// Validate checks the stored-issue invariants.
func (i Issue) Validate() error {
	if i.LineNumber < 1 {
		return fmt.Errorf("%s:%d: %w", i.FilePath, i.LineNumber, ErrInvalidLine)
	}
	if i.Column < 0 {
		return fmt.Errorf("%s:%d: column %d is negative", i.FilePath, i.LineNumber, i.Column)
	}
	return nil
}

// Annotation is a location-anchored review comment in GitHub check format.
type Annotation struct {
	Path        string          `json:"path"`
	StartLine   int             `json:"start_line"`
	EndLine     int             `json:"end_line"`
	StartColumn *int            `json:"start_column,omitempty"`
	EndColumn   *int            `json:"end_column,omitempty"`
	Level       AnnotationLevel `json:"annotation_level"`
	Message     string          `json:"message"`
	Title       string          `json:"title,omitempty"`
}

// SecurityFinding is a security scanner result expressed in scanner vocabulary
// (low, medium, high, critical).
type SecurityFinding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

// String renders the finding the way it is listed in a review summary.
func (f SecurityFinding) String() string {
	return fmt.Sprintf("%s:%d %s (%s): %s", f.File, f.Line, f.Rule, f.Severity, f.Message)
}

// SecurityFindingFromIssue converts a normalized security-scanner issue.
func SecurityFindingFromIssue(i Issue) SecurityFinding {
	sev := "medium"
	switch i.Severity {
	case SeverityError:
		sev = "high"
	case SeverityInfo:
		sev = "low"
	}
	return SecurityFinding{
		File:     i.FilePath,
		Line:     i.LineNumber,
		Column:   i.Column,
		Severity: sev,
		Rule:     i.RuleID,
		Message:  i.Message,
	}
}

// CoverageInfo is the coverage fact attached to a review summary.
type CoverageInfo struct {
	Percent   float64 `json:"percent"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
	Source    string  `json:"source,omitempty"`
}

// ReviewSummary is the terminal artifact of one review.
type ReviewSummary struct {
	OverallStatus  Status        `json:"overall_status"`
	Summary        string        `json:"summary"`
	Annotations    []Annotation  `json:"annotations"`
	Suggestions    []string      `json:"suggestions"`
	QualityScore   float64       `json:"quality_score"`
	Coverage       *CoverageInfo `json:"coverage_info,omitempty"`
	SecurityIssues []string      `json:"security_issues,omitempty"`
}

// SeverityCounts holds issue counts by severity.
type SeverityCounts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Total returns the number of counted issues.
func (c SeverityCounts) Total() int {
	return c.Errors + c.Warnings + c.Infos
}

// CountSeverities counts issues by severity. Unknown severities are not counted.
func CountSeverities(issues []Issue) SeverityCounts {
	var c SeverityCounts
	for _, i := range issues {
		switch i.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		case SeverityInfo:
			c.Infos++
		}
	}
	return c
}

// Weights are the per-severity penalties used by the quality score.
type Weights struct {
	Error   float64 `json:"error" yaml:"error"`
	Warning float64 `json:"warning" yaml:"warning"`
	Info    float64 `json:"info" yaml:"info"`
}

// DefaultWeights reproduces the historical scoring policy.
// An all-error review scores 1.0 under these weights.
func DefaultWeights() Weights {
	return Weights{Error: 0.0, Warning: 0.5, Info: 0.8}
}
