package gate

import (
	"github.com/dshills/guardrail/internal/gitctx"
	"github.com/dshills/guardrail/internal/review"
)

// ToolName is recorded in every report.
const ToolName = "guardrail"

// Result is the outcome of one gate.
type Result struct {
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	Details    string `json:"details,omitempty"`
	Issues     int    `json:"issues"`
	Skipped    bool   `json:"skipped,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Summarize returns 0 when every gate passed and 1 when any gate failed.
func Summarize(results []Result) int {
	if len(Failed(results)) > 0 {
		return 1
	}
	return 0
}

// Failed returns the gates that did not pass, in order.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Inputs records what a check was run against.
type Inputs struct {
	Mode      string   `json:"mode"`
	Base      string   `json:"base,omitempty"`
	Head      string   `json:"head,omitempty"`
	Files     []string `json:"files,omitempty"`
	Threshold float64  `json:"threshold"`
	Gates     []string `json:"gates"`
}

// Timing contains performance metrics.
type Timing struct {
	ToolsMs int64 `json:"toolsMs"`
	TotalMs int64 `json:"totalMs"`
}

// Report is the top-level output structure of one check.
type Report struct {
	Tool    string                `json:"tool"`
	Version string                `json:"version"`
	RunID   string                `json:"runId"`
	Repo    gitctx.RepoMeta       `json:"repo"`
	Inputs  Inputs                `json:"inputs"`
	Gates   []Result              `json:"gates"`
	Issues  []review.Issue        `json:"issues"`
	Counts  review.SeverityCounts `json:"counts"`
	Review  review.ReviewSummary  `json:"review"`
	Timing  Timing                `json:"timing"`
}

// Annotations returns the review annotations of the report.
func (r *Report) Annotations() []review.Annotation {
	return r.Review.Annotations
}

// ExitCode returns Summarize over the report's gates.
func (r *Report) ExitCode() int {
	return Summarize(r.Gates)
}
