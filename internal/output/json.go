package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/review"
)

// Envelope is the JSON document written for a report.
type Envelope struct {
	Tool        string              `json:"tool"`
	Version     string              `json:"version,omitempty"`
	RunID       string              `json:"run_id"`
	Gates       []gate.Result       `json:"gates"`
	Annotations []review.Annotation `json:"annotations"`
	Issues      []review.Issue      `json:"issues"`
	Summary     EnvelopeSummary     `json:"summary"`
	Timing      gate.Timing         `json:"timing"`
}

// EnvelopeSummary is the review decision inside an Envelope.
type EnvelopeSummary struct {
	OverallStatus  review.Status        `json:"overall_status"`
	Summary        string               `json:"summary"`
	QualityScore   float64              `json:"quality_score"`
	Suggestions    []string             `json:"suggestions"`
	Coverage       *review.CoverageInfo `json:"coverage_info,omitempty"`
	SecurityIssues []string             `json:"security_issues,omitempty"`
}

// NewEnvelope builds the envelope for a report. Slices are never nil so they
// encode as [].
func NewEnvelope(r *gate.Report) Envelope {
	env := Envelope{
		Tool:        r.Tool,
		Version:     r.Version,
		RunID:       r.RunID,
		Gates:       r.Gates,
		Annotations: r.Review.Annotations,
		Issues:      r.Issues,
		Summary: EnvelopeSummary{
			OverallStatus:  r.Review.OverallStatus,
			Summary:        r.Review.Summary,
			QualityScore:   r.Review.QualityScore,
			Suggestions:    r.Review.Suggestions,
			Coverage:       r.Review.Coverage,
			SecurityIssues: r.Review.SecurityIssues,
		},
		Timing: r.Timing,
	}
	if env.Gates == nil {
		env.Gates = []gate.Result{}
	}
	if env.Annotations == nil {
		env.Annotations = []review.Annotation{}
	}
	if env.Issues == nil {
		env.Issues = []review.Issue{}
	}
	if env.Summary.Suggestions == nil {
		env.Summary.Suggestions = []string{}
	}
	return env
}

// JSONWriter outputs the report envelope as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *gate.Report) error {
	data, err := json.MarshalIndent(NewEnvelope(report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
