package coverage

import (
	"fmt"
	"io"
	"strings"
)

// DefaultThreshold is the coverage percentage a report must reach to pass.
const DefaultThreshold = 80.0

// Strategy names recorded in Result.Source.
const (
	SourceLineRate = "line-rate"
	SourceLines    = "lines"
	SourceCounters = "counters"
	SourceNone     = "none"
	SourceTable    = "table"
)

// Result is the verdict for one coverage report.
type Result struct {
	Passed    bool    `json:"passed"`
	Percent   float64 `json:"percent"`
	Threshold float64 `json:"threshold"`
	Source    string  `json:"source"`
}

// Details renders the result the way gate details are printed.
func (r Result) Details() string {
	op := ">="
	if !r.Passed {
		op = "<"
	}
	return fmt.Sprintf("%.2f%% %s %.2f%%", r.Percent, op, r.Threshold)
}

// ParseError reports a coverage document that is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "malformed coverage xml: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Compare reports whether percent meets threshold. The bound is inclusive.
func Compare(percent, threshold float64) bool {
	return percent >= threshold
}

// Evaluate reads an XML coverage report and compares its percentage against
// threshold. A document that cannot be parsed returns a *ParseError.
func Evaluate(r io.Reader, threshold float64) (Result, error) {
	percent, source, err := percentFromXML(r)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Passed:    Compare(percent, threshold),
		Percent:   percent,
		Threshold: threshold,
		Source:    source,
	}, nil
}

// EvaluateString is Evaluate over an in-memory document.
func EvaluateString(doc string, threshold float64) (Result, error) {
	return Evaluate(strings.NewReader(doc), threshold)
}
