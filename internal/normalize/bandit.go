package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dshills/guardrail/internal/review"
)

// BanditFallbackRule is used for JSON results without a test_id.
const BanditFallbackRule = "bandit-issue"

type banditReport struct {
	Results []banditResult `json:"results"`
}

type banditResult struct {
	Filename        string `json:"filename"`
	LineNumber      int    `json:"line_number"`
	ColOffset       int    `json:"col_offset"`
	TestID          string `json:"test_id"`
	TestName        string `json:"test_name"`
	IssueText       string `json:"issue_text"`
	IssueSeverity   string `json:"issue_severity"`
	IssueConfidence string `json:"issue_confidence"`
	MoreInfo        string `json:"more_info"`
}

// ParseBanditJSON parses the report written by `bandit -f json`. Empty input
// yields no issues; a JSON syntax error is returned. Results without a
// positive line number are skipped.
func ParseBanditJSON(data []byte) ([]review.Issue, error) {
	issues := []review.Issue{}
	if len(bytes.TrimSpace(data)) == 0 {
		return issues, nil
	}

	var report banditReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing bandit json: %w", err)
	}

	for _, r := range report.Results {
		if r.LineNumber < 1 {
			continue
		}
		rule := r.TestID
		if rule == "" {
			rule = BanditFallbackRule
		}
		sev, ok := scannerSeverity(r.IssueSeverity)
		if !ok {
			sev = review.SeverityInfo
		}
		msg := r.IssueText
		if msg == "" {
			msg = "Bandit issue"
		}
		issue := review.Issue{
			FilePath:   cleanPath(r.Filename),
			LineNumber: r.LineNumber,
			Severity:   sev,
			Message:    msg,
			RuleID:     rule,
		}
		// bandit columns are zero-based
		if r.ColOffset >= 0 {
			issue.Column = r.ColOffset + 1
		}
		if r.MoreInfo != "" {
			issue.Suggestion = "See " + r.MoreInfo
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// SecurityFindings converts security-scanner issues to findings in scanner
// vocabulary.
func SecurityFindings(issues []review.Issue) []review.SecurityFinding {
	out := make([]review.SecurityFinding, 0, len(issues))
	for _, i := range issues {
		out = append(out, review.SecurityFindingFromIssue(i))
	}
	return out
}

// HasBlocking reports whether any issue is error severity.
func HasBlocking(issues []review.Issue) bool {
	for _, i := range issues {
		if i.Severity == review.SeverityError {
			return true
		}
	}
	return false
}
