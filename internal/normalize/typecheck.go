package normalize

import (
	"regexp"

	"github.com/dshills/guardrail/internal/review"
)

// TypeCheckRule is the rule assigned to type-checker errors without a code.
const TypeCheckRule = "mypy"

var (
	typeCheckLine = regexp.MustCompile(`^(.+?):([0-9]+):(?:[0-9]+:)?\s*error:\s*(.*)$`)
	typeCheckCode = regexp.MustCompile(`^(.*?)\s*\[([A-Za-z0-9_-]+)\]$`)
)

// ParseTypeCheck parses mypy-style output. Only error lines are kept; note
// and warning lines are ignored. A trailing "[code]" becomes the rule
// "mypy:code".
func ParseTypeCheck(s string) []review.Issue {
	issues := []review.Issue{}
	for _, line := range lines(s) {
		m := typeCheckLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		num, ok := lineNumber(m[2])
		if !ok {
			continue
		}
		message, rule := m[3], TypeCheckRule
		if c := typeCheckCode.FindStringSubmatch(message); c != nil {
			message, rule = c[1], TypeCheckRule+":"+c[2]
		}
		issues = append(issues, review.Issue{
			FilePath:   cleanPath(m[1]),
			LineNumber: num,
			Severity:   review.SeverityError,
			Message:    message,
			RuleID:     rule,
		})
	}
	return issues
}
