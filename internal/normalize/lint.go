package normalize

import (
	"regexp"
	"strings"

	"github.com/dshills/guardrail/internal/review"
)

// ruleToken matches a pycodestyle/pyflakes rule such as E501, W291, F401 or
// I100. Plugin codes (C901, N802) are not rule tokens.
var ruleToken = regexp.MustCompile(`^[EWFI][0-9]+$`)

// lintSuggestions are attached to lint issues whose rule contains the key.
var lintSuggestions = []struct {
	rule string
	text string
}{
	{"e501", "Consider breaking this long line into multiple lines"},
	{"e302", "Add two blank lines before class definition"},
	{"e303", "Remove extra blank lines"},
	{"f401", "Remove unused import or add 'noqa: F401' comment"},
	{"f841", "Remove unused variable or use underscore prefix"},
	{"w291", "Remove trailing whitespace"},
	{"w292", "Add newline at end of file"},
	{"w293", "Remove trailing whitespace on blank line"},
}

// ParseLint parses flake8-style output:
//
//	path:line[:col]: RULE message
//
// The severity follows the first letter of the rule: E is an error, I is
// info, everything else is a warning. Lines without a rule token keep the
// rule "unknown" and their whole message.
func ParseLint(s string) []review.Issue {
	issues := []review.Issue{}
	for _, line := range lines(s) {
		if issue, ok := parseLintLine(line); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

func parseLintLine(line string) (review.Issue, bool) {
	parts := strings.Split(line, ":")
	if len(parts) < 3 {
		return review.Issue{}, false
	}
	num, ok := lineNumber(parts[1])
	if !ok {
		return review.Issue{}, false
	}

	col := 0
	rest := parts[2:]
	if isDigits(parts[2]) {
		col, _ = lineNumber(parts[2])
		rest = parts[3:]
	}
	message := strings.TrimSpace(strings.Join(rest, ":"))
	if message == "" {
		return review.Issue{}, false
	}

	rule := review.UnknownRule
	if fields := strings.Fields(message); len(fields) > 0 {
		token := strings.TrimSuffix(fields[0], ":")
		if ruleToken.MatchString(token) {
			rule = token
			message = strings.TrimLeft(strings.TrimPrefix(message, fields[0]), ": ")
		}
	}

	return review.Issue{
		FilePath:   cleanPath(parts[0]),
		LineNumber: num,
		Column:     col,
		Severity:   lintSeverity(rule),
		Message:    message,
		RuleID:     rule,
		Suggestion: LintSuggestion(rule),
	}, true
}

func lintSeverity(rule string) review.Severity {
	switch {
	case strings.HasPrefix(rule, "E"):
		return review.SeverityError
	case strings.HasPrefix(rule, "I"):
		return review.SeverityInfo
	default:
		return review.SeverityWarning
	}
}

// LintSuggestion returns the fix hint for a lint rule, or "" when there is none.
func LintSuggestion(rule string) string {
	rule = strings.ToLower(rule)
	for _, s := range lintSuggestions {
		if strings.Contains(rule, s.rule) {
			return s.text
		}
	}
	return ""
}
