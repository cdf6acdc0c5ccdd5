package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/guardrail/internal/review"
)

// SecurityScanRule is assigned to legacy one-line findings that carry no rule.
const SecurityScanRule = "security_scan"

var (
	// path:line[:col]: Bnnn: message
	securityLine = regexp.MustCompile(`^(.+?):([0-9]+):(?:([0-9]+):)?\s*(B[0-9]+):\s*(.*)$`)

	// >> Issue: [Bnnn:test_name] message
	blockIssue    = regexp.MustCompile(`^>>\s*Issue:\s*\[(B[0-9]+)(?::[^\]]*)?\]\s*(.*)$`)
	blockSeverity = regexp.MustCompile(`^Severity:\s*([A-Za-z]+)`)
	blockLocation = regexp.MustCompile(`^Location:\s*(.+?):([0-9]+)(?::([0-9]+))?:?\s*$`)

	// >> Issue: path:line: message
	legacyIssue = regexp.MustCompile(`^>>\s*Issue:\s*(.+?):([0-9]+):\s*(.*)$`)
)

// ParseSecurity parses bandit-style text output. The canonical form is one
// finding per line:
//
//	path:line:col: Bnnn: message
//
// B1xx rules are errors and every other rule is a warning. Bandit's default
// multi-line report is read as a fallback: a ">> Issue: [Bnnn:name] message"
// line is completed by the "Severity:" and "Location:" lines that follow it.
// The one-line ">> Issue: path:line: message" form yields rule security_scan
// at warning severity. Anything else is skipped.
func ParseSecurity(s string) []review.Issue {
	issues := []review.Issue{}
	var pending *review.Issue

	for _, line := range lines(s) {
		if m := securityLine.FindStringSubmatch(line); m != nil && !strings.HasPrefix(line, ">>") {
			pending = nil
			num, ok := lineNumber(m[2])
			if !ok {
				continue
			}
			col, _ := strconv.Atoi(m[3])
			issues = append(issues, review.Issue{
				FilePath:   cleanPath(m[1]),
				LineNumber: num,
				Column:     col,
				Severity:   ruleSeverity(m[4]),
				Message:    strings.TrimSpace(m[5]),
				RuleID:     m[4],
			})
			continue
		}

		if m := blockIssue.FindStringSubmatch(line); m != nil {
			pending = &review.Issue{
				Severity: ruleSeverity(m[1]),
				Message:  strings.TrimSpace(m[2]),
				RuleID:   m[1],
			}
			continue
		}

		if m := legacyIssue.FindStringSubmatch(line); m != nil {
			pending = nil
			num, ok := lineNumber(m[2])
			if !ok {
				continue
			}
			issues = append(issues, review.Issue{
				FilePath:   cleanPath(m[1]),
				LineNumber: num,
				Severity:   review.SeverityWarning,
				Message:    strings.TrimSpace(m[3]),
				RuleID:     SecurityScanRule,
			})
			continue
		}

		if pending == nil {
			continue
		}
		if m := blockSeverity.FindStringSubmatch(line); m != nil {
			if sev, ok := scannerSeverity(m[1]); ok {
				pending.Severity = sev
			}
			continue
		}
		if m := blockLocation.FindStringSubmatch(line); m != nil {
			issue := *pending
			pending = nil
			num, ok := lineNumber(m[2])
			if !ok {
				continue
			}
			issue.FilePath = cleanPath(m[1])
			issue.LineNumber = num
			issue.Column, _ = strconv.Atoi(m[3])
			issues = append(issues, issue)
		}
	}
	return issues
}

// ruleSeverity maps a bandit rule number to a severity.
func ruleSeverity(rule string) review.Severity {
	if strings.HasPrefix(rule, "B1") {
		return review.SeverityError
	}
	return review.SeverityWarning
}

// scannerSeverity maps scanner vocabulary (LOW/MEDIUM/HIGH) to a severity.
func scannerSeverity(s string) (review.Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH", "CRITICAL":
		return review.SeverityError, true
	case "MEDIUM":
		return review.SeverityWarning, true
	case "LOW":
		return review.SeverityInfo, true
	default:
		return "", false
	}
}
