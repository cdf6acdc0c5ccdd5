package review

import "strings"

// GenericSuggestion is emitted when no issue pattern matches.
const GenericSuggestion = "Great job! Keep up the good code quality practices."

// ruleSuggestions are matched against the rule IDs of error-severity issues.
var ruleSuggestions = []struct {
	rule string
	text string
}{
	{"e501", "Consider using a line length formatter like `black` or `autopep8`"},
	{"f401", "Run `isort` to organize imports and remove unused ones"},
	{"f841", "Use underscore prefix for intentionally unused variables (e.g., `_unused`)"},
}

// Suggest derives review-level suggestions from the issues present.
func Suggest(issues []Issue) []string {
	errorRules := make(map[string]bool)
	errorCount := 0
	for _, i := range issues {
		if i.Severity != SeverityError {
			continue
		}
		errorCount++
		errorRules[bareRule(i.RuleID)] = true
	}

	var out []string
	for _, rs := range ruleSuggestions {
		if errorRules[rs.rule] {
			out = append(out, rs.text)
		}
	}
	if errorCount > 5 {
		out = append(out, "Consider running `black` to automatically format your code")
	}
	if len(out) == 0 {
		out = append(out, GenericSuggestion)
	}
	return out
}

// bareRule lower-cases a rule ID and drops a "tool:" prefix.
func bareRule(rule string) string {
	rule = strings.ToLower(rule)
	if i := strings.LastIndex(rule, ":"); i >= 0 {
		rule = rule[i+1:]
	}
	return rule
}
