package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules represents a rules pack loaded from --rules.
type Rules struct {
	SeverityOverrides map[string]Severity `json:"severityOverrides,omitempty" yaml:"severityOverrides,omitempty"`
	Ignore            []string            `json:"ignore,omitempty" yaml:"ignore,omitempty"`
	Suggestions       map[string]string   `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// LoadRules loads a rules file from disk. Files ending in .yml or .yaml are
// parsed as YAML, anything else as JSON. Returns nil Rules and nil error if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &rules)
	default:
		err = json.Unmarshal(data, &rules)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	for rule, sev := range rules.SeverityOverrides {
		if SeverityRank(sev) == 0 {
			return nil, fmt.Errorf("rules file: severity %q for %s must be error, warning or info", sev, rule)
		}
	}
	return &rules, nil
}

// ApplyRules returns a copy of issues with ignored rules dropped and severity
// and suggestion overrides applied. Rule IDs match case-insensitively, with or
// without a "tool:" prefix.
func ApplyRules(issues []Issue, rules *Rules) []Issue {
	if rules == nil {
		return issues
	}
	ignore := make(map[string]bool, len(rules.Ignore))
	for _, r := range rules.Ignore {
		ignore[bareRule(r)] = true
	}
	severities := make(map[string]Severity, len(rules.SeverityOverrides))
	for r, s := range rules.SeverityOverrides {
		severities[bareRule(r)] = s
	}
	suggestions := make(map[string]string, len(rules.Suggestions))
	for r, s := range rules.Suggestions {
		suggestions[bareRule(r)] = s
	}

	out := make([]Issue, 0, len(issues))
	for _, i := range issues {
		key := bareRule(i.RuleID)
		if ignore[key] {
			continue
		}
		if sev, ok := severities[key]; ok {
			i.Severity = sev
		}
		if text, ok := suggestions[key]; ok {
			i.Suggestion = text
		}
		out = append(out, i)
	}
	return out
}
