package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/review"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"
)

// SARIFWriter outputs issues and gate results in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *gate.Report) error {
	data, err := json.MarshalIndent(buildSARIF(report), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool          `json:"tool"`
	AutomationDetails *sarifAutomationID `json:"automationDetails,omitempty"`
	Results           []sarifResult      `json:"results"`
}

type sarifAutomationID struct {
	ID string `json:"id"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func location(path string, line, col int) []sarifLocation {
	return []sarifLocation{{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: path},
			Region:           sarifRegion{StartLine: line, StartColumn: col},
		},
	}}
}

func buildSARIF(report *gate.Report) sarifLog {
	var rules []sarifRule
	seen := make(map[string]bool)
	results := []sarifResult{}

	for _, i := range report.Issues {
		level := severityToLevel(i.Severity)
		if !seen[i.RuleID] {
			seen[i.RuleID] = true
			rules = append(rules, sarifRule{
				ID:               i.RuleID,
				ShortDescription: sarifMessage{Text: i.Message},
				DefaultConfig:    sarifDefaultConfig{Level: level},
			})
		}
		result := sarifResult{
			RuleID:    i.RuleID,
			Level:     level,
			Message:   sarifMessage{Text: i.Message},
			Locations: location(i.FilePath, i.LineNumber, i.Column),
		}
		if i.Suggestion != "" {
			result.Fixes = append(result.Fixes, sarifFix{Description: sarifMessage{Text: i.Suggestion}})
		}
		results = append(results, result)
	}

	for _, g := range report.Gates {
		level := "note"
		if !g.Passed {
			level = "error"
		}
		msg := g.Details
		if msg == "" {
			msg = g.Name
		}
		results = append(results, sarifResult{
			RuleID:    "gate:" + g.Name,
			Level:     level,
			Message:   sarifMessage{Text: msg},
			Locations: location(gate.Anchor, 1, 0),
		})
	}

	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:           report.Tool,
				Version:        report.Version,
				InformationURI: "https://github.com/dshills/guardrail",
				Rules:          rules,
			},
		},
		Results: results,
	}
	if run.Tool.Driver.Rules == nil {
		run.Tool.Driver.Rules = []sarifRule{}
	}
	if report.RunID != "" {
		run.AutomationDetails = &sarifAutomationID{ID: report.Tool + "/" + report.RunID}
	}

	return sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs:    []sarifRun{run},
	}
}

// severityToLevel maps an issue severity to a SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "error"
	case review.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
