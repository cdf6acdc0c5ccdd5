package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/review"
)

func decodeSARIF(t *testing.T, report *gate.Report) sarifLog {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, (&SARIFWriter{}).Write(&buf, report))
	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	return log
}

func TestSARIFWriter_Empty(t *testing.T) {
	log := decodeSARIF(t, &gate.Report{Tool: gate.ToolName})
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	assert.Empty(t, log.Runs[0].Results)
	assert.NotNil(t, log.Runs[0].Tool.Driver.Rules)
	assert.Nil(t, log.Runs[0].AutomationDetails)
}

func TestSARIFWriter_WithIssuesAndGates(t *testing.T) {
	report := sampleReport()
	report.Issues = append(report.Issues, review.Issue{
		FilePath: "src/other.py", LineNumber: 7, Severity: review.SeverityError,
		Message: "line too long (81 > 79 characters)", RuleID: "E501",
	})

	log := decodeSARIF(t, report)
	run := log.Runs[0]

	assert.Equal(t, gate.ToolName, run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)
	require.NotNil(t, run.AutomationDetails)
	assert.Equal(t, "guardrail/"+report.RunID, run.AutomationDetails.ID)

	// E501 appears twice but is one rule
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "E501", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, "F401", run.Tool.Driver.Rules[1].ID)

	require.Len(t, run.Results, 6)
	first := run.Results[0]
	assert.Equal(t, "error", first.Level)
	assert.Equal(t, 10, first.Locations[0].PhysicalLocation.Region.StartLine)
	assert.Equal(t, 5, first.Locations[0].PhysicalLocation.Region.StartColumn)
	require.Len(t, first.Fixes, 1)

	assert.Equal(t, "warning", run.Results[1].Level)

	gates := run.Results[3:]
	assert.Equal(t, "gate:lint", gates[0].RuleID)
	assert.Equal(t, "error", gates[0].Level)
	assert.Equal(t, "2 issues", gates[0].Message.Text)
	assert.Equal(t, "gate:typecheck", gates[2].RuleID)
	assert.Equal(t, "note", gates[2].Level)
	assert.Equal(t, "typecheck", gates[2].Message.Text)
	assert.Equal(t, gate.Anchor, gates[2].Locations[0].PhysicalLocation.ArtifactLocation.URI)
}

func TestSeverityToLevel(t *testing.T) {
	assert.Equal(t, "error", severityToLevel(review.SeverityError))
	assert.Equal(t, "warning", severityToLevel(review.SeverityWarning))
	assert.Equal(t, "note", severityToLevel(review.SeverityInfo))
	assert.Equal(t, "note", severityToLevel("bogus"))
}
