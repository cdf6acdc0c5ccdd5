package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderComment_Approved(t *testing.T) {
	s := NewAggregator(DefaultWeights()).Summary()
	out := RenderComment(s)

	assert.True(t, strings.HasPrefix(out, "## 🤖 Guardrail Quality Review\n"))
	assert.Contains(t, out, "**Status:** Approved")
	assert.Contains(t, out, "**Quality Score:** 100.0%")
	assert.Contains(t, out, "✅ All quality checks passed!")
	assert.NotContains(t, out, "Issues Found")
	assert.True(t, strings.HasSuffix(out, "*This review was automatically generated by Guardrail*"))
}

func TestRenderComment_TruncatesPerFile(t *testing.T) {
	a := NewAggregator(DefaultWeights())
	for line := 1; line <= 5; line++ {
		_ = a.AddIssue(Issue{FilePath: "b.py", LineNumber: line, Severity: SeverityError, Message: "m", RuleID: "E1"})
	}
	_ = a.AddIssue(Issue{FilePath: "a.py", LineNumber: 9, Severity: SeverityWarning, Message: "w", RuleID: "W1"})

	out := RenderComment(a.Summary())

	assert.Contains(t, out, "**Status:** Changes Requested")
	assert.Contains(t, out, "Total annotations: 6")
	assert.Contains(t, out, "- ❌ Line 3: E1: m")
	assert.NotContains(t, out, "Line 4: E1")
	assert.Contains(t, out, "- ... and 2 more issues")
	assert.Less(t, strings.Index(out, "**a.py:**"), strings.Index(out, "**b.py:**"))
	assert.Contains(t, out, "- ⚠️ Line 9: W1: w")
}

func TestRenderComment_Coverage(t *testing.T) {
	s := ReviewSummary{
		OverallStatus: StatusCommented,
		Summary:       "ℹ️ 1 info",
		QualityScore:  0.2,
		Coverage:      &CoverageInfo{Percent: 72.5, Threshold: 80},
	}
	out := RenderComment(s)
	assert.Contains(t, out, "❌ Coverage: 72.5% (threshold 80.0%)")
	assert.Contains(t, out, "**Quality Score:** 20.0%")
}

func TestGroupByFile(t *testing.T) {
	anns := []Annotation{
		{Path: "z.py", StartLine: 2},
		{Path: "a.py", StartLine: 7},
		{Path: "z.py", StartLine: 1},
	}
	paths, byFile := GroupByFile(anns)
	assert.Equal(t, []string{"a.py", "z.py"}, paths)
	assert.Equal(t, 2, byFile["z.py"][0].StartLine)
	assert.Equal(t, 1, byFile["z.py"][1].StartLine)
}

func TestStatusTitle(t *testing.T) {
	assert.Equal(t, "Changes Requested", StatusTitle(StatusChangesRequested))
	assert.Equal(t, "Commented", StatusTitle(StatusCommented))
}
