package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/review"
)

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "range mode")
	assert.Contains(t, out, "Range: abc...def")
	assert.Contains(t, out, "❌ lint: FAILED - 2 issues")
	assert.Contains(t, out, "✅ typecheck: PASSED")
	assert.Contains(t, out, "Issues: 2 total (1 error, 1 warning, 0 info)")
	assert.Contains(t, out, "Status: Changes Requested | Quality score: 75.0%")
	assert.Contains(t, out, "❌ 2 gate(s) failed")
	assert.Contains(t, out, "Suggestion: Consider breaking")
	assert.NotContains(t, out, "\x1b[", "no ANSI codes when color is off")

	// issues within a file are listed by line
	assert.Less(t, strings.Index(out, "F401"), strings.Index(out, "E501"))
}

func TestTextWriter_Color(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{Color: true}).Write(&buf, sampleReport()))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestTextWriter_Clean(t *testing.T) {
	report := &gate.Report{
		Inputs: gate.Inputs{Mode: "paths"},
		Gates:  []gate.Result{{Name: "lint", Passed: true}},
		Review: review.NewAggregator(review.DefaultWeights()).Summary(),
	}
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "Issues: 0 total\n")
	assert.Contains(t, out, "✅ All gates passed!")
	assert.Contains(t, out, review.GenericSuggestion)
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrapText("short", 10))
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, sampleReport()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "## 🤖 Guardrail Quality Review"))
	assert.Contains(t, out, "**Status:** Changes Requested")
	assert.Contains(t, out, "<summary>Quality gates (2 failed)</summary>")
	assert.Contains(t, out, "| coverage | :x: failed | 70.00% < 80.00% |")
	assert.Contains(t, out, "| typecheck | :white_check_mark: passed |  |")
}

func TestMdCell(t *testing.T) {
	assert.Equal(t, `a \| b c`, mdCell("a | b\nc"))
}

func TestGitHubWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&GitHubWriter{}).Write(&buf, sampleReport()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "::error file=src/app.py,line=10,endLine=10,col=5,endColumn=6,"))
	assert.True(t, strings.HasPrefix(lines[1], "::warning file=src/app.py,line=3,"))
	assert.True(t, strings.HasPrefix(lines[2], "::notice title=Guardrail::"))

	buf.Reset()
	require.NoError(t, (&GitHubWriter{Max: 1}).Write(&buf, sampleReport()))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
}
