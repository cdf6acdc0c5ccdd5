package output

import (
	"io"
	"strings"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/review"
)

// MarkdownWriter outputs the review comment followed by a gate table.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *gate.Report) error {
	ew := &errWriter{w: w}
	ew.println(review.RenderComment(report.Review))

	if len(report.Gates) == 0 {
		return ew.err
	}
	ew.println("")
	ew.println("<details>")
	ew.printf("<summary>Quality gates (%d failed)</summary>\n\n", len(gate.Failed(report.Gates)))
	ew.println("| Gate | Status | Details |")
	ew.println("|------|--------|---------|")
	for _, g := range report.Gates {
		status := ":white_check_mark: passed"
		if !g.Passed {
			status = ":x: failed"
		}
		ew.printf("| %s | %s | %s |\n", g.Name, status, mdCell(g.Details))
	}
	ew.println("")
	ew.println("</details>")
	return ew.err
}

// mdCell escapes text for a markdown table cell.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
