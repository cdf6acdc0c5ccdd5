package output

import (
	"io"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/github"
)

// GitHubWriter outputs annotations as Actions workflow commands.
type GitHubWriter struct {
	// Max caps the number of annotations; 0 means github.MaxAnnotations.
	Max int
}

func (g *GitHubWriter) Write(w io.Writer, report *gate.Report) error {
	ew := &errWriter{w: w}
	for _, a := range github.Cap(report.Annotations(), g.Max) {
		ew.println(github.Command(a))
	}
	ew.printf("::notice title=Guardrail::%s\n", report.Review.Summary)
	return ew.err
}
