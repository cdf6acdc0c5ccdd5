package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/review"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *gate.Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{Color: !color.NoColor}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "github":
		return &GitHubWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *gate.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// WriteAnnotationsFile writes anns as a JSON array to path. A failure is
// logged and reported as false.
func WriteAnnotationsFile(log logrus.FieldLogger, path string, anns []review.Annotation) bool {
	if anns == nil {
		anns = []review.Annotation{}
	}
	if err := writeJSONFile(path, anns); err != nil {
		log.WithError(err).WithField("path", path).Error("failed to write annotations file")
		return false
	}
	return true
}

// SaveAnnotations writes the JSON envelope of report to path.
func SaveAnnotations(path string, report *gate.Report) error {
	if err := writeJSONFile(path, NewEnvelope(report)); err != nil {
		return fmt.Errorf("saving annotations: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
