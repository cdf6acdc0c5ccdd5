package normalize

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dshills/guardrail/internal/review"
)

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	File      string        `xml:"file,attr"`
	Line      int           `xml:"line,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure"`
	Error     *junitProblem `xml:"error"`
	Skipped   *struct{}     `xml:"skipped"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// ParseJUnit reads a JUnit XML report such as `pytest --junitxml` writes and
// returns one fact per executed test case, in document order. Skipped cases
// are left out. Empty input yields no facts.
//
// pytest writes 0-based line numbers; they are shifted to 1-based. Cases
// without a file attribute are placed at the module path derived from their
// class name.
func ParseJUnit(data []byte) ([]review.TestFact, error) {
	facts := []review.TestFact{}
	if len(bytes.TrimSpace(data)) == 0 {
		return facts, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing junit xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "testcase" {
			continue
		}
		var c junitCase
		if err := dec.DecodeElement(&c, &start); err != nil {
			return nil, fmt.Errorf("parsing junit xml: %w", err)
		}
		if c.Skipped != nil {
			continue
		}
		facts = append(facts, c.fact())
	}
	return facts, nil
}

func (c junitCase) fact() review.TestFact {
	f := review.TestFact{
		Path:   c.path(),
		Line:   c.Line + 1,
		Name:   c.Name,
		Passed: c.Failure == nil && c.Error == nil,
	}
	if c.Time > 0 && !math.IsInf(c.Time, 0) {
		f.Duration = time.Duration(c.Time * float64(time.Second))
	}
	for _, p := range []*junitProblem{c.Failure, c.Error} {
		if p != nil {
			f.Error = p.summary()
			break
		}
	}
	return f
}

func (c junitCase) path() string {
	if c.File != "" {
		return c.File
	}
	if c.ClassName == "" {
		return ""
	}
	// tests.test_app.TestApp: drop trailing class segments.
	parts := strings.Split(c.ClassName, ".")
	for len(parts) > 1 && isUpperStart(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "/") + ".py"
}

func (p *junitProblem) summary() string {
	if m := strings.TrimSpace(p.Message); m != "" {
		return m
	}
	line, _, _ := strings.Cut(strings.TrimSpace(p.Body), "\n")
	return line
}

func isUpperStart(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}
