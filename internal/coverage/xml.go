package coverage

import (
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// element is a generic XML element; reports from different tools share no schema.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) floatAttr(name string) (float64, bool) {
	v, ok := e.attr(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (e *element) intAttr(name string) (int64, bool) {
	v, ok := e.attr(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// decode reads exactly one root element and rejects anything but whitespace,
// comments and processing instructions after it.
func decode(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	var root element
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("no root element")
		}
		return nil, &ParseError{Err: err}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return &root, nil
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil, &ParseError{Err: errors.New("junk after document element: <" + t.Name.Local + ">")}
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, &ParseError{Err: errors.New("junk after document element")}
			}
		}
	}
}

// percentFromXML applies the fallback chain: root line-rate, then root
// lines-valid/lines-covered, then the sum of every LINE counter in the tree.
func percentFromXML(r io.Reader) (float64, string, error) {
	root, err := decode(r)
	if err != nil {
		return 0, "", err
	}

	if rate, ok := root.floatAttr("line-rate"); ok {
		return rate * 100, SourceLineRate, nil
	}

	valid, okValid := root.intAttr("lines-valid")
	covered, okCovered := root.intAttr("lines-covered")
	if okValid && okCovered {
		if valid == 0 {
			return 0, SourceLines, nil
		}
		return float64(covered) / float64(valid) * 100, SourceLines, nil
	}

	var sumCovered, sumMissed int64
	found := false
	walk(root, func(e *element) {
		if e.XMLName.Local != "counter" {
			return
		}
		if t, _ := e.attr("type"); t != "LINE" {
			return
		}
		c, okC := e.intAttr("covered")
		m, okM := e.intAttr("missed")
		if !okC || !okM {
			return
		}
		sumCovered += c
		sumMissed += m
		found = true
	})
	if found {
		total := sumCovered + sumMissed
		if total == 0 {
			return 0, SourceCounters, nil
		}
		return float64(sumCovered) / float64(total) * 100, SourceCounters, nil
	}

	return 0, SourceNone, nil
}

func walk(e *element, fn func(*element)) {
	fn(e)
	for i := range e.Children {
		walk(&e.Children[i], fn)
	}
}
