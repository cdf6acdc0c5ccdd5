package github

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/guardrail/internal/review"
)

// GitHub limits.
const (
	MaxAnnotations   = 50
	MaxMessageLength = 65535
)

// Truncate shortens msg to MaxMessageLength bytes, ending in "...".
func Truncate(msg string) string {
	if len(msg) <= MaxMessageLength {
		return msg
	}
	cut := MaxMessageLength - 3
	// do not split a UTF-8 sequence
	for cut > 0 && msg[cut]&0xC0 == 0x80 {
		cut--
	}
	return msg[:cut] + "..."
}

func levelRank(l review.AnnotationLevel) int {
	switch l {
	case review.LevelFailure:
		return 3
	case review.LevelWarning:
		return 2
	default:
		return 1
	}
}

// Cap returns at most max annotations (MaxAnnotations when max <= 0),
// keeping failures before warnings before notices. Order within a level is
// preserved.
func Cap(anns []review.Annotation, max int) []review.Annotation {
	if max <= 0 {
		max = MaxAnnotations
	}
	if len(anns) <= max {
		return anns
	}
	sorted := make([]review.Annotation, len(anns))
	copy(sorted, anns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return levelRank(sorted[i].Level) > levelRank(sorted[j].Level)
	})
	return sorted[:max]
}

// commandName maps an annotation level to a workflow command.
func commandName(l review.AnnotationLevel) string {
	switch l {
	case review.LevelFailure:
		return "error"
	case review.LevelWarning:
		return "warning"
	default:
		return "notice"
	}
}

// Command renders an annotation as a workflow command such as
//
//	::error file=src/app.py,line=10,endLine=10,col=5,endColumn=6,title=E501::line too long
func Command(a review.Annotation) string {
	props := []string{"file=" + escapeProperty(a.Path)}
	if a.StartLine > 0 {
		props = append(props, fmt.Sprintf("line=%d", a.StartLine))
	}
	if a.EndLine > 0 {
		props = append(props, fmt.Sprintf("endLine=%d", a.EndLine))
	}
	if a.StartColumn != nil {
		props = append(props, fmt.Sprintf("col=%d", *a.StartColumn))
	}
	if a.EndColumn != nil {
		props = append(props, fmt.Sprintf("endColumn=%d", *a.EndColumn))
	}
	if a.Title != "" {
		props = append(props, "title="+escapeProperty(a.Title))
	}
	return fmt.Sprintf("::%s %s::%s", commandName(a.Level), strings.Join(props, ","), escapeData(Truncate(a.Message)))
}

func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}
