package review

import (
	"fmt"
	"sort"
	"strings"
)

// maxAnnotationsPerFile is how many annotations a file lists in the comment.
const maxAnnotationsPerFile = 3

// RenderComment renders the markdown review comment for a summary.
func RenderComment(s ReviewSummary) string {
	var b strings.Builder

	b.WriteString("## 🤖 Guardrail Quality Review\n")
	fmt.Fprintf(&b, "**Status:** %s\n", StatusTitle(s.OverallStatus))
	fmt.Fprintf(&b, "**Quality Score:** %.1f%%\n\n", s.QualityScore*100)
	b.WriteString("### 📊 Summary\n")
	fmt.Fprintf(&b, "%s\n\n", s.Summary)

	if s.Coverage != nil {
		mark := "✅"
		if !s.Coverage.Passed {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s Coverage: %.1f%% (threshold %.1f%%)\n\n", mark, s.Coverage.Percent, s.Coverage.Threshold)
	}

	if len(s.Suggestions) > 0 {
		b.WriteString("### 💡 Suggestions\n")
		for _, sg := range s.Suggestions {
			fmt.Fprintf(&b, "- %s\n", sg)
		}
		b.WriteString("\n")
	}

	if len(s.Annotations) > 0 {
		b.WriteString("### 🔍 Issues Found\n")
		fmt.Fprintf(&b, "Total annotations: %d\n\n", len(s.Annotations))

		paths, byFile := GroupByFile(s.Annotations)
		for _, path := range paths {
			anns := byFile[path]
			fmt.Fprintf(&b, "**%s:**\n", path)
			for n, a := range anns {
				if n == maxAnnotationsPerFile {
					break
				}
				fmt.Fprintf(&b, "- %s Line %d: %s\n", levelEmoji(a.Level), a.StartLine, a.Title)
			}
			if len(anns) > maxAnnotationsPerFile {
				fmt.Fprintf(&b, "- ... and %d more issues\n", len(anns)-maxAnnotationsPerFile)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n")
	b.WriteString("*This review was automatically generated by Guardrail*")
	return b.String()
}

// GroupByFile groups annotations by path. Paths are returned sorted; within a
// path the insertion order is kept.
func GroupByFile(anns []Annotation) ([]string, map[string][]Annotation) {
	byFile := make(map[string][]Annotation)
	var paths []string
	for _, a := range anns {
		if _, ok := byFile[a.Path]; !ok {
			paths = append(paths, a.Path)
		}
		byFile[a.Path] = append(byFile[a.Path], a)
	}
	sort.Strings(paths)
	return paths, byFile
}

// StatusTitle renders a status for humans, e.g. "Changes Requested".
func StatusTitle(s Status) string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func levelEmoji(l AnnotationLevel) string {
	switch l {
	case LevelFailure:
		return "❌"
	case LevelWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
