package review

import "strings"

// Classify maps a severity to its annotation level. It is total: any severity
// other than error or warning, including the empty string, maps to notice.
func Classify(s Severity) AnnotationLevel {
	switch s {
	case SeverityError:
		return LevelFailure
	case SeverityWarning:
		return LevelWarning
	default:
		return LevelNotice
	}
}

// securityLevel maps scanner vocabulary (low/medium/high/critical) to a level.
func securityLevel(severity string) AnnotationLevel {
	switch strings.ToLower(severity) {
	case "high", "critical":
		return LevelFailure
	default:
		return LevelWarning
	}
}

// passLevel is the level used by pass/fail facts.
func passLevel(passed bool) AnnotationLevel {
	if passed {
		return LevelNotice
	}
	return LevelFailure
}
