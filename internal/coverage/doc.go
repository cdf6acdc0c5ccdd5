// Package coverage computes a coverage percentage from a Cobertura or JaCoCo
// XML report, or per-file figures from coverage.py's text table, and compares
// it against a threshold.
package coverage
