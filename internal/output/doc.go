// Package output formats check reports for display or machine consumption.
//
// Five formats are supported:
//   - text: human-readable terminal output (default), colored on a TTY
//   - json: the annotations, issues and review summary as one JSON envelope
//   - markdown: the review comment, followed by the gate table
//   - sarif: SARIF v2.1.0 for upload to GitHub code scanning and other CI tools
//   - github: Actions workflow commands that surface annotations inline
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*gate.Report]. [WriteReport]
// handles destination selection.
package output
