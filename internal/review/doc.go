// Package review holds the canonical issue model and the review pipeline that
// sits on top of it.
//
// An [Issue] is one normalized finding. [Classify] maps its severity to the
// three-tier annotation level used by GitHub check annotations, and the
// From* builders turn issues and evaluator facts (coverage gaps, security
// findings, gate, performance and test results) into [Annotation] values.
//
// An [Aggregator] owns the issues and annotations of a single review run and
// derives the [ReviewSummary] from them: overall status, quality score,
// summary line and suggestions. Summaries are recomputed on every call.
// [RenderComment] renders a summary as a markdown PR comment.
//
// Rules packs (rules.go) let a project override severities per rule ID,
// ignore rules outright, and replace the suggestion text attached to a rule.
package review
