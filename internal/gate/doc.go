// Package gate runs the quality gates of one check and assembles the report.
//
// Each enabled gate (lint, typecheck, security, coverage) either reads
// pre-captured tool output or invokes its tool through a runner.Runner. Gates
// run concurrently, each writing into its own slot. Their issues are merged
// into a single review.Aggregator in the fixed gate order, so the report is
// identical across runs regardless of scheduling.
//
// A check fails when any enabled gate fails; [Summarize] turns gate results
// into the process exit code.
package gate
