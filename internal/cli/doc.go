// Package cli wires together the Cobra command tree for the guardrail binary.
//
// It defines the root command and all subcommands (check, annotate, github,
// config, cache, hook, version), binds flags, reads configuration, runs the
// gates and returns deterministic exit codes for CI gating.
package cli
