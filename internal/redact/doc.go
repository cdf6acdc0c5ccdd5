// Package redact scrubs secrets out of findings before they are written to a
// report or published to GitHub.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, and provider-specific tokens (GitHub, Slack, OpenAI-style keys).
// Tool messages often quote the offending source line, which is how secrets
// reach a report in the first place.
//
// Fix snippets taken from files matching the configured path patterns are
// replaced wholesale instead of being scanned.
package redact
