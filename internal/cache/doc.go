// Package cache provides a file-based cache for analysis tool output.
//
// Entries are keyed by a SHA-256 hash of the tool command line and a
// fingerprint of the files it inspected, so an unchanged tree reuses the
// previous run's stdout and exit code. Each entry carries a creation timestamp
// and a TTL (in seconds). Expired entries are skipped on read and removed by
// Prune and Clear.
//
// The default cache directory is $XDG_CACHE_HOME/guardrail (or the
// OS-appropriate equivalent).
package cache
