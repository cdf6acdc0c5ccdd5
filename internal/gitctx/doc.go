// Package gitctx determines the changed code set a quality run is scoped to.
//
// Under GitHub Actions the event payload names a base and head commit
// (pull_request base/head, or push before/after). [FromEvent] diffs that range
// with git and parses the unified diff with go-gitdiff, keeping each changed
// file and the line ranges added to it. Without an event every tracked file
// is in scope.
package gitctx
