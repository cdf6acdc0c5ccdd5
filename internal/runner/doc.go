// Package runner invokes external analysis tools and captures their output.
//
// [Exec] runs a tool as a subprocess with a per-tool timeout. A non-zero exit
// status is part of the [Output], not an error: linters exit non-zero when
// they report findings. [Cached] wraps any [Runner] with the file cache.
// [Timer] is the scoped timer used around each invocation.
package runner
