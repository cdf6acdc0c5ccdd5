// Guardrail is a CI quality-gate runner for Python pull requests.
//
// It runs the linter, type checker, security scanner and coverage check,
// normalizes their findings into review annotations, and exits with a
// deterministic code so a workflow can block a merge.
//
// Usage:
//
//	guardrail check                           # run every enabled gate
//	guardrail check --event $GITHUB_EVENT_PATH --format github
//	guardrail annotate --lint-file flake8.txt --out annotations.json
//	guardrail github 42 --dry-run             # check a pull request
//	guardrail hook install                    # pre-commit hook
package main
