package gate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/guardrail/internal/cache"
	"github.com/dshills/guardrail/internal/config"
	"github.com/dshills/guardrail/internal/coverage"
	"github.com/dshills/guardrail/internal/gitctx"
	"github.com/dshills/guardrail/internal/review"
	"github.com/dshills/guardrail/internal/runner"
)

const goodCoverage = `<?xml version="1.0" ?><coverage line-rate="0.9" version="7.3"></coverage>`

const banditReport = `{
  "results": [
    {"filename": "./src/app.py", "line_number": 12, "col_offset": 4, "test_id": "B602",
     "issue_text": "subprocess call with shell=True", "issue_severity": "HIGH"},
    {"filename": "./src/util.py", "line_number": 3, "col_offset": 0, "test_id": "B404",
     "issue_text": "Consider possible security implications", "issue_severity": "LOW"}
  ]
}`

func newTestConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.CoverageReport = filepath.Join(t.TempDir(), "coverage.xml")
	return cfg
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func cleanCapture() map[string]string {
	return map[string]string{
		config.GateLint:      "",
		config.GateTypeCheck: "",
		config.GateSecurity:  "",
		config.GateCoverage:  goodCoverage,
	}
}

func gateByName(t *testing.T, r *Report, name string) Result {
	t.Helper()
	for _, g := range r.Gates {
		if g.Name == name {
			return g
		}
	}
	t.Fatalf("gate %s not in report", name)
	return Result{}
}

func TestRun_AllClean(t *testing.T) {
	report, err := Run(context.Background(), Options{
		Config:   newTestConfig(t),
		Log:      quietLogger(),
		Captured: cleanCapture(),
		Version:  "test",
	})
	require.NoError(t, err)

	assert.Equal(t, ToolName, report.Tool)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 0, report.ExitCode())
	assert.Equal(t, review.StatusApproved, report.Review.OverallStatus)
	assert.Equal(t, 1.0, report.Review.QualityScore)
	assert.Empty(t, report.Issues)
	assert.Equal(t, "paths", report.Inputs.Mode)

	var names []string
	for _, g := range report.Gates {
		names = append(names, g.Name)
		assert.True(t, g.Passed, g.Name)
	}
	assert.Equal(t, config.AllGates, names)

	require.NotNil(t, report.Review.Coverage)
	assert.InDelta(t, 90.0, report.Review.Coverage.Percent, 1e-9)
	assert.Equal(t, coverage.SourceLineRate, report.Review.Coverage.Source)
	assert.Equal(t, "90.00% >= 80.00%", gateByName(t, report, config.GateCoverage).Details)
}

func TestRun_LintIssuesFailGate(t *testing.T) {
	captured := cleanCapture()
	captured[config.GateLint] = "src/app.py:10:5: E501 line too long (90 > 79 characters)\n" +
		"src/app.py:11:1: W291 trailing whitespace\n"

	report, err := Run(context.Background(), Options{
		Config:   newTestConfig(t),
		Log:      quietLogger(),
		Captured: captured,
	})
	require.NoError(t, err)

	lint := gateByName(t, report, config.GateLint)
	assert.False(t, lint.Passed)
	assert.Equal(t, 2, lint.Issues)
	assert.Equal(t, "2 issues", lint.Details)
	assert.Equal(t, 1, report.ExitCode())

	assert.Equal(t, review.SeverityCounts{Errors: 1, Warnings: 1}, report.Counts)
	assert.Equal(t, review.StatusChangesRequested, report.Review.OverallStatus)
	assert.InDelta(t, 0.75, report.Review.QualityScore, 1e-9)
	require.Len(t, report.Issues, 2)
	assert.Equal(t, "E501", report.Issues[0].RuleID)

	first := report.Review.Annotations[0]
	assert.Equal(t, "src/app.py", first.Path)
	assert.Equal(t, review.LevelFailure, first.Level)
}

func TestRun_GateAnnotations(t *testing.T) {
	report, err := Run(context.Background(), Options{
		Config:   newTestConfig(t),
		Log:      quietLogger(),
		Captured: cleanCapture(),
	})
	require.NoError(t, err)

	var gates []review.Annotation
	for _, a := range report.Annotations() {
		if a.Path == Anchor {
			gates = append(gates, a)
		}
	}
	require.Len(t, gates, len(config.AllGates))
	assert.Equal(t, "Quality Gate: lint", gates[0].Title)
	assert.Equal(t, review.LevelNotice, gates[0].Level)
}

func TestRun_MalformedCoverageFailsGate(t *testing.T) {
	log, hook := test.NewNullLogger()
	captured := cleanCapture()
	captured[config.GateCoverage] = "<coverage line-rate="

	report, err := Run(context.Background(), Options{
		Config:   newTestConfig(t),
		Log:      log,
		Captured: captured,
	})
	require.NoError(t, err)

	cov := gateByName(t, report, config.GateCoverage)
	assert.False(t, cov.Passed)
	assert.Contains(t, cov.Details, "malformed coverage xml")
	assert.Nil(t, report.Review.Coverage)

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data["gate"] == config.GateCoverage {
			logged = true
		}
	}
	assert.True(t, logged, "parse error must be logged at error level")
}

func TestRun_CoverageReportFromFile(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.WriteFile(cfg.CoverageReport, []byte(`<coverage lines-valid="10" lines-covered="7"/>`), 0o644))
	captured := cleanCapture()
	delete(captured, config.GateCoverage)

	report, err := Run(context.Background(), Options{Config: cfg, Log: quietLogger(), Captured: captured})
	require.NoError(t, err)

	cov := gateByName(t, report, config.GateCoverage)
	assert.False(t, cov.Passed)
	assert.Equal(t, "70.00% < 80.00%", cov.Details)
}

func TestRun_CoverageMissing(t *testing.T) {
	captured := cleanCapture()
	delete(captured, config.GateCoverage)

	report, err := Run(context.Background(), Options{Config: newTestConfig(t), Log: quietLogger(), Captured: captured})
	require.NoError(t, err)

	cov := gateByName(t, report, config.GateCoverage)
	assert.False(t, cov.Passed)
	assert.Contains(t, cov.Details, "coverage report not found")
}

func TestRun_CoverageTable(t *testing.T) {
	captured := cleanCapture()
	delete(captured, config.GateCoverage)
	table := `Name           Stmts   Miss  Cover   Missing
--------------------------------------------
src/app.py        20      5    75%   3, 7-9, 15
src/util.py       10      0   100%
--------------------------------------------
TOTAL             30      5    83%
`
	report, err := Run(context.Background(), Options{
		Config:        newTestConfig(t),
		Log:           quietLogger(),
		Captured:      captured,
		CoverageTable: table,
	})
	require.NoError(t, err)

	cov := gateByName(t, report, config.GateCoverage)
	assert.True(t, cov.Passed)
	require.NotNil(t, report.Review.Coverage)
	assert.Equal(t, coverage.SourceTable, report.Review.Coverage.Source)

	var lowCoverage, uncovered int
	for _, a := range report.Annotations() {
		switch a.Title {
		case "Low Test Coverage":
			lowCoverage++
			assert.Equal(t, "src/app.py", a.Path)
		case "Uncovered Code":
			uncovered++
		}
	}
	assert.Equal(t, 1, lowCoverage)
	assert.Equal(t, 5, uncovered)
}

func TestRun_SecurityJSON(t *testing.T) {
	captured := cleanCapture()
	captured[config.GateSecurity] = banditReport

	report, err := Run(context.Background(), Options{
		Config:   newTestConfig(t),
		Log:      quietLogger(),
		Captured: captured,
	})
	require.NoError(t, err)

	sec := gateByName(t, report, config.GateSecurity)
	assert.False(t, sec.Passed)
	assert.Equal(t, "2 issues, 1 blocking", sec.Details)

	// security findings are listed but not counted
	assert.Equal(t, review.SeverityCounts{}, report.Counts)
	assert.Equal(t, review.StatusApproved, report.Review.OverallStatus)
	assert.Len(t, report.Review.SecurityIssues, 2)
	assert.Len(t, report.Issues, 2)
	assert.Equal(t, "src/app.py", report.Issues[0].FilePath)
	assert.Equal(t, 5, report.Issues[0].Column)
}

func TestRun_SecurityText(t *testing.T) {
	captured := cleanCapture()
	captured[config.GateSecurity] = "src/app.py:4:1: B303: Use of insecure MD5 hash function.\n"

	report, err := Run(context.Background(), Options{Config: newTestConfig(t), Log: quietLogger(), Captured: captured})
	require.NoError(t, err)

	sec := gateByName(t, report, config.GateSecurity)
	assert.True(t, sec.Passed, "B3xx is not blocking")
	assert.Equal(t, 1, sec.Issues)
}

func TestRun_SecurityMalformedJSON(t *testing.T) {
	captured := cleanCapture()
	captured[config.GateSecurity] = `{"results": [`

	report, err := Run(context.Background(), Options{Config: newTestConfig(t), Log: quietLogger(), Captured: captured})
	require.NoError(t, err)

	sec := gateByName(t, report, config.GateSecurity)
	assert.False(t, sec.Passed)
	assert.Contains(t, sec.Details, "parsing bandit json")
}

func TestRun_RulesIgnore(t *testing.T) {
	captured := cleanCapture()
	captured[config.GateLint] = "src/app.py:10:5: E501 line too long (90 > 79 characters)\n"

	report, err := Run(context.Background(), Options{
		Config:   newTestConfig(t),
		Log:      quietLogger(),
		Captured: captured,
		Rules:    &review.Rules{Ignore: []string{"e501"}},
	})
	require.NoError(t, err)
	assert.True(t, gateByName(t, report, config.GateLint).Passed)
	assert.Empty(t, report.Issues)
}

func TestRun_RedactsMessages(t *testing.T) {
	captured := cleanCapture()
	captured[config.GateSecurity] = `src/settings.py:3:1: B105: Possible hardcoded password: password = "hunter2hunter2"`

	report, err := Run(context.Background(), Options{Config: newTestConfig(t), Log: quietLogger(), Captured: captured})
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.NotContains(t, report.Issues[0].Message, "hunter2hunter2")
}

// recordingRunner serves canned output and records each invocation.
type recordingRunner struct {
	mu    sync.Mutex
	calls map[string][]string
	out   runner.Static
}

func (r *recordingRunner) Run(ctx context.Context, t runner.Tool) (runner.Output, error) {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string][]string)
	}
	r.calls[t.Name] = t.Argv
	r.mu.Unlock()
	return r.out.Run(ctx, t)
}

func TestRun_ScopesToolsToChangedFiles(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true, TypeCheck: true}
	cfg.Exclude = []string{"tests/**"}

	rr := &recordingRunner{out: runner.Static{
		config.GateLint: {
			Stdout:   "src/app.py:3:1: F401 'os' imported but unused\nsrc/other.py:1:1: F401 'sys' imported but unused\n",
			ExitCode: 1,
		},
		config.GateTypeCheck: {},
	}}
	changes := &gitctx.ChangeSet{
		Mode: "range",
		Base: "abc",
		Head: "def",
		Files: []gitctx.FileChange{
			{Path: "src/app.py"},
			{Path: "README.md"},
			{Path: "tests/test_app.py"},
		},
	}

	report, err := Run(context.Background(), Options{Config: cfg, Runner: rr, Log: quietLogger(), Changes: changes})
	require.NoError(t, err)

	assert.Equal(t, []string{"flake8", "src/app.py"}, rr.calls[config.GateLint])
	assert.Equal(t, []string{"mypy", "src/app.py"}, rr.calls[config.GateTypeCheck])
	assert.Equal(t, "range", report.Inputs.Mode)
	assert.Equal(t, []string{"src/app.py"}, report.Inputs.Files)

	// src/other.py is outside the change set
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "src/app.py", report.Issues[0].FilePath)
	assert.False(t, gateByName(t, report, config.GateLint).Passed)
	assert.True(t, gateByName(t, report, config.GateTypeCheck).Passed)
}

func TestRun_NoFilesInScopeSkips(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true}

	rr := &recordingRunner{out: runner.Static{}}
	changes := &gitctx.ChangeSet{Mode: "range", Files: []gitctx.FileChange{{Path: "docs/index.md"}}}

	report, err := Run(context.Background(), Options{Config: cfg, Runner: rr, Log: quietLogger(), Changes: changes})
	require.NoError(t, err)

	lint := gateByName(t, report, config.GateLint)
	assert.True(t, lint.Passed)
	assert.True(t, lint.Skipped)
	assert.Empty(t, rr.calls)
}

func TestRun_ToolNotFound(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true}

	report, err := Run(context.Background(), Options{Config: cfg, Runner: runner.Static{}, Log: quietLogger()})
	require.NoError(t, err)

	lint := gateByName(t, report, config.GateLint)
	assert.False(t, lint.Passed)
	assert.Equal(t, "lint tool not found", lint.Details)
	assert.Equal(t, 1, report.ExitCode())
}

func TestRun_NonZeroExitWithoutIssues(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{TypeCheck: true}

	rr := runner.Static{config.GateTypeCheck: {Stderr: "mypy: can't read file 'src'\n", ExitCode: 2}}
	report, err := Run(context.Background(), Options{Config: cfg, Runner: rr, Log: quietLogger()})
	require.NoError(t, err)

	tc := gateByName(t, report, config.GateTypeCheck)
	assert.False(t, tc.Passed)
	assert.Equal(t, "exit status 2: mypy: can't read file 'src'", tc.Details)
}

// blockingRunner waits for cancellation.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ runner.Tool) (runner.Output, error) {
	<-ctx.Done()
	return runner.Output{}, ctx.Err()
}

func TestRun_Cancelled(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Options{Config: cfg, Runner: blockingRunner{}, Log: quietLogger()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CachedExitKeepsStderr(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{TypeCheck: true}
	store, err := cache.New(true, t.TempDir(), 3600)
	require.NoError(t, err)

	rr := &runner.Cached{
		Next:        runner.Static{config.GateTypeCheck: {Stderr: "mypy: can't read file 'src'\n", ExitCode: 2}},
		Cache:       store,
		Fingerprint: "fp",
		Log:         quietLogger(),
	}
	for n := 0; n < 2; n++ {
		report, err := Run(context.Background(), Options{Config: cfg, Runner: rr, Log: quietLogger()})
		require.NoError(t, err)
		tc := gateByName(t, report, config.GateTypeCheck)
		assert.Equal(t, "exit status 2: mypy: can't read file 'src'", tc.Details)
	}
}

// sleepingRunner delays every tool by d.
type sleepingRunner struct {
	d   time.Duration
	out runner.Static
}

func (s sleepingRunner) Run(ctx context.Context, t runner.Tool) (runner.Output, error) {
	time.Sleep(s.d)
	return s.out.Run(ctx, t)
}

func performanceAnnotations(r *Report) []review.Annotation {
	var out []review.Annotation
	for _, a := range r.Annotations() {
		if strings.HasPrefix(a.Title, "Performance: ") {
			out = append(out, a)
		}
	}
	return out
}

func TestRun_ToolOverBudget(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true, TypeCheck: true}
	cfg.ToolBudgetSeconds = 0.005

	rr := sleepingRunner{d: 30 * time.Millisecond, out: runner.Static{config.GateTypeCheck: {}}}
	report, err := Run(context.Background(), Options{
		Config:   cfg,
		Runner:   rr,
		Log:      quietLogger(),
		Captured: map[string]string{config.GateLint: ""},
	})
	require.NoError(t, err)

	perf := performanceAnnotations(report)
	require.Len(t, perf, 1, "captured gates have no run time")
	assert.Equal(t, "Performance: typecheck", perf[0].Title)
	assert.Equal(t, Anchor, perf[0].Path)
	assert.Equal(t, review.LevelFailure, perf[0].Level)
	assert.Contains(t, perf[0].Message, "(threshold: 0.005s)")
	assert.Equal(t, 0, report.ExitCode(), "budget overruns do not fail the check")
}

func TestRun_ToolWithinBudget(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true}
	cfg.ToolBudgetSeconds = 60

	report, err := Run(context.Background(), Options{
		Config: cfg,
		Runner: runner.Static{config.GateLint: {}},
		Log:    quietLogger(),
	})
	require.NoError(t, err)

	perf := performanceAnnotations(report)
	require.Len(t, perf, 1)
	assert.Equal(t, review.LevelNotice, perf[0].Level)
}

func TestRun_NoBudgetNoPerformanceAnnotations(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true}

	report, err := Run(context.Background(), Options{
		Config: cfg,
		Runner: runner.Static{config.GateLint: {}},
		Log:    quietLogger(),
	})
	require.NoError(t, err)
	assert.Empty(t, performanceAnnotations(report))
}

const junitReport = `<testsuites><testsuite name="pytest">
<testcase classname="tests.test_app" name="test_ok" file="tests/test_app.py" line="3" time="0.01"/>
<testcase classname="tests.test_app" name="test_sum" file="tests/test_app.py" line="11" time="0.25">
<failure message="assert 3 == 4">E assert 3 == 4</failure>
</testcase>
</testsuite></testsuites>`

func TestRun_FailedTestAnnotations(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true}
	cfg.TestReport = filepath.Join(t.TempDir(), "junit.xml")
	require.NoError(t, os.WriteFile(cfg.TestReport, []byte(junitReport), 0o644))

	report, err := Run(context.Background(), Options{
		Config:   cfg,
		Log:      quietLogger(),
		Captured: map[string]string{config.GateLint: ""},
	})
	require.NoError(t, err)

	var tests []review.Annotation
	for _, a := range report.Annotations() {
		if strings.HasPrefix(a.Title, "Test: ") {
			tests = append(tests, a)
		}
	}
	require.Len(t, tests, 1)
	assert.Equal(t, "Test: test_sum", tests[0].Title)
	assert.Equal(t, "tests/test_app.py", tests[0].Path)
	assert.Equal(t, 12, tests[0].StartLine)
	assert.Equal(t, review.LevelFailure, tests[0].Level)
	assert.Contains(t, tests[0].Message, "Error: assert 3 == 4")
}

func TestRun_MalformedTestReportIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	cfg := newTestConfig(t)
	cfg.Gates = config.GatesConfig{Lint: true}
	cfg.TestReport = filepath.Join(t.TempDir(), "junit.xml")
	require.NoError(t, os.WriteFile(cfg.TestReport, []byte("<testsuite><testcase"), 0o644))

	report, err := Run(context.Background(), Options{
		Config:   cfg,
		Log:      log,
		Captured: map[string]string{config.GateLint: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.ExitCode())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "test report could not be parsed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    int
	}{
		{"none", nil, 0},
		{"all passed", []Result{{Name: "lint", Passed: true}, {Name: "coverage", Passed: true}}, 0},
		{"one failed", []Result{{Name: "lint", Passed: true}, {Name: "coverage", Passed: false}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.results))
		})
	}
	failed := Failed([]Result{{Name: "a", Passed: true}, {Name: "b"}})
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Name)
}
