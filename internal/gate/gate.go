package gate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/guardrail/internal/config"
	"github.com/dshills/guardrail/internal/coverage"
	"github.com/dshills/guardrail/internal/gitctx"
	"github.com/dshills/guardrail/internal/normalize"
	"github.com/dshills/guardrail/internal/redact"
	"github.com/dshills/guardrail/internal/review"
	"github.com/dshills/guardrail/internal/runner"
)

// Anchor is the path gate-result annotations are attached to.
const Anchor = "README.md"

// Options configures one check.
type Options struct {
	Config config.Config
	// Runner invokes tools for gates without captured output. It may be nil
	// when every enabled gate is captured.
	Runner runner.Runner
	Log    logrus.FieldLogger
	// Captured holds raw tool output keyed by gate name. A captured gate is
	// not run.
	Captured map[string]string
	// CoverageTable is the text table printed by `coverage report -m`.
	CoverageTable string
	// Changes scopes tool invocations and findings. Nil means the configured
	// paths are checked and no finding is dropped for scope.
	Changes *gitctx.ChangeSet
	Rules   *review.Rules
	Repo    gitctx.RepoMeta
	Version string
}

// outcome is the per-gate slot filled by one goroutine.
type outcome struct {
	result   Result
	issues   []review.Issue
	coverage *coverage.Result
	files    map[string]coverage.FileCoverage
}

type evaluator struct {
	opts    Options
	cfg     config.Config
	log     logrus.FieldLogger
	scoped  bool
	targets []string
}

// Run evaluates every enabled gate and returns the report. Gate failures,
// missing tools and malformed reports are recorded in the gate results; an
// error is returned only when ctx is cancelled.
func Run(ctx context.Context, opts Options) (*Report, error) {
	startTime := time.Now()
	e := newEvaluator(opts)
	names := e.cfg.Gates.Names()

	slots := make([]outcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			o, err := e.evaluate(gctx, name)
			slots[i] = o
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running gates: %w", err)
	}
	toolsMs := time.Since(startTime).Milliseconds()

	agg := review.NewAggregator(e.cfg.Weights)
	issues := []review.Issue{}
	results := make([]Result, 0, len(names))
	for i, name := range names {
		o := slots[i]
		e.merge(agg, name, o)
		issues = append(issues, o.issues...)
		results = append(results, o.result)
	}
	for _, r := range results {
		agg.AddAnnotation(review.FromGate(review.GateFact{
			Path:    Anchor,
			Line:    1,
			Name:    r.Name,
			Passed:  r.Passed,
			Details: r.Details,
		}))
	}
	for _, a := range e.budgetAnnotations(results) {
		agg.AddAnnotation(a)
	}
	for _, a := range e.testAnnotations() {
		agg.AddAnnotation(a)
	}

	report := &Report{
		Tool:    ToolName,
		Version: opts.Version,
		RunID:   uuid.NewString(),
		Repo:    opts.Repo,
		Inputs:  e.inputs(names),
		Gates:   results,
		Issues:  issues,
		Counts:  agg.Counts(),
		Review:  agg.Summary(),
		Timing: Timing{
			ToolsMs: toolsMs,
			TotalMs: time.Since(startTime).Milliseconds(),
		},
	}
	e.log.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"status": report.Review.OverallStatus,
		"failed": len(Failed(results)),
	}).Info("check complete")
	return report, nil
}

func newEvaluator(opts Options) *evaluator {
	e := &evaluator{opts: opts, cfg: opts.Config, log: opts.Log}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if opts.Changes != nil {
		e.scoped = true
		for _, p := range gitctx.FilterExt(opts.Changes.Paths(), e.cfg.Extensions) {
			if !gitctx.MatchesAny(p, e.cfg.Exclude) {
				e.targets = append(e.targets, p)
			}
		}
	} else {
		e.targets = slices.Clone(e.cfg.Paths)
	}
	return e
}

func (e *evaluator) inputs(names []string) Inputs {
	in := Inputs{
		Mode:      "paths",
		Files:     e.targets,
		Threshold: e.cfg.Threshold,
		Gates:     names,
	}
	if c := e.opts.Changes; c != nil {
		in.Mode = c.Mode
		in.Base = c.Base
		in.Head = c.Head
	}
	return in
}

func (e *evaluator) evaluate(ctx context.Context, name string) (outcome, error) {
	start := time.Now()
	var (
		o   outcome
		err error
	)
	switch name {
	case config.GateLint:
		o, err = e.issueGate(ctx, name, e.cfg.Tools.Lint, normalize.ParseLint)
	case config.GateTypeCheck:
		o, err = e.issueGate(ctx, name, e.cfg.Tools.TypeCheck, normalize.ParseTypeCheck)
	case config.GateSecurity:
		o, err = e.securityGate(ctx)
	case config.GateCoverage:
		o = e.coverageGate()
	default:
		o.result = Result{Details: "unknown gate"}
	}
	o.result.Name = name
	o.result.Issues = len(o.issues)
	o.result.DurationMs = time.Since(start).Milliseconds()

	e.log.WithFields(logrus.Fields{
		"gate":   name,
		"passed": o.result.Passed,
		"issues": o.result.Issues,
	}).Debug("gate evaluated")
	return o, err
}

// collect returns the captured output of a gate, or runs its tool.
func (e *evaluator) collect(ctx context.Context, name string, argv []string) (runner.Output, error) {
	if raw, ok := e.opts.Captured[name]; ok {
		return runner.Output{Stdout: raw}, nil
	}
	if e.opts.Runner == nil {
		return runner.Output{}, fmt.Errorf("%s: no captured output and no runner", name)
	}
	return e.opts.Runner.Run(ctx, runner.Tool{
		Name:    name,
		Argv:    argv,
		Timeout: time.Duration(e.cfg.ToolTimeoutSeconds) * time.Second,
	})
}

func (e *evaluator) captured(name string) bool {
	_, ok := e.opts.Captured[name]
	return ok
}

func (e *evaluator) issueGate(ctx context.Context, name string, tool []string, parse func(string) []review.Issue) (outcome, error) {
	if e.scoped && len(e.targets) == 0 && !e.captured(name) {
		return outcome{result: Result{Passed: true, Skipped: true, Details: "no files in scope"}}, nil
	}
	argv := append(slices.Clone(tool), e.targets...)
	out, err := e.collect(ctx, name, argv)
	if err != nil {
		return e.toolFailure(ctx, name, err)
	}

	o := outcome{issues: e.prepare(parse(out.Stdout))}
	o.result.Cached = out.Cached
	o.result.Passed = len(o.issues) == 0 && out.ExitCode == 0
	switch {
	case len(o.issues) > 0:
		o.result.Details = countDetails(len(o.issues))
	case out.ExitCode != 0:
		o.result.Details = exitDetails(out)
	}
	return o, nil
}

func (e *evaluator) securityGate(ctx context.Context) (outcome, error) {
	name := config.GateSecurity
	out, err := e.collect(ctx, name, e.cfg.Tools.Security)
	if err != nil {
		return e.toolFailure(ctx, name, err)
	}
	raw := strings.TrimSpace(out.Stdout)
	if raw == "" && out.ExitCode != 0 {
		return outcome{result: Result{Details: exitDetails(out), Cached: out.Cached}}, nil
	}

	var issues []review.Issue
	if strings.HasPrefix(raw, "{") {
		issues, err = normalize.ParseBanditJSON([]byte(raw))
		if err != nil {
			e.log.WithError(err).WithField("gate", name).Error("security report could not be parsed")
			return outcome{result: Result{Details: err.Error(), Cached: out.Cached}}, nil
		}
	} else {
		issues = normalize.ParseSecurity(raw)
	}

	o := outcome{issues: e.prepare(issues)}
	o.result.Cached = out.Cached
	o.result.Passed = !normalize.HasBlocking(o.issues)
	if n := len(o.issues); n > 0 {
		blocking := 0
		for _, i := range o.issues {
			if i.Severity == review.SeverityError {
				blocking++
			}
		}
		o.result.Details = fmt.Sprintf("%s, %d blocking", countDetails(n), blocking)
	}
	return o, nil
}

func (e *evaluator) coverageGate() outcome {
	name := config.GateCoverage
	threshold := e.cfg.Threshold

	var o outcome
	var table map[string]coverage.FileCoverage
	if e.opts.CoverageTable != "" {
		table = coverage.ParseTable(e.opts.CoverageTable)
		o.files = make(map[string]coverage.FileCoverage)
		for path, fc := range coverage.Files(table) {
			if e.inScope(path) {
				o.files[path] = fc
			}
		}
	}

	raw, ok := e.opts.Captured[name]
	if !ok && e.cfg.CoverageReport != "" {
		data, err := os.ReadFile(e.cfg.CoverageReport)
		switch {
		case err == nil:
			raw, ok = string(data), true
		case !errors.Is(err, fs.ErrNotExist):
			e.log.WithError(err).WithField("gate", name).Error("coverage report could not be read")
			o.result = Result{Details: fmt.Sprintf("reading coverage report: %v", err)}
			return o
		}
	}

	var res coverage.Result
	total, hasTotal := table[coverage.TotalKey]
	switch {
	case ok:
		r, err := coverage.EvaluateString(raw, threshold)
		if err != nil {
			e.log.WithError(err).WithField("gate", name).Error("coverage report could not be parsed")
			o.result = Result{Details: err.Error()}
			return o
		}
		res = r
	case hasTotal:
		res = coverage.Result{
			Passed:    coverage.Compare(total.Percent, threshold),
			Percent:   total.Percent,
			Threshold: threshold,
			Source:    coverage.SourceTable,
		}
	default:
		o.result = Result{Details: "coverage report not found: " + e.cfg.CoverageReport}
		return o
	}

	o.coverage = &res
	o.result = Result{Passed: res.Passed, Details: res.Details()}
	return o
}

// toolFailure records a tool that could not produce output. Cancellation of
// the check is returned as an error instead.
func (e *evaluator) toolFailure(ctx context.Context, name string, err error) (outcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome{}, ctxErr
	}
	e.log.WithError(err).WithField("gate", name).Error("tool failed")
	details := err.Error()
	if errors.Is(err, runner.ErrToolNotFound) {
		details = name + " tool not found"
	}
	return outcome{result: Result{Details: details}}, nil
}

// prepare drops out-of-scope issues, applies the rules pack and redacts
// secrets.
func (e *evaluator) prepare(issues []review.Issue) []review.Issue {
	kept := make([]review.Issue, 0, len(issues))
	for _, i := range issues {
		if e.inScope(i.FilePath) {
			kept = append(kept, i)
		}
	}
	kept = review.ApplyRules(kept, e.opts.Rules)
	if e.cfg.Privacy.RedactSecrets {
		kept = redact.Issues(kept, e.cfg.Privacy.RedactPaths)
	}
	return kept
}

func (e *evaluator) inScope(path string) bool {
	if gitctx.MatchesAny(path, e.cfg.Exclude) {
		return false
	}
	if e.scoped && !e.opts.Changes.Touches(path) {
		return false
	}
	return true
}

// merge feeds one gate outcome into the aggregator.
func (e *evaluator) merge(agg *review.Aggregator, name string, o outcome) {
	switch name {
	case config.GateSecurity:
		agg.AddSecurity(normalize.SecurityFindings(o.issues)...)
	case config.GateCoverage:
		if o.coverage != nil {
			agg.SetCoverage(review.CoverageInfo{
				Percent:   o.coverage.Percent,
				Threshold: o.coverage.Threshold,
				Passed:    o.coverage.Passed,
				Source:    o.coverage.Source,
			})
			agg.AddAnnotation(review.FromCoverageSummary(e.cfg.CoverageReport, o.coverage.Percent, o.coverage.Threshold))
		}
		paths := make([]string, 0, len(o.files))
		for p := range o.files {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fc := o.files[p]
			agg.AddCoverage(p, fc.Percent, fc.Missing, e.cfg.Threshold)
		}
	default:
		if err := agg.AddIssues(o.issues); err != nil {
			e.log.WithError(err).WithField("gate", name).Warn("dropped invalid issues")
		}
	}
}

// budgetAnnotations compares each tool run against the configured budget.
// Captured, cached and skipped gates did not run a tool and are left out.
func (e *evaluator) budgetAnnotations(results []Result) []review.Annotation {
	if e.cfg.ToolBudgetSeconds <= 0 {
		return nil
	}
	budget := time.Duration(e.cfg.ToolBudgetSeconds * float64(time.Second))
	var out []review.Annotation
	for _, r := range results {
		if r.Name == config.GateCoverage || r.Skipped || r.Cached || e.captured(r.Name) {
			continue
		}
		out = append(out, review.FromPerformance(review.PerformanceFact{
			Path:      Anchor,
			Line:      1,
			Function:  r.Name,
			Elapsed:   time.Duration(r.DurationMs) * time.Millisecond,
			Threshold: budget,
		}))
	}
	return out
}

// testAnnotations annotates the failed cases of the configured JUnit report.
// A missing or unreadable report is logged and yields nothing.
func (e *evaluator) testAnnotations() []review.Annotation {
	path := e.cfg.TestReport
	if path == "" {
		return nil
	}
	log := e.log.WithField("report", path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("test report not found")
		} else {
			log.WithError(err).Warn("test report could not be read")
		}
		return nil
	}
	facts, err := normalize.ParseJUnit(data)
	if err != nil {
		log.WithError(err).Warn("test report could not be parsed")
		return nil
	}
	var out []review.Annotation
	for _, f := range facts {
		if f.Passed || !e.inScope(f.Path) {
			continue
		}
		out = append(out, review.FromTest(f))
	}
	return out
}

func countDetails(n int) string {
	if n == 1 {
		return "1 issue"
	}
	return fmt.Sprintf("%d issues", n)
}

func exitDetails(out runner.Output) string {
	msg := fmt.Sprintf("exit status %d", out.ExitCode)
	if line, _, _ := strings.Cut(strings.TrimSpace(out.Stderr), "\n"); line != "" {
		msg += ": " + line
	}
	return msg
}
