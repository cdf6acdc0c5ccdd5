package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/guardrail/internal/cache"
	"github.com/dshills/guardrail/internal/config"
	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/gitctx"
	"github.com/dshills/guardrail/internal/output"
	"github.com/dshills/guardrail/internal/review"
	"github.com/dshills/guardrail/internal/runner"
)

// Shared check flags
var (
	flagLintFile          string
	flagTypeCheckFile     string
	flagSecurityFile      string
	flagCoverageFile      string
	flagCoverageTableFile string
	flagJUnitFile         string
	flagEvent             string
	flagBase              string
	flagHead              string
	flagPaths             string
	flagExclude           string
	flagGates             string
	flagThreshold         string
	flagFormat            string
	flagOut               string
	flagAnnotationsOut    string
	flagRules             string
	flagNoRedact          bool
	flagNoCache           bool
)

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagLintFile, "lint-file", "", "Read linter output from a file instead of running the linter")
	cmd.Flags().StringVar(&flagTypeCheckFile, "typecheck-file", "", "Read type checker output from a file")
	cmd.Flags().StringVar(&flagSecurityFile, "security-file", "", "Read security scanner output (text or JSON) from a file")
	cmd.Flags().StringVar(&flagCoverageFile, "coverage-file", "", "Coverage XML report (overrides coverageReport)")
	cmd.Flags().StringVar(&flagCoverageTableFile, "coverage-table-file", "", "Text output of `coverage report -m`")
	cmd.Flags().StringVar(&flagJUnitFile, "junit-file", "", "JUnit XML test report; failed tests are annotated (overrides testReport)")
	cmd.Flags().StringVar(&flagEvent, "event", "", "GitHub event payload used to scope the check (default $GITHUB_EVENT_PATH)")
	cmd.Flags().StringVar(&flagBase, "base", "", "Base revision; requires --head")
	cmd.Flags().StringVar(&flagHead, "head", "", "Head revision; requires --base")
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Paths checked when no change set applies (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagGates, "gates", "", "Gates to run (lint,typecheck,security,coverage or all)")
	cmd.Flags().StringVar(&flagThreshold, "threshold", "", "Minimum coverage percentage")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif, github)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagAnnotationsOut, "annotations-out", "", "Also write the annotation list as JSON to this path")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Always run tools, ignoring cached output")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagGates != "" {
		m["gates"] = flagGates
	}
	if flagThreshold != "" {
		m["threshold"] = flagThreshold
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagPaths != "" {
		m["paths"] = flagPaths
	}
	if flagExclude != "" {
		m["exclude"] = flagExclude
	}
	if flagCoverageFile != "" {
		m["coverageReport"] = flagCoverageFile
	}
	if flagJUnitFile != "" {
		m["testReport"] = flagJUnitFile
	}
	if flagNoRedact {
		m["privacy.redactSecrets"] = "false"
	}
	if flagNoCache {
		m["cache.enabled"] = "false"
	}
	return m
}

// readCaptured loads pre-captured tool output named by the --*-file flags.
func readCaptured() (map[string]string, string, error) {
	captured := make(map[string]string)
	for _, in := range []struct {
		gate string
		path string
	}{
		{config.GateLint, flagLintFile},
		{config.GateTypeCheck, flagTypeCheckFile},
		{config.GateSecurity, flagSecurityFile},
	} {
		if in.path == "" {
			continue
		}
		data, err := os.ReadFile(in.path)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s output: %w", in.gate, err)
		}
		captured[in.gate] = string(data)
	}

	var table string
	if flagCoverageTableFile != "" {
		data, err := os.ReadFile(flagCoverageTableFile)
		if err != nil {
			return nil, "", fmt.Errorf("reading coverage table: %w", err)
		}
		table = string(data)
	}
	return captured, table, nil
}

// capturedGates enables exactly the gates that have input on disk.
func capturedGates(captured map[string]string, table string) config.GatesConfig {
	var names []string
	for _, name := range config.AllGates {
		_, ok := captured[name]
		if ok || (name == config.GateCoverage && (table != "" || flagCoverageFile != "")) {
			names = append(names, name)
		}
	}
	g, _ := config.ParseGates(strings.Join(names, ","))
	return g
}

// loadChanges resolves the change set that scopes the check. Nil means the
// configured paths are checked.
func loadChanges() (*gitctx.ChangeSet, error) {
	switch {
	case flagBase != "" || flagHead != "":
		if flagBase == "" || flagHead == "" {
			return nil, errors.New("--base and --head must be used together")
		}
		cs, err := gitctx.Changes(flagBase, flagHead)
		if err != nil {
			return nil, err
		}
		return &cs, nil
	default:
		path := flagEvent
		if path == "" {
			path = os.Getenv("GITHUB_EVENT_PATH")
		}
		if path == "" {
			return nil, nil
		}
		cs, err := gitctx.FromEvent(path)
		if err != nil {
			return nil, err
		}
		return &cs, nil
	}
}

// setupCheck loads the config and inputs shared by check, annotate and github.
// On failure it reports the error, sets exitCode and returns false.
func setupCheck(captureOnly bool) (gate.Options, bool) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return gate.Options{}, false
	}
	log := newLogger(cfg.LogLevel)
	if flagNoRedact {
		log.Warn("secret redaction is disabled")
	}

	captured, table, err := readCaptured()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return gate.Options{}, false
	}
	if captureOnly && flagGates == "" {
		cfg.Gates = capturedGates(captured, table)
	}

	rules, err := review.LoadRules(cfg.RulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return gate.Options{}, false
	}

	repo, err := gitctx.GetRepoMeta()
	if err != nil {
		log.WithError(err).Debug("no repository metadata")
	}

	return gate.Options{
		Config:        cfg,
		Log:           log,
		Captured:      captured,
		CoverageTable: table,
		Rules:         rules,
		Repo:          repo,
		Version:       version,
	}, true
}

// newRunner returns the tool runner for a check, cached unless disabled.
func newRunner(cfg config.Config, log logrus.FieldLogger, changes *gitctx.ChangeSet) runner.Runner {
	exec := runner.NewExec(log)
	if !cfg.Cache.Enabled {
		return exec
	}
	c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		log.WithError(err).Warn("cache unavailable, running tools uncached")
		return exec
	}
	paths := cfg.Paths
	if changes != nil {
		paths = append(append([]string(nil), cfg.Paths...), changes.Paths()...)
	}
	fp, err := cache.Fingerprint(paths)
	if err != nil {
		log.WithError(err).Warn("cannot fingerprint inputs, running tools uncached")
		return exec
	}
	return &runner.Cached{Next: exec, Cache: c, Fingerprint: fp, Log: log}
}

// runGates evaluates the gates, writes the report and sets exitCode.
// It returns nil when the check could not complete.
func runGates(ctx context.Context, opts gate.Options) *gate.Report {
	report, err := gate.Run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}

	if err := output.WriteReport(report, opts.Config.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return nil
	}
	if flagAnnotationsOut != "" {
		output.WriteAnnotationsFile(opts.Log, flagAnnotationsOut, report.Annotations())
	}

	exitCode = report.ExitCode()
	return report
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the quality gates",
	Long: "Run the enabled gates against the changed files (or the configured paths), " +
		"print the report and exit 1 when any gate fails.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, ok := setupCheck(false)
		if !ok {
			return nil
		}

		changes, err := loadChanges()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		opts.Changes = changes
		opts.Runner = newRunner(opts.Config, opts.Log, changes)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		runGates(ctx, opts)
		return nil
	},
}

func init() {
	addCheckFlags(checkCmd)
}
