package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/guardrail/internal/cache"
)

// ErrToolNotFound is returned when a tool's executable is not on PATH.
var ErrToolNotFound = errors.New("tool not found")

// Tool describes one external command.
type Tool struct {
	Name    string
	Argv    []string
	Dir     string
	Timeout time.Duration
}

// Output is the captured result of one tool run.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Cached   bool
}

// Runner runs a tool and returns its output.
type Runner interface {
	Run(ctx context.Context, t Tool) (Output, error)
}

// Exec runs tools as subprocesses.
type Exec struct {
	log      logrus.FieldLogger
	lookPath func(string) (string, error)
}

// NewExec creates an Exec runner that logs through log.
func NewExec(log logrus.FieldLogger) *Exec {
	return &Exec{log: log, lookPath: exec.LookPath}
}

// Run executes t. The context and t.Timeout bound the run.
func (e *Exec) Run(ctx context.Context, t Tool) (Output, error) {
	if len(t.Argv) == 0 {
		return Output{}, fmt.Errorf("%s: empty command", t.Name)
	}
	path, err := e.lookPath(t.Argv[0])
	if err != nil {
		return Output{}, fmt.Errorf("%s: %s: %w", t.Name, t.Argv[0], ErrToolNotFound)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, t.Argv[1:]...)
	cmd.Dir = t.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := e.log.WithField("tool", t.Name)
	log.WithField("argv", t.Argv).Debug("running tool")
	timer := StartTimer(log, t.Name)
	err = cmd.Run()
	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: timer.Stop(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s: %w", t.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("running %s: %w", t.Name, err)
	}
	return out, nil
}

// Cached serves tool runs from a cache when the command line and the
// fingerprint of its inputs are unchanged.
type Cached struct {
	Next        Runner
	Cache       *cache.Cache
	Fingerprint string
	Log         logrus.FieldLogger
}

// Run returns a cached output on hit and stores the output of completed runs on miss.
func (c *Cached) Run(ctx context.Context, t Tool) (Output, error) {
	key := cache.BuildCacheKey(t.Argv, c.Fingerprint)
	if e, ok := c.Cache.Get(key); ok {
		c.Log.WithField("tool", t.Name).Debug("cache hit")
		return Output{Stdout: e.Output, Stderr: e.Stderr, ExitCode: e.ExitCode, Cached: true}, nil
	}
	out, err := c.Next.Run(ctx, t)
	if err != nil {
		return out, err
	}
	if err := c.Cache.Put(key, cache.Entry{Tool: t.Name, Output: out.Stdout, Stderr: out.Stderr, ExitCode: out.ExitCode}); err != nil {
		c.Log.WithError(err).WithField("tool", t.Name).Warn("cache write failed")
	}
	return out, nil
}

// Static returns canned outputs by tool name. It serves pre-captured
// reports and tests.
type Static map[string]Output

// Run returns the output registered for t.Name, or ErrToolNotFound.
func (s Static) Run(_ context.Context, t Tool) (Output, error) {
	out, ok := s[t.Name]
	if !ok {
		return Output{}, fmt.Errorf("%s: %w", t.Name, ErrToolNotFound)
	}
	return out, nil
}
