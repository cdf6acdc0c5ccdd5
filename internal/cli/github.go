package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/guardrail/internal/gitctx"
	"github.com/dshills/guardrail/internal/github"
)

var (
	flagGHOwner  string
	flagGHRepo   string
	flagGHDryRun bool
)

var githubCmd = &cobra.Command{
	Use:   "github <pr-number>",
	Short: "Check a GitHub pull request",
	Long:  "Fetch a PR diff from GitHub, run the gates on the files it touches, and post the review summary with inline comments.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prNumber, err := strconv.Atoi(args[0])
		if err != nil || prNumber < 1 {
			fmt.Fprintf(os.Stderr, "Error: invalid PR number %q\n", args[0])
			exitCode = ExitUsageError
			return nil
		}

		opts, ok := setupCheck(false)
		if !ok {
			return nil
		}
		log := opts.Log

		// Detect owner/repo if not provided
		owner, repo := flagGHOwner, flagGHRepo
		if owner == "" || repo == "" {
			detected, detectedRepo, err := github.DetectRepo()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\nUse --owner and --repo flags to specify manually.\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			if owner == "" {
				owner = detected
			}
			if repo == "" {
				repo = detectedRepo
			}
		}

		ghClient, err := github.NewClient()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		log.WithField("pr", prNumber).Infof("fetching pull request from %s/%s", owner, repo)
		diff, err := ghClient.GetPRDiff(ctx, owner, repo, prNumber)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if diff == "" {
			fmt.Fprintln(os.Stdout, "PR has no diff, nothing to check.")
			return nil
		}

		files, err := gitctx.ParseDiff(diff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		changes := &gitctx.ChangeSet{
			Mode:  "github-pr",
			Head:  fmt.Sprintf("#%d", prNumber),
			Files: files,
		}
		opts.Changes = changes
		opts.Runner = newRunner(opts.Config, log, changes)

		report := runGates(ctx, opts)
		if report == nil {
			return nil
		}

		if flagGHDryRun {
			log.WithField("annotations", len(report.Annotations())).Info("dry run, not posting to GitHub")
			return nil
		}

		diffFiles := make(map[string]bool, len(files))
		for _, f := range files {
			diffFiles[f.Path] = true
		}
		rev := github.BuildReview(report.Review, diffFiles, opts.Config.MaxAnnotations)
		log.WithFields(logrus.Fields{
			"event":    rev.Event,
			"comments": len(rev.Comments),
		}).Info("posting review")

		if err := ghClient.PostReview(ctx, owner, repo, prNumber, rev); err != nil {
			fmt.Fprintf(os.Stderr, "Error posting review: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		log.Infof("review posted to PR #%d", prNumber)
		return nil
	},
}

func init() {
	addCheckFlags(githubCmd)
	githubCmd.Flags().StringVar(&flagGHOwner, "owner", "", "GitHub repository owner (auto-detected if omitted)")
	githubCmd.Flags().StringVar(&flagGHRepo, "repo", "", "GitHub repository name (auto-detected if omitted)")
	githubCmd.Flags().BoolVar(&flagGHDryRun, "dry-run", false, "Run the gates but don't post to GitHub")
}
