package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/guardrail/internal/gate"
	"github.com/dshills/guardrail/internal/output"
)

const defaultAnnotationsPath = "annotations.json"

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Build review annotations from captured tool output",
	Long: "Read tool output captured by earlier CI steps, build the review summary and write " +
		"it as JSON. No tool is run and the exit code does not reflect gate results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, ok := setupCheck(true)
		if !ok {
			return nil
		}
		if len(opts.Captured) == 0 && opts.CoverageTable == "" && flagCoverageFile == "" && flagJUnitFile == "" {
			fmt.Fprintln(os.Stderr, "Error: annotate needs at least one of --lint-file, --typecheck-file, --security-file, --coverage-file, --coverage-table-file, --junit-file")
			exitCode = ExitUsageError
			return nil
		}

		changes, err := loadChanges()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		opts.Changes = changes

		report, err := gate.Run(context.Background(), opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		path := flagOut
		if path == "" {
			path = defaultAnnotationsPath
		}
		if err := output.SaveAnnotations(path, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if flagAnnotationsOut != "" {
			output.WriteAnnotationsFile(opts.Log, flagAnnotationsOut, report.Annotations())
		}

		fmt.Fprintf(os.Stdout, "%s\nWrote %d annotations to %s\n",
			report.Review.Summary, len(report.Annotations()), path)
		return nil
	},
}

func init() {
	addCheckFlags(annotateCmd)
}
