package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/guardrail/internal/config"
)

const (
	hookBegin = "# >>> guardrail pre-commit hook >>>"
	hookEnd   = "# <<< guardrail pre-commit hook <<<"
)

var (
	hookGates  string
	hookFormat string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-commit gate",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Gate commits on the staged files",
	Long: "Add a section to .git/hooks/pre-commit that runs the selected gates over the " +
		"staged files with a configured extension. Failed gates block the commit; a check " +
		"that cannot finish only warns. Other content of the hook is kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		gates, err := config.ParseGates(hookGates)
		if err == nil && len(gates.Names()) == 0 {
			err = fmt.Errorf("no gates selected")
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		cfg, err := config.Load(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		hookPath, err := preCommitPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading hook: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		section := hookSection(gates.Names(), hookFormat, cfg.Extensions)
		content := withHookSection(string(existing), section)
		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating hooks directory: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing hook: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(os.Stdout, "Commits now run the %s gates (%s)\n", strings.Join(gates.Names(), ", "), hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop gating commits",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := preCommitPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		existing, err := os.ReadFile(hookPath)
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Commits are not gated.")
			return nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading hook: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		content, found := withoutHookSection(string(existing))
		switch {
		case !found:
			fmt.Fprintf(os.Stdout, "No guardrail gate in %s\n", hookPath)
			return nil
		case onlyShebang(content):
			err = os.Remove(hookPath)
		default:
			err = os.WriteFile(hookPath, []byte(content), 0o755)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error updating hook: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		fmt.Fprintf(os.Stdout, "Commits are no longer gated (%s)\n", hookPath)
		return nil
	},
}

func preCommitPath() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--git-path", "hooks/pre-commit").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse failed)")
	}
	return strings.TrimSpace(string(out)), nil
}

// stagedPattern matches staged paths carrying one of exts. No extensions
// matches every path.
func stagedPattern(exts []string) string {
	var alts []string
	for _, ext := range exts {
		if ext = strings.TrimPrefix(strings.TrimSpace(ext), "."); ext != "" {
			alts = append(alts, regexp.QuoteMeta(ext))
		}
	}
	if len(alts) == 0 {
		return "."
	}
	return `\.(` + strings.Join(alts, "|") + `)$`
}

// hookSection renders the marked pre-commit section. The staged files become
// the --paths of the check. Exit 1 (a failed gate) blocks the commit and any
// other non-zero exit only warns.
func hookSection(gates []string, format string, exts []string) string {
	list := strings.Join(gates, ",")
	var b strings.Builder
	b.WriteString(hookBegin + "\n")
	fmt.Fprintf(&b, "staged=$(git diff --cached --name-only --diff-filter=ACMR | grep -E '%s' | paste -sd, -)\n", stagedPattern(exts))
	b.WriteString("if [ -n \"$staged\" ]; then\n")
	fmt.Fprintf(&b, "  guardrail check --gates %s --format %s --paths \"$staged\"\n", list, format)
	b.WriteString("  status=$?\n")
	b.WriteString("  case $status in\n")
	b.WriteString("    0) ;;\n")
	fmt.Fprintf(&b, "    1) echo \"guardrail: %s gate failed on staged files, commit blocked\" >&2; exit 1 ;;\n", list)
	fmt.Fprintf(&b, "    *) echo \"guardrail: %s check exited $status, commit not gated\" >&2 ;;\n", list)
	b.WriteString("  esac\n")
	b.WriteString("fi\n")
	b.WriteString(hookEnd + "\n")
	return b.String()
}

// splitHook returns the hook text around the guardrail section.
func splitHook(hook string) (before, after string, found bool) {
	i := strings.Index(hook, hookBegin)
	j := strings.Index(hook, hookEnd)
	if i == -1 || j < i {
		return hook, "", false
	}
	return hook[:i], strings.TrimPrefix(hook[j+len(hookEnd):], "\n"), true
}

// withHookSection installs section into hook, replacing an earlier guardrail
// section in place or appending otherwise. An empty hook gets a shebang.
func withHookSection(hook, section string) string {
	if strings.TrimSpace(hook) == "" {
		return "#!/bin/sh\n" + section
	}
	before, after, found := splitHook(hook)
	if !found {
		if !strings.HasSuffix(before, "\n") {
			before += "\n"
		}
		return before + section
	}
	return before + section + after
}

func withoutHookSection(hook string) (string, bool) {
	before, after, found := splitHook(hook)
	return before + after, found
}

func onlyShebang(hook string) bool {
	s := strings.TrimSpace(hook)
	return s == "" || (strings.HasPrefix(s, "#!") && !strings.Contains(s, "\n"))
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookGates, "gates", "lint,typecheck", "Gates run on staged files (lint,typecheck,security or all)")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format (text, json, markdown, sarif, github)")
}
