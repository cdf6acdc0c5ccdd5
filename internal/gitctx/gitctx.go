package gitctx

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta() (RepoMeta, error) {
	root, err := gitOutput("rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// LineRange is an inclusive range of new-file line numbers.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FileChange is one file touched by a diff.
type FileChange struct {
	Path  string      `json:"path"`
	IsNew bool        `json:"isNew,omitempty"`
	Added []LineRange `json:"added,omitempty"`
}

// ChangeSet is the scope of one run.
type ChangeSet struct {
	Mode  string       `json:"mode"`
	Base  string       `json:"base,omitempty"`
	Head  string       `json:"head,omitempty"`
	Files []FileChange `json:"files"`
}

// Paths returns the changed paths in diff order.
func (c ChangeSet) Paths() []string {
	out := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		out = append(out, f.Path)
	}
	return out
}

// Touches reports whether path is part of the change set.
func (c ChangeSet) Touches(path string) bool {
	for _, f := range c.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

// AddedLine reports whether line was added to path by the change set.
func (c ChangeSet) AddedLine(path string, line int) bool {
	for _, f := range c.Files {
		if f.Path != path {
			continue
		}
		for _, r := range f.Added {
			if line >= r.Start && line <= r.End {
				return true
			}
		}
	}
	return false
}

// event is the subset of a GitHub Actions event payload used for scoping.
type event struct {
	PullRequest *struct {
		Base struct {
			SHA string `json:"sha"`
		} `json:"base"`
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// ErrNoRange is returned when an event payload names no base/head pair.
var ErrNoRange = errors.New("event has no base/head commits")

// EventRange reads a GitHub event file and returns its base and head commits.
func EventRange(path string) (base, head string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading event file: %w", err)
	}
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", "", fmt.Errorf("parsing event file: %w", err)
	}
	if pr := ev.PullRequest; pr != nil && pr.Base.SHA != "" && pr.Head.SHA != "" {
		return pr.Base.SHA, pr.Head.SHA, nil
	}
	if ev.Before != "" && ev.After != "" {
		return ev.Before, ev.After, nil
	}
	return "", "", ErrNoRange
}

// FromEvent builds the change set for a GitHub event. When the event carries
// no usable range, or git cannot resolve it, every tracked file is in scope.
func FromEvent(path string) (ChangeSet, error) {
	if path != "" {
		base, head, err := EventRange(path)
		switch {
		case err == nil:
			cs, diffErr := Changes(base, head)
			if diffErr == nil {
				return cs, nil
			}
		case !errors.Is(err, ErrNoRange):
			return ChangeSet{}, err
		}
	}
	return Tracked()
}

// Changes diffs base...head (merge-base form) and returns the changed files.
func Changes(base, head string) (ChangeSet, error) {
	for _, ref := range []string{base, head} {
		if _, err := gitOutput("rev-parse", "--verify", "--quiet", ref+"^{commit}"); err != nil {
			return ChangeSet{}, fmt.Errorf("unknown revision %s: %w", ref, err)
		}
	}
	raw, err := gitOutput("diff", "-U0", base+"..."+head)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("git diff %s...%s: %w", base, head, err)
	}
	files, err := ParseDiff(raw)
	if err != nil {
		return ChangeSet{}, err
	}
	return ChangeSet{Mode: "range", Base: base, Head: head, Files: files}, nil
}

// ParseDiff parses a unified diff and returns the files that still exist
// after it, with the line ranges it added. Deleted and binary files are dropped.
func ParseDiff(raw string) ([]FileChange, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	var out []FileChange
	for _, f := range parsed {
		if f.IsDelete || f.IsBinary || f.NewName == "" {
			continue
		}
		fc := FileChange{Path: f.NewName, IsNew: f.IsNew}
		for _, frag := range f.TextFragments {
			fc.Added = append(fc.Added, addedRanges(frag)...)
		}
		out = append(out, fc)
	}
	return out, nil
}

func addedRanges(frag *gitdiff.TextFragment) []LineRange {
	var out []LineRange
	line := int(frag.NewPosition)
	for _, l := range frag.Lines {
		switch l.Op {
		case gitdiff.OpAdd:
			if n := len(out); n > 0 && out[n-1].End == line-1 {
				out[n-1].End = line
			} else {
				out = append(out, LineRange{Start: line, End: line})
			}
			line++
		case gitdiff.OpContext:
			line++
		}
	}
	return out
}

// Tracked returns every file known to git as the change set.
func Tracked() (ChangeSet, error) {
	out, err := gitOutput("ls-files")
	if err != nil {
		return ChangeSet{}, fmt.Errorf("git ls-files: %w", err)
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	sort.Strings(paths)
	cs := ChangeSet{Mode: "tracked"}
	for _, p := range paths {
		cs.Files = append(cs.Files, FileChange{Path: p})
	}
	return cs, nil
}

// FilterExt keeps the paths ending in one of exts. An empty exts keeps all.
func FilterExt(paths []string, exts []string) []string {
	if len(exts) == 0 {
		return paths
	}
	var out []string
	for _, p := range paths {
		for _, ext := range exts {
			if strings.EqualFold(filepath.Ext(p), ext) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
		if dir := strings.TrimSuffix(pattern, "/**"); dir != pattern {
			if strings.HasPrefix(path, strings.TrimPrefix(dir, "**/")+"/") || strings.Contains(path, "/"+strings.TrimPrefix(dir, "**/")+"/") {
				return true
			}
		}
	}
	return false
}

func gitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}
