package coverage

import (
	"strconv"
	"strings"
)

// TotalKey is the ParseTable key holding the TOTAL row.
const TotalKey = "overall"

// FileCoverage is one row of the coverage text table.
type FileCoverage struct {
	Percent float64 `json:"percent"`
	Missing []int   `json:"missing,omitempty"`
}

// ParseTable parses the table printed by `coverage report -m`:
//
//	Name           Stmts   Miss  Cover   Missing
//	--------------------------------------------
//	src/app.py        20      4    80%   8, 12-14
//	TOTAL             20      4    80%
//
// Branch columns are tolerated; the Cover column is the first field ending
// in "%". Rows that do not parse are skipped.
func ParseTable(s string) map[string]FileCoverage {
	out := make(map[string]FileCoverage)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "---") || strings.Contains(line, ":") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "Name" {
			continue
		}
		idx := coverColumn(fields)
		if idx < 0 {
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[idx], "%"), 64)
		if err != nil {
			continue
		}

		if fields[0] == "TOTAL" {
			out[TotalKey] = FileCoverage{Percent: pct}
			continue
		}
		if idx < 3 {
			continue
		}
		out[fields[0]] = FileCoverage{
			Percent: pct,
			Missing: ParseMissing(strings.Join(fields[idx+1:], " ")),
		}
	}
	return out
}

func coverColumn(fields []string) int {
	for i, f := range fields {
		if i > 0 && strings.HasSuffix(f, "%") {
			return i
		}
	}
	return -1
}

// Bounds on the Missing column. Ranges ending past MaxLine are malformed and
// skipped; expansion stops once MaxMissing lines are collected.
const (
	MaxLine    = 1_000_000
	MaxMissing = 10_000
)

// ParseMissing expands a Missing column such as "8, 12-14" into line numbers.
// Branch arrows ("15->18") and unreadable entries are skipped.
func ParseMissing(s string) []int {
	var lines []int
	for _, part := range strings.Split(s, ",") {
		if len(lines) >= MaxMissing {
			break
		}
		part = strings.TrimSpace(part)
		if part == "" || part == "-" || strings.Contains(part, "->") {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start < 1 || end < start || end > MaxLine {
				continue
			}
			for n := start; n <= end && len(lines) < MaxMissing; n++ {
				lines = append(lines, n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > MaxLine {
			continue
		}
		lines = append(lines, n)
	}
	return lines
}

// Files returns the per-file rows of a parsed table without the TOTAL row.
func Files(table map[string]FileCoverage) map[string]FileCoverage {
	out := make(map[string]FileCoverage, len(table))
	for k, v := range table {
		if k != TotalKey {
			out[k] = v
		}
	}
	return out
}
