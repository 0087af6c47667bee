// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// Project is a temporary directory holding seeds and declarations.
type Project struct {
	Dir   string
	Seeds string // seeds directory
}

// Path returns the absolute path of a file in the project.
func (p *Project) Path(name string) string {
	return filepath.Join(p.Dir, name)
}

// SetupTestProject creates a temporary project with a sales seed, a
// pivot over it and an unpivot of the pivot.
func SetupTestProject(t *testing.T) *Project {
	t.Helper()

	dir := t.TempDir()
	p := &Project{Dir: dir, Seeds: filepath.Join(dir, "seeds")}

	WriteFile(t, filepath.Join(p.Seeds, "sales.csv"), `region,quarter,amount
A,Q1,10
A,Q2,20
B,Q1,30
`)

	WriteFile(t, p.Path("sales_pivot.yaml"), `pivot:
  source: sales
  on:
    - expr: quarter
      in: [Q1, Q2]
  using:
    - func: sum
      args: [amount]
`)

	WriteFile(t, p.Path("quarters_unpivot.yaml"), `unpivot:
  source:
    pivot:
      source: sales
      on:
        - expr: quarter
          in: [Q1, Q2]
      using:
        - func: sum
          args: [amount]
  on: [Q1, Q2]
  into:
    name: quarter
    value: total
`)

	return p
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails if s contains ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("output contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks that md is a markdown table with a header
// separator row.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(md), "\n")
	if len(lines) < 2 {
		t.Fatalf("markdown table needs a header and a separator, got: %q", md)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "|") {
			t.Errorf("markdown row should start with '|': %q", line)
		}
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("second markdown line should be a separator: %q", lines[1])
	}
}
