// Package main tests for the calcheck CLI entry point.
package main

import (
	"os/exec"
	"strings"
	"testing"
)

// TestMain_HelpFlag verifies the --help flag works correctly.
func TestMain_HelpFlag(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("go", "run", ".", "--help")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("--help failed: %v\noutput: %s", err, out)
	}

	if !strings.Contains(string(out), "calcheck") {
		t.Errorf("--help output does not mention calcheck:\n%s", out)
	}
}

// TestMain_ExitCode verifies that usage errors reach the process exit code.
func TestMain_ExitCode(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("go", "run", ".", "run")
	err := cmd.Run()

	// go run reports the child's failure as exit status 1 regardless of
	// the code, so only the failure itself is checked.
	if err == nil {
		t.Fatal("run without suites succeeded; want failure")
	}
}
