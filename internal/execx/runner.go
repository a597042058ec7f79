// Package execx provides the command runner seam used to drive external
// command-line collaborators. All control decisions made on top of it rely
// on exit status only; captured text is for human display.
package execx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner abstracts external command execution for testability.
type Runner interface {
	// Run executes the command and returns an error if it exits nonzero.
	// Combined output is embedded in the returned error for display.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// RunInteractive executes the command with the caller's stdio attached.
	// Used for flows that render to the terminal and block on operator
	// action, such as device authentication.
	RunInteractive(ctx context.Context, name string, args ...string) error
}

// realRunner implements Runner using os/exec.
type realRunner struct{}

// NewRunner returns a Runner that executes real commands.
func NewRunner() Runner {
	return &realRunner{}
}

func (r *realRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("execx: %s %s: %s: %w", name, strings.Join(args, " "), strings.TrimSpace(string(output)), err)
	}
	return nil
}

func (r *realRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("execx: %s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *realRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("execx: %s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

// CommandExists reports whether the named command is present on PATH.
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
