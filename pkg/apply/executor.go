package apply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Executor runs a run request's command line. Granting one to the Applier
// is the only way commands get executed.
type Executor interface {
	Execute(ctx context.Context, commands string) (ExecResult, error)
}

// ExecResult captures one command execution.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output joins stdout and stderr for reporting.
func (r ExecResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// ShellExecutor runs commands with "sh -c" in the working copy.
type ShellExecutor struct {
	workDir string
	timeout time.Duration
}

// NewShellExecutor creates a shell executor. A non-positive timeout
// defaults to 30 seconds.
func NewShellExecutor(workDir string, timeout time.Duration) *ShellExecutor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShellExecutor{
		workDir: workDir,
		timeout: timeout,
	}
}

// Execute runs commands and fails on a non-zero exit or timeout.
func (s *ShellExecutor) Execute(ctx context.Context, commands string) (ExecResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", commands)
	cmd.Dir = s.workDir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			result.ExitCode = -1
			return result, fmt.Errorf("command timed out after %s", s.timeout)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("command exited with code %d", result.ExitCode)
		}

		// Command failed to start
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run command: %w", err)
	}

	return result, nil
}
