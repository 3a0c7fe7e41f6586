// Package gitrepo wraps the git command line for the branch-scoped
// write/commit/push sequence used by the applier.
//
// Every call is synchronous and bounded by a timeout. A call that exceeds
// it fails like any other git error.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single git invocation.
	DefaultTimeout = 30 * time.Second

	// DefaultRemote is the remote branches are pushed to.
	DefaultRemote = "origin"
)

// ErrTimeout is returned when a git invocation exceeds its timeout.
var ErrTimeout = errors.New("git command timed out")

// Runner executes git with the given arguments in dir and returns the
// combined output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the real git binary.
type ExecRunner struct {
	// Binary defaults to "git".
	Binary string
}

// Run executes git and captures combined output.
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w\nOutput: %s", strings.Join(args, " "), err, string(output))
	}

	return string(output), nil
}

// Config holds repository settings.
type Config struct {
	WorkDir     string
	Remote      string
	AuthorName  string
	AuthorEmail string
	Timeout     time.Duration
}

// Repository performs git operations on a single working copy.
type Repository struct {
	config Config
	runner Runner
}

// Option configures a Repository.
type Option func(*Repository)

// WithRunner replaces the git runner.
func WithRunner(runner Runner) Option {
	return func(r *Repository) {
		r.runner = runner
	}
}

// New creates a repository for the working copy in config.WorkDir.
func New(config Config, opts ...Option) (*Repository, error) {
	if config.WorkDir == "" {
		return nil, fmt.Errorf("repository work directory is required")
	}
	if config.Remote == "" {
		config.Remote = DefaultRemote
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	repo := &Repository{
		config: config,
		runner: ExecRunner{},
	}
	for _, opt := range opts {
		opt(repo)
	}

	return repo, nil
}

// WorkDir returns the working copy directory.
func (r *Repository) WorkDir() string {
	return r.config.WorkDir
}

// Checkout switches the working copy to an existing branch. The trailing
// "--" keeps git from reading branch as a pathspec when no such ref exists.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	if _, err := r.execGit(ctx, "checkout", branch, "--"); err != nil {
		return fmt.Errorf("failed to checkout branch '%s': %w", branch, err)
	}
	return nil
}

// CurrentBranch returns the name of the checked out branch.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	output, err := r.execGit(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// CreateBranch creates branch from the current state and switches to it.
func (r *Repository) CreateBranch(ctx context.Context, branch string) error {
	if _, err := r.execGit(ctx, "checkout", "-b", branch); err != nil {
		return fmt.Errorf("failed to create branch '%s': %w", branch, err)
	}
	return nil
}

// Stage adds path to the index.
func (r *Repository) Stage(ctx context.Context, path string) error {
	if _, err := r.execGit(ctx, "add", "--", path); err != nil {
		return fmt.Errorf("failed to stage '%s': %w", path, err)
	}
	return nil
}

// Commit records the index with message, using the configured author
// when both name and email are set.
func (r *Repository) Commit(ctx context.Context, message string) error {
	args := []string{"commit", "-m", message}

	if r.config.AuthorName != "" && r.config.AuthorEmail != "" {
		args = append(args, "--author", fmt.Sprintf("%s <%s>", r.config.AuthorName, r.config.AuthorEmail))
	}

	if _, err := r.execGit(ctx, args...); err != nil {
		return fmt.Errorf("failed to create commit: %w", err)
	}
	return nil
}

// Push pushes branch to the remote and sets it as upstream. With force the
// remote branch is overwritten unconditionally.
func (r *Repository) Push(ctx context.Context, branch string, force bool) error {
	args := []string{"push", "--set-upstream", r.config.Remote, branch}
	if force {
		args = append(args, "--force")
	}

	if _, err := r.execGit(ctx, args...); err != nil {
		return fmt.Errorf("failed to push branch '%s': %w", branch, err)
	}
	return nil
}

// RestorePath discards staged and unstaged changes to path, returning it
// to its HEAD content. A path that does not exist at HEAD is removed.
func (r *Repository) RestorePath(ctx context.Context, path string) error {
	// Unstage first; fails harmlessly when there is no HEAD yet
	_, _ = r.execGit(ctx, "reset", "-q", "HEAD", "--", path)

	if _, err := r.execGit(ctx, "checkout", "HEAD", "--", path); err == nil {
		return nil
	}

	if err := os.Remove(filepath.Join(r.config.WorkDir, filepath.FromSlash(path))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove '%s': %w", path, err)
	}
	return nil
}

// HeadCommit returns the full hash of HEAD.
func (r *Repository) HeadCommit(ctx context.Context) (string, error) {
	output, err := r.execGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// execGit runs one git command under the configured timeout.
func (r *Repository) execGit(ctx context.Context, args ...string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	output, err := r.runner.Run(execCtx, r.config.WorkDir, args...)
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %w", ErrTimeout, r.config.Timeout, err)
		}
		return "", err
	}

	return output, nil
}
