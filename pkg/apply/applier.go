// Package apply applies parsed directives to a repository working copy.
//
// File changes land committed and pushed on the branch they name,
// whatever branch is checked out beforehand. Each directive is an
// independent unit of work: a failure is recorded in its Outcome and the
// batch moves on to the next directive. Directives run one at a time, in
// order, holding the working copy for the whole per-directive sequence.
package apply

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/entrhq/relay/pkg/directive"
	"github.com/entrhq/relay/pkg/logging"
	"github.com/entrhq/relay/pkg/security/workspace"
)

// CommitMarker keeps CI from triggering on the applier's own commits.
const CommitMarker = "[skip ci]"

// Repository is the version-control collaborator. *gitrepo.Repository
// satisfies it.
type Repository interface {
	Checkout(ctx context.Context, branch string) error
	CurrentBranch(ctx context.Context) (string, error)
	CreateBranch(ctx context.Context, branch string) error
	Stage(ctx context.Context, path string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, branch string, force bool) error
}

// Restorer is implemented by repositories that can drop an uncommitted
// change to one path. The applier uses it so a failed directive does not
// leave the working copy dirty for the next one.
type Restorer interface {
	RestorePath(ctx context.Context, path string) error
}

// PathResolver maps a directive path to a location in the working copy.
// *workspace.Guard satisfies it.
type PathResolver interface {
	Resolve(path string) (string, error)
	MakeRelative(absPath string) (string, error)
}

// Observer is notified after each directive reaches a terminal state.
type Observer func(Outcome)

// Applier applies directives to one working copy.
type Applier struct {
	repo     Repository
	paths    PathResolver
	executor Executor
	policy   *BranchPolicy
	checkout *Checkout
	logger   *logging.Logger
	observer Observer
	push     bool
}

// Option configures an Applier.
type Option func(*Applier)

// WithExecutor grants command execution. Without it run requests are
// only surfaced.
func WithExecutor(executor Executor) Option {
	return func(a *Applier) {
		a.executor = executor
	}
}

// WithBranchPolicy sets which branches may be force-pushed.
func WithBranchPolicy(policy *BranchPolicy) Option {
	return func(a *Applier) {
		a.policy = policy
	}
}

// WithCheckout shares a working-copy lock with other users of the checkout.
func WithCheckout(checkout *Checkout) Option {
	return func(a *Applier) {
		a.checkout = checkout
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Applier) {
		a.logger = logger
	}
}

// WithObserver registers a callback for each finished directive.
func WithObserver(observer Observer) Option {
	return func(a *Applier) {
		a.observer = observer
	}
}

// WithoutPush commits locally and skips the push step.
func WithoutPush() Option {
	return func(a *Applier) {
		a.push = false
	}
}

// New creates an applier over repo, resolving paths through paths.
func New(repo Repository, paths PathResolver, opts ...Option) (*Applier, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if paths == nil {
		return nil, fmt.Errorf("path resolver is required")
	}

	a := &Applier{
		repo:     repo,
		paths:    paths,
		checkout: NewCheckout(),
		logger:   logging.Discard(),
		push:     true,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Apply runs every directive in order and returns one outcome per
// directive. It never stops early on a directive failure.
func (a *Applier) Apply(ctx context.Context, directives []directive.Directive) Batch {
	batch := Batch{Outcomes: make([]Outcome, 0, len(directives))}

	for i, d := range directives {
		start := time.Now()

		var outcome Outcome
		switch d := d.(type) {
		case directive.FileChange:
			outcome = a.applyFileChange(ctx, d)
		case directive.RunRequest:
			outcome = a.applyRunRequest(ctx, d)
		default:
			err := &StepError{Step: StepValidate, Err: fmt.Errorf("unsupported directive %T", d)}
			outcome = Outcome{
				Status: StatusFailed,
				Step:   StepValidate,
				Err:    err,
				Reason: err.Error(),
			}
		}

		outcome.Index = i + 1
		outcome.Duration = time.Since(start)
		batch.Outcomes = append(batch.Outcomes, outcome)

		if a.observer != nil {
			a.observer(outcome)
		}
	}

	return batch
}

// applyFileChange runs checkout, create-if-missing, write, stage, commit
// and push for one file change.
func (a *Applier) applyFileChange(ctx context.Context, fc directive.FileChange) Outcome {
	outcome := Outcome{
		Kind:   directive.KindFile,
		Branch: fc.Branch,
		Path:   fc.Path,
	}
	log := a.logger.WithFields(logrus.Fields{"branch": fc.Branch, "path": fc.Path})

	fail := func(step Step, err error) Outcome {
		stepErr := &StepError{Step: step, Err: err}
		outcome.Status = StatusFailed
		outcome.Step = step
		outcome.Err = stepErr
		outcome.Reason = stepErr.Error()
		log.WithError(err).Errorf("error updating %s on branch %s", fc.Path, fc.Branch)
		return outcome
	}

	if err := fc.Validate(); err != nil {
		return fail(StepValidate, err)
	}

	release, err := a.checkout.Acquire(ctx)
	if err != nil {
		return fail(StepAcquire, err)
	}
	defer release()

	created, err := a.switchBranch(ctx, fc.Branch, log)
	if err != nil {
		return fail(StepCreateBranch, err)
	}
	outcome.Created = created

	absPath, err := a.paths.Resolve(fc.Path)
	if err != nil {
		return fail(StepResolvePath, err)
	}

	if err := writeFile(absPath, fc.Content); err != nil {
		return fail(StepWrite, err)
	}

	relPath, err := a.paths.MakeRelative(absPath)
	if err != nil {
		return fail(StepStage, err)
	}
	if err := a.repo.Stage(ctx, relPath); err != nil {
		a.restore(ctx, relPath, log)
		return fail(StepStage, err)
	}

	if err := a.repo.Commit(ctx, CommitMessage(fc.Path)); err != nil {
		a.restore(ctx, relPath, log)
		return fail(StepCommit, err)
	}

	if a.push {
		force := a.policy.Owns(fc.Branch)
		if err := a.repo.Push(ctx, fc.Branch, force); err != nil {
			return fail(StepPush, err)
		}
		outcome.Forced = force
	}

	outcome.Status = StatusApplied
	log.Infof("updated %s on branch %s", fc.Path, fc.Branch)
	return outcome
}

// switchBranch checks out branch, creating it from the current state when
// the checkout does not land on it. It reports whether it created the
// branch.
func (a *Applier) switchBranch(ctx context.Context, branch string, log *logging.Logger) (bool, error) {
	checkoutErr := a.repo.Checkout(ctx, branch)
	if checkoutErr != nil {
		log.WithError(checkoutErr).Debugf("checkout of %s failed, will create it", branch)
	}

	current, err := a.repo.CurrentBranch(ctx)
	if err != nil {
		log.WithError(err).Debugf("could not read current branch")
	}
	if err == nil && current == branch {
		return false, nil
	}

	if createErr := a.repo.CreateBranch(ctx, branch); createErr != nil {
		if checkoutErr != nil {
			return false, fmt.Errorf("%w (checkout: %v)", createErr, checkoutErr)
		}
		return false, createErr
	}

	log.Infof("created branch %s", branch)
	return true, nil
}

// restore drops an uncommitted write when the repository supports it.
func (a *Applier) restore(ctx context.Context, relPath string, log *logging.Logger) {
	restorer, ok := a.repo.(Restorer)
	if !ok {
		return
	}
	if err := restorer.RestorePath(ctx, relPath); err != nil {
		log.WithError(err).Warnf("could not restore %s after failure", relPath)
	}
}

// applyRunRequest surfaces the command and executes it only when an
// executor was granted.
func (a *Applier) applyRunRequest(ctx context.Context, rr directive.RunRequest) Outcome {
	outcome := Outcome{
		Kind:     directive.KindRun,
		Commands: rr.Commands,
	}

	if err := rr.Validate(); err != nil {
		outcome.Status = StatusFailed
		outcome.Step = StepValidate
		outcome.Err = &StepError{Step: StepValidate, Err: err}
		outcome.Reason = outcome.Err.Error()
		return outcome
	}

	a.logger.Infof("assistant wants to run:\n%s", rr.Commands)

	if a.executor == nil {
		outcome.Status = StatusSurfaced
		return outcome
	}

	release, err := a.checkout.Acquire(ctx)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Step = StepAcquire
		outcome.Err = &StepError{Step: StepAcquire, Err: err}
		outcome.Reason = outcome.Err.Error()
		return outcome
	}
	defer release()

	result, err := a.executor.Execute(ctx, rr.Commands)
	outcome.Output = result.Output()
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Step = StepExecute
		outcome.Err = &StepError{Step: StepExecute, Err: err}
		outcome.Reason = outcome.Err.Error()
		a.logger.WithError(err).Errorf("command failed")
		return outcome
	}

	outcome.Status = StatusExecuted
	return outcome
}

// CommitMessage is the commit subject for a file change.
func CommitMessage(path string) string {
	return fmt.Sprintf("Update %s %s", path, CommitMarker)
}

// writeFile replaces absPath with content through a temporary file and a
// rename, creating parent directories first.
func writeFile(absPath, content string) error {
	if err := workspace.EnsureParent(absPath); err != nil {
		return err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(absPath); err == nil {
		if info.IsDir() {
			return fmt.Errorf("'%s' is a directory", absPath)
		}
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(absPath), "."+filepath.Base(absPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
