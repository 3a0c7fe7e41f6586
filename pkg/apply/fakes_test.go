package apply

import (
	"context"
	"sync"
)

type pushCall struct {
	branch string
	force  bool
}

// fakeRepo is an in-memory Repository with scripted failures.
type fakeRepo struct {
	mu        sync.Mutex
	current   string
	branches  map[string]bool
	staged    []string
	commits   []string
	pushes    []pushCall
	restored  []string
	stageErr  error
	commitErr error
	pushErr   error
	createErr error
}

func newFakeRepo(branches ...string) *fakeRepo {
	r := &fakeRepo{current: "main", branches: map[string]bool{"main": true}}
	for _, b := range branches {
		r.branches[b] = true
	}
	return r
}

func (r *fakeRepo) Checkout(_ context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.branches[branch] {
		return errString("pathspec '" + branch + "' did not match")
	}
	r.current = branch
	return nil
}

func (r *fakeRepo) CurrentBranch(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, nil
}

func (r *fakeRepo) CreateBranch(_ context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.branches[branch] = true
	r.current = branch
	return nil
}

func (r *fakeRepo) Stage(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stageErr != nil {
		return r.stageErr
	}
	r.staged = append(r.staged, path)
	return nil
}

func (r *fakeRepo) Commit(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.commits = append(r.commits, r.current+": "+message)
	return nil
}

func (r *fakeRepo) Push(_ context.Context, branch string, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pushErr != nil {
		return r.pushErr
	}
	r.pushes = append(r.pushes, pushCall{branch: branch, force: force})
	return nil
}

func (r *fakeRepo) RestorePath(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restored = append(r.restored, path)
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }

// fakeExecutor records commands and returns scripted results.
type fakeExecutor struct {
	calls  []string
	result ExecResult
	err    error
}

func (e *fakeExecutor) Execute(_ context.Context, commands string) (ExecResult, error) {
	e.calls = append(e.calls, commands)
	return e.result, e.err
}
