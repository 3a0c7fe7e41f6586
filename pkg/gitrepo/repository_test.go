package gitrepo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRepo creates a working copy with one commit and a bare "origin".
func setupRepo(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	work := filepath.Join(root, "work")

	runGit(t, root, "init", "--bare", remote)
	runGit(t, root, "init", work)
	runGit(t, work, "config", "user.email", "test@example.com")
	runGit(t, work, "config", "user.name", "Test User")
	runGit(t, work, "checkout", "-b", "main")

	require.NoError(t, os.WriteFile(filepath.Join(work, "README.md"), []byte("# Test\n"), 0644))
	runGit(t, work, "add", "README.md")
	runGit(t, work, "commit", "-m", "Initial commit")
	runGit(t, work, "remote", "add", "origin", remote)

	return work
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), output)
	return strings.TrimSpace(string(output))
}

func TestNew_RequiresWorkDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	repo, err := New(Config{WorkDir: "/tmp/x"})
	require.NoError(t, err)

	assert.Equal(t, DefaultRemote, repo.config.Remote)
	assert.Equal(t, DefaultTimeout, repo.config.Timeout)
	assert.Equal(t, "/tmp/x", repo.WorkDir())
}

func TestRepository_CheckoutMissingBranchFails(t *testing.T) {
	work := setupRepo(t)
	repo, err := New(Config{WorkDir: work})
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, repo.Checkout(ctx, "does-not-exist"))

	branch, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestRepository_CheckoutDoesNotRestoreFiles(t *testing.T) {
	work := setupRepo(t)
	repo, err := New(Config{WorkDir: work})
	require.NoError(t, err)

	readme := filepath.Join(work, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("local edit\n"), 0644))

	ctx := context.Background()
	assert.Error(t, repo.Checkout(ctx, "README.md"))
	assert.Error(t, repo.Checkout(ctx, "."))

	data, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "local edit\n", string(data))
}

func TestRepository_CheckoutArguments(t *testing.T) {
	runner := &recordingRunner{}
	repo, err := New(Config{WorkDir: "/repo"}, WithRunner(runner))
	require.NoError(t, err)

	require.NoError(t, repo.Checkout(context.Background(), "dev"))
	assert.Equal(t, []string{"checkout", "dev", "--"}, runner.calls[0])
}

func TestRepository_CreateAndCheckout(t *testing.T) {
	work := setupRepo(t)
	repo, err := New(Config{WorkDir: work})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.CreateBranch(ctx, "feature/x"))

	branch, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature/x", branch)

	require.NoError(t, repo.Checkout(ctx, "main"))
	branch, err = repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	assert.Error(t, repo.CreateBranch(ctx, "feature/x"), "creating an existing branch fails")
}

func TestRepository_StageCommitPush(t *testing.T) {
	work := setupRepo(t)
	repo, err := New(Config{
		WorkDir:     work,
		AuthorName:  "Relay Bot",
		AuthorEmail: "relay@example.com",
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(work, "a.txt"), []byte("hello\n"), 0644))
	require.NoError(t, repo.Stage(ctx, "a.txt"))
	require.NoError(t, repo.Commit(ctx, "Update a.txt [skip ci]"))
	require.NoError(t, repo.Push(ctx, "main", true))

	assert.Equal(t, "Update a.txt [skip ci]", runGit(t, work, "log", "-1", "--pretty=%s"))
	assert.Equal(t, "Relay Bot <relay@example.com>", runGit(t, work, "log", "-1", "--pretty=%an <%ae>"))

	head, err := repo.HeadCommit(ctx)
	require.NoError(t, err)
	assert.Equal(t, head, runGit(t, work, "rev-parse", "origin/main"))
}

func TestRepository_CommitWithNothingStagedFails(t *testing.T) {
	work := setupRepo(t)
	repo, err := New(Config{WorkDir: work})
	require.NoError(t, err)

	assert.Error(t, repo.Commit(context.Background(), "empty"))
}

type slowRunner struct{}

func (slowRunner) Run(ctx context.Context, _ string, _ ...string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRepository_TimeoutIsReported(t *testing.T) {
	repo, err := New(Config{WorkDir: t.TempDir(), Timeout: 10 * time.Millisecond}, WithRunner(slowRunner{}))
	require.NoError(t, err)

	err = repo.Checkout(context.Background(), "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	r.calls = append(r.calls, args)
	return "", nil
}

func TestRepository_PushArguments(t *testing.T) {
	runner := &recordingRunner{}
	repo, err := New(Config{WorkDir: "/repo", Remote: "upstream"}, WithRunner(runner))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.Push(ctx, "dev", true))
	require.NoError(t, repo.Push(ctx, "dev", false))

	assert.Equal(t, []string{"push", "--set-upstream", "upstream", "dev", "--force"}, runner.calls[0])
	assert.Equal(t, []string{"push", "--set-upstream", "upstream", "dev"}, runner.calls[1])
}

func TestRepository_RestorePath(t *testing.T) {
	work := setupRepo(t)
	repo, err := New(Config{WorkDir: work})
	require.NoError(t, err)

	ctx := context.Background()

	// Tracked file returns to its committed content
	readme := filepath.Join(work, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("changed\n"), 0644))
	require.NoError(t, repo.Stage(ctx, "README.md"))
	require.NoError(t, repo.RestorePath(ctx, "README.md"))

	data, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "# Test\n", string(data))

	// Untracked file is removed
	extra := filepath.Join(work, "extra.txt")
	require.NoError(t, os.WriteFile(extra, []byte("x"), 0644))
	require.NoError(t, repo.Stage(ctx, "extra.txt"))
	require.NoError(t, repo.RestorePath(ctx, "extra.txt"))

	_, err = os.Stat(extra)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "", runGit(t, work, "status", "--porcelain"))
}
