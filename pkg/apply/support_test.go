package apply

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_Exclusive(t *testing.T) {
	checkout := NewCheckout()

	release, err := checkout.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := checkout.Acquire(context.Background())
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held checkout")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("checkout was not released")
	}
}

func TestBranchPolicy(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		branch   string
		owned    bool
	}{
		{"no patterns owns everything", nil, "main", true},
		{"exact match", []string{"main"}, "main", true},
		{"prefix glob", []string{"relay/*"}, "relay/fix", true},
		{"glob does not cross slash", []string{"relay/*"}, "relay/a/b", false},
		{"super glob", []string{"relay/**"}, "relay/a/b", true},
		{"not listed", []string{"relay/*"}, "main", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewBranchPolicy(tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.owned, policy.Owns(tt.branch))
		})
	}

	var nilPolicy *BranchPolicy
	assert.True(t, nilPolicy.Owns("anything"))
}

func TestShellExecutor(t *testing.T) {
	dir := t.TempDir()
	executor := NewShellExecutor(dir, 5*time.Second)

	t.Run("success", func(t *testing.T) {
		result, err := executor.Execute(context.Background(), "pwd && echo done")
		require.NoError(t, err)
		assert.Contains(t, result.Stdout, "done")
		assert.Equal(t, 0, result.ExitCode)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		result, err := executor.Execute(context.Background(), "echo oops >&2; exit 4")
		require.Error(t, err)
		assert.Equal(t, 4, result.ExitCode)
		assert.Equal(t, "oops", strings.TrimSpace(result.Stderr))
	})

	t.Run("timeout", func(t *testing.T) {
		short := NewShellExecutor(dir, 50*time.Millisecond)
		result, err := short.Execute(context.Background(), "sleep 5")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
		assert.Equal(t, -1, result.ExitCode)
	})
}

func TestExecResult_Output(t *testing.T) {
	assert.Equal(t, "out", ExecResult{Stdout: "out"}.Output())
	assert.Equal(t, "err", ExecResult{Stderr: "err"}.Output())
	assert.Equal(t, "out\nerr", ExecResult{Stdout: "out", Stderr: "err"}.Output())
}
