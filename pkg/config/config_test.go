package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, int64(1800), cfg.LLM.MaxTokens)
	assert.Equal(t, "origin", cfg.Repository.Remote)
	assert.Equal(t, 30*time.Second, cfg.Repository.Timeout)
	assert.True(t, cfg.Apply.Push)
	assert.False(t, cfg.Apply.ExecuteCommands)
	assert.Empty(t, cfg.Apply.OwnedBranches)
	assert.Equal(t, "conversation_log.md", cfg.Conversation.LogPath)
	assert.Equal(t, "fail_logs.txt", cfg.Conversation.FailLogsPath)
	assert.Equal(t, 0, cfg.Conversation.HistoryTokenBudget)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing work dir", func(c *Config) { c.Repository.WorkDir = "" }, "work_dir"},
		{"missing remote", func(c *Config) { c.Repository.Remote = "" }, "remote"},
		{"negative git timeout", func(c *Config) { c.Repository.Timeout = -1 }, "timeout"},
		{"missing log path", func(c *Config) { c.Conversation.LogPath = "" }, "log_path"},
		{"negative budget", func(c *Config) { c.Conversation.HistoryTokenBudget = -5 }, "history_token_budget"},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "model"},
		{"temperature too high", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"negative max tokens", func(c *Config) { c.LLM.MaxTokens = -1 }, "max_tokens"},
		{"artifacts without dir", func(c *Config) {
			c.Artifacts.Enabled = true
			c.Artifacts.OutputDir = ""
		}, "output_dir"},
		{"bad verbosity", func(c *Config) { c.Logging.Verbosity = "loud" }, "verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DefaultsVerbosity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Verbosity = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gpt-4o
  temperature: 0.1
repository:
  work_dir: /srv/repo
  author_name: relay-bot
  timeout: 45s
apply:
  owned_branches:
    - relay/*
  execute_commands: true
conversation:
  history_token_budget: 4000
`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, int64(1800), cfg.LLM.MaxTokens, "unset fields keep defaults")
	assert.Equal(t, "/srv/repo", cfg.Repository.WorkDir)
	assert.Equal(t, "relay-bot", cfg.Repository.AuthorName)
	assert.Equal(t, 45*time.Second, cfg.Repository.Timeout)
	assert.Equal(t, []string{"relay/*"}, cfg.Apply.OwnedBranches)
	assert.True(t, cfg.Apply.ExecuteCommands)
	assert.True(t, cfg.Apply.Push)
	assert.Equal(t, 4000, cfg.Conversation.HistoryTokenBudget)
	assert.Equal(t, path, cfg.ConfigFilePath)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Run("relay key wins", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "relay-key")
		t.Setenv(EnvOpenAIAPIKey, "openai-key")
		t.Setenv(EnvBaseURL, "http://proxy/v1")
		t.Setenv(EnvSystemPrompt, "be brief")
		t.Setenv(EnvFailLogsPath, "ci.log")
		t.Setenv(EnvConversationLog, "")

		cfg := DefaultConfig()
		cfg.ApplyEnv()

		assert.Equal(t, "relay-key", cfg.LLM.APIKey)
		assert.Equal(t, "http://proxy/v1", cfg.LLM.BaseURL)
		assert.Equal(t, "be brief", cfg.LLM.SystemPrompt)
		assert.Equal(t, "ci.log", cfg.Conversation.FailLogsPath)
		assert.Equal(t, "conversation_log.md", cfg.Conversation.LogPath)
	})

	t.Run("falls back to openai key", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "")
		t.Setenv(EnvOpenAIAPIKey, "openai-key")

		cfg := DefaultConfig()
		cfg.ApplyEnv()
		assert.Equal(t, "openai-key", cfg.LLM.APIKey)
	})

	t.Run("file key kept over openai key", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "")
		t.Setenv(EnvOpenAIAPIKey, "openai-key")

		cfg := DefaultConfig()
		cfg.LLM.APIKey = "from-file"
		cfg.ApplyEnv()
		assert.Equal(t, "from-file", cfg.LLM.APIKey)
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RELAY_TEST_DOTENV=from-file\n"), 0644))

	t.Setenv("RELAY_TEST_DOTENV", "")
	os.Unsetenv("RELAY_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing"), dir))
	assert.Equal(t, "from-file", os.Getenv("RELAY_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "nowhere")))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Repository.WorkDir = dir
	cfg.Conversation.FailLogsPath = "/var/log/ci.txt"

	require.NoError(t, cfg.Resolve())
	assert.Equal(t, filepath.Join(dir, "conversation_log.md"), cfg.Conversation.LogPath)
	assert.Equal(t, "/var/log/ci.txt", cfg.Conversation.FailLogsPath)
	assert.Equal(t, filepath.Join(dir, ".relay", "artifacts"), cfg.Artifacts.OutputDir)
}
