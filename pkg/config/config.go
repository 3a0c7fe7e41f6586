// Package config holds the relay configuration: the YAML file, .env
// loading and environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/gobwas/glob"
)

// DefaultFileName is looked up in the working directory when no config
// path is given.
const DefaultFileName = "relay.yaml"

// Config represents the configuration for one relay turn.
type Config struct {
	LLM          LLMConfig          `yaml:"llm" json:"llm"`
	Repository   RepositoryConfig   `yaml:"repository" json:"repository"`
	Apply        ApplyConfig        `yaml:"apply" json:"apply"`
	Conversation ConversationConfig `yaml:"conversation" json:"conversation"`
	Artifacts    ArtifactConfig     `yaml:"artifacts" json:"artifacts"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`

	// ConfigFilePath is where the configuration was loaded from, if anywhere.
	ConfigFilePath string `yaml:"-" json:"-"`
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" json:"-"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Model       string        `yaml:"model" json:"model"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens" json:"max_tokens"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`

	// SystemPrompt replaces the built-in system prompt when set
	SystemPrompt       string `yaml:"system_prompt" json:"system_prompt"`
	CustomInstructions string `yaml:"custom_instructions" json:"custom_instructions"`
}

// RepositoryConfig configures the git working copy.
type RepositoryConfig struct {
	WorkDir     string        `yaml:"work_dir" json:"work_dir"`
	Remote      string        `yaml:"remote" json:"remote"`
	AuthorName  string        `yaml:"author_name" json:"author_name"`
	AuthorEmail string        `yaml:"author_email" json:"author_email"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// ApplyConfig configures how directives are applied.
type ApplyConfig struct {
	// OwnedBranches are globs of branches that may be force-pushed. Empty
	// means every branch.
	OwnedBranches   []string `yaml:"owned_branches" json:"owned_branches"`
	AllowedPatterns []string `yaml:"allowed_patterns" json:"allowed_patterns"`
	DeniedPatterns  []string `yaml:"denied_patterns" json:"denied_patterns"`

	Push            bool          `yaml:"push" json:"push"`
	ExecuteCommands bool          `yaml:"execute_commands" json:"execute_commands"`
	CommandTimeout  time.Duration `yaml:"command_timeout" json:"command_timeout"`
}

// ConversationConfig locates the turn's text inputs.
type ConversationConfig struct {
	LogPath      string `yaml:"log_path" json:"log_path"`
	FailLogsPath string `yaml:"fail_logs_path" json:"fail_logs_path"`

	// HistoryTokenBudget caps the conversation log sent to the model. Zero
	// sends it whole.
	HistoryTokenBudget int `yaml:"history_token_budget" json:"history_token_budget"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
	Metrics  bool `yaml:"metrics" json:"metrics"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
	// Dir overrides the session log directory (default ~/.relay/logs)
	Dir string `yaml:"dir" json:"dir"`
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gpt-4",
			Temperature: 0.3,
			MaxTokens:   1800,
			MaxRetries:  2,
			Timeout:     2 * time.Minute,
		},
		Repository: RepositoryConfig{
			WorkDir: ".",
			Remote:  "origin",
			Timeout: 30 * time.Second,
		},
		Apply: ApplyConfig{
			Push:           true,
			DeniedPatterns: []string{".git/**"},
			CommandTimeout: 5 * time.Minute,
		},
		Conversation: ConversationConfig{
			LogPath:      "conversation_log.md",
			FailLogsPath: "fail_logs.txt",
		},
		Artifacts: ArtifactConfig{
			Enabled:   false,
			OutputDir: ".relay/artifacts",
			JSON:      true,
			Markdown:  true,
			Metrics:   true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Repository.WorkDir == "" {
		return fmt.Errorf("repository work_dir is required")
	}

	if c.Repository.Remote == "" {
		return fmt.Errorf("repository remote is required")
	}

	if c.Repository.Timeout < 0 {
		return fmt.Errorf("repository timeout cannot be negative")
	}

	if c.Conversation.LogPath == "" {
		return fmt.Errorf("conversation log_path is required")
	}

	if c.Conversation.HistoryTokenBudget < 0 {
		return fmt.Errorf("history_token_budget cannot be negative")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}

	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm max_tokens cannot be negative")
	}

	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm max_retries cannot be negative")
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm timeout cannot be negative")
	}

	if c.Apply.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout cannot be negative")
	}

	for _, list := range [][]string{c.Apply.OwnedBranches, c.Apply.AllowedPatterns, c.Apply.DeniedPatterns} {
		for _, pattern := range list {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				return fmt.Errorf("invalid pattern '%s': %w", pattern, err)
			}
		}
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}
