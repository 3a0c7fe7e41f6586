package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file configuration.
const (
	EnvAPIKey          = "RELAY_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvBaseURL         = "OPENAI_BASE_URL"
	EnvSystemPrompt    = "MASTER_SYSTEM_PROMPT_OVERRIDE"
	EnvFailLogsPath    = "RELAY_FAIL_LOGS"
	EnvConversationLog = "RELAY_CONVERSATION_LOG"
)

// Load reads the configuration at path on top of DefaultConfig. With an
// empty path, DefaultFileName is used when it exists and defaults
// otherwise.
func Load(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err != nil {
			return DefaultConfig(), nil
		}
		path = DefaultFileName
	}

	return LoadFile(path)
}

// LoadFile loads configuration from a YAML file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ConfigFilePath = path
	return config, nil
}

// LoadDotEnv loads the first .env file found among dirs. Variables
// already present in the environment win. A missing file is not an error.
func LoadDotEnv(dirs ...string) error {
	for _, dir := range dirs {
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		return nil
	}
	return nil
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.LLM.APIKey = key
	} else if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(EnvOpenAIAPIKey)
	}

	if url := os.Getenv(EnvBaseURL); url != "" {
		c.LLM.BaseURL = url
	}

	if prompt := os.Getenv(EnvSystemPrompt); prompt != "" {
		c.LLM.SystemPrompt = prompt
	}

	if path := os.Getenv(EnvFailLogsPath); path != "" {
		c.Conversation.FailLogsPath = path
	}

	if path := os.Getenv(EnvConversationLog); path != "" {
		c.Conversation.LogPath = path
	}
}

// Resolve makes the conversation and artifact paths absolute relative to
// the repository work dir.
func (c *Config) Resolve() error {
	workDir, err := filepath.Abs(c.Repository.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to resolve work dir: %w", err)
	}
	c.Repository.WorkDir = workDir

	c.Conversation.LogPath = underDir(workDir, c.Conversation.LogPath)
	c.Conversation.FailLogsPath = underDir(workDir, c.Conversation.FailLogsPath)
	c.Artifacts.OutputDir = underDir(workDir, c.Artifacts.OutputDir)
	return nil
}

func underDir(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
