package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/entrhq/relay/pkg/apply"
	"github.com/entrhq/relay/pkg/config"
	"github.com/entrhq/relay/pkg/gitrepo"
	"github.com/entrhq/relay/pkg/llm"
	"github.com/entrhq/relay/pkg/llm/openai"
	"github.com/entrhq/relay/pkg/llm/tokenizer"
	"github.com/entrhq/relay/pkg/logging"
	"github.com/entrhq/relay/pkg/prompt"
	"github.com/entrhq/relay/pkg/report"
	"github.com/entrhq/relay/pkg/security/workspace"
	"github.com/entrhq/relay/pkg/turn"
)

// turnFlags are the overrides shared by run and apply.
type turnFlags struct {
	execute  bool
	noPush   bool
	failLogs string
	logPath  string
	model    string
	artifact string
}

// loadConfig loads the file configuration, .env and environment, then
// applies persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if workDir != "" {
		cfg.Repository.WorkDir = workDir
	}
	if verbosity != "" {
		cfg.Logging.Verbosity = verbosity
	}

	if err := config.LoadDotEnv(cfg.Repository.WorkDir, "."); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	return cfg, nil
}

func (f *turnFlags) applyTo(cfg *config.Config) {
	if f.execute {
		cfg.Apply.ExecuteCommands = true
	}
	if f.noPush {
		cfg.Apply.Push = false
	}
	if f.failLogs != "" {
		cfg.Conversation.FailLogsPath = f.failLogs
	}
	if f.logPath != "" {
		cfg.Conversation.LogPath = f.logPath
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.artifact != "" {
		cfg.Artifacts.Enabled = true
		cfg.Artifacts.OutputDir = f.artifact
	}
}

// session bundles everything a turn command needs.
type session struct {
	cfg     *config.Config
	runner  *turn.Runner
	printer *report.Printer
	logger  *logging.Logger
	writer  *report.Writer
}

func (s *session) Close() {
	s.logger.Close()
}

// newSession wires the configured collaborators into a turn runner.
// withProvider is false for commands that never call the model.
func newSession(cfg *config.Config, withProvider bool) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}

	printer := report.NewPrinter(report.ParseLevel(cfg.Logging.Verbosity))
	logger := openSessionLogger(cfg, printer)

	repo, err := gitrepo.New(gitrepo.Config{
		WorkDir:     cfg.Repository.WorkDir,
		Remote:      cfg.Repository.Remote,
		AuthorName:  cfg.Repository.AuthorName,
		AuthorEmail: cfg.Repository.AuthorEmail,
		Timeout:     cfg.Repository.Timeout,
	})
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	guard, err := workspace.NewGuard(cfg.Repository.WorkDir, cfg.Apply.AllowedPatterns, cfg.Apply.DeniedPatterns)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to create workspace guard: %w", err)
	}

	policy, err := apply.NewBranchPolicy(cfg.Apply.OwnedBranches)
	if err != nil {
		logger.Close()
		return nil, err
	}

	applyOpts := []apply.Option{
		apply.WithBranchPolicy(policy),
		apply.WithLogger(logger.WithFields(logrus.Fields{"stage": "apply"})),
		apply.WithObserver(printer.Outcome),
	}
	if cfg.Apply.ExecuteCommands {
		applyOpts = append(applyOpts, apply.WithExecutor(apply.NewShellExecutor(cfg.Repository.WorkDir, cfg.Apply.CommandTimeout)))
	}
	if !cfg.Apply.Push {
		applyOpts = append(applyOpts, apply.WithoutPush())
	}

	applier, err := apply.New(repo, guard, applyOpts...)
	if err != nil {
		logger.Close()
		return nil, err
	}

	turnOpts := []turn.Option{
		turn.WithLogger(logger),
		turn.WithFailLogs(cfg.Conversation.FailLogsPath),
		turn.WithPromptBuilder(newPromptBuilder(cfg, logger)),
	}

	if withProvider && cfg.LLM.APIKey != "" {
		provider, err := newProvider(cfg)
		if err != nil {
			logger.Close()
			return nil, err
		}
		turnOpts = append(turnOpts, turn.WithProvider(provider))
	}

	runner, err := turn.New(applier, cfg.Conversation.LogPath, turnOpts...)
	if err != nil {
		logger.Close()
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		runner:  runner,
		printer: printer,
		logger:  logger,
	}
	if cfg.Artifacts.Enabled {
		s.writer = report.NewWriter(cfg.Artifacts.OutputDir).
			WithFormats(cfg.Artifacts.JSON, cfg.Artifacts.Markdown, cfg.Artifacts.Metrics)
	}

	return s, nil
}

// openSessionLogger opens the session log file. When that fails the
// returned logger writes to stderr and the failure is reported once.
func openSessionLogger(cfg *config.Config, printer *report.Printer) *logging.Logger {
	if cfg.Logging.Dir != "" {
		logging.SetLogDirectory(cfg.Logging.Dir)
	}

	logger, err := logging.NewLogger("relay", logging.ParseLevel(cfg.Logging.Verbosity))
	if err != nil {
		printer.Warningf("session log unavailable, logging to stderr: %v", err)
	}
	return logger
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	provider, err := openai.NewProvider(cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithTemperature(cfg.LLM.Temperature),
		openai.WithMaxTokens(cfg.LLM.MaxTokens),
		openai.WithMaxRetries(cfg.LLM.MaxRetries),
		openai.WithTimeout(cfg.LLM.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}

func newPromptBuilder(cfg *config.Config, logger *logging.Logger) *prompt.Builder {
	builder := prompt.NewBuilder().
		WithSystemPrompt(cfg.LLM.SystemPrompt).
		WithCustomInstructions(cfg.LLM.CustomInstructions)

	if cfg.Conversation.HistoryTokenBudget > 0 {
		tok, err := tokenizer.ForModel(cfg.LLM.Model)
		if err != nil {
			// A nil tokenizer still counts, approximately
			logger.WithError(err).Warnf("tokenizer unavailable, approximating token counts")
		}
		builder = builder.WithHistoryBudget(cfg.Conversation.HistoryTokenBudget, tok)
	}

	return builder
}

// finish prints the summary, writes artifacts and maps the turn status to
// an exit code.
func (s *session) finish(summary *report.TurnSummary, turnErr error) error {
	s.printer.Summary(summary)

	if s.writer != nil {
		if err := s.writer.WriteAll(summary); err != nil {
			s.printer.Warningf("failed to write artifacts: %v", err)
		} else {
			s.printer.Infof("Artifacts written to %s", s.cfg.Artifacts.OutputDir)
		}
	}

	if turnErr != nil {
		return turnErr
	}
	if summary.Status != report.StatusSuccess {
		return &exitError{code: 2}
	}
	return nil
}
