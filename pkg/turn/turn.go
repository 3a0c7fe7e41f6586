// Package turn runs one relay turn: gather context, ask the model, record
// its summary, and apply what it asked for.
package turn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/entrhq/relay/pkg/apply"
	"github.com/entrhq/relay/pkg/convlog"
	"github.com/entrhq/relay/pkg/directive"
	"github.com/entrhq/relay/pkg/llm"
	"github.com/entrhq/relay/pkg/logging"
	"github.com/entrhq/relay/pkg/prompt"
	"github.com/entrhq/relay/pkg/report"
)

// ErrMissingCredential is returned when a turn needs the model but no API
// credential was configured.
var ErrMissingCredential = errors.New("missing API credential: set RELAY_API_KEY or OPENAI_API_KEY")

// Applier applies parsed directives. *apply.Applier satisfies it.
type Applier interface {
	Apply(ctx context.Context, directives []directive.Directive) apply.Batch
}

// Runner drives turns against one repository and conversation log.
type Runner struct {
	applier      Applier
	provider     llm.Provider
	prompts      *prompt.Builder
	logPath      string
	failLogsPath string
	logger       *logging.Logger
	now          func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithProvider sets the model provider. Without one, Run fails with
// ErrMissingCredential.
func WithProvider(provider llm.Provider) Option {
	return func(r *Runner) {
		r.provider = provider
	}
}

// WithPromptBuilder replaces the default prompt builder.
func WithPromptBuilder(builder *prompt.Builder) Option {
	return func(r *Runner) {
		r.prompts = builder
	}
}

// WithFailLogs sets the failure-log file read into the context. A missing
// file contributes nothing.
func WithFailLogs(path string) Option {
	return func(r *Runner) {
		r.failLogsPath = path
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a runner that records summaries in the log at logPath.
func New(applier Applier, logPath string, opts ...Option) (*Runner, error) {
	if applier == nil {
		return nil, fmt.Errorf("applier is required")
	}
	if logPath == "" {
		return nil, fmt.Errorf("conversation log path is required")
	}

	r := &Runner{
		applier: applier,
		logPath: logPath,
		prompts: prompt.NewBuilder(),
		logger:  logging.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Run performs a full turn. The returned summary is never nil; the error
// is non-nil only when the turn aborted before or while recording the
// summary. Per-directive failures are reported in the summary only.
func (r *Runner) Run(ctx context.Context) (*report.TurnSummary, error) {
	summary := r.begin()

	if r.provider == nil {
		return r.abort(summary, ErrMissingCredential)
	}
	summary.Model = r.provider.Model()

	failLogs, err := readOptional(r.failLogsPath)
	if err != nil {
		return r.abort(summary, err)
	}

	conversation, err := convlog.Read(r.logPath)
	if err != nil {
		return r.abort(summary, err)
	}

	r.logger.WithFields(logrus.Fields{
		"fail_logs_bytes":    len(failLogs),
		"conversation_bytes": len(conversation),
	}).Infof("requesting completion from %s", summary.Model)

	reply, err := r.provider.Complete(ctx, r.prompts.Messages(failLogs, conversation))
	if err != nil {
		return r.abort(summary, fmt.Errorf("model request failed: %w", err))
	}

	return r.finish(ctx, summary, reply)
}

// ApplyResponse runs a turn from an already obtained response, without
// calling the model.
func (r *Runner) ApplyResponse(ctx context.Context, response string) (*report.TurnSummary, error) {
	return r.finish(ctx, r.begin(), response)
}

func (r *Runner) begin() *report.TurnSummary {
	return &report.TurnSummary{
		ID:        uuid.New().String(),
		StartTime: r.now(),
	}
}

// finish parses the response, records the summary and applies the
// directives.
func (r *Runner) finish(ctx context.Context, summary *report.TurnSummary, response string) (*report.TurnSummary, error) {
	result := directive.Parse(response)
	summary.Summary = result.Summary
	summary.HasSummary = result.HasSummary

	r.logger.Infof("parsed %d directives (%d file changes, %d run requests)",
		len(result.Directives), len(result.FileChanges()), len(result.RunRequests()))
	if !result.HasSummary {
		r.logger.Warnf("response carried no summary line")
	}

	if err := convlog.Append(r.logPath, result.Summary); err != nil {
		return r.abort(summary, err)
	}

	batch := r.applier.Apply(ctx, result.Directives)

	summary.Outcomes = batch.Outcomes
	summary.Metrics = report.MetricsFor(batch)
	summary.Status = report.StatusFor(batch, nil)
	r.end(summary)

	r.logger.WithFields(logrus.Fields{
		"status":  summary.Status,
		"applied": summary.Metrics.Applied,
		"failed":  summary.Metrics.Failed,
	}).Infof("turn finished")

	return summary, nil
}

func (r *Runner) abort(summary *report.TurnSummary, err error) (*report.TurnSummary, error) {
	summary.Status = report.StatusFor(apply.Batch{}, err)
	summary.Error = err.Error()
	r.end(summary)
	r.logger.WithError(err).Errorf("turn aborted")
	return summary, err
}

func (r *Runner) end(summary *report.TurnSummary) {
	summary.EndTime = r.now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
