package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/entrhq/relay/pkg/apply"
	"github.com/entrhq/relay/pkg/directive"
)

// Artifact file names.
const (
	TurnJSONFile    = "turn.json"
	SummaryFile     = "summary.md"
	MetricsTextFile = "metrics.prom"
)

// Writer handles writing turn artifacts
type Writer struct {
	outputDir string
	json      bool
	markdown  bool
	metrics   bool
}

// NewWriter creates a writer producing every artifact format.
func NewWriter(outputDir string) *Writer {
	return &Writer{
		outputDir: outputDir,
		json:      true,
		markdown:  true,
		metrics:   true,
	}
}

// WithFormats selects which artifacts WriteAll produces.
func (w *Writer) WithFormats(jsonReport, markdown, metrics bool) *Writer {
	w.json = jsonReport
	w.markdown = markdown
	w.metrics = metrics
	return w
}

// WriteAll writes all configured artifact formats
func (w *Writer) WriteAll(summary *TurnSummary) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.json {
		if err := w.WriteTurnJSON(summary); err != nil {
			return err
		}
	}

	if w.markdown {
		if err := w.WriteSummaryMarkdown(summary); err != nil {
			return err
		}
	}

	if w.metrics {
		if err := w.WriteMetrics(summary); err != nil {
			return err
		}
	}

	return nil
}

// WriteTurnJSON writes the full turn summary as JSON
func (w *Writer) WriteTurnJSON(summary *TurnSummary) error {
	path := filepath.Join(w.outputDir, TurnJSONFile)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal turn summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write turn JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *Writer) WriteSummaryMarkdown(summary *TurnSummary) error {
	path := filepath.Join(w.outputDir, SummaryFile)

	if writeErr := os.WriteFile(path, []byte(RenderMarkdown(summary)), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// RenderMarkdown formats a turn summary as markdown.
func RenderMarkdown(summary *TurnSummary) string {
	var md strings.Builder

	md.WriteString("# Relay Turn Summary\n\n")
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	if summary.Model != "" {
		md.WriteString(fmt.Sprintf("**Model:** %s\n\n", summary.Model))
	}
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	md.WriteString("## Summary\n\n")
	if summary.HasSummary {
		md.WriteString(summary.Summary + "\n\n")
	} else {
		md.WriteString("_No summary line in the response._\n\n")
	}

	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	}

	if len(summary.Outcomes) > 0 {
		md.WriteString("## Directives\n\n")
		md.WriteString("| # | Directive | Status | Detail |\n")
		md.WriteString("|---|---|---|---|\n")
		for _, o := range summary.Outcomes {
			md.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				o.Index, markdownCell(describe(o)), o.Status, markdownCell(o.Reason)))
		}
		md.WriteString("\n")
	}

	var surfaced []apply.Outcome
	for _, o := range summary.Outcomes {
		if o.Kind == directive.KindRun && o.Status == apply.StatusSurfaced {
			surfaced = append(surfaced, o)
		}
	}
	if len(surfaced) > 0 {
		md.WriteString("## Requested Commands\n\n")
		for _, o := range surfaced {
			md.WriteString("```sh\n" + o.Commands + "\n```\n\n")
		}
	}

	return md.String()
}

func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// WriteMetrics writes the turn metrics in the Prometheus text format, for
// node_exporter's textfile collector.
func (w *Writer) WriteMetrics(summary *TurnSummary) error {
	path := filepath.Join(w.outputDir, MetricsTextFile)

	reg := prometheus.NewRegistry()
	NewTurnCollectors(reg).Observe(summary)

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	return nil
}
