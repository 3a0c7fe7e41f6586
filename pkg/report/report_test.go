package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/relay/pkg/apply"
	"github.com/entrhq/relay/pkg/directive"
)

func init() {
	color.NoColor = true
}

func sampleBatch() apply.Batch {
	return apply.Batch{Outcomes: []apply.Outcome{
		{Index: 1, Kind: directive.KindFile, Branch: "main", Path: "a.txt", Status: apply.StatusApplied},
		{Index: 2, Kind: directive.KindFile, Branch: "feat", Path: "../x", Status: apply.StatusFailed,
			Step: apply.StepResolvePath, Reason: "resolve_path: path escapes workspace"},
		{Index: 3, Kind: directive.KindRun, Commands: "go test ./...\ngo vet ./...", Status: apply.StatusSurfaced},
		{Index: 4, Kind: directive.KindFile, Branch: "new", Path: "b.txt", Status: apply.StatusApplied, Created: true},
	}}
}

func sampleSummary() *TurnSummary {
	batch := sampleBatch()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &TurnSummary{
		ID:         "turn-1",
		Status:     StatusFor(batch, nil),
		Model:      "gpt-4",
		Summary:    "fixed the build",
		HasSummary: true,
		StartTime:  start,
		EndTime:    start.Add(3 * time.Second),
		Duration:   3 * time.Second,
		Outcomes:   batch.Outcomes,
		Metrics:    MetricsFor(batch),
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusFor(apply.Batch{}, nil))
	assert.Equal(t, StatusPartialSuccess, StatusFor(sampleBatch(), nil))
	assert.Equal(t, StatusFailed, StatusFor(apply.Batch{}, errors.New("no credential")))

	allFailed := apply.Batch{Outcomes: []apply.Outcome{{Status: apply.StatusFailed}}}
	assert.Equal(t, StatusFailed, StatusFor(allFailed, nil))
}

func TestMetricsFor(t *testing.T) {
	m := MetricsFor(sampleBatch())

	assert.Equal(t, TurnMetrics{
		Directives:    4,
		FileChanges:   3,
		RunRequests:   1,
		Applied:       2,
		Failed:        1,
		Surfaced:      1,
		BranchCreated: 1,
	}, m)
}

func TestPrinter_Levels(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewPrinterTo(&buf, LevelQuiet)

	quiet.Infof("hidden")
	quiet.Successf("hidden")
	quiet.Verbosef("hidden")
	quiet.Warningf("careful")
	quiet.Errorf("broken")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "⚠ Warning: careful")
	assert.Contains(t, out, "✗ Error: broken")

	buf.Reset()
	verbose := NewPrinterTo(&buf, LevelVerbose)
	verbose.Verbosef("detail %d", 1)
	verbose.Debugf("hidden")
	assert.Contains(t, buf.String(), "→ detail 1")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestPrinter_Outcome(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf, LevelNormal)

	for _, o := range sampleBatch().Outcomes {
		p.Outcome(o)
	}

	out := buf.String()
	assert.Contains(t, out, "[1] ✓ a.txt on main")
	assert.Contains(t, out, "[2] ✗ ../x on feat: resolve_path: path escapes workspace")
	assert.Contains(t, out, "[3] run requested (not executed):")
	assert.Contains(t, out, "$ go test ./...")
	assert.Contains(t, out, "$ go vet ./...")
	assert.Contains(t, out, "[4] ✓ b.txt on new (new branch)")
}

func TestPrinter_QuietStillSurfacesRunRequests(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf, LevelQuiet)

	for _, o := range sampleBatch().Outcomes {
		p.Outcome(o)
	}

	out := buf.String()
	assert.NotContains(t, out, "a.txt on main")
	assert.Contains(t, out, "../x on feat")
	assert.Contains(t, out, "run requested")
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinterTo(&buf, LevelQuiet).Summary(sampleSummary())

	out := buf.String()
	assert.Contains(t, out, "TURN SUMMARY")
	assert.Contains(t, out, "⚠ PARTIAL SUCCESS")
	assert.Contains(t, out, "Summary: fixed the build")
	assert.Contains(t, out, "Directives: 4 (3 file, 1 run)")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelQuiet, ParseLevel("quiet"))
	assert.Equal(t, LevelNormal, ParseLevel("normal"))
	assert.Equal(t, LevelVerbose, ParseLevel("verbose"))
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelNormal, ParseLevel("bogus"))
}

func TestWriter_WriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	summary := sampleSummary()

	require.NoError(t, NewWriter(dir).WriteAll(summary))

	data, err := os.ReadFile(filepath.Join(dir, TurnJSONFile))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "partial_success", decoded["status"])
	assert.Equal(t, "fixed the build", decoded["summary"])
	assert.Len(t, decoded["outcomes"], 4)

	md, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Relay Turn Summary")
	assert.Contains(t, string(md), "| 2 | ../x on feat | failed |")
	assert.Contains(t, string(md), "## Requested Commands")
	assert.Contains(t, string(md), "```sh\ngo test ./...\ngo vet ./...\n```")

	prom, err := os.ReadFile(filepath.Join(dir, MetricsTextFile))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `relay_directives_total{kind="file",status="applied"} 2`)
	assert.Contains(t, string(prom), "relay_turn_success 0")
	assert.Contains(t, string(prom), "relay_turn_summary_present 1")
}

func TestWriter_SelectedFormats(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, NewWriter(dir).WithFormats(false, true, false).WriteAll(sampleSummary()))

	_, err := os.Stat(filepath.Join(dir, SummaryFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, TurnJSONFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, MetricsTextFile))
	assert.True(t, os.IsNotExist(err))
}

func TestTurnCollectors_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewTurnCollectors(reg)

	summary := sampleSummary()
	summary.Status = StatusSuccess
	c.Observe(summary)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Directives.WithLabelValues("file", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Directives.WithLabelValues("run", "surfaced")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LastSuccess))
	assert.Equal(t, float64(summary.EndTime.Unix()), testutil.ToFloat64(c.LastTimestamp))
}

func TestRenderMarkdown_NoSummary(t *testing.T) {
	md := RenderMarkdown(&TurnSummary{Status: StatusFailed, Error: "provider unavailable"})

	assert.Contains(t, md, "_No summary line in the response._")
	assert.Contains(t, md, "**Error:** provider unavailable")
	assert.False(t, strings.Contains(md, "## Directives"))
}
