// Package report renders the result of a turn for people and for CI:
// a colored console printer and on-disk artifacts.
package report

import (
	"time"

	"github.com/entrhq/relay/pkg/apply"
	"github.com/entrhq/relay/pkg/directive"
)

// Turn status values.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusFailed         = "failed"
)

// TurnSummary contains a complete summary of one turn.
type TurnSummary struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Model      string          `json:"model,omitempty"`
	Summary    string          `json:"summary"`
	HasSummary bool            `json:"has_summary"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Duration   time.Duration   `json:"duration"`
	Outcomes   []apply.Outcome `json:"outcomes"`
	Metrics    TurnMetrics     `json:"metrics"`
}

// TurnMetrics counts directives by result.
type TurnMetrics struct {
	Directives    int `json:"directives"`
	FileChanges   int `json:"file_changes"`
	RunRequests   int `json:"run_requests"`
	Applied       int `json:"applied"`
	Failed        int `json:"failed"`
	Surfaced      int `json:"surfaced"`
	Executed      int `json:"executed"`
	BranchCreated int `json:"branches_created"`
}

// MetricsFor tallies a batch.
func MetricsFor(batch apply.Batch) TurnMetrics {
	m := TurnMetrics{Directives: len(batch.Outcomes)}
	for _, o := range batch.Outcomes {
		switch o.Kind {
		case directive.KindFile:
			m.FileChanges++
		case directive.KindRun:
			m.RunRequests++
		}
		if o.Created {
			m.BranchCreated++
		}
	}
	m.Applied = batch.Count(apply.StatusApplied)
	m.Failed = batch.Count(apply.StatusFailed)
	m.Surfaced = batch.Count(apply.StatusSurfaced)
	m.Executed = batch.Count(apply.StatusExecuted)
	return m
}

// StatusFor derives the turn status. A fatal error or a batch where every
// directive failed is failed; some failures make a partial success.
func StatusFor(batch apply.Batch, fatal error) string {
	if fatal != nil {
		return StatusFailed
	}
	failed := batch.Count(apply.StatusFailed)
	switch {
	case failed == 0:
		return StatusSuccess
	case failed == len(batch.Outcomes):
		return StatusFailed
	default:
		return StatusPartialSuccess
	}
}
