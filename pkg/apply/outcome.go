package apply

import (
	"fmt"
	"time"

	"github.com/entrhq/relay/pkg/directive"
)

// Status is the terminal state of one directive.
type Status string

const (
	StatusApplied  Status = "applied"  // StatusApplied means the file change was committed and pushed.
	StatusFailed   Status = "failed"   // StatusFailed means a step errored; Reason says which.
	StatusSurfaced Status = "surfaced" // StatusSurfaced means a run request was reported but not executed.
	StatusExecuted Status = "executed" // StatusExecuted means a run request was executed successfully.
)

// Step names a point in the per-directive protocol.
type Step string

const (
	StepValidate     Step = "validate"
	StepAcquire      Step = "acquire"
	StepCreateBranch Step = "create_branch"
	StepResolvePath  Step = "resolve_path"
	StepWrite        Step = "write"
	StepStage        Step = "stage"
	StepCommit       Step = "commit"
	StepPush         Step = "push"
	StepExecute      Step = "execute"
)

// StepError records which protocol step failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Outcome is the reported result of one directive.
type Outcome struct {
	Index    int            `json:"index"`
	Kind     directive.Kind `json:"kind"`
	Branch   string         `json:"branch,omitempty"`
	Path     string         `json:"path,omitempty"`
	Commands string         `json:"commands,omitempty"`
	Status   Status         `json:"status"`
	Step     Step           `json:"step,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Output   string         `json:"output,omitempty"`
	Forced   bool           `json:"forced,omitempty"`
	Created  bool           `json:"created_branch,omitempty"`
	Duration time.Duration  `json:"duration"`
	Err      error          `json:"-"`
}

// Succeeded reports whether the directive reached a non-failed state.
func (o Outcome) Succeeded() bool {
	return o.Status != StatusFailed
}

// Batch is the ordered list of outcomes for one response.
type Batch struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Count returns how many outcomes have status s.
func (b Batch) Count(s Status) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes in order.
func (b Batch) Failed() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// AllSucceeded reports whether no directive failed.
func (b Batch) AllSucceeded() bool {
	return b.Count(StatusFailed) == 0
}
