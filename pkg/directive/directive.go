// Package directive extracts typed change directives from free-form
// assistant responses.
//
// A response carries its directives inside triple-backtick fences. The first
// line inside a fence is the header and decides what the fence means:
//
//	```branch=main,path=docs/readme.md
//	file content, kept exactly as written
//	```
//
//	```run
//	make test
//	```
//
// A plain trailer line anywhere in the response names the turn summary:
//
//	summary = Added the readme
//
// Parsing is permissive. Fences whose header matches neither form are
// ignored, and nothing in a response can make Parse fail.
package directive

import (
	"fmt"
	"strings"
)

// Kind identifies the directive variant.
type Kind string

const (
	KindFile Kind = "file" // KindFile writes content to a path on a branch.
	KindRun  Kind = "run"  // KindRun requests a shell command line.
)

// Directive is one typed instruction extracted from a response.
// The only implementations are FileChange and RunRequest.
type Directive interface {
	// Kind returns the directive variant.
	Kind() Kind

	// Validate checks the variant's invariants.
	Validate() error

	isDirective()
}

// FileChange writes Content to Path on Branch.
type FileChange struct {
	Branch  string `yaml:"branch" json:"branch"`
	Path    string `yaml:"path" json:"path"`
	Content string `yaml:"content" json:"content"`
}

// Kind returns KindFile.
func (FileChange) Kind() Kind { return KindFile }

// Validate reports whether branch and path are present and the branch is
// a well-formed git branch name.
func (f FileChange) Validate() error {
	if strings.TrimSpace(f.Branch) == "" {
		return fmt.Errorf("file change: branch is required")
	}
	if err := ValidateBranchName(f.Branch); err != nil {
		return fmt.Errorf("file change: %w", err)
	}
	if strings.TrimSpace(f.Path) == "" {
		return fmt.Errorf("file change: path is required")
	}
	return nil
}

func (FileChange) isDirective() {}

// RunRequest is a shell command line the assistant asked to run.
// It is never executed unless the operator grants an executor.
type RunRequest struct {
	Commands string `yaml:"commands" json:"commands"`
}

// Kind returns KindRun.
func (RunRequest) Kind() Kind { return KindRun }

// Validate reports whether there is anything to run.
func (r RunRequest) Validate() error {
	if strings.TrimSpace(r.Commands) == "" {
		return fmt.Errorf("run request: commands are required")
	}
	return nil
}

func (RunRequest) isDirective() {}

// Result is the outcome of parsing one response.
type Result struct {
	// Directives in the order their fences appear in the response.
	Directives []Directive

	// Summary is the trimmed text of the first summary trailer.
	Summary string

	// HasSummary distinguishes an absent trailer from an empty one.
	HasSummary bool
}

// FileChanges returns only the file directives, in order.
func (r Result) FileChanges() []FileChange {
	var out []FileChange
	for _, d := range r.Directives {
		if fc, ok := d.(FileChange); ok {
			out = append(out, fc)
		}
	}
	return out
}

// RunRequests returns only the run directives, in order.
func (r Result) RunRequests() []RunRequest {
	var out []RunRequest
	for _, d := range r.Directives {
		if rr, ok := d.(RunRequest); ok {
			out = append(out, rr)
		}
	}
	return out
}
