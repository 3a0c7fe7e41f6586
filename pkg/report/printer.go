package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/entrhq/relay/pkg/apply"
	"github.com/entrhq/relay/pkg/directive"
)

// Level represents the console verbosity level
type Level int

const (
	// LevelQuiet shows only errors, warnings and the final summary
	LevelQuiet Level = iota
	// LevelNormal shows per-directive progress (default)
	LevelNormal
	// LevelVerbose adds command output and failure details
	LevelVerbose
	// LevelDebug shows everything
	LevelDebug
)

// ParseLevel converts a verbosity name to a Level. Unknown names map to
// LevelNormal.
func ParseLevel(level string) Level {
	switch level {
	case "quiet":
		return LevelQuiet
	case "verbose":
		return LevelVerbose
	case "debug":
		return LevelDebug
	default:
		return LevelNormal
	}
}

// Printer writes human-readable turn progress to a terminal.
type Printer struct {
	level  Level
	writer io.Writer

	bold    *color.Color
	green   *color.Color
	cyan    *color.Color
	yellow  *color.Color
	red     *color.Color
	gray    *color.Color
	boldRed *color.Color
}

// NewPrinter creates a printer writing to stdout.
func NewPrinter(level Level) *Printer {
	return NewPrinterTo(os.Stdout, level)
}

// NewPrinterTo creates a printer writing to w.
func NewPrinterTo(w io.Writer, level Level) *Printer {
	return &Printer{
		level:   level,
		writer:  w,
		bold:    color.New(color.Bold, color.FgWhite),
		green:   color.New(color.Bold, color.FgGreen),
		cyan:    color.New(color.FgCyan),
		yellow:  color.New(color.FgYellow),
		red:     color.New(color.FgRed),
		gray:    color.New(color.FgHiBlack),
		boldRed: color.New(color.Bold, color.FgRed),
	}
}

// Header prints a prominent header message
func (p *Printer) Header(message string) {
	if p.level < LevelNormal {
		return
	}
	rule := strings.Repeat("=", 70)
	p.bold.Fprintf(p.writer, "\n%s\n  %s\n%s\n", rule, message, rule)
}

// Section prints a section divider
func (p *Printer) Section(title string) {
	if p.level < LevelNormal {
		return
	}
	fmt.Fprintln(p.writer)
	p.cyan.Fprintf(p.writer, "▶ %s\n", title)
	p.gray.Fprintln(p.writer, strings.Repeat("─", 50))
}

// Successf prints a success message with checkmark
func (p *Printer) Successf(format string, args ...interface{}) {
	if p.level >= LevelNormal {
		p.green.Fprintf(p.writer, "✓ %s\n", fmt.Sprintf(format, args...))
	}
}

// Infof prints an informational message
func (p *Printer) Infof(format string, args ...interface{}) {
	if p.level >= LevelNormal {
		fmt.Fprintf(p.writer, "%s\n", fmt.Sprintf(format, args...))
	}
}

// Warningf prints a warning message
func (p *Printer) Warningf(format string, args ...interface{}) {
	p.yellow.Fprintf(p.writer, "⚠ Warning: %s\n", fmt.Sprintf(format, args...))
}

// Errorf prints an error message
func (p *Printer) Errorf(format string, args ...interface{}) {
	p.boldRed.Fprintf(p.writer, "✗ Error: %s\n", fmt.Sprintf(format, args...))
}

// Verbosef prints detailed information (only in verbose mode)
func (p *Printer) Verbosef(format string, args ...interface{}) {
	if p.level >= LevelVerbose {
		p.gray.Fprintf(p.writer, "→ %s\n", fmt.Sprintf(format, args...))
	}
}

// Debugf prints debug information (only in debug mode)
func (p *Printer) Debugf(format string, args ...interface{}) {
	if p.level >= LevelDebug {
		p.gray.Fprintf(p.writer, "[DEBUG] %s\n", fmt.Sprintf(format, args...))
	}
}

// Outcome prints one directive result. Run requests that were only
// surfaced are printed at every level so a human can pick them up.
func (p *Printer) Outcome(o apply.Outcome) {
	switch {
	case o.Kind == directive.KindRun && o.Status == apply.StatusSurfaced:
		p.yellow.Fprintf(p.writer, "  [%d] run requested (not executed):\n", o.Index)
		for _, line := range strings.Split(o.Commands, "\n") {
			fmt.Fprintf(p.writer, "      $ %s\n", line)
		}
		return
	case p.level < LevelNormal:
		if o.Status == apply.StatusFailed {
			p.boldRed.Fprintf(p.writer, "  [%d] ✗ %s: %s\n", o.Index, describe(o), o.Reason)
		}
		return
	}

	switch o.Status {
	case apply.StatusApplied:
		extra := ""
		if o.Created {
			extra = " (new branch)"
		}
		p.green.Fprintf(p.writer, "  [%d] ✓ %s%s\n", o.Index, describe(o), extra)
	case apply.StatusExecuted:
		p.green.Fprintf(p.writer, "  [%d] ✓ ran %s\n", o.Index, firstLine(o.Commands))
	case apply.StatusFailed:
		p.boldRed.Fprintf(p.writer, "  [%d] ✗ %s: %s\n", o.Index, describe(o), o.Reason)
	}

	if o.Output != "" && p.level >= LevelVerbose {
		for _, line := range strings.Split(strings.TrimRight(o.Output, "\n"), "\n") {
			p.gray.Fprintf(p.writer, "      %s\n", line)
		}
	}
	p.Debugf("directive %d took %s", o.Index, o.Duration)
}

// Summary prints a final turn summary
func (p *Printer) Summary(s *TurnSummary) {
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(p.writer)
	p.bold.Fprintf(p.writer, "%s\n  TURN SUMMARY\n%s\n", rule, rule)

	fmt.Fprint(p.writer, "  Status: ")
	switch s.Status {
	case StatusSuccess:
		p.green.Fprintln(p.writer, "✓ SUCCESS")
	case StatusPartialSuccess:
		p.yellow.Fprintln(p.writer, "⚠ PARTIAL SUCCESS")
	case StatusFailed:
		p.boldRed.Fprintln(p.writer, "✗ FAILED")
	default:
		fmt.Fprintln(p.writer, s.Status)
	}

	fmt.Fprintf(p.writer, "  Duration: %s\n", s.Duration.Round(time.Millisecond))
	if s.HasSummary {
		fmt.Fprintf(p.writer, "  Summary: %s\n", s.Summary)
	} else {
		fmt.Fprintln(p.writer, "  Summary: (none)")
	}

	m := s.Metrics
	if m.Directives > 0 {
		fmt.Fprintf(p.writer, "\n  Directives: %d (%d file, %d run)\n", m.Directives, m.FileChanges, m.RunRequests)
		fmt.Fprintf(p.writer, "    applied: %d  executed: %d  surfaced: %d  failed: %d\n",
			m.Applied, m.Executed, m.Surfaced, m.Failed)
	}

	if s.Error != "" {
		fmt.Fprintln(p.writer)
		p.boldRed.Fprintln(p.writer, "  Error Details:")
		p.red.Fprintf(p.writer, "    %s\n", s.Error)
	}

	p.bold.Fprintln(p.writer, rule)
	fmt.Fprintln(p.writer)
}

func describe(o apply.Outcome) string {
	if o.Kind == directive.KindRun {
		return "run " + firstLine(o.Commands)
	}
	return fmt.Sprintf("%s on %s", o.Path, o.Branch)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
