// Package convlog maintains the append-only conversation log that carries
// history between turns.
//
// The log is plain markdown. Each turn appends one section:
//
//	## GPT Update
//	<summary>
//
// Prior content is never rewritten.
package convlog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SectionTitle is the heading text that opens every turn section.
const SectionTitle = "GPT Update"

// SectionHeader is the literal marker line written before each summary.
const SectionHeader = "## " + SectionTitle

// Entry is one turn section read back from the log.
type Entry struct {
	Index   int    `yaml:"index" json:"index"`
	Summary string `yaml:"summary" json:"summary"`
}

// Append writes a new section with summary to the log at path, creating
// the file if needed. The header is written even when summary is empty so
// the timeline keeps one section per turn.
func Append(path, summary string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open conversation log: %w", err)
	}

	_, writeErr := f.WriteString("\n\n" + SectionHeader + "\n" + summary + "\n")
	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to append to conversation log: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close conversation log: %w", closeErr)
	}
	return nil
}

// Read returns the whole log. A missing log reads as empty.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read conversation log: %w", err)
	}
	return string(data), nil
}

// Entries parses the log and returns its turn sections in order.
func Entries(path string) ([]Entry, error) {
	content, err := Read(path)
	if err != nil {
		return nil, err
	}
	return ParseEntries([]byte(content)), nil
}

// ParseEntries splits markdown source into turn sections. Any other
// heading closes the current section, and text outside sections is not
// part of any entry.
func ParseEntries(source []byte) []Entry {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var entries []Entry
	var current *Entry
	var parts []string

	flush := func() {
		if current == nil {
			return
		}
		current.Summary = strings.TrimSpace(strings.Join(parts, "\n"))
		entries = append(entries, *current)
		current = nil
		parts = nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok {
			flush()
			if heading.Level == 2 && blockText(heading, source) == SectionTitle {
				current = &Entry{Index: len(entries) + 1}
			}
			continue
		}

		if current != nil {
			parts = append(parts, blockText(n, source))
		}
	}
	flush()

	return entries
}

// blockText returns the raw source lines of a block node, descending into
// container blocks that carry no lines of their own.
func blockText(n ast.Node, source []byte) string {
	if n.Type() != ast.TypeBlock {
		return ""
	}

	lines := n.Lines()
	if lines != nil && lines.Len() > 0 {
		var sb strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		return strings.TrimSpace(sb.String())
	}

	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, source); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
