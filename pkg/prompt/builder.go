// Package prompt assembles the messages sent to the model for one turn.
package prompt

import (
	"strings"

	"github.com/entrhq/relay/pkg/convlog"
	"github.com/entrhq/relay/pkg/llm"
)

const (
	failLogsTag        = "[FAIL_LOGS]"
	conversationLogTag = "[CONVERSATION_LOG]"

	// OmittedMarker replaces conversation history dropped by the budget.
	OmittedMarker = "[earlier conversation omitted]"
)

// TokenCounter counts tokens. *tokenizer.Tokenizer satisfies it.
type TokenCounter interface {
	CountTokens(text string) int
}

// Builder constructs the system prompt and the user context for a turn.
type Builder struct {
	systemPrompt       string
	customInstructions string
	historyBudget      int
	counter            TokenCounter
}

// NewBuilder creates a builder using DefaultSystemPrompt.
func NewBuilder() *Builder {
	return &Builder{systemPrompt: DefaultSystemPrompt}
}

// WithSystemPrompt replaces the default system prompt. Empty keeps the
// current one.
func (b *Builder) WithSystemPrompt(prompt string) *Builder {
	if strings.TrimSpace(prompt) != "" {
		b.systemPrompt = prompt
	}
	return b
}

// WithCustomInstructions adds repository-specific instructions ahead of
// the system prompt.
func (b *Builder) WithCustomInstructions(instructions string) *Builder {
	b.customInstructions = instructions
	return b
}

// WithHistoryBudget caps the conversation log at budget tokens, counted by
// counter. A budget of zero or less disables trimming.
func (b *Builder) WithHistoryBudget(budget int, counter TokenCounter) *Builder {
	b.historyBudget = budget
	b.counter = counter
	return b
}

// SystemPrompt returns the assembled system prompt.
func (b *Builder) SystemPrompt() string {
	if b.customInstructions == "" {
		return b.systemPrompt
	}

	var sb strings.Builder
	sb.WriteString("<custom_instructions>\n")
	sb.WriteString(b.customInstructions)
	sb.WriteString("\n</custom_instructions>\n\n")
	sb.WriteString(b.systemPrompt)
	return sb.String()
}

// UserContext renders the failure logs and conversation log into the
// user message.
func (b *Builder) UserContext(failLogs, conversation string) string {
	conversation = b.trimHistory(conversation)
	return failLogsTag + "\n" + failLogs + "\n\n" + conversationLogTag + "\n" + conversation
}

// Messages returns the system and user messages for one turn.
func (b *Builder) Messages(failLogs, conversation string) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(b.SystemPrompt()),
		llm.UserMessage(b.UserContext(failLogs, conversation)),
	}
}

// trimHistory drops the oldest log sections until the rest fits the
// budget. The newest section is always kept.
func (b *Builder) trimHistory(conversation string) string {
	if b.historyBudget <= 0 || b.counter == nil {
		return conversation
	}
	if b.counter.CountTokens(conversation) <= b.historyBudget {
		return conversation
	}

	sections := splitSections(conversation)
	for len(sections) > 1 {
		sections = sections[1:]
		kept := OmittedMarker + "\n" + strings.Join(sections, "")
		if b.counter.CountTokens(kept) <= b.historyBudget {
			return kept
		}
	}

	return OmittedMarker + "\n" + strings.Join(sections, "")
}

// splitSections cuts the log in front of every update header, keeping
// any preamble as the first section.
func splitSections(conversation string) []string {
	header := convlog.SectionHeader + "\n"

	var cuts []int
	for i := 0; i < len(conversation); {
		idx := strings.Index(conversation[i:], header)
		if idx < 0 {
			break
		}
		pos := i + idx
		if pos > 0 {
			cuts = append(cuts, pos)
		}
		i = pos + len(header)
	}

	sections := make([]string, 0, len(cuts)+1)
	start := 0
	for _, cut := range cuts {
		sections = append(sections, conversation[start:cut])
		start = cut
	}
	return append(sections, conversation[start:])
}
