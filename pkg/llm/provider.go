// Package llm defines the chat-completion boundary the turn talks to.
//
// Providers take an ordered list of messages and return the assistant's
// reply as plain text. Everything downstream of the reply (parsing,
// applying, logging) is provider-agnostic.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("RELAY_API_KEY"),
//	    openai.WithModel("gpt-4"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []llm.Message{
//	    llm.SystemMessage("You maintain this repository."),
//	    llm.UserMessage("[FAIL_LOGS]\n..."),
//	})
package llm

import (
	"context"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Provider defines the interface for LLM integrations.
type Provider interface {
	// Complete sends messages to the model and returns the text of the
	// first choice. An error means no usable reply was produced.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Model returns the model name requests are sent to.
	Model() string
}
