// Package openai provides an OpenAI-compatible chat completion provider
// built on the official openai-go SDK.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("RELAY_API_KEY"),
//	    openai.WithModel("gpt-4"),
//	    openai.WithTemperature(0.3),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	reply, err := provider.Complete(ctx, []llm.Message{
//	    llm.SystemMessage(systemPrompt),
//	    llm.UserMessage(context),
//	})
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/entrhq/relay/pkg/llm"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1800
)

// ErrEmptyResponse is returned when the API answers without any choices.
var ErrEmptyResponse = errors.New("openai: response contained no choices")

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	client      openai.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int64
	maxRetries  int
	timeout     time.Duration
	httpClient  *http.Client
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ProviderOption {
	return func(p *Provider) {
		p.temperature = temperature
	}
}

// WithMaxTokens caps the reply length. Zero leaves the cap to the API.
func WithMaxTokens(maxTokens int64) ProviderOption {
	return func(p *Provider) {
		p.maxTokens = maxTokens
	}
}

// WithMaxRetries sets how often the SDK retries transient failures.
func WithMaxRetries(retries int) ProviderOption {
	return func(p *Provider) {
		p.maxRetries = retries
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		p.timeout = timeout
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If baseURL is not provided via WithBaseURL, the OPENAI_BASE_URL
// environment variable is consulted. Defaults are model gpt-4,
// temperature 0.3 and 1800 max tokens.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	p := &Provider{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		maxRetries:  2,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithMaxRetries(p.maxRetries),
	}
	if p.timeout > 0 {
		requestOpts = append(requestOpts, option.WithRequestTimeout(p.timeout))
	}
	if p.httpClient != nil {
		requestOpts = append(requestOpts, option.WithHTTPClient(p.httpClient))
	}
	p.client = openai.NewClient(requestOpts...)

	return p, nil
}

// Complete sends messages to the chat completions endpoint and returns the
// first choice's content.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    convertMessages(messages),
		Temperature: openai.Float(p.temperature),
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(p.maxTokens)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// Model returns the model name being used.
func (p *Provider) Model() string {
	return p.model
}

// BaseURL returns the base URL being used.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// convertMessages maps llm messages onto the SDK's message union.
func convertMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}

	return out
}
