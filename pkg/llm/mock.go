package llm

import (
	"context"
	"sync"
)

// MockProvider returns a canned reply. It records every request so tests
// can assert on what was sent.
type MockProvider struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls [][]Message
}

// NewMockProvider returns a provider that always answers reply.
func NewMockProvider(reply string) *MockProvider {
	return &MockProvider{Reply: reply}
}

// Complete records messages and returns the canned reply or error.
func (m *MockProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]Message, len(messages))
	copy(copied, messages)
	m.calls = append(m.calls, copied)

	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Model returns "mock".
func (m *MockProvider) Model() string {
	return "mock"
}

// Calls returns the recorded requests in order.
func (m *MockProvider) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.calls...)
}
