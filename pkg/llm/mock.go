package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	CompleteFunc func(ctx context.Context, systemMessage, prompt string) (string, error)
	ModelName    string

	// Calls records the prompts passed to Complete, in order.
	Calls []string
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Complete(ctx context.Context, systemMessage, prompt string) (string, error) {
	m.Calls = append(m.Calls, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemMessage, prompt)
	}
	return "{}", nil
}

func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}
