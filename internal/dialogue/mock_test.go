package dialogue

import (
	"context"

	"github.com/jonathan/procurement-caller/internal/llm"
)

// MockLLMClient is a mock implementation of llm.Client for testing
type MockLLMClient struct {
	GenerateChatFunc func(ctx context.Context, system string, history []llm.Message, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateChat(ctx context.Context, system string, history []llm.Message, tier llm.ModelTier) (string, error) {
	if m.GenerateChatFunc != nil {
		return m.GenerateChatFunc(ctx, system, history, tier)
	}
	return "Could you confirm the order, please?", nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string {
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	return nil
}
