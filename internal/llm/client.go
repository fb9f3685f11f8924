package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Message is one entry of a chat history.
type Message struct {
	Role Role
	Text string
}

// Role identifies the author of a chat message.
type Role string

// Chat roles as understood by the provider.
const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateChat produces the next model message for a conversation.
	// The last history entry must come from the user.
	GenerateChat(ctx context.Context, systemInstruction string, history []Message, tier ModelTier) (string, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// GenerateChat sends the last user message with the preceding messages as chat history.
func (c *GeminiClient) GenerateChat(ctx context.Context, systemInstruction string, history []Message, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	if len(history) == 0 {
		return "", fmt.Errorf("chat history is empty")
	}
	last := history[len(history)-1]
	if last.Role != RoleUser {
		return "", fmt.Errorf("last chat message must come from the user, got %q", last.Role)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	if systemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))
	}

	cs := model.StartChat()
	cs.History = toContents(history[:len(history)-1])

	resp, err := cs.SendMessage(ctx, genai.Text(last.Text))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// toContents converts history into provider contents. Gemini expects a
// conversation to open with a user turn, so a placeholder user turn is
// inserted when the history starts with the model.
func toContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	if len(history) > 0 && history[0].Role == RoleModel {
		contents = append(contents, &genai.Content{
			Role:  string(RoleUser),
			Parts: []genai.Part{genai.Text(conversationStartPlaceholder)},
		})
	}
	for _, m := range history {
		contents = append(contents, &genai.Content{
			Role:  string(m.Role),
			Parts: []genai.Part{genai.Text(m.Text)},
		})
	}
	return contents
}

// conversationStartPlaceholder opens a history that begins with a model turn.
const conversationStartPlaceholder = "(call connected)"

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
