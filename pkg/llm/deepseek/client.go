// Package deepseek provides a DeepSeek-backed llm.Provider. DeepSeek
// exposes an OpenAI-compatible chat API, so the client reuses the
// OpenAI SDK with a different base URL.
package deepseek

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/edustack/tutorguard-go/pkg/llm"
)

// Client implements llm.Provider against the DeepSeek chat API.
type Client struct {
	client *openai.Client
	model  string
}

// Config contains DeepSeek client configuration.
type Config struct {
	// APIKey is the DeepSeek API key (required).
	APIKey string

	// Model is the model name (default "deepseek-chat").
	Model string

	// BaseURL overrides the API base URL (optional).
	BaseURL string
}

// NewClient creates a DeepSeek client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepseek: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "deepseek-chat"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = "https://api.deepseek.com"
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Generate generates text from a single prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages generates text from a conversation history.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("deepseek: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is retained for interface compatibility.
func (c *Client) Close() error {
	return nil
}
