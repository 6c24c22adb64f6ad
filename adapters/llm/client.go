package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"relialab/internal/config"

	"github.com/sashabaranov/go-openai"
)

// ChatClient sends one system and one user message and returns the reply
type ChatClient interface {
	ChatCompletion(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIClient implements ChatClient for any OpenAI-compatible endpoint
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIClient creates a chat client from AI configuration
func NewOpenAIClient(cfg config.AIConfig) (*OpenAIClient, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	if strings.TrimSpace(cfg.OpenAIModel) == "" {
		return nil, fmt.Errorf("missing model")
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.OpenAIModel,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
	}, nil
}

func (c *OpenAIClient) ChatCompletion(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("OpenAI returned empty content (finish_reason=%s)", resp.Choices[0].FinishReason)
	}
	return content, nil
}
