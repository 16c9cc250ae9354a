package services

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultModelTimeout = 30 * time.Second

// Completer turns a prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelConfig is the injected configuration of the completion API.
type ModelConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// AIService calls an OpenAI-compatible chat completion endpoint.
type AIService struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewAIService(cfg ModelConfig) *AIService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	if cfg.APIKey == "" {
		return &AIService{timeout: timeout}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	return &AIService{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}
}

func (s *AIService) disabled() bool {
	return s.client == nil || s.model == ""
}

// Complete issues a single chat completion request and returns the first
// choice's content, trimmed. Every failure is an *UpstreamError.
func (s *AIService) Complete(ctx context.Context, prompt string) (string, error) {
	if s.disabled() {
		return "", &UpstreamError{Err: ErrModelUnavailable}
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &UpstreamError{StatusCode: statusCodeOf(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Err: errors.New("model returned no choices")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
