// Package llm adapts the hosted completion service to the chat controller.
//
// The service speaks the OpenAI chat completions protocol; Groq's
// OpenAI-compatible endpoint is the default target.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devmud/devmud-site/internal/chat"
	"github.com/sashabaranov/go-openai"
)

// Fixed request parameters.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = float32(0.7)
	DefaultMaxTokens   = 500
	DefaultTimeout     = 60 * time.Second
)

// Options configures a GroqClient. Zero values fall back to the defaults above.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// GroqClient implements chat.Completer with one non-streaming chat completion
// per call.
type GroqClient struct {
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ chat.Completer = (*GroqClient)(nil)

// NewGroqClient creates a completion client.
func NewGroqClient(opts Options) *GroqClient {
	c := &GroqClient{
		baseURL:     opts.BaseURL,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.temperature == 0 {
		c.temperature = DefaultTemperature
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Complete sends the system prompt and the latest user message and returns
// the first choice's content.
func (c *GroqClient) Complete(ctx context.Context, apiKey string, prompt chat.Prompt) (string, error) {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(c.baseURL, "/")
	cfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", c.translate(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.logger.Warn("Completion response has no content", "model", c.model, "choices", len(resp.Choices))
		return "", chat.ErrMalformedResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// translate maps go-openai errors onto the controller's error vocabulary.
func (c *GroqClient) translate(err error) error {
	var (
		apiErr    *openai.APIError
		reqErr    *openai.RequestError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &apiErr):
		return &chat.TransportError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	case errors.As(err, &reqErr):
		return &chat.TransportError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    fmt.Sprintf("API Error: %s", http.StatusText(reqErr.HTTPStatusCode)),
			Err:        err,
		}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		c.logger.Warn("Completion response is not valid JSON", "error", err)
		return chat.ErrMalformedResponse
	default:
		return &chat.TransportError{Err: err}
	}
}
