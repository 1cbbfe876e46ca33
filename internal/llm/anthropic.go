package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"atelier/internal/config"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
	hasKey bool
	settings
}

// NewAnthropicClient builds a Messages API client. The SDK's own retries are
// disabled so backoff follows the same policy as the other backends.
func NewAnthropicClient(cfg config.LLMConfig, opts ...Option) *AnthropicClient {
	s := newSettings(cfg.TimeoutSeconds, cfg.RetryAttempts, opts)
	key := strings.TrimSpace(cfg.APIKey)
	clientOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHTTPClient(s.httpClient),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(base))
	}
	return &AnthropicClient{
		client:   anthropic.NewClient(clientOpts...),
		model:    strings.TrimSpace(cfg.Model),
		hasKey:   key != "",
		settings: s,
	}
}

// Complete sends one Messages request, retrying rate limits and server errors.
func (a *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	const op = "anthropic complete"
	if err := validateRequest(op, req); err != nil {
		return Response{}, err
	}
	if !a.hasKey {
		return Response{}, fmt.Errorf("%s: %w", op, ErrAPIKeyRequired)
	}
	model := pickModel(req, a.model)
	if model == "" {
		return Response{}, fmt.Errorf("%s: %w", op, ErrNoCandidates)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		// Anthropic caps temperature at 1.
		Temperature: anthropic.Float(min(req.Temperature, 1)),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	content, err := a.retry.do(ctx, op, func() (string, error) {
		message, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, block := range message.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			return "", &emptyContentError{Op: op, FinishReason: string(message.StopReason), Snippet: "<no text blocks>"}
		}
		return text, nil
	}, classifyAnthropicError)
	if err != nil {
		return Response{}, err
	}
	return Response{Content: content, Model: model}, nil
}

func classifyAnthropicError(err error) (time.Duration, bool) {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) || !retryableStatus(apiErr.StatusCode) {
		return 0, false
	}
	if apiErr.Response != nil {
		if delay, ok := parseRetryAfter(apiErr.Response.Header.Get("Retry-After")); ok {
			return delay, true
		}
	}
	return 0, true
}
