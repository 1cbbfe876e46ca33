package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"atelier/internal/config"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
	defaultMaxTokens      = 4096
)

// ErrNoCandidates is returned when no model is configured to serve a request.
var ErrNoCandidates = errors.New("llm: no candidate models configured")

// ErrAPIKeyRequired is returned by backends constructed without credentials.
var ErrAPIKeyRequired = errors.New("llm: api key required")

// Request is a single-turn completion request.
type Request struct {
	System string
	User   string
	// Model overrides the backend's default model when set.
	Model       string
	Temperature float64
	// MaxTokens caps the response length; zero lets the backend decide.
	MaxTokens int
	// JSON asks the backend for a JSON object when the protocol supports it.
	JSON bool
}

// Response carries the model output.
type Response struct {
	Content string
	Model   string
}

// Completer is implemented by every backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Option customizes a backend.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
	retry      retryPolicy
}

func newSettings(timeoutSeconds, attempts int, opts []Option) settings {
	timeout := defaultHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	s := settings{
		httpClient: &http.Client{Timeout: timeout},
		retry: retryPolicy{
			maxAttempts: attempts,
			baseDelay:   defaultRetryBaseDelay,
			maxDelay:    defaultRetryMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: timeout}
	}
	return s
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the configured retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(s *settings) {
		s.retry.maxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(s *settings) {
		s.retry.baseDelay = baseDelay
		s.retry.maxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *settings) {
		s.retry.sleeper = sleeper
	}
}

// New builds the backend selected by cfg.Provider wrapped in a Fallback over
// cfg.Model and cfg.FallbackModels.
func New(ctx context.Context, cfg config.LLMConfig, opts ...Option) (*Fallback, error) {
	var backend Completer
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.ProviderOpenAI:
		backend = NewClient(Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
			RetryAttempts:  cfg.RetryAttempts,
		}, opts...)
	case config.ProviderAnthropic:
		backend = NewAnthropicClient(cfg, opts...)
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
	models := append([]string{cfg.Model}, cfg.FallbackModels...)
	return NewFallback(backend, models...), nil
}

// HealthCheck issues a tiny JSON request to verify the key and model are usable.
func HealthCheck(ctx context.Context, completer Completer) error {
	if completer == nil {
		return errors.New("llm health: no backend")
	}
	resp, err := completer.Complete(ctx, Request{
		System: "You must respond with JSON only.",
		User:   `Respond with {"ok":true}`,
		JSON:   true,
	})
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(resp.Content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func validateRequest(op string, req Request) error {
	if strings.TrimSpace(req.User) == "" {
		return fmt.Errorf("%s: user prompt required", op)
	}
	return nil
}

func pickModel(req Request, fallback string) string {
	if model := strings.TrimSpace(req.Model); model != "" {
		return model
	}
	return strings.TrimSpace(fallback)
}
