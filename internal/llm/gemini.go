package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"atelier/internal/config"
)

// GeminiClient talks to the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	hasKey bool
	settings
}

// NewGeminiClient builds a Gemini API client.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, opts ...Option) (*GeminiClient, error) {
	s := newSettings(cfg.TimeoutSeconds, cfg.RetryAttempts, opts)
	key := strings.TrimSpace(cfg.APIKey)
	clientCfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	if key == "" {
		// genai refuses to build a client without credentials; defer the
		// failure to Complete so configuration stays loadable.
		return &GeminiClient{model: strings.TrimSpace(cfg.Model), settings: s}, nil
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: strings.TrimSpace(cfg.Model), hasKey: true, settings: s}, nil
}

// Complete sends one GenerateContent request, retrying rate limits and server errors.
func (g *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	const op = "gemini complete"
	if err := validateRequest(op, req); err != nil {
		return Response{}, err
	}
	if !g.hasKey || g.client == nil {
		return Response{}, fmt.Errorf("%s: %w", op, ErrAPIKeyRequired)
	}
	model := pickModel(req, g.model)
	if model == "" {
		return Response{}, fmt.Errorf("%s: %w", op, ErrNoCandidates)
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	content, err := g.retry.do(ctx, op, func() (string, error) {
		resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.User), genCfg)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", &emptyContentError{Op: op, Snippet: "<no text parts>"}
		}
		return text, nil
	}, classifyGeminiError)
	if err != nil {
		return Response{}, err
	}
	return Response{Content: content, Model: model}, nil
}

func classifyGeminiError(err error) (time.Duration, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return 0, retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return 0, retryableStatus(apiErrPtr.Code)
	}
	return 0, false
}
