package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"atelier/internal/logging"
)

// Fallback tries an ordered list of models on one backend until one answers.
type Fallback struct {
	backend Completer
	models  []string
	logger  *slog.Logger
}

// NewFallback wraps backend with candidate models. Blank and duplicate names are dropped.
func NewFallback(backend Completer, models ...string) *Fallback {
	seen := make(map[string]struct{}, len(models))
	cleaned := make([]string, 0, len(models))
	for _, model := range models {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		if _, ok := seen[model]; ok {
			continue
		}
		seen[model] = struct{}{}
		cleaned = append(cleaned, model)
	}
	return &Fallback{backend: backend, models: cleaned, logger: logging.NewNop()}
}

// WithLogger sets the logger used to report model failovers.
func (f *Fallback) WithLogger(logger *slog.Logger) *Fallback {
	if logger != nil {
		f.logger = logging.NewComponentLogger(logger, "llm")
	}
	return f
}

// Models returns the candidate list in order.
func (f *Fallback) Models() []string {
	return append([]string(nil), f.models...)
}

// Complete tries req.Model first when set, then each configured model.
func (f *Fallback) Complete(ctx context.Context, req Request) (Response, error) {
	candidates := f.models
	if model := strings.TrimSpace(req.Model); model != "" {
		candidates = append([]string{model}, without(f.models, model)...)
	}
	if len(candidates) == 0 || f.backend == nil {
		return Response{}, ErrNoCandidates
	}

	var errs []error
	for idx, model := range candidates {
		attempt := req
		attempt.Model = model
		resp, err := f.backend.Complete(ctx, attempt)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrAPIKeyRequired) {
			return Response{}, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
		if idx < len(candidates)-1 {
			logging.WarnWithContext(logging.WithContext(ctx, f.logger), "model failed; trying next candidate", "llm_model_failover",
				logging.String("model", model),
				logging.String("next_model", candidates[idx+1]),
				logging.Error(err),
				logging.String(logging.FieldImpact, "response comes from a fallback model"),
				logging.String(logging.FieldErrorHint, "check the model name and provider quota"),
			)
		}
	}
	return Response{}, errors.Join(errs...)
}

func without(values []string, drop string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value != drop {
			out = append(out, value)
		}
	}
	return out
}
