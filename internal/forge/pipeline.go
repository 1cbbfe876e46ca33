package forge

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"atelier/internal/config"
	"atelier/internal/llm"
	"atelier/internal/logging"
	"atelier/internal/textutil"
)

// Pipeline issues the role-specific model calls of one iteration.
type Pipeline struct {
	completer       llm.Completer
	reviewerPrompts []string
	concurrency     int

	generatorModel  string
	reviewerModel   string
	aggregatorModel string
	analystModel    string

	generatorTemperature float64
	reviewerTemperature  float64

	logger *slog.Logger
}

// NewPipeline builds a pipeline over completer using the forge settings.
// Blank role models defer to the completer's own model list.
func NewPipeline(cfg config.Forge, completer llm.Completer, logger *slog.Logger) *Pipeline {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		completer:            completer,
		reviewerPrompts:      append([]string(nil), cfg.ReviewerPrompts...),
		concurrency:          concurrency,
		generatorModel:       cfg.GeneratorModel,
		reviewerModel:        cfg.ReviewerModel,
		aggregatorModel:      cfg.AggregatorModel,
		analystModel:         cfg.AnalystModel,
		generatorTemperature: cfg.GeneratorTemperature,
		reviewerTemperature:  cfg.ReviewerTemperature,
		logger:               logging.NewComponentLogger(logger, "forge"),
	}
}

// ReviewerPrompts returns the configured reviewer instructions in order.
func (p *Pipeline) ReviewerPrompts() []string {
	return append([]string(nil), p.reviewerPrompts...)
}

// Generate asks the generator model for a bundle answering prompt.
func (p *Pipeline) Generate(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, "generate", llm.Request{
		System:      generatorSystemPrompt,
		User:        prompt,
		Model:       p.generatorModel,
		Temperature: p.generatorTemperature,
	})
}

// GenerateVariants produces n independent generations of prompt concurrently.
func (p *Pipeline) GenerateVariants(ctx context.Context, prompt string, n int) ([]string, error) {
	if n <= 1 {
		out, err := p.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	}
	variants := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range variants {
		g.Go(func() error {
			out, err := p.Generate(gctx, prompt)
			if err != nil {
				return err
			}
			variants[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return variants, nil
}

// Review runs every reviewer prompt against code concurrently. Results keep
// reviewer order.
func (p *Pipeline) Review(ctx context.Context, code string) ([]string, error) {
	if len(p.reviewerPrompts) == 0 {
		return nil, ErrNoReviewers
	}
	reviews := make([]string, len(p.reviewerPrompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, instruction := range p.reviewerPrompts {
		g.Go(func() error {
			out, err := p.complete(gctx, "review", llm.Request{
				System:      reviewerSystemPrompt,
				User:        reviewPrompt(instruction, code),
				Model:       p.reviewerModel,
				Temperature: p.reviewerTemperature,
			})
			if err != nil {
				return err
			}
			reviews[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Aggregate merges reviewer revisions of original into one version.
func (p *Pipeline) Aggregate(ctx context.Context, original string, revisions []string) (string, error) {
	return p.complete(ctx, "aggregate", llm.Request{
		System:      aggregatorSystemPrompt,
		User:        aggregatePrompt(original, revisions),
		Model:       p.aggregatorModel,
		Temperature: p.reviewerTemperature,
	})
}

// Analyze asks for missing features and improvements of code built for subject.
func (p *Pipeline) Analyze(ctx context.Context, subject, code string) (string, error) {
	return p.complete(ctx, "analyze", llm.Request{
		System:      analystSystemPrompt,
		User:        analysisPrompt(subject, code),
		Model:       p.analystModel,
		Temperature: p.reviewerTemperature,
	})
}

func (p *Pipeline) complete(ctx context.Context, step string, req llm.Request) (string, error) {
	ctx = logging.WithStep(ctx, step)
	logger := logging.WithContext(ctx, p.logger)
	start := time.Now()
	logger.Debug("model request",
		logging.String("model", req.Model),
		logging.String("prompt", textutil.Snippet(req.User, 120)),
	)
	resp, err := p.completer.Complete(ctx, req)
	if err != nil {
		return "", wrap(ErrModel, step, "complete", "", err)
	}
	logger.Debug("model response",
		logging.String("model", resp.Model),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("chars", len(resp.Content)),
	)
	return strings.TrimSpace(resp.Content), nil
}
