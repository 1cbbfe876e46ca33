// Package stylist implements the wardrobe workflows: describing uploaded
// photos and suggesting an outfit from the catalogue and a style preference.
package stylist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"atelier/internal/llm"
	"atelier/internal/logging"
	"atelier/internal/store"
	"atelier/internal/uploads"
)

const (
	describeSystemPrompt  = "You are an assistant that can analyze and describe images based on their URLs."
	recommendSystemPrompt = "You are a fashion assistant."

	// FallbackDescription is stored when the image could not be described.
	FallbackDescription = "Could not analyze image."
	// FallbackOutfit is stored when the outfit request fails.
	FallbackOutfit = "Error generating recommendation."
	// GeneratedReason accompanies successful recommendations.
	GeneratedReason = "Automatically generated based on uploaded clothes and style preferences."
)

// ErrStyleRequired is returned when Recommend is called without a style.
var ErrStyleRequired = errors.New("stylist: style preference required")

// Service wires the catalogue, the upload directory, and the language models.
type Service struct {
	store       *store.Store
	uploads     *uploads.Store
	describer   llm.Completer
	recommender llm.Completer
	temperature float64
	baseURL     string
	logger      *slog.Logger
}

// Options configures a Service.
type Options struct {
	Store       *store.Store
	Uploads     *uploads.Store
	Describer   llm.Completer
	Recommender llm.Completer
	Temperature float64

	// PublicBaseURL prefixes /uploads/<name> when building image URLs.
	PublicBaseURL string
	Logger        *slog.Logger
}

// New builds a Service.
func New(opts Options) *Service {
	recommender := opts.Recommender
	if recommender == nil {
		recommender = opts.Describer
	}
	return &Service{
		store:       opts.Store,
		uploads:     opts.Uploads,
		describer:   opts.Describer,
		recommender: recommender,
		temperature: opts.Temperature,
		baseURL:     strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"),
		logger:      logging.NewComponentLogger(opts.Logger, "stylist"),
	}
}

// ImageURL builds the public URL for a stored upload. baseURL is used only
// when no public base is configured.
func (s *Service) ImageURL(name, baseURL string) string {
	base := s.baseURL
	if base == "" {
		base = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return base + "/uploads/" + name
}

// Describe asks the model to describe the image at imageURL. Failures yield
// FallbackDescription rather than an error.
func (s *Service) Describe(ctx context.Context, imageURL string) string {
	if s.describer == nil {
		return FallbackDescription
	}
	resp, err := s.describer.Complete(ctx, llm.Request{
		System:      describeSystemPrompt,
		User:        "Please describe the contents of this image: " + imageURL,
		Temperature: s.temperature,
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "image description failed; storing placeholder", "describe_failed",
			logging.String("image_url", imageURL),
			logging.Error(err),
			logging.String(logging.FieldImpact, "item saved without a useful description"),
			logging.String(logging.FieldErrorHint, "run `atelier clothes describe <id>` once the model is reachable"),
		)
		return FallbackDescription
	}
	desc := strings.TrimSpace(resp.Content)
	if desc == "" {
		return FallbackDescription
	}
	return desc
}

// Upload saves the photo, describes it, and records it in the catalogue.
func (s *Service) Upload(ctx context.Context, originalName string, r io.Reader, baseURL string) (*store.Clothing, error) {
	name, err := s.uploads.Save(originalName, r)
	if err != nil {
		return nil, err
	}
	desc := s.Describe(ctx, s.ImageURL(name, baseURL))
	item, err := s.store.AddClothing(ctx, name, desc)
	if err != nil {
		_ = s.uploads.Remove(name)
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("clothing uploaded",
		logging.Int64("clothing_id", item.ID),
		logging.String("image", name),
		logging.String(logging.FieldEventType, "clothing_uploaded"),
	)
	return item, nil
}

// Redescribe re-runs the description for an existing item.
func (s *Service) Redescribe(ctx context.Context, id int64, baseURL string) (*store.Clothing, error) {
	item, err := s.store.GetClothing(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("clothing %d: %w", id, store.ErrNotFound)
	}
	desc := s.Describe(ctx, s.ImageURL(item.ImageFilename, baseURL))
	if err := s.store.UpdateClothingDescription(ctx, id, desc); err != nil {
		return nil, err
	}
	item.Description = desc
	return item, nil
}

// Remove deletes the catalogue row and its image file.
func (s *Service) Remove(ctx context.Context, id int64) error {
	item, err := s.store.GetClothing(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("clothing %d: %w", id, store.ErrNotFound)
	}
	if err := s.store.DeleteClothing(ctx, id); err != nil {
		return err
	}
	if err := s.uploads.Remove(item.ImageFilename); err != nil {
		logging.WarnWithContext(s.logger, "image file not removed", "upload_remove_failed",
			logging.Int64("clothing_id", id),
			logging.String("image", item.ImageFilename),
			logging.Error(err),
			logging.String(logging.FieldImpact, "orphaned file remains in the upload directory"),
		)
	}
	return nil
}

// Recommend records the style preference and asks for an outfit built from
// every catalogued description. Model failures are stored as FallbackOutfit
// with an empty reason rather than returned.
func (s *Service) Recommend(ctx context.Context, style string) (*store.Recommendation, error) {
	style = strings.TrimSpace(style)
	if style == "" {
		return nil, ErrStyleRequired
	}
	pref, err := s.store.AddPreference(ctx, style)
	if err != nil {
		return nil, err
	}
	descriptions, err := s.store.Descriptions(ctx)
	if err != nil {
		return nil, err
	}

	rec := store.Recommendation{PreferenceID: pref.ID}
	outfit, err := s.suggest(ctx, strings.Join(descriptions, " "), style)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "outfit suggestion failed", "recommend_failed",
			logging.Error(err),
			logging.Int("items", len(descriptions)),
			logging.String(logging.FieldImpact, "placeholder recommendation stored"),
			logging.String(logging.FieldErrorHint, "check llm settings with `atelier check`"),
		)
		rec.OutfitDescription = FallbackOutfit
	} else {
		rec.OutfitDescription = outfit
		rec.Reason = GeneratedReason
	}
	return s.store.AddRecommendation(ctx, rec)
}

func (s *Service) suggest(ctx context.Context, descriptions, style string) (string, error) {
	if s.recommender == nil {
		return "", errors.New("no recommender configured")
	}
	prompt := fmt.Sprintf(
		"Based on the following clothing items: %s and the user's style preference: %s, suggest an outfit for today and explain why it is recommended.",
		descriptions, style,
	)
	resp, err := s.recommender.Complete(ctx, llm.Request{
		System:      recommendSystemPrompt,
		User:        prompt,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", err
	}
	outfit := strings.TrimSpace(resp.Content)
	if outfit == "" {
		return "", errors.New("empty suggestion")
	}
	return outfit, nil
}

// Latest returns the newest recommendation or nil.
func (s *Service) Latest(ctx context.Context) (*store.Recommendation, error) {
	return s.store.LatestRecommendation(ctx)
}
