package webapp

import (
	"encoding/json"
	"net/http"

	"atelier/internal/logging"
	"atelier/internal/store"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	store.Stats
	SearchSources map[string]bool `json:"search_sources"`
	UploadMaxSize int64           `json:"upload_max_bytes"`
}

// ClothesResponse wraps the catalogue listing.
type ClothesResponse struct {
	Items []*ClothingView `json:"items"`
}

// ClothingView is a catalogue row plus the URL of its image.
type ClothingView struct {
	*store.Clothing
	ImageURL string `json:"image_url"`
}

// PreferencesResponse wraps the style preference history.
type PreferencesResponse struct {
	Items []*store.Preference `json:"items"`
}

// RecommendationsResponse wraps the recommendation history.
type RecommendationsResponse struct {
	Items []*store.Recommendation `json:"items"`
}

// SearchResponse carries image URLs from the search proxy.
type SearchResponse struct {
	Results []string `json:"results"`
}

type descriptionPatch struct {
	Description *string `json:"description"`
}

type outfitRequest struct {
	Style string `json:"style"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
