package webapp

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"atelier/internal/imagesearch"
	"atelier/internal/logging"
	"atelier/internal/store"
	"atelier/internal/stylist"
	"atelier/internal/uploads"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sources := map[string]bool{}
	if s.search != nil {
		sources = s.search.Configured()
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Stats:         stats,
		SearchSources: sources,
		UploadMaxSize: s.uploads.MaxBytes(),
	})
}

func (s *Server) view(r *http.Request, item *store.Clothing) *ClothingView {
	return &ClothingView{Clothing: item, ImageURL: s.stylist.ImageURL(item.ImageFilename, s.requestBaseURL(r))}
}

func (s *Server) handleListClothes(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListClothes(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]*ClothingView, 0, len(items))
	for _, item := range items {
		views = append(views, s.view(r, item))
	}
	s.writeJSON(w, http.StatusOK, ClothesResponse{Items: views})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxBytes()+multipartOverhead)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		case errors.Is(err, http.ErrMissingFile):
			s.writeError(w, http.StatusBadRequest, "no file part")
		default:
			s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		}
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "no selected file")
		return
	}

	item, err := s.stylist.Upload(r.Context(), header.Filename, file, s.requestBaseURL(r))
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrExtension):
			s.writeError(w, http.StatusBadRequest, "allowed image types are "+strings.Join(s.uploads.Extensions(), ", "))
		case errors.Is(err, uploads.ErrTooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		case errors.Is(err, uploads.ErrEmpty), errors.Is(err, uploads.ErrInvalidName):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusCreated, s.view(r, item))
}

func (s *Server) clothingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid clothing id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetClothing(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clothingID(w, r)
	if !ok {
		return
	}
	item, err := s.store.GetClothing(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "clothing not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(r, item))
}

// handlePatchClothing sets the description from the body, or re-runs image
// analysis when the body carries none.
func (s *Server) handlePatchClothing(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clothingID(w, r)
	if !ok {
		return
	}
	var patch descriptionPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var (
		item *store.Clothing
		err  error
	)
	if patch.Description != nil && strings.TrimSpace(*patch.Description) != "" {
		err = s.store.UpdateClothingDescription(r.Context(), id, strings.TrimSpace(*patch.Description))
		if err == nil {
			item, err = s.store.GetClothing(r.Context(), id)
		}
	} else {
		item, err = s.stylist.Redescribe(r.Context(), id, s.requestBaseURL(r))
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "clothing not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "clothing not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(r, item))
}

func (s *Server) handleDeleteClothing(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clothingID(w, r)
	if !ok {
		return
	}
	if err := s.stylist.Remove(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "clothing not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	path, err := s.uploads.Path(r.PathValue("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "image not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleOutfit(w http.ResponseWriter, r *http.Request) {
	style, err := readStyle(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.stylist.Recommend(r.Context(), style)
	if err != nil {
		if errors.Is(err, stylist.ErrStyleRequired) {
			s.writeError(w, http.StatusBadRequest, "please enter your style preference")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

// readStyle accepts a JSON body or a form field named style.
func readStyle(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req outfitRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", errors.New("invalid json body")
		}
		return req.Style, nil
	}
	return r.FormValue("style"), nil
}

func (s *Server) handleLatestRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.stylist.Latest(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "no recommendation available")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	return limit
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListRecommendations(r.Context(), queryLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*store.Recommendation{}
	}
	s.writeJSON(w, http.StatusOK, RecommendationsResponse{Items: recs})
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.ListPreferences(r.Context(), queryLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if prefs == nil {
		prefs = []*store.Preference{}
	}
	s.writeJSON(w, http.StatusOK, PreferencesResponse{Items: prefs})
}

// handleSearch proxies image search. Upstream failures are logged and
// answered with an empty result list.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	source := imagesearch.NormalizeSource(r.URL.Query().Get("source"))
	results := []string{}
	if query != "" && s.search != nil {
		found, err := s.search.Search(r.Context(), source, query)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "image search failed", "image_search_failed",
				logging.String("source", source),
				logging.String("query", query),
				logging.Error(err),
				logging.String(logging.FieldImpact, "search returned no results"),
				logging.String(logging.FieldErrorHint, "check image_search api keys"),
			)
		} else {
			results = found
		}
	}
	s.writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
