package webapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"atelier/internal/imagesearch"
	"atelier/internal/logging"
	"atelier/internal/store"
	"atelier/internal/stylist"
	"atelier/internal/uploads"
)

// multipartOverhead leaves room for form boundaries and headers on top of
// the configured file size limit.
const multipartOverhead = 1 << 20

// Options wires a Server.
type Options struct {
	Bind    string
	Token   string
	Store   *store.Store
	Uploads *uploads.Store
	Stylist *stylist.Service
	Search  *imagesearch.Client
	Logger  *slog.Logger

	// PublicBaseURL, when set, is used instead of the request host to build
	// image URLs.
	PublicBaseURL string
}

// Server is the catalogue HTTP API.
type Server struct {
	bind    string
	baseURL string
	store   *store.Store
	uploads *uploads.Store
	stylist *stylist.Service
	search  *imagesearch.Client
	logger  *slog.Logger
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New builds a Server. Store, Uploads, and Stylist are required.
func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Uploads == nil || opts.Stylist == nil {
		return nil, errors.New("webapp requires store, uploads, and stylist")
	}
	s := &Server{
		bind:    strings.TrimSpace(opts.Bind),
		baseURL: strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"),
		store:   opts.Store,
		uploads: opts.Uploads,
		stylist: opts.Stylist,
		search:  opts.Search,
		logger:  logging.NewComponentLogger(opts.Logger, "api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/clothes", s.handleListClothes)
	mux.HandleFunc("POST /api/clothes", s.handleUpload)
	mux.HandleFunc("GET /api/clothes/{id}", s.handleGetClothing)
	mux.HandleFunc("PATCH /api/clothes/{id}", s.handlePatchClothing)
	mux.HandleFunc("DELETE /api/clothes/{id}", s.handleDeleteClothing)
	mux.HandleFunc("GET /uploads/{name}", s.handleImage)
	mux.HandleFunc("POST /api/outfit", s.handleOutfit)
	mux.HandleFunc("GET /api/recommendation", s.handleLatestRecommendation)
	mux.HandleFunc("GET /api/recommendations", s.handleRecommendations)
	mux.HandleFunc("GET /api/preferences", s.handlePreferences)
	mux.HandleFunc("GET /api/search_images", s.handleSearch)

	s.handler = requestLogger(s.logger, authMiddleware(strings.TrimSpace(opts.Token), mux))
	return s, nil
}

// Handler returns the routed handler with auth and request logging applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the bind address and serves in the background until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for in-flight requests.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(s.logger, "api server shutdown incomplete", "api_shutdown_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "in-flight requests were interrupted"),
		)
		return
	}
	s.logger.Info("api server stopped")
}

// Serve runs the server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// requestBaseURL is the scheme and host the client used to reach us.
func (s *Server) requestBaseURL(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
