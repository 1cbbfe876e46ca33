// Package imagesearch proxies outfit inspiration searches to Pinterest and Unsplash.
package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"atelier/internal/config"
)

// Supported sources.
const (
	SourcePinterest = "pinterest"
	SourceUnsplash  = "unsplash"
)

var (
	// ErrUnknownSource is returned for sources other than pinterest and unsplash.
	ErrUnknownSource = errors.New("imagesearch: unknown source")
	// ErrMissingKey is returned when the selected source has no API key configured.
	ErrMissingKey = errors.New("imagesearch: api key not configured")
)

// StatusError reports a non-200 upstream response.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("imagesearch: %s returned http %d: %s", e.Source, e.StatusCode, e.Body)
}

// Client queries the upstream search APIs.
type Client struct {
	cfg        config.ImageSearch
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New builds a search client from configuration.
func New(cfg config.ImageSearch, opts ...Option) *Client {
	timeout := 15 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	c := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeSource lowercases source and defaults it to pinterest.
func NormalizeSource(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return SourcePinterest
	}
	return source
}

// Configured reports which sources have credentials.
func (c *Client) Configured() map[string]bool {
	return map[string]bool{
		SourcePinterest: c.cfg.PinterestAPIKey != "",
		SourceUnsplash:  c.cfg.UnsplashAPIKey != "",
	}
}

// Search returns image URLs for query. An empty query returns no results and no error.
func (c *Client) Search(ctx context.Context, source, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	source = NormalizeSource(source)
	switch source {
	case SourcePinterest, SourceUnsplash:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if source == SourcePinterest {
		return c.searchPinterest(ctx, query)
	}
	return c.searchUnsplash(ctx, query)
}

func (c *Client) searchPinterest(ctx context.Context, query string) ([]string, error) {
	if c.cfg.PinterestAPIKey == "" {
		return []string{}, fmt.Errorf("%w: %s", ErrMissingKey, SourcePinterest)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(c.cfg.Limit))
	endpoint := strings.TrimRight(c.cfg.PinterestBaseURL, "/") + "/search/pins?" + params.Encode()

	var payload struct {
		Data []struct {
			Images struct {
				Orig struct {
					URL string `json:"url"`
				} `json:"orig"`
			} `json:"images"`
		} `json:"data"`
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.PinterestAPIKey)
	if err := c.getJSON(ctx, SourcePinterest, endpoint, header, &payload); err != nil {
		return []string{}, err
	}
	urls := make([]string, 0, len(payload.Data))
	for _, pin := range payload.Data {
		if u := strings.TrimSpace(pin.Images.Orig.URL); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (c *Client) searchUnsplash(ctx context.Context, query string) ([]string, error) {
	if c.cfg.UnsplashAPIKey == "" {
		return []string{}, fmt.Errorf("%w: %s", ErrMissingKey, SourceUnsplash)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(c.cfg.Limit))
	params.Set("client_id", c.cfg.UnsplashAPIKey)
	endpoint := strings.TrimRight(c.cfg.UnsplashBaseURL, "/") + "/search/photos?" + params.Encode()

	var payload struct {
		Results []struct {
			URLs struct {
				Small string `json:"small"`
			} `json:"urls"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, SourceUnsplash, endpoint, nil, &payload); err != nil {
		return []string{}, err
	}
	urls := make([]string, 0, len(payload.Results))
	for _, photo := range payload.Results {
		if u := strings.TrimSpace(photo.URLs.Small); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (c *Client) getJSON(ctx context.Context, source, endpoint string, header http.Header, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("imagesearch: new request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("imagesearch: %s request: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Source: source, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("imagesearch: decode %s response: %w", source, err)
	}
	return nil
}
