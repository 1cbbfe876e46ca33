package imagesearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atelier/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/pins", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer pin-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("query") != "summer linen" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("unexpected pinterest query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":[{"images":{"orig":{"url":"https://i.pinimg.com/a.jpg"}}},{"images":{}},{"images":{"orig":{"url":"https://i.pinimg.com/b.jpg"}}}]}`))
	})
	mux.HandleFunc("/search/photos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client_id") != "unsplash-key" || q.Get("per_page") != "10" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("bad key"))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"urls":{"small":"https://images.unsplash.com/x"}}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(server *httptest.Server, pinKey, unsplashKey string) *Client {
	return New(config.ImageSearch{
		PinterestAPIKey:  pinKey,
		UnsplashAPIKey:   unsplashKey,
		PinterestBaseURL: server.URL,
		UnsplashBaseURL:  server.URL,
		Limit:            10,
	})
}

func TestSearchPinterestIsDefault(t *testing.T) {
	client := newTestClient(newTestServer(t), "pin-key", "")
	urls, err := client.Search(context.Background(), "", "summer linen")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if strings.Join(urls, ",") != "https://i.pinimg.com/a.jpg,https://i.pinimg.com/b.jpg" {
		t.Fatalf("unexpected urls %v", urls)
	}
}

func TestSearchUnsplash(t *testing.T) {
	client := newTestClient(newTestServer(t), "", "unsplash-key")
	urls, err := client.Search(context.Background(), "Unsplash", "boots")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://images.unsplash.com/x" {
		t.Fatalf("unexpected urls %v", urls)
	}
}

func TestSearchEdgeCases(t *testing.T) {
	server := newTestServer(t)

	client := newTestClient(server, "pin-key", "wrong")
	urls, err := client.Search(context.Background(), "pinterest", "   ")
	if err != nil || urls == nil || len(urls) != 0 {
		t.Fatalf("expected empty non-nil results for blank query, got %v %v", urls, err)
	}

	urls, err = client.Search(context.Background(), "unsplash", "boots")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 status error, got %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected no urls on failure, got %v", urls)
	}

	if _, err := client.Search(context.Background(), "flickr", "boots"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	urls, err = client.Search(context.Background(), "flickr", "  ")
	if err != nil || urls == nil || len(urls) != 0 {
		t.Fatalf("expected empty query to short-circuit before source checks, got %v err=%v", urls, err)
	}

	noKeys := newTestClient(server, "", "")
	if _, err := noKeys.Search(context.Background(), "pinterest", "boots"); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if got := noKeys.Configured(); got[SourcePinterest] || got[SourceUnsplash] {
		t.Fatalf("expected nothing configured, got %v", got)
	}
}
